package server

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/testutil"
)

func siteTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"index.html":                "<html><body><h1>Home</h1></body></html>",
		"about/index.html":          "<html><body>About</body></html>",
		"css/bundle-0123456789.css": "body{}",
		"robots.txt":                "User-agent: *",
		"empty/.keep":               "",
	})
	return root
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServe_StaticFiles(t *testing.T) {
	h := New(Options{Root: siteTree(t)}).Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Home</h1>")
	assert.NotContains(t, rec.Body.String(), "livereload.js")
	assert.Equal(t, "no-cache, must-revalidate", rec.Header().Get("Cache-Control"))

	rec = get(t, h, "/about/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "About")

	rec = get(t, h, "/css/bundle-0123456789.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))

	rec = get(t, h, "/livereload.js")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_NotFound(t *testing.T) {
	root := siteTree(t)
	h := New(Options{Root: root}).Handler()

	rec := get(t, h, "/missing/")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, "/empty/")
	assert.Equal(t, http.StatusNotFound, rec.Code, "directory without index is not listed")

	testutil.WriteTree(t, root, map[string]string{"404.html": "<html><body>Custom missing</body></html>"})
	rec = get(t, h, "/missing/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Custom missing")
}

func TestServe_LiveReloadInjection(t *testing.T) {
	root := siteTree(t)
	testutil.WriteTree(t, root, map[string]string{"404.html": "<html><body>gone</body></html>"})
	h := New(Options{Root: root, LiveReload: true}).Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<h1>Home</h1><script async src="/livereload.js"></script></body>`)

	rec = get(t, h, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), scriptTag)

	rec = get(t, h, "/robots.txt")
	assert.Equal(t, "User-agent: *", rec.Body.String())

	rec = get(t, h, "/livereload.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "EventSource('/livereload')")
}

func TestInsertScript(t *testing.T) {
	assert.Equal(t, "<p>x</p>"+scriptTag+"</BODY>", string(insertScript([]byte("<p>x</p></BODY>"))))
	assert.Equal(t, "<p>x</p>"+scriptTag, string(insertScript([]byte("<p>x</p>"))))
}

func TestInjector_LargeBodyPassesThrough(t *testing.T) {
	big := strings.Repeat("a", maxInjectSize+10) + "</body>"
	h := injectLiveReload(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, big[:1000])
		_, _ = io.WriteString(w, big[1000:])
	}))
	rec := get(t, h, "/")
	assert.Equal(t, big, rec.Body.String())
}

func TestServe_BuildStatusPages(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "site")
	s := New(Options{Root: missing})
	h := s.Handler()

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Site is being built")

	s.BuildFailed(stderrors.New(`page "a.md": <bad> template`))
	rec = get(t, h, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Build Failed")
	assert.Contains(t, rec.Body.String(), "&lt;bad&gt; template")

	testutil.WriteTree(t, missing, map[string]string{"index.html": "<html><body>ok</body></html>"})
	s.BuildSucceeded("b1")
	rec = get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.BuildFailed(stderrors.New("later failure"))
	rec = get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code, "previous good build keeps serving")
}

func TestServe_HealthAndMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	rec.IncBuildOutcome(metrics.OutcomeSuccess)

	h := New(Options{Root: siteTree(t), Metrics: metrics.HTTPHandler(reg)}).Handler()

	res := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, res.Body.String())

	res = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "pagesmith_build_outcomes_total")

	noMetrics := New(Options{Root: siteTree(t)}).Handler()
	assert.Equal(t, http.StatusNotFound, get(t, noMetrics, "/metrics").Code)
}

func readUntil(t *testing.T, r *bufio.Reader, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.Contains(line, want) {
			return
		}
	}
	t.Fatalf("did not receive %q", want)
}

func TestLiveReloadHub_Events(t *testing.T) {
	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	hub := NewLiveReloadHub(recorder)
	defer hub.Shutdown()
	hub.Broadcast("first")

	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readUntil(t, reader, `{"hash":"first"}`)
	assert.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("first")
	hub.Broadcast("second")
	readUntil(t, reader, `{"hash":"second"}`)

	hub.Shutdown()
	assert.Equal(t, 0, hub.Clients())
}

func TestLiveReload_FirstBuildFailed(t *testing.T) {
	s := New(Options{Root: filepath.Join(t.TempDir(), "site"), LiveReload: true})
	defer s.Hub().Shutdown()
	s.BuildFailed(stderrors.New("template error"))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/livereload", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	reader := bufio.NewReader(resp.Body)
	readUntil(t, reader, `data: {"hash":""}`)
	assert.Eventually(t, func() bool { return s.Hub().Clients() == 1 }, time.Second, 10*time.Millisecond)

	s.BuildSucceeded("fixed-build")
	readUntil(t, reader, `data: {"hash":"fixed-build"}`)
}

func TestLiveReloadScript_BaselineSurvivesReconnect(t *testing.T) {
	decl := strings.Index(LiveReloadScript, "let current = null;")
	connect := strings.Index(LiveReloadScript, "function connect()")
	require.NotEqual(t, -1, decl)
	require.NotEqual(t, -1, connect)
	assert.Less(t, decl, connect, "baseline is declared outside connect")
}

func TestLiveReloadHub_RejectsAfterShutdown(t *testing.T) {
	hub := NewLiveReloadHub(nil)
	hub.Shutdown()
	hub.Broadcast("ignored")

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livereload", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Options{Root: siteTree(t), LiveReload: true})
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // test probe
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
