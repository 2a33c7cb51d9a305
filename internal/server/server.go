// Package server implements the local preview server: it serves the build
// output, streams live-reload events and exposes health and metrics
// endpoints.
package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// Root is the build output directory.
	Root string
	// LiveReload enables the SSE hub and script injection.
	LiveReload bool
	// Metrics is mounted at /metrics when non-nil.
	Metrics  http.Handler
	Recorder metrics.Recorder
}

// Server serves a built site.
type Server struct {
	opts   Options
	hub    *LiveReloadHub
	status *buildStatus
	files  http.Handler
}

// New creates a Server. An existing output directory counts as a good build
// so that a failed first rebuild keeps serving the previous site.
func New(opts Options) *Server {
	s := &Server{
		opts:   opts,
		status: &buildStatus{},
		files:  http.FileServer(http.Dir(opts.Root)),
	}
	if opts.LiveReload {
		s.hub = NewLiveReloadHub(opts.Recorder)
	}
	if fi, err := os.Stat(opts.Root); err == nil && fi.IsDir() {
		s.status.hasGoodBuild = true
	}
	return s
}

// Hub returns the live-reload hub, or nil when live reload is disabled.
func (s *Server) Hub() *LiveReloadHub { return s.hub }

// BuildSucceeded records a successful build and notifies live-reload
// clients with buildID.
func (s *Server) BuildSucceeded(buildID string) {
	s.status.succeeded()
	if s.hub != nil {
		s.hub.Broadcast(buildID)
	}
}

// BuildFailed records a failed build.
func (s *Server) BuildFailed(err error) {
	s.status.failed(err)
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	site := http.Handler(http.HandlerFunc(s.serveSite))
	if s.hub != nil {
		r.Method(http.MethodGet, "/livereload", s.hub)
		r.Get("/livereload.js", handleScript)
		site = injectLiveReload(site)
	}
	r.Method(http.MethodGet, "/*", site)
	r.Method(http.MethodHead, "/*", site)
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// within ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryServe, "failed to listen").
			WithContext("addr", addr).Build()
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Preview server listening", logfields.URL("http://"+ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WrapError(err, errors.CategoryServe, "preview server failed").Build()
	case <-ctx.Done():
	}

	if s.hub != nil {
		s.hub.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return errors.WrapError(err, errors.CategoryServe, "preview server shutdown").Build()
	}
	slog.Info("Preview server stopped")
	return nil
}

func (s *Server) serveSite(w http.ResponseWriter, r *http.Request) {
	if good, err := s.status.get(); err != nil && !good {
		s.renderBuildErrorPage(w, err)
		return
	}
	if fi, err := os.Stat(s.opts.Root); err != nil || !fi.IsDir() {
		s.renderBuildPendingPage(w)
		return
	}

	upath := path.Clean("/" + r.URL.Path)
	if !s.exists(upath) {
		s.serveNotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", cacheControl(upath))
	s.files.ServeHTTP(w, r)
}

// exists reports whether upath names a file, or a directory holding an
// index.html, under the output root.
func (s *Server) exists(upath string) bool {
	full := filepath.Join(s.opts.Root, filepath.FromSlash(upath))
	fi, err := os.Stat(full)
	if err != nil {
		return false
	}
	if !fi.IsDir() {
		return true
	}
	_, err = os.Stat(filepath.Join(full, "index.html"))
	return err == nil
}

func (s *Server) serveNotFound(w http.ResponseWriter, r *http.Request) {
	body, err := os.ReadFile(filepath.Join(s.opts.Root, "404.html"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

var fingerprinted = regexp.MustCompile(`-[0-9a-f]{10}\.[a-z0-9]+$`)

// cacheControl lets fingerprinted bundle files be cached forever and makes
// everything else revalidate.
func cacheControl(upath string) string {
	if fingerprinted.MatchString(upath) {
		return "public, max-age=31536000, immutable"
	}
	return "no-cache, must-revalidate"
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func handleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(LiveReloadScript))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			logfields.Path(r.URL.Path),
			"status", ww.Status(),
			logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	})
}
