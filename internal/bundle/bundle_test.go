package bundle

import (
	"html/template"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/testutil"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Declare("css", ""))
	require.NoError(t, r.Declare("js", "assets"))
	return r
}

func TestRegistry_Declare(t *testing.T) {
	r := newRegistry(t)
	assert.Equal(t, []string{"css", "js"}, r.Names())
	assert.True(t, r.Has("css"))
	assert.False(t, r.Has("html"))

	err := r.Declare("css", "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryBundle))
	assert.Error(t, r.Declare("", ""))
}

func TestCollector_DedupesAndOrders(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.AddSite("css", ".chroma{}"))

	c := r.NewCollector()
	require.NoError(t, c.Add("css", "h1{color:red}"))
	require.NoError(t, c.Add("css", "p{}"))
	require.NoError(t, c.Add("css", "  h1{color:red}\n"))
	require.NoError(t, c.Add("css", ".chroma{}"))
	require.NoError(t, c.Add("css", ""))

	got, err := c.Get("css")
	require.NoError(t, err)
	assert.Equal(t, ".chroma{}\nh1{color:red}\np{}", got)

	empty, err := c.Get("js")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCollector_UnknownBundle(t *testing.T) {
	c := newRegistry(t).NewCollector()

	err := c.Add("scss", "a{}")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryBundle))

	_, err = c.Get("scss")
	assert.Error(t, err)
}

func TestCollector_IsolatedPerPage(t *testing.T) {
	r := newRegistry(t)
	a, b := r.NewCollector(), r.NewCollector()
	require.NoError(t, a.Add("css", "a{}"))

	got, err := b.Get("css")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriter_WriteFile(t *testing.T) {
	r := newRegistry(t)
	out := t.TempDir()
	w := NewWriter(r, out)

	url, err := w.WriteFile("css", "a{}")
	require.NoError(t, err)
	assert.Equal(t, "/bundle/css-"+Fingerprint("a{}")+".css", url)
	assert.Equal(t, "a{}", testutil.ReadFile(t, out, strings.TrimPrefix(url, "/")))

	again, err := w.WriteFile("css", "a{}")
	require.NoError(t, err)
	assert.Equal(t, url, again)
	assert.Len(t, w.Files(), 1)

	jsURL, err := w.WriteFile("js", "run()")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(jsURL, "/assets/js-"))
	assert.True(t, strings.HasSuffix(jsURL, ".js"))

	none, err := w.WriteFile("css", "")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Len(t, w.Files(), 2)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "css", Extension("css"))
	assert.Equal(t, "js", Extension("js"))
	assert.Equal(t, "txt", Extension("html"))
}

func TestFromConfig(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		"src/styles/a.css": "body{}",
		"src/styles/b.css": "main{}",
	})
	cfg := config.Default()
	cfg.Root = root
	cfg.Bundles = []config.BundleConfig{{Name: "css", Sources: []string{"styles/*.css"}, Output: "bundle"}}

	r, err := FromConfig(cfg, map[string][]string{
		"css":  {".chroma{}"},
		"html": {"ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"css"}, r.Names())

	got, err := r.NewCollector().Get("css")
	require.NoError(t, err)
	assert.Equal(t, "body{}\nmain{}\n.chroma{}", got)

	cfg.Bundles[0].Sources = []string{"missing/*.css"}
	_, err = FromConfig(cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestFuncMap(t *testing.T) {
	r := newRegistry(t)
	out := t.TempDir()
	c := r.NewCollector()
	require.NoError(t, c.Add("css", "h1{color:red}"))

	tmpl := template.Must(template.New("page").Funcs(c.FuncMap(NewWriter(r, out))).Parse(
		`<style>{{getBundle "css"}}</style><link rel="stylesheet" href="{{getBundleFileURL "css"}}">`))

	var sb strings.Builder
	require.NoError(t, tmpl.Execute(&sb, nil))
	html := sb.String()
	assert.Contains(t, html, "<style>h1{color:red}</style>")
	assert.Contains(t, html, `href="/bundle/css-`+Fingerprint("h1{color:red}")+`.css"`)

	matches, err := filepath.Glob(filepath.Join(out, "bundle", "css-*.css"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRegistry_Digest(t *testing.T) {
	a, b := newRegistry(t), newRegistry(t)
	assert.Equal(t, a.Digest(), b.Digest())

	require.NoError(t, b.AddSite("css", "a{}"))
	assert.NotEqual(t, a.Digest(), b.Digest())
}
