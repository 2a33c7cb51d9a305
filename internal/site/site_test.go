package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/plugin/builtin"
	"git.home.luguber.info/inful/pagesmith/internal/testutil"
)

func newSite(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, files)
	cfg := config.Default()
	cfg.Root = root
	cfg.Build.Concurrency = 2
	return cfg
}

func build(t *testing.T, cfg *config.Config) *Report {
	t.Helper()
	b, err := FromConfig(cfg, builtin.Catalog())
	require.NoError(t, err)
	report, err := b.Build(context.Background())
	require.NoError(t, err)
	return report
}

var basicSite = map[string]string{
	"src/index.md":        "# Welcome\n\n```go\nfunc main() {}\n```\n",
	"src/about.md":        "---\ntitle: About us\n---\nHello from https://example.com\n",
	"src/robots.txt":      "User-agent: *\n",
	"src/images/logo.png": "png",
	"src/fonts/a.woff2":   "woff",
}

func TestBuild_DefaultSite(t *testing.T) {
	cfg := newSite(t, basicSite)
	report := build(t, cfg)

	out := cfg.OutputDir()
	testutil.NewFileAssertions(t, out).
		Contains("index.html", `<h1 id="welcome">Welcome</h1>`).
		Contains("index.html", `class="chroma"`).
		Contains("index.html", "<title>Welcome | My Site</title>").
		Contains("index.html", `<link rel="stylesheet" href="/bundle/css-`).
		Contains("about/index.html", "<title>About us | My Site</title>").
		Contains("about/index.html", `<a href="https://example.com">https://example.com</a>`).
		Contains("robots.txt", "User-agent").
		Exists("images/logo.png").
		Exists("fonts/a.woff2").
		Exists(ReportFile).
		Exists(ManifestFile).
		Missing("robots/index.html")

	require.Len(t, report.Bundles, 1)
	css := testutil.ReadFile(t, out, strings.TrimPrefix(report.Bundles[0].URL, "/"))
	assert.Contains(t, css, ".chroma")

	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 2, report.Pages.Rendered)
	assert.Equal(t, 3, report.FilesCopied)
	assert.NotEmpty(t, report.BuildID)
	for _, stage := range []StageName{StagePrepare, StageDiscover, StageRender, StagePassthrough, StagePromote} {
		assert.Contains(t, report.StageDurationsMS, string(stage))
	}

	persisted, err := LoadReport(out)
	require.NoError(t, err)
	assert.Equal(t, report.BuildID, persisted.BuildID)

	_, err = os.Stat(out + "_stage")
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_PassthroughSourcesAreNotPages(t *testing.T) {
	cfg := newSite(t, map[string]string{
		"src/index.md":         "home",
		"src/images/README.md": "# not a page",
	})
	report := build(t, cfg)

	testutil.NewFileAssertions(t, cfg.OutputDir()).
		Contains("images/README.md", "# not a page").
		Missing("images/README/index.html")
	assert.Equal(t, 1, report.Pages.Rendered)
}

func TestBuild_SkipsUnderscoreAndHidden(t *testing.T) {
	cfg := newSite(t, map[string]string{
		"src/index.md":          "home",
		"src/_drafts/wip.md":    "wip",
		"src/.hidden/secret.md": "secret",
		"src/_partial.md":       "partial",
	})
	report := build(t, cfg)
	assert.Equal(t, 1, report.Pages.Rendered)
	testutil.NewFileAssertions(t, cfg.OutputDir()).
		Missing("_drafts").
		Missing("_partial/index.html")
}

func TestBuild_Drafts(t *testing.T) {
	files := map[string]string{
		"src/index.md": "home",
		"src/wip.md":   "---\ndraft: true\n---\nwip",
	}

	cfg := newSite(t, files)
	report := build(t, cfg)
	assert.Equal(t, 1, report.Pages.Skipped)
	testutil.NewFileAssertions(t, cfg.OutputDir()).Missing("wip/index.html")

	cfg.Build.Drafts = true
	report = build(t, cfg)
	assert.Equal(t, 0, report.Pages.Skipped)
	testutil.NewFileAssertions(t, cfg.OutputDir()).Exists("wip/index.html")
}

func TestBuild_PermalinkAndDuplicates(t *testing.T) {
	cfg := newSite(t, map[string]string{
		"src/index.md": "home",
		"src/team.md":  "---\npermalink: /people/\n---\nteam",
		"src/feed.md":  "---\npermalink: /feed.xml\nlayout: none\n---\n<rss/>",
	})
	build(t, cfg)
	testutil.NewFileAssertions(t, cfg.OutputDir()).
		Exists("people/index.html").
		Contains("feed.xml", "<rss/>").
		NotContains("feed.xml", "<html")

	testutil.WriteTree(t, cfg.Root, map[string]string{
		"src/people.md": "clash",
	})
	b, err := FromConfig(cfg, builtin.Catalog())
	require.NoError(t, err)
	_, err = b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryBuild))
	assert.Contains(t, err.Error(), "people/index.html")
}

func TestBuild_Layouts(t *testing.T) {
	cfg := newSite(t, map[string]string{
		"src/_layouts/post.html":   `<article data-url="{{.URL}}"><h1>{{.Title}}</h1>{{.Content}}{{template "footer" .}}</article>`,
		"src/_layouts/footer.html": `<footer>{{.Site.Title}}</footer>`,
		"src/posts/hello.md":       "---\ntitle: Hello\nlayout: post\n---\nBody",
		"src/contact.html":         "---\ntitle: Contact\n---\n<form></form>",
	})
	build(t, cfg)

	testutil.NewFileAssertions(t, cfg.OutputDir()).
		Contains("posts/hello/index.html", `<article data-url="/posts/hello/"><h1>Hello</h1><p>Body</p>`).
		Contains("posts/hello/index.html", "<footer>My Site</footer>").
		Contains("contact/index.html", "<form></form>").
		Contains("contact/index.html", "<title>Contact | My Site</title>")
}

func TestBuild_PageBundleSnippets(t *testing.T) {
	cfg := newSite(t, map[string]string{
		"src/_layouts/default.html": `<style>{{getBundle "css"}}</style>`,
		"src/index.md":              "---\ncss: [\"h1{color:red}\", \"h1{color:red}\"]\n---\n# Hi\n",
	})
	build(t, cfg)

	html := testutil.ReadFile(t, cfg.OutputDir(), "index.html")
	assert.Equal(t, 1, strings.Count(html, "h1{color:red}"))
	assert.Contains(t, html, ".chroma")
}

func TestBuild_FailureKeepsPreviousOutput(t *testing.T) {
	cfg := newSite(t, basicSite)
	build(t, cfg)

	testutil.WriteTree(t, cfg.Root, map[string]string{
		"src/broken.md": "---\nlayout: missing\n---\nx",
	})
	b, err := FromConfig(cfg, builtin.Catalog())
	require.NoError(t, err)
	report, err := b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRender))
	assert.Equal(t, OutcomeFailed, report.Outcome)

	testutil.NewFileAssertions(t, cfg.OutputDir()).
		Exists("index.html").
		Missing("broken/index.html")
	_, err = os.Stat(cfg.OutputDir() + "_stage")
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_Canceled(t *testing.T) {
	cfg := newSite(t, basicSite)
	b, err := FromConfig(cfg, builtin.Catalog())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := b.Build(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeCanceled, report.Outcome)
	_, err = os.Stat(cfg.OutputDir())
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_MissingInput(t *testing.T) {
	cfg := newSite(t, map[string]string{"other/x.md": "x"})
	b, err := FromConfig(cfg, builtin.Catalog())
	require.NoError(t, err)
	_, err = b.Build(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestBuild_Incremental(t *testing.T) {
	cfg := newSite(t, basicSite)
	cfg.Build.Incremental = true

	first := build(t, cfg)
	assert.Equal(t, 2, first.Pages.Rendered)

	second := build(t, cfg)
	assert.Equal(t, 0, second.Pages.Rendered)
	assert.Equal(t, 2, second.Pages.Reused)
	testutil.NewFileAssertions(t, cfg.OutputDir()).
		Contains("index.html", `<h1 id="welcome">Welcome</h1>`)
	matches, err := filepath.Glob(filepath.Join(cfg.OutputDir(), "bundle", "css-*.css"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	testutil.WriteTree(t, cfg.Root, map[string]string{
		"src/about.md": "---\ntitle: About\n---\nChanged\n",
	})
	third := build(t, cfg)
	assert.Equal(t, 1, third.Pages.Rendered)
	assert.Equal(t, 1, third.Pages.Reused)
	testutil.NewFileAssertions(t, cfg.OutputDir()).Contains("about/index.html", "Changed")

	cfg.Site.Title = "Renamed"
	fourth := build(t, cfg)
	assert.Equal(t, 2, fourth.Pages.Rendered, "config changes invalidate every page")
}

func TestFromConfig_UnknownPlugin(t *testing.T) {
	cfg := newSite(t, basicSite)
	cfg.Plugins = append(cfg.Plugins, config.PluginConfig{Name: "mermaid"})
	_, err := FromConfig(cfg, builtin.Catalog())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryPlugin))
}

func TestFromConfig_RegistersPlugins(t *testing.T) {
	cfg := newSite(t, basicSite)
	b, err := FromConfig(cfg, builtin.Catalog())
	require.NoError(t, err)
	assert.Equal(t, []string{"syntaxhighlight"}, b.Plugins().Names())
}
