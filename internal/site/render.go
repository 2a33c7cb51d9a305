package site

import (
	"bytes"
	"context"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/bundle"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/observability"
)

// pageResult is the outcome of rendering or reusing one page.
type pageResult struct {
	reused bool
	entry  ManifestEntry
}

// renderContext is shared by every page of a build.
type renderContext struct {
	stageDir   string
	prevDir    string
	layouts    *layouts
	writer     *bundle.Writer
	previous   *Manifest
	globalHash string
	site       SiteData
}

func (b *Builder) processPage(ctx context.Context, rc *renderContext, p *Page) (pageResult, error) {
	ctx = observability.WithPage(ctx, p.Rel)

	if b.cfg.Build.Incremental {
		if prev, ok := rc.previous.reusable(p.Rel, p.Fingerprint, rc.globalHash); ok && prev.Output == p.OutputPath {
			if err := reuseOutputs(rc.prevDir, rc.stageDir, prev); err == nil {
				observability.DebugContext(ctx, "Reused page", logfields.Path(p.OutputPath))
				return pageResult{reused: true, entry: prev}, nil
			}
		}
	}

	html, err := b.renderPage(rc, p)
	if err != nil {
		return pageResult{}, err
	}

	dst := filepath.Join(rc.stageDir, filepath.FromSlash(p.OutputPath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return pageResult{}, errors.WrapError(err, errors.CategoryFileSystem, "create page directory").
			WithContext("page", p.Rel).Build()
	}
	if err := os.WriteFile(dst, html.bytes, 0o600); err != nil {
		return pageResult{}, errors.WrapError(err, errors.CategoryFileSystem, "write page").
			WithContext("page", p.Rel).Build()
	}
	observability.DebugContext(ctx, "Rendered page", logfields.Path(p.OutputPath))
	return pageResult{
		entry: ManifestEntry{Fingerprint: p.Fingerprint, Output: p.OutputPath, Bundles: html.bundles},
	}, nil
}

type renderedPage struct {
	bytes   []byte
	bundles []string
}

func (b *Builder) renderPage(rc *renderContext, p *Page) (*renderedPage, error) {
	collector := b.bundles.NewCollector()
	for _, name := range b.bundles.Names() {
		for _, snippet := range p.Doc.Strings(name) {
			if err := collector.Add(name, snippet); err != nil {
				return nil, err
			}
		}
	}

	data := PageData{
		Title: p.Title,
		Page:  p.Doc.Fields,
		URL:   p.URL,
		Site:  rc.site,
	}
	switch p.Kind {
	case KindMarkdown:
		res, err := b.renderer.Render(p.Doc.Body)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryRender, "render markdown").
				WithContext("page", p.Rel).Build()
		}
		// #nosec G203 - markdown output is trusted site content
		data.Content = template.HTML(res.HTML)
		data.Headings = res.Headings
		if data.Title == "" && len(res.Headings) > 0 && res.Headings[0].Level == 1 {
			data.Title = res.Headings[0].Text
		}
	default:
		// #nosec G203 - HTML pages are trusted site content
		data.Content = template.HTML(p.Doc.Body)
	}

	if !rc.layouts.has(p.Layout) {
		return nil, errors.RenderError("unknown layout").
			WithContext("page", p.Rel).WithContext("layout", p.Layout).Build()
	}

	urls := map[string]bool{}
	funcs := collector.FuncMap(rc.writer)
	getURL := funcs["getBundleFileURL"].(func(string) (string, error))
	funcs["getBundleFileURL"] = func(name string) (string, error) {
		u, err := getURL(name)
		if err == nil && u != "" {
			urls[u] = true
		}
		return u, err
	}

	var buf bytes.Buffer
	if err := rc.layouts.execute(&buf, p.Layout, funcs, data); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "render layout").
			WithContext("page", p.Rel).Build()
	}

	bundles := make([]string, 0, len(urls))
	for u := range urls {
		bundles = append(bundles, u)
	}
	sort.Strings(bundles)
	return &renderedPage{bytes: buf.Bytes(), bundles: bundles}, nil
}

// reuseOutputs copies a page's previous output and the bundle files it
// referenced into the staging directory.
func reuseOutputs(prevDir, stageDir string, e ManifestEntry) error {
	files := append([]string{e.Output}, e.Bundles...)
	for _, f := range files {
		rel := filepath.FromSlash(strings.TrimPrefix(f, "/"))
		// #nosec G304 - path recorded in our own manifest
		data, err := os.ReadFile(filepath.Join(prevDir, rel))
		if err != nil {
			return err
		}
		dst := filepath.Join(stageDir, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o600); err != nil {
			return err
		}
	}
	return nil
}
