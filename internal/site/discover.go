package site

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/frontmatter"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/observability"
)

// Kind is the source format of a page.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
)

var pageExtensions = map[string]Kind{
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".html":     KindHTML,
}

// Page is a discovered source page.
type Page struct {
	Source      string // Absolute or root-relative source path
	Rel         string // Slash separated path relative to the input directory
	Kind        Kind
	Doc         *frontmatter.Document
	Title       string
	Layout      string
	Draft       bool
	OutputPath  string // Slash separated path relative to the output root
	URL         string
	Fingerprint string
}

// discovery is the result of walking the input directory.
type discovery struct {
	pages   []*Page
	drafts  int
	ignored int
}

// discover walks the input directory. Directories and files whose names start
// with "_" or "." are skipped, as are passthrough sources and the layouts
// directory.
func (b *Builder) discover(ctx context.Context) (*discovery, error) {
	input := b.cfg.InputDir()
	if info, err := os.Stat(input); err != nil || !info.IsDir() {
		return nil, errors.NotFoundError("input directory not found").
			WithContext("input", input).WithCause(err).Build()
	}
	layoutsDir := filepath.Clean(b.cfg.LayoutsDir())
	sources := b.copier.Sources(b.cfg.Passthrough)

	d := &discovery{}
	err := filepath.WalkDir(input, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == input {
			return nil
		}
		name := entry.Name()
		skip := strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") ||
			filepath.Clean(path) == layoutsDir || sources.Contains(path)
		if entry.IsDir() {
			if skip {
				return filepath.SkipDir
			}
			return nil
		}
		kind, ok := pageExtensions[strings.ToLower(filepath.Ext(name))]
		if skip || !ok {
			if !skip {
				d.ignored++
			}
			return nil
		}
		page, err := b.loadPage(input, path, kind)
		if err != nil {
			return err
		}
		if page.Draft && !b.cfg.Build.Drafts {
			d.drafts++
			observability.DebugContext(ctx, "Skipping draft", logfields.Page(page.Rel))
			return nil
		}
		d.pages = append(d.pages, page)
		return nil
	})
	if err != nil {
		if errors.IsClassified(err) || isCanceled(err) {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk input directory").
			WithContext("input", input).Build()
	}

	sort.Slice(d.pages, func(i, j int) bool { return d.pages[i].Rel < d.pages[j].Rel })
	owners := make(map[string]string, len(d.pages))
	for _, p := range d.pages {
		if other, exists := owners[p.OutputPath]; exists {
			return nil, errors.BuildError("duplicate output path").
				WithContext("output", p.OutputPath).
				WithContext("pages", other+","+p.Rel).Build()
		}
		owners[p.OutputPath] = p.Rel
	}
	return d, nil
}

func (b *Builder) loadPage(input, path string, kind Kind) (*Page, error) {
	rel, err := filepath.Rel(input, path)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)

	// #nosec G304 - path comes from walking the input directory
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read page").
			WithContext("page", rel).Build()
	}
	doc, err := frontmatter.Decode(content)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "invalid front matter").
			WithContext("page", rel).Build()
	}

	out, err := OutputPath(rel, doc.String("permalink"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid permalink").
			WithContext("page", rel).Build()
	}
	layout := doc.String("layout")
	if layout == "" {
		layout = defaultLayoutName
	}
	return &Page{
		Source:      path,
		Rel:         rel,
		Kind:        kind,
		Doc:         doc,
		Title:       doc.String("title"),
		Layout:      layout,
		Draft:       doc.Bool("draft"),
		OutputPath:  out,
		URL:         URLFor(out),
		Fingerprint: pageFingerprint(doc),
	}, nil
}
