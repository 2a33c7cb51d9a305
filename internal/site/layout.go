package site

import (
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/markdown"
)

const (
	defaultLayoutName = "default"
	// noLayout writes page content without wrapping it.
	noLayout = "none"
)

const builtinLayout = `<!doctype html>
<html lang="{{.Site.Language}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="generator" content="{{.Site.Generator}}">
<title>{{if .Title}}{{.Title}} | {{end}}{{.Site.Title}}</title>
{{if hasBundle "css"}}{{with getBundleFileURL "css"}}<link rel="stylesheet" href="{{.}}">{{end}}{{end}}
</head>
<body>
<main>
{{.Content}}
</main>
</body>
</html>
`

// SiteData is the site-wide part of the layout context.
type SiteData struct {
	Title     string
	BaseURL   string
	Language  string
	BuildID   string
	Generator string
}

// PageData is the layout context for one page.
type PageData struct {
	Title    string
	Content  template.HTML
	Page     map[string]any
	URL      string
	Headings []markdown.Heading
	Site     SiteData
}

// layouts is the parsed set of layout templates. Each layout is parsed into
// one set so layouts can invoke each other with {{template "name" .}}.
type layouts struct {
	mu  sync.Mutex
	set *template.Template
}

// placeholderFuncs lets layouts parse before page-specific functions exist.
var placeholderFuncs = template.FuncMap{
	"hasBundle":        func(string) bool { return false },
	"getBundle":        func(string) (any, error) { return "", nil },
	"getBundleFileURL": func(string) (string, error) { return "", nil },
}

// loadLayouts parses every .html file under dir. Layout names are the slash
// separated path without extension. A built-in "default" layout is used
// when dir does not provide one.
func loadLayouts(dir string) (*layouts, error) {
	set := template.New("").Funcs(placeholderFuncs)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".html" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.ToSlash(rel), ".html")
		// #nosec G304 - layout files under the input directory
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := set.New(name).Parse(string(content)); err != nil {
			return errors.RenderError("invalid layout template").
				WithContext("layout", name).WithCause(err).Build()
		}
		return nil
	})
	if err != nil {
		if errors.IsClassified(err) {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read layouts").
			WithContext("path", dir).Build()
	}

	if set.Lookup(defaultLayoutName) == nil {
		if _, err := set.New(defaultLayoutName).Parse(builtinLayout); err != nil {
			return nil, errors.InternalError("builtin layout").WithCause(err).Build()
		}
	}
	return &layouts{set: set}, nil
}

// has reports whether name is a known layout.
func (l *layouts) has(name string) bool {
	return name == noLayout || l.set.Lookup(name) != nil
}

// execute renders data with the named layout and page functions.
func (l *layouts) execute(w io.Writer, name string, funcs template.FuncMap, data PageData) error {
	if name == noLayout {
		_, err := io.WriteString(w, string(data.Content))
		return err
	}
	if l.set.Lookup(name) == nil {
		return errors.RenderError("unknown layout").WithContext("layout", name).Build()
	}
	l.mu.Lock()
	t, err := l.set.Clone()
	l.mu.Unlock()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRender, "clone layouts").Build()
	}
	if err := t.Funcs(funcs).ExecuteTemplate(w, name, data); err != nil {
		return errors.WrapError(err, errors.CategoryRender, "execute layout").
			WithContext("layout", name).Build()
	}
	return nil
}
