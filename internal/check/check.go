// Package check verifies internal links and anchors in a generated site.
package check

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// Broken describes a link that does not resolve.
type Broken struct {
	Page   string `json:"page"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Result summarizes a check run.
type Result struct {
	Pages    int      `json:"pages"`
	Links    int      `json:"links"`
	External int      `json:"external"`
	Broken   []Broken `json:"broken"`
}

// OK reports whether every internal link resolved.
func (r *Result) OK() bool {
	return len(r.Broken) == 0
}

// Checker verifies a generated site.
type Checker struct {
	// BaseURL, when set, makes absolute links to its host count as internal.
	BaseURL string
}

// Check parses every HTML file under outputDir and verifies internal links
// and #fragment targets. External links are counted but not fetched.
func (c *Checker) Check(ctx context.Context, outputDir string) (*Result, error) {
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		return nil, errors.NotFoundError("output directory not found").
			WithContext("path", outputDir).WithCause(err).Build()
	}

	var base *url.URL
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return nil, errors.ValidationError("invalid base URL").
				WithContext("base_url", c.BaseURL).WithCause(err).Build()
		}
		base = u
	}

	docs := make(map[string]*document)
	err := filepath.WalkDir(outputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}
		rel, err := filepath.Rel(outputDir, p)
		if err != nil {
			return err
		}
		f, err := os.Open(p) // #nosec G304 - walking the output directory
		if err != nil {
			return err
		}
		doc, err := parseDocument(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		docs[filepath.ToSlash(rel)] = doc
		return nil
	})
	if err != nil {
		if errors.IsClassified(err) {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk output directory").
			WithContext("path", outputDir).Build()
	}

	pages := make([]string, 0, len(docs))
	for p := range docs {
		pages = append(pages, p)
	}
	sort.Strings(pages)

	res := &Result{Pages: len(pages), Broken: []Broken{}}
	for _, page := range pages {
		for _, link := range docs[page].links {
			res.Links++
			if reason, external := c.verify(outputDir, page, link.URL, base, docs); external {
				res.External++
			} else if reason != "" {
				res.Broken = append(res.Broken, Broken{Page: page, URL: link.URL, Reason: reason})
			}
		}
	}
	return res, nil
}

// verify returns a failure reason ("" when the link resolves) and whether
// the link is external.
func (c *Checker) verify(outputDir, page, raw string, base *url.URL, docs map[string]*document) (string, bool) {
	if skipScheme(raw) {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "malformed URL", false
	}
	if u.Scheme != "" || u.Host != "" {
		if base == nil || !strings.EqualFold(u.Host, base.Host) {
			return "", true
		}
		u = &url.URL{Path: u.Path, Fragment: u.Fragment}
		if base.Path != "" && base.Path != "/" {
			u.Path = "/" + strings.TrimPrefix(strings.TrimPrefix(u.Path, strings.TrimSuffix(base.Path, "/")), "/")
		}
	}

	target := page
	if u.Path != "" {
		resolved := (&url.URL{Path: "/" + page}).ResolveReference(&url.URL{Path: u.Path})
		var ok bool
		target, ok = resolveFile(outputDir, resolved.Path)
		if !ok {
			return "target not found", false
		}
	}

	if u.Fragment == "" {
		return "", false
	}
	doc, ok := docs[target]
	if !ok {
		return "", false
	}
	if !doc.ids[u.Fragment] {
		return "missing anchor #" + u.Fragment, false
	}
	return "", false
}

// resolveFile maps a URL path to a file relative to outputDir.
func resolveFile(outputDir, urlPath string) (string, bool) {
	rel := strings.TrimPrefix(path.Clean(urlPath), "/")
	candidates := []string{rel}
	if rel == "" || rel == "." {
		candidates = []string{"index.html"}
	} else if strings.HasSuffix(urlPath, "/") || path.Ext(rel) == "" {
		candidates = append([]string{path.Join(rel, "index.html")}, rel)
	}
	for _, cand := range candidates {
		info, err := os.Stat(filepath.Join(outputDir, filepath.FromSlash(cand)))
		if err == nil && !info.IsDir() {
			return cand, true
		}
	}
	return "", false
}
