package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

const fingerprintLen = 10

// File is a bundle file written during a build.
type File struct {
	Bundle string `json:"bundle"`
	URL    string `json:"url"`
	Bytes  int    `json:"bytes"`
}

// Writer writes fingerprinted bundle files under an output directory.
// It is safe for concurrent use.
type Writer struct {
	reg       *Registry
	outputDir string

	mu      sync.Mutex
	written map[string]File
}

// NewWriter returns a writer rooted at outputDir.
func NewWriter(reg *Registry, outputDir string) *Writer {
	return &Writer{reg: reg, outputDir: outputDir, written: make(map[string]File)}
}

// WriteFile writes content for the named bundle and returns its root-relative
// URL. Identical content is written once. Empty content writes nothing and
// returns an empty URL.
func (w *Writer) WriteFile(name, content string) (string, error) {
	def, err := w.reg.lookup(name)
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", nil
	}

	rel := path.Join(def.output, name+"-"+Fingerprint(content)+"."+Extension(name))
	url := "/" + rel

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.written[rel]; ok {
		return url, nil
	}
	dst := filepath.Join(w.outputDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "create bundle directory").
			WithContext("bundle", name).Build()
	}
	if err := os.WriteFile(dst, []byte(content), 0o600); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "write bundle file").
			WithContext("bundle", name).WithContext("path", dst).Build()
	}
	w.written[rel] = File{Bundle: name, URL: url, Bytes: len(content)}
	return url, nil
}

// Files returns written bundle files sorted by URL.
func (w *Writer) Files() []File {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]File, 0, len(w.written))
	for _, f := range w.written {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// Fingerprint returns a short content hash.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// FuncMap returns the layout functions for a page:
//
//	hasBundle "css"         whether the bundle is declared
//	getBundle "css"         inline bundle content
//	getBundleFileURL "css"  URL of the written bundle file
func (c *Collector) FuncMap(w *Writer) template.FuncMap {
	return template.FuncMap{
		"hasBundle": c.reg.Has,
		"getBundle": func(name string) (any, error) {
			content, err := c.Get(name)
			if err != nil {
				return nil, err
			}
			switch name {
			case "css":
				// #nosec G203 - bundle content is authored by the site owner
				return template.CSS(content), nil
			case "js":
				// #nosec G203 - bundle content is authored by the site owner
				return template.JS(content), nil
			default:
				return content, nil
			}
		},
		"getBundleFileURL": func(name string) (string, error) {
			content, err := c.Get(name)
			if err != nil {
				return "", err
			}
			return w.WriteFile(name, content)
		},
	}
}
