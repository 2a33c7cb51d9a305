// Package bundle collects named asset bundles (such as "css") from configured
// source files, plugin contributions and per-page snippets, and writes them as
// fingerprinted files.
package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

const defaultOutput = "bundle"

type definition struct {
	name   string
	output string
	site   []string
}

// Registry holds declared bundles and their site-wide content.
// It is not safe to mutate concurrently; it is read-only once a build starts.
type Registry struct {
	defs  map[string]*definition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*definition)}
}

// FromConfig declares every configured bundle, loads its source files from
// inputDir and appends plugin contributions. Contributions for bundles that
// are not declared are ignored.
func FromConfig(cfg *config.Config, contributions map[string][]string) (*Registry, error) {
	r := NewRegistry()
	for _, bc := range cfg.Bundles {
		if err := r.Declare(bc.Name, bc.Output); err != nil {
			return nil, err
		}
		if err := r.loadSources(bc.Name, cfg.InputDir(), bc.Sources); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, len(contributions))
	for name := range contributions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !r.Has(name) {
			continue
		}
		for _, content := range contributions[name] {
			_ = r.AddSite(name, content)
		}
	}
	return r, nil
}

// Declare registers a bundle name. output is the sub directory for written
// bundle files ("bundle" when empty).
func (r *Registry) Declare(name, output string) error {
	if name == "" {
		return errors.BundleError("bundle name is required").Build()
	}
	if _, ok := r.defs[name]; ok {
		return errors.BundleError("bundle already declared").WithContext("bundle", name).Build()
	}
	if output == "" {
		output = defaultOutput
	}
	r.defs[name] = &definition{name: name, output: strings.Trim(filepath.ToSlash(output), "/")}
	r.order = append(r.order, name)
	return nil
}

// Has reports whether name is declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Names returns declared bundle names in declaration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// AddSite appends site-wide content to a bundle. It is included for every
// page that uses the bundle.
func (r *Registry) AddSite(name, content string) error {
	def, err := r.lookup(name)
	if err != nil {
		return err
	}
	def.site = append(def.site, content)
	return nil
}

func (r *Registry) lookup(name string) (*definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, errors.BundleError("unknown bundle").
			WithContext("bundle", name).
			WithContext("declared", strings.Join(r.order, ",")).
			Build()
	}
	return def, nil
}

func (r *Registry) loadSources(name, inputDir string, patterns []string) error {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(inputDir, filepath.FromSlash(pattern)))
		if err != nil {
			return errors.BundleError("invalid bundle source pattern").
				WithContext("bundle", name).WithContext("pattern", pattern).WithCause(err).Build()
		}
		if len(matches) == 0 {
			return errors.NotFoundError("bundle source not found").
				WithContext("bundle", name).WithContext("pattern", pattern).Build()
		}
		sort.Strings(matches)
		for _, m := range matches {
			// #nosec G304 - paths come from the site configuration
			data, err := os.ReadFile(m)
			if err != nil {
				return errors.WrapError(err, errors.CategoryFileSystem, "read bundle source").
					WithContext("bundle", name).WithContext("path", m).Build()
			}
			if err := r.AddSite(name, string(data)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Extension returns the file extension used for a bundle's written file.
func Extension(name string) string {
	switch name {
	case "css", "js":
		return name
	default:
		return "txt"
	}
}

// Digest hashes every declaration and its site-wide content.
func (r *Registry) Digest() string {
	h := sha256.New()
	for _, name := range r.order {
		def := r.defs[name]
		_, _ = h.Write([]byte(name + "\x00" + def.output + "\x00"))
		for _, s := range def.site {
			_, _ = h.Write([]byte(s))
			_, _ = h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
