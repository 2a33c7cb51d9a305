package bundle

import (
	"strings"
)

// Collector gathers per-page bundle snippets. Identical snippets are kept
// once, in first-insertion order.
type Collector struct {
	reg      *Registry
	snippets map[string][]string
	seen     map[string]map[string]bool
}

// NewCollector returns a page collector backed by r.
func (r *Registry) NewCollector() *Collector {
	return &Collector{
		reg:      r,
		snippets: make(map[string][]string),
		seen:     make(map[string]map[string]bool),
	}
}

// Add appends code to the named bundle for this page.
func (c *Collector) Add(name, code string) error {
	if _, err := c.reg.lookup(name); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	if c.seen[name] == nil {
		c.seen[name] = make(map[string]bool)
	}
	if c.seen[name][code] {
		return nil
	}
	c.seen[name][code] = true
	c.snippets[name] = append(c.snippets[name], code)
	return nil
}

// Get returns the bundle content for this page: site-wide content followed
// by page snippets, joined with newlines.
func (c *Collector) Get(name string) (string, error) {
	def, err := c.reg.lookup(name)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(def.site)+len(c.snippets[name]))
	seen := make(map[string]bool, cap(parts))
	for _, s := range def.site {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		parts = append(parts, s)
	}
	for _, s := range c.snippets[name] {
		if seen[s] {
			continue
		}
		seen[s] = true
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n"), nil
}
