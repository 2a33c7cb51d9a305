package passthrough

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/config"
)

// SourceSet is the set of paths claimed by passthrough rules.
type SourceSet struct {
	paths []string
}

// Sources resolves every rule source. Glob rules are expanded; sources that
// do not exist are still recorded.
func (c *Copier) Sources(rules config.PassthroughList) *SourceSet {
	s := &SourceSet{}
	for _, rule := range rules {
		src := c.Resolve(rule.From)
		if IsGlob(rule.From) {
			matches, _ := filepath.Glob(src)
			for _, m := range matches {
				s.add(m)
			}
			continue
		}
		s.add(src)
	}
	return s
}

func (s *SourceSet) add(p string) {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	s.paths = append(s.paths, filepath.Clean(p))
}

// Contains reports whether path is a passthrough source or lies inside one.
func (s *SourceSet) Contains(path string) bool {
	if s == nil {
		return false
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.Clean(path)
	for _, p := range s.paths {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Paths returns the resolved source paths.
func (s *SourceSet) Paths() []string {
	return append([]string(nil), s.paths...)
}
