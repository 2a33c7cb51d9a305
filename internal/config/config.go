package config

import (
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the only configuration schema version accepted by Load.
const CurrentVersion = "1"

// DefaultConfigFile is the configuration file name used when none is given.
const DefaultConfigFile = "pagesmith.yaml"

// Config is the site configuration read from pagesmith.yaml.
type Config struct {
	Version     string          `yaml:"version"`
	Input       string          `yaml:"input"`             // Source directory (relative to the config file)
	Output      string          `yaml:"output"`            // Generated site directory
	Layouts     string          `yaml:"layouts,omitempty"` // Layout directory, relative to Input
	Site        SiteConfig      `yaml:"site,omitempty"`
	Passthrough PassthroughList `yaml:"passthrough,omitempty"`
	Plugins     []PluginConfig  `yaml:"plugins,omitempty"`
	Markdown    MarkdownConfig  `yaml:"markdown"`
	Bundles     []BundleConfig  `yaml:"bundles,omitempty"`
	Build       BuildConfig     `yaml:"build,omitempty"`
	Serve       ServeConfig     `yaml:"serve,omitempty"`
	Logging     LoggingConfig   `yaml:"logging,omitempty"`

	// Root is the directory relative paths are resolved against. It is set
	// by Load to the config file's directory and is not serialized.
	Root string `yaml:"-"`
}

// SiteConfig carries site metadata exposed to layouts.
type SiteConfig struct {
	Title    string `yaml:"title,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Language string `yaml:"language,omitempty"`
}

// PassthroughCopy copies From (relative to the input directory) verbatim to
// To (a URL path relative to the output root).
type PassthroughCopy struct {
	From string `yaml:"from"`
	To   string `yaml:"to,omitempty"`
}

// PassthroughList accepts either a list of {from, to} mappings or a
// "source: destination" map shorthand.
type PassthroughList []PassthroughCopy

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *PassthroughList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		out := make(PassthroughList, 0, len(m))
		for from, to := range m {
			out = append(out, PassthroughCopy{From: from, To: to})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
		*l = out
		return nil
	case yaml.SequenceNode:
		out := make(PassthroughList, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode {
				out = append(out, PassthroughCopy{From: item.Value})
				continue
			}
			var pc PassthroughCopy
			if err := item.Decode(&pc); err != nil {
				return err
			}
			out = append(out, pc)
		}
		*l = out
		return nil
	default:
		return &yaml.TypeError{Errors: []string{"passthrough must be a list or a map"}}
	}
}

// PluginConfig declares a plugin by name with free-form options.
// The scalar form "- syntaxhighlight" is accepted.
type PluginConfig struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PluginConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Name = node.Value
		return nil
	}
	type plain PluginConfig
	var v plain
	if err := node.Decode(&v); err != nil {
		return err
	}
	*p = PluginConfig(v)
	return nil
}

// MarkdownConfig configures the markdown renderer.
type MarkdownConfig struct {
	HTML        bool          `yaml:"html"`    // Pass raw HTML through
	Linkify     bool          `yaml:"linkify"` // Autolink bare URLs
	Typographer bool          `yaml:"typographer,omitempty"`
	Anchors     AnchorsConfig `yaml:"anchors"`
}

// AnchorsConfig configures heading anchor generation.
type AnchorsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Level           int    `yaml:"level,omitempty"` // Minimum heading level that gets an anchor
	Permalink       bool   `yaml:"permalink,omitempty"`
	PermalinkSymbol string `yaml:"permalink_symbol,omitempty"`
	PermalinkBefore bool   `yaml:"permalink_before,omitempty"`
	PermalinkClass  string `yaml:"permalink_class,omitempty"`
}

// BundleConfig declares a named asset bundle. The scalar form "- css" is accepted.
type BundleConfig struct {
	Name    string   `yaml:"name"`
	Sources []string `yaml:"sources,omitempty"` // Globs relative to Input
	Output  string   `yaml:"output,omitempty"`  // Output sub directory for bundle files
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *BundleConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		b.Name = node.Value
		return nil
	}
	type plain BundleConfig
	var v plain
	if err := node.Decode(&v); err != nil {
		return err
	}
	*b = BundleConfig(v)
	return nil
}

// BuildConfig tunes the build pipeline.
type BuildConfig struct {
	Concurrency int  `yaml:"concurrency,omitempty"`
	Clean       bool `yaml:"clean,omitempty"`
	Incremental bool `yaml:"incremental,omitempty"`
	Drafts      bool `yaml:"drafts,omitempty"`
}

// ServeConfig configures the development server.
type ServeConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	LiveReload *bool  `yaml:"live_reload,omitempty"` // Defaults to true
	Metrics    bool   `yaml:"metrics,omitempty"`
}

// LiveReloadEnabled reports whether live reload is on (default true).
func (s ServeConfig) LiveReloadEnabled() bool {
	return s.LiveReload == nil || *s.LiveReload
}

// LoggingConfig configures process logging.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// InputDir returns the absolute-or-root-relative input directory.
func (c *Config) InputDir() string {
	return c.resolve(c.Input)
}

// OutputDir returns the absolute-or-root-relative output directory.
func (c *Config) OutputDir() string {
	return c.resolve(c.Output)
}

// LayoutsDir returns the layout directory inside the input directory.
func (c *Config) LayoutsDir() string {
	if filepath.IsAbs(c.Layouts) {
		return c.Layouts
	}
	return filepath.Join(c.InputDir(), c.Layouts)
}

// HasBundle reports whether a bundle with name is declared.
func (c *Config) HasBundle(name string) bool {
	for _, b := range c.Bundles {
		if b.Name == name {
			return true
		}
	}
	return false
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}
