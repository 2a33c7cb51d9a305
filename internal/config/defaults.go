package config

import (
	"path"
	"runtime"
	"strings"
)

const (
	defaultInput           = "src"
	defaultOutput          = "_site"
	defaultLayouts         = "_layouts"
	defaultServeHost       = "localhost"
	defaultServePort       = 8080
	defaultAnchorLevel     = 1
	defaultPermalinkSymbol = "¶"
	defaultPermalinkClass  = "header-anchor"
	defaultBundleOutput    = "bundle"
)

// Default returns the canonical site configuration: markdown with raw HTML,
// linkify and heading anchors, syntax highlighting, a css bundle and
// passthrough copies for robots.txt, images and fonts.
func Default() *Config {
	cfg := &Config{
		Version: CurrentVersion,
		Input:   defaultInput,
		Output:  defaultOutput,
		Site: SiteConfig{
			Title:    "My Site",
			Language: "en",
		},
		Passthrough: PassthroughList{
			{From: "robots.txt", To: "robots.txt"},
			{From: "images", To: "images"},
			{From: "fonts", To: "fonts"},
		},
		Plugins: []PluginConfig{
			{Name: "syntaxhighlight"},
		},
		Markdown: MarkdownConfig{
			HTML:    true,
			Linkify: true,
			Anchors: AnchorsConfig{Enabled: true},
		},
		Bundles: []BundleConfig{
			{Name: "css"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields. It never overrides explicit values.
func ApplyDefaults(cfg *Config) {
	if cfg.Input == "" {
		cfg.Input = defaultInput
	}
	if cfg.Output == "" {
		cfg.Output = defaultOutput
	}
	if cfg.Layouts == "" {
		cfg.Layouts = defaultLayouts
	}

	anchors := &cfg.Markdown.Anchors
	if anchors.Level == 0 {
		anchors.Level = defaultAnchorLevel
	}
	if anchors.PermalinkSymbol == "" {
		anchors.PermalinkSymbol = defaultPermalinkSymbol
	}
	if anchors.PermalinkClass == "" {
		anchors.PermalinkClass = defaultPermalinkClass
	}

	for i := range cfg.Passthrough {
		rule := &cfg.Passthrough[i]
		if rule.To != "" {
			continue
		}
		rule.To = strings.TrimPrefix(rule.From, "./")
		if strings.ContainsAny(rule.From, "*?[") {
			rule.To = path.Dir(rule.To)
		}
	}
	for i := range cfg.Bundles {
		if cfg.Bundles[i].Output == "" {
			cfg.Bundles[i].Output = defaultBundleOutput
		}
	}

	if cfg.Build.Concurrency == 0 {
		cfg.Build.Concurrency = runtime.NumCPU()
	}
	if cfg.Serve.Host == "" {
		cfg.Serve.Host = defaultServeHost
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = defaultServePort
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
}
