// Package syntaxhighlight highlights fenced code blocks with chroma.
package syntaxhighlight

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	highlighting "github.com/yuin/goldmark-highlighting/v2"

	"git.home.luguber.info/inful/pagesmith/internal/markdown"
	"git.home.luguber.info/inful/pagesmith/internal/plugin"
)

// Name is the plugin name used in site configuration.
const Name = "syntaxhighlight"

const (
	defaultStyle  = "github"
	defaultBundle = "css"
)

// Options are the plugin options accepted in site configuration.
type Options struct {
	Style         string `yaml:"style"`
	LineNumbers   bool   `yaml:"line_numbers"`
	Classes       *bool  `yaml:"classes"`
	GuessLanguage bool   `yaml:"guess_language"`
	Bundle        string `yaml:"bundle"`
}

func (o Options) withDefaults() Options {
	if o.Style == "" {
		o.Style = defaultStyle
	}
	if o.Classes == nil {
		on := true
		o.Classes = &on
	}
	if o.Bundle == "" {
		o.Bundle = defaultBundle
	}
	o.Style = strings.ToLower(o.Style)
	return o
}

// Plugin is the syntax highlighting plugin.
type Plugin struct{}

// New returns a syntax highlighting plugin.
func New() plugin.Plugin {
	return &Plugin{}
}

// Metadata implements plugin.Plugin.
func (p *Plugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        Name,
		Version:     "1.0.0",
		Type:        plugin.TypeMarkdown,
		Description: "Highlights fenced code blocks using chroma",
	}
}

// Validate implements plugin.Plugin.
func (p *Plugin) Validate(options map[string]any) error {
	_, err := parseOptions(options)
	return err
}

// Apply implements plugin.Plugin.
func (p *Plugin) Apply(b *markdown.Builder, options map[string]any) error {
	o, err := parseOptions(options)
	if err != nil {
		return err
	}

	formatOptions := []chromahtml.Option{
		chromahtml.WithClasses(*o.Classes),
		chromahtml.WithLineNumbers(o.LineNumbers),
	}
	b.AddExtension(highlighting.NewHighlighting(
		highlighting.WithStyle(o.Style),
		highlighting.WithGuessLanguage(o.GuessLanguage),
		highlighting.WithFormatOptions(formatOptions...),
	))

	if !*o.Classes {
		return nil
	}
	css, err := Stylesheet(o.Style, formatOptions...)
	if err != nil {
		return err
	}
	b.Contribute(o.Bundle, css)
	return nil
}

// Stylesheet returns the chroma CSS for the named style.
func Stylesheet(style string, opts ...chromahtml.Option) (string, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(append([]chromahtml.Option{chromahtml.WithClasses(true)}, opts...)...)
	if err := formatter.WriteCSS(&buf, styles.Get(style)); err != nil {
		return "", fmt.Errorf("write %s stylesheet: %w", style, err)
	}
	return buf.String(), nil
}

func parseOptions(options map[string]any) (Options, error) {
	var o Options
	if err := plugin.DecodeOptions(options, &o); err != nil {
		return o, fmt.Errorf("decode options: %w", err)
	}
	o = o.withDefaults()
	if !slices.Contains(styles.Names(), o.Style) {
		return o, fmt.Errorf("unknown style %q", o.Style)
	}
	return o, nil
}
