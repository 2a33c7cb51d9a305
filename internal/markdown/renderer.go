// Package markdown renders page bodies to HTML with goldmark.
//
// A Builder is seeded from the markdown section of the site configuration
// (raw HTML pass-through, linkify, typographer, heading anchors). Plugins add
// goldmark extensions and bundle contributions to the same Builder before it
// is frozen into a Renderer.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// Builder accumulates renderer settings.
type Builder struct {
	cfg             config.MarkdownConfig
	extensions      []goldmark.Extender
	parserOptions   []parser.Option
	rendererOptions []renderer.Option
	contributions   map[string][]string
	order           []string
}

// NewBuilder translates the markdown configuration into goldmark options.
// GFM tables, strikethrough and task lists are always enabled.
func NewBuilder(cfg config.MarkdownConfig) *Builder {
	b := &Builder{
		cfg:           cfg,
		contributions: make(map[string][]string),
		extensions:    []goldmark.Extender{extension.Table, extension.Strikethrough, extension.TaskList},
		parserOptions: []parser.Option{parser.WithAttribute()},
	}
	if cfg.HTML {
		b.rendererOptions = append(b.rendererOptions, html.WithUnsafe())
	}
	if cfg.Linkify {
		b.extensions = append(b.extensions, extension.Linkify)
	}
	if cfg.Typographer {
		b.extensions = append(b.extensions, extension.Typographer)
	}
	if cfg.Anchors.Enabled {
		t := NewAnchorTransformer(AnchorOptions{
			Level:           cfg.Anchors.Level,
			Permalink:       cfg.Anchors.Permalink,
			PermalinkSymbol: cfg.Anchors.PermalinkSymbol,
			PermalinkBefore: cfg.Anchors.PermalinkBefore,
			PermalinkClass:  cfg.Anchors.PermalinkClass,
		})
		b.parserOptions = append(b.parserOptions, parser.WithASTTransformers(util.Prioritized(t, 100)))
	}
	return b
}

// Config returns the markdown configuration the builder was created from.
func (b *Builder) Config() config.MarkdownConfig {
	return b.cfg
}

// AddExtension registers a goldmark extension.
func (b *Builder) AddExtension(ext goldmark.Extender) {
	b.extensions = append(b.extensions, ext)
}

// AddParserOption registers a goldmark parser option.
func (b *Builder) AddParserOption(opt parser.Option) {
	b.parserOptions = append(b.parserOptions, opt)
}

// AddRendererOption registers a goldmark renderer option.
func (b *Builder) AddRendererOption(opt renderer.Option) {
	b.rendererOptions = append(b.rendererOptions, opt)
}

// Contribute adds site-wide content to a named bundle (e.g. a stylesheet
// emitted by the highlighter into "css").
func (b *Builder) Contribute(bundle, content string) {
	if _, ok := b.contributions[bundle]; !ok {
		b.order = append(b.order, bundle)
	}
	b.contributions[bundle] = append(b.contributions[bundle], content)
}

// Contributions returns bundle contributions keyed by bundle name.
func (b *Builder) Contributions() map[string][]string {
	out := make(map[string][]string, len(b.contributions))
	for _, name := range b.order {
		out[name] = append([]string(nil), b.contributions[name]...)
	}
	return out
}

// Build freezes the builder into a Renderer.
func (b *Builder) Build() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(b.extensions...),
		goldmark.WithParserOptions(b.parserOptions...),
		goldmark.WithRendererOptions(b.rendererOptions...),
	)
	return &Renderer{md: md}
}

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// Result is a rendered document.
type Result struct {
	HTML     []byte
	Headings []Heading
}

// Render converts src to HTML and returns the anchored heading outline.
func (r *Renderer) Render(src []byte) (*Result, error) {
	pc := parser.NewContext()
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf, parser.WithContext(pc)); err != nil {
		return nil, errors.WrapError(err, errors.CategoryRender, "markdown conversion failed").Build()
	}
	res := &Result{HTML: buf.Bytes()}
	if outline, ok := pc.Get(outlineKey).([]Heading); ok {
		res.Headings = outline
	}
	return res, nil
}
