package markdown

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Heading is one entry of a document outline.
type Heading struct {
	Level int
	ID    string
	Text  string
}

var outlineKey = parser.NewContextKey()

// AnchorOptions controls heading anchor generation.
type AnchorOptions struct {
	Level           int // Minimum heading level that receives an id
	Permalink       bool
	PermalinkSymbol string
	PermalinkBefore bool
	PermalinkClass  string
}

// AnchorTransformer assigns stable ids to headings and optionally appends a
// permalink. Explicit ids ({#custom}) are kept and reserved so generated ids
// never collide with them.
type AnchorTransformer struct {
	opts AnchorOptions
}

// NewAnchorTransformer returns a transformer for opts.
func NewAnchorTransformer(opts AnchorOptions) *AnchorTransformer {
	if opts.Level < 1 {
		opts.Level = 1
	}
	return &AnchorTransformer{opts: opts}
}

// Transform implements parser.ASTTransformer.
func (t *AnchorTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()
	used := make(map[string]bool)

	var headings []*ast.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if id, ok := explicitID(h); ok {
			used[id] = true
		}
		headings = append(headings, h)
		return ast.WalkSkipChildren, nil
	})

	outline := make([]Heading, 0, len(headings))
	for _, h := range headings {
		if h.Level < t.opts.Level {
			continue
		}
		label := headingText(h, source)
		id, ok := explicitID(h)
		if !ok {
			id = uniqueSlug(Slugify(label), used)
			h.SetAttributeString("id", []byte(id))
		}
		outline = append(outline, Heading{Level: h.Level, ID: id, Text: label})
		if t.opts.Permalink {
			t.addPermalink(h, id)
		}
	}
	pc.Set(outlineKey, outline)
}

func (t *AnchorTransformer) addPermalink(h *ast.Heading, id string) {
	link := ast.NewLink()
	link.Destination = []byte("#" + id)
	link.SetAttributeString("class", []byte(t.opts.PermalinkClass))
	link.AppendChild(link, ast.NewString([]byte(t.opts.PermalinkSymbol)))

	space := ast.NewString([]byte(" "))
	if t.opts.PermalinkBefore && h.FirstChild() != nil {
		first := h.FirstChild()
		h.InsertBefore(h, first, link)
		h.InsertBefore(h, first, space)
		return
	}
	if h.FirstChild() != nil {
		h.AppendChild(h, space)
	}
	h.AppendChild(h, link)
}

func explicitID(h *ast.Heading) (string, bool) {
	v, ok := h.AttributeString("id")
	if !ok {
		return "", false
	}
	switch id := v.(type) {
	case []byte:
		return string(id), len(id) > 0
	case string:
		return id, id != ""
	}
	return "", false
}

// headingText concatenates the visible inline text of n.
func headingText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(source))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
