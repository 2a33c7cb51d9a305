package syntaxhighlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/markdown"
)

const goSource = "```go\npackage main\n\nfunc main() {}\n```\n"

func renderWith(t *testing.T, opts map[string]any) (string, *markdown.Builder) {
	t.Helper()
	b := markdown.NewBuilder(config.MarkdownConfig{})
	require.NoError(t, New().Apply(b, opts))
	res, err := b.Build().Render([]byte(goSource))
	require.NoError(t, err)
	return string(res.HTML), b
}

func TestApply_ClassesContributeStylesheet(t *testing.T) {
	html, b := renderWith(t, nil)

	assert.Contains(t, html, `class="chroma"`)
	assert.NotContains(t, html, `style="`)

	css := b.Contributions()["css"]
	require.Len(t, css, 1)
	assert.Contains(t, css[0], ".chroma")
}

func TestApply_InlineStyles(t *testing.T) {
	html, b := renderWith(t, map[string]any{"classes": false, "style": "monokai"})

	assert.Contains(t, html, `style="`)
	assert.Empty(t, b.Contributions())
}

func TestApply_CustomBundle(t *testing.T) {
	_, b := renderWith(t, map[string]any{"bundle": "highlight"})
	assert.Len(t, b.Contributions()["highlight"], 1)
	assert.Empty(t, b.Contributions()["css"])
}

func TestValidate(t *testing.T) {
	p := New()
	assert.NoError(t, p.Validate(nil))
	assert.NoError(t, p.Validate(map[string]any{"style": "Dracula", "line_numbers": true}))
	assert.Error(t, p.Validate(map[string]any{"style": "no-such-style"}))
	assert.Error(t, p.Validate(map[string]any{"unknown": 1}))
}

func TestMetadata(t *testing.T) {
	md := New().Metadata()
	assert.Equal(t, Name, md.Name)
	assert.NoError(t, md.Validate())
}
