package plugin

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/markdown"
)

type fakePlugin struct {
	name        string
	validateErr error
	applied     *[]string
}

func (f *fakePlugin) Metadata() Metadata {
	return Metadata{Name: f.name, Version: "0.1.0", Type: TypeMarkdown}
}

func (f *fakePlugin) Validate(map[string]any) error { return f.validateErr }

func (f *fakePlugin) Apply(b *markdown.Builder, opts map[string]any) error {
	*f.applied = append(*f.applied, f.name)
	if v, ok := opts["css"].(string); ok {
		b.Contribute("css", v)
	}
	return nil
}

func TestMetadataValidate(t *testing.T) {
	assert.NoError(t, Metadata{Name: "a", Version: "1", Type: TypeAsset}.Validate())
	assert.Error(t, Metadata{Version: "1", Type: TypeAsset}.Validate())
	assert.Error(t, Metadata{Name: "a", Type: TypeAsset}.Validate())
	assert.Error(t, Metadata{Name: "a", Version: "1", Type: "theme"}.Validate())
	assert.Equal(t, "a@1 (asset)", Metadata{Name: "a", Version: "1", Type: TypeAsset}.String())
}

func TestRegistry(t *testing.T) {
	var applied []string
	r := NewRegistry()
	require.NoError(t, r.Register(&fakePlugin{name: "zeta", applied: &applied}))
	require.NoError(t, r.Register(&fakePlugin{name: "alpha", applied: &applied}))

	assert.Equal(t, []string{"zeta", "alpha"}, r.Names())
	assert.Equal(t, 2, r.Count())
	assert.True(t, r.Has("alpha"))
	assert.False(t, r.Has("missing"))

	_, err := r.Get("missing")
	assert.Error(t, err)

	assert.Error(t, r.Register(&fakePlugin{name: "zeta", applied: &applied}), "duplicate")
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&fakePlugin{name: "", applied: &applied}))
	assert.Len(t, r.List(), 2)
}

func TestAssemble_RegistersInConfigOrder(t *testing.T) {
	var applied []string
	catalog := Catalog{
		"one": func() Plugin { return &fakePlugin{name: "one", applied: &applied} },
		"two": func() Plugin { return &fakePlugin{name: "two", applied: &applied} },
	}
	cfg := &config.Config{Plugins: []config.PluginConfig{
		{Name: "two", Options: map[string]any{"css": "pre{}"}},
		{Name: "one"},
	}}
	b := markdown.NewBuilder(config.MarkdownConfig{})

	reg, err := Assemble(cfg, catalog, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "one"}, reg.Names())
	assert.Equal(t, []string{"two", "one"}, applied)
	assert.Equal(t, []string{"pre{}"}, b.Contributions()["css"])
}

func TestAssemble_Errors(t *testing.T) {
	var applied []string
	boom := stderrors.New("boom")
	catalog := Catalog{
		"bad": func() Plugin { return &fakePlugin{name: "bad", validateErr: boom, applied: &applied} },
	}
	b := markdown.NewBuilder(config.MarkdownConfig{})

	_, err := Assemble(&config.Config{Plugins: []config.PluginConfig{{Name: "nope"}}}, catalog, b)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryPlugin))
	assert.Contains(t, err.Error(), "available=bad")

	_, err = Assemble(&config.Config{Plugins: []config.PluginConfig{{Name: "bad"}}}, catalog, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "validate", perr.Operation)
	assert.Empty(t, applied)
}

func TestDecodeOptions(t *testing.T) {
	var target struct {
		Style string `yaml:"style"`
		Lines bool   `yaml:"lines"`
	}
	require.NoError(t, DecodeOptions(map[string]any{"style": "monokai", "lines": true}, &target))
	assert.Equal(t, "monokai", target.Style)
	assert.True(t, target.Lines)

	assert.Error(t, DecodeOptions(map[string]any{"colour": "red"}, &target))
	assert.NoError(t, DecodeOptions(nil, &target))
}
