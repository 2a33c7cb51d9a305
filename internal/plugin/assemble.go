package plugin

import (
	"bytes"
	"log/slog"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/markdown"
)

// Factory creates a fresh plugin instance.
type Factory func() Plugin

// Catalog maps plugin names to factories.
type Catalog map[string]Factory

// Names returns the catalog's plugin names sorted.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Assemble registers every plugin declared in cfg, validates its options and
// applies it to b. All declared plugins are registered and applied before
// Assemble returns; the first failure aborts assembly.
func Assemble(cfg *config.Config, catalog Catalog, b *markdown.Builder) (*Registry, error) {
	reg := NewRegistry()
	for _, pc := range cfg.Plugins {
		factory, ok := catalog[pc.Name]
		if !ok {
			return nil, errors.PluginError("unknown plugin").
				WithContext("plugin", pc.Name).
				WithContext("available", strings.Join(catalog.Names(), ",")).
				Build()
		}
		p := factory()
		if md := p.Metadata(); md.Name != pc.Name {
			return nil, errors.InternalError("plugin factory returned mismatched name").
				WithContext("plugin", pc.Name).WithContext("got", md.Name).Build()
		}
		if err := reg.Register(p); err != nil {
			return nil, errors.WrapError(err, errors.CategoryPlugin, "plugin registration failed").
				WithContext("plugin", pc.Name).Build()
		}
		if err := p.Validate(pc.Options); err != nil {
			return nil, errors.WrapError(NewError(pc.Name, "validate", err), errors.CategoryPlugin, "invalid plugin options").
				WithContext("plugin", pc.Name).Build()
		}
		if err := p.Apply(b, pc.Options); err != nil {
			return nil, errors.WrapError(NewError(pc.Name, "apply", err), errors.CategoryPlugin, "plugin failed to apply").
				WithContext("plugin", pc.Name).Build()
		}
		slog.Debug("Registered plugin", logfields.Plugin(p.Metadata().String()))
	}
	return reg, nil
}

// DecodeOptions strictly decodes free-form plugin options into target.
// Unknown keys are rejected.
func DecodeOptions(options map[string]any, target any) error {
	if len(options) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(options)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(target)
}
