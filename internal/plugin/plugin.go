// Package plugin provides the plugin system that extends the markdown
// renderer and asset bundles. Plugins are declared in the site config, looked
// up in a Catalog, and applied to a markdown.Builder in declaration order.
package plugin

import (
	"fmt"

	"git.home.luguber.info/inful/pagesmith/internal/markdown"
)

// Plugin represents a pagesmith plugin.
type Plugin interface {
	// Metadata returns the plugin's identity.
	Metadata() Metadata

	// Validate checks the plugin options from the site config.
	Validate(options map[string]any) error

	// Apply wires the plugin into the markdown builder.
	Apply(b *markdown.Builder, options map[string]any) error
}

// Type identifies the category of plugin.
type Type string

const (
	// TypeMarkdown extends markdown parsing or rendering.
	TypeMarkdown Type = "markdown"

	// TypeAsset contributes to asset bundles.
	TypeAsset Type = "asset"
)

// IsValid returns true if the plugin type is recognized.
func (t Type) IsValid() bool {
	return t == TypeMarkdown || t == TypeAsset
}

// Metadata describes a plugin's identity.
type Metadata struct {
	Name        string
	Version     string
	Type        Type
	Description string
}

// String returns a human-readable representation of the plugin metadata.
func (m Metadata) String() string {
	return fmt.Sprintf("%s@%s (%s)", m.Name, m.Version, m.Type)
}

// Validate checks if the plugin metadata is valid.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid plugin type: %s", m.Type)
	}
	return nil
}

// Error represents an error that occurred within a plugin.
type Error struct {
	PluginName string
	Operation  string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("plugin %s failed during %s: %v", e.PluginName, e.Operation, e.Err)
}

// Unwrap returns the underlying error for error inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new plugin error.
func NewError(pluginName, operation string, err error) *Error {
	return &Error{PluginName: pluginName, Operation: operation, Err: err}
}
