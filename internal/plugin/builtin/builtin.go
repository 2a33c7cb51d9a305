// Package builtin lists the plugins shipped with pagesmith.
package builtin

import (
	"git.home.luguber.info/inful/pagesmith/internal/plugin"
	"git.home.luguber.info/inful/pagesmith/internal/plugin/syntaxhighlight"
)

// Catalog returns the built-in plugin catalog.
func Catalog() plugin.Catalog {
	return plugin.Catalog{
		syntaxhighlight.Name: syntaxhighlight.New,
	}
}
