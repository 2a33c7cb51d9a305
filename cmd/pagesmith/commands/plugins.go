package commands

import (
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/pagesmith/internal/markdown"
	"git.home.luguber.info/inful/pagesmith/internal/plugin"
	"git.home.luguber.info/inful/pagesmith/internal/plugin/builtin"
)

// PluginsCmd implements the 'plugins' command.
type PluginsCmd struct {
	Available bool `help:"List every built-in plugin instead of the configured ones"`
}

func (p *PluginsCmd) Run(g *Global, root *CLI) error {
	catalog := builtin.Catalog()
	var list []plugin.Plugin
	if p.Available {
		for _, name := range catalog.Names() {
			list = append(list, catalog[name]())
		}
	} else {
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		reg, err := plugin.Assemble(cfg, catalog, markdown.NewBuilder(cfg.Markdown))
		if err != nil {
			return err
		}
		list = reg.List()
	}

	if len(list) == 0 {
		_, _ = fmt.Fprintln(g.out(), "No plugins configured")
		return nil
	}
	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tVERSION\tTYPE\tDESCRIPTION")
	for _, pl := range list {
		md := pl.Metadata()
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", md.Name, md.Version, md.Type, md.Description)
	}
	return tw.Flush()
}
