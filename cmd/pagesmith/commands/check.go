package commands

import (
	"fmt"

	"git.home.luguber.info/inful/pagesmith/internal/check"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Output string `short:"o" help:"Built site directory (overrides config)"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	overridePath(&cfg.Output, c.Output)

	ctx, cancel := signalContext()
	defer cancel()

	checker := &check.Checker{BaseURL: cfg.Site.BaseURL}
	res, err := checker.Check(ctx, cfg.OutputDir())
	if err != nil {
		return err
	}

	out := g.out()
	for _, b := range res.Broken {
		_, _ = fmt.Fprintf(out, "%s: %s (%s)\n", b.Page, b.URL, b.Reason)
	}
	_, _ = fmt.Fprintf(out, "Checked %d pages, %d links (%d external), %d broken\n",
		res.Pages, res.Links, res.External, len(res.Broken))
	if !res.OK() {
		return errors.ValidationError("broken links found").
			WithContext("broken", len(res.Broken)).Build()
	}
	return nil
}
