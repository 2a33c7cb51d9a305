package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/plugin/builtin"
	"git.home.luguber.info/inful/pagesmith/internal/site"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output      string `short:"o" help:"Output directory (overrides config)"`
	Input       string `help:"Input directory (overrides config)"`
	Drafts      bool   `help:"Include pages marked draft"`
	Incremental bool   `help:"Reuse unchanged pages from the previous build"`
	Clean       bool   `help:"Ignore the previous build manifest"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := b.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := RunBuild(ctx, cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Built %s: %s\n", cfg.OutputDir(), report.Summary())
	return nil
}

// apply layers flag overrides on cfg and revalidates it.
func (b *BuildCmd) apply(cfg *config.Config) error {
	overridePath(&cfg.Output, b.Output)
	overridePath(&cfg.Input, b.Input)
	if b.Drafts {
		cfg.Build.Drafts = true
	}
	if b.Incremental {
		cfg.Build.Incremental = true
	}
	if b.Clean {
		cfg.Build.Clean = true
	}
	if b.Output == "" && b.Input == "" {
		return nil
	}
	return config.Validate(cfg)
}

// RunBuild assembles a builder from cfg with the built-in plugins and runs
// one build.
func RunBuild(ctx context.Context, cfg *config.Config, recorder metrics.Recorder) (*site.Report, error) {
	builder, err := site.FromConfig(cfg, builtin.Catalog(), site.WithRecorder(recorder))
	if err != nil {
		return nil, err
	}
	return builder.Build(ctx)
}
