// Package site builds a static site from an input directory.
//
// A build runs in stages: prepare (staging directory, layouts, manifest),
// discover (walk the input tree), render (pages in parallel), passthrough
// (verbatim copies) and promote (atomic swap of the staging directory into
// the output directory). A Report describing the build is written to the
// output root.
package site

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pagesmith/internal/bundle"
	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/markdown"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/observability"
	"git.home.luguber.info/inful/pagesmith/internal/passthrough"
	"git.home.luguber.info/inful/pagesmith/internal/plugin"
	"git.home.luguber.info/inful/pagesmith/internal/version"
)

// Builder builds the site described by a configuration.
type Builder struct {
	cfg      *config.Config
	renderer *markdown.Renderer
	bundles  *bundle.Registry
	plugins  *plugin.Registry
	copier   *passthrough.Copier
	recorder metrics.Recorder
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// New returns a builder for cfg using an assembled renderer and bundle
// registry.
func New(cfg *config.Config, renderer *markdown.Renderer, bundles *bundle.Registry, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg,
		renderer: renderer,
		bundles:  bundles,
		plugins:  plugin.NewRegistry(),
		copier:   &passthrough.Copier{InputDir: cfg.InputDir(), ProjectDir: cfg.Root},
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromConfig assembles the markdown renderer, plugins and bundles for cfg
// and returns a ready builder. Every configured plugin is registered and
// applied before FromConfig returns.
func FromConfig(cfg *config.Config, catalog plugin.Catalog, opts ...Option) (*Builder, error) {
	mb := markdown.NewBuilder(cfg.Markdown)
	plugins, err := plugin.Assemble(cfg, catalog, mb)
	if err != nil {
		return nil, err
	}
	bundles, err := bundle.FromConfig(cfg, mb.Contributions())
	if err != nil {
		return nil, err
	}
	b := New(cfg, mb.Build(), bundles, opts...)
	b.plugins = plugins
	return b, nil
}

// Config returns the builder's configuration.
func (b *Builder) Config() *config.Config { return b.cfg }

// Plugins returns the registered plugins.
func (b *Builder) Plugins() *plugin.Registry { return b.plugins }

// Build runs a full build. The returned report is non-nil even on failure.
// On failure or cancellation the previous output is left untouched.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	buildID := uuid.NewString()
	ctx = observability.WithBuildID(ctx, buildID)
	report := newReport(buildID)
	report.Incremental = b.cfg.Build.Incremental

	err := b.build(ctx, report)
	report.finish(err)

	b.recorder.ObserveBuildDuration(report.Duration())
	switch report.Outcome {
	case OutcomeSuccess:
		b.recorder.IncBuildOutcome(metrics.OutcomeSuccess)
	case OutcomeCanceled:
		b.recorder.IncBuildOutcome(metrics.OutcomeCanceled)
	default:
		b.recorder.IncBuildOutcome(metrics.OutcomeFailed)
	}
	b.recorder.AddPages("rendered", report.Pages.Rendered)
	b.recorder.AddPages("reused", report.Pages.Reused)
	b.recorder.AddPages("skipped", report.Pages.Skipped)
	b.recorder.AddFilesCopied(report.FilesCopied)

	if err != nil {
		observability.ErrorContext(ctx, "Build failed", logfields.Error(err))
		return report, err
	}
	if perr := report.Persist(b.cfg.OutputDir()); perr != nil {
		observability.WarnContext(ctx, "Failed to persist build report", logfields.Error(perr))
	}
	observability.InfoContext(ctx, "Build complete",
		logfields.Count(report.Pages.Rendered+report.Pages.Reused),
		logfields.DurationMS(float64(report.Duration().Milliseconds())))
	return report, nil
}

func (b *Builder) build(ctx context.Context, report *Report) error {
	output := b.cfg.OutputDir()
	stage := newStaging(output)
	defer stage.abort()

	rc := &renderContext{
		prevDir: output,
		site: SiteData{
			Title:     b.cfg.Site.Title,
			BaseURL:   b.cfg.Site.BaseURL,
			Language:  b.cfg.Site.Language,
			BuildID:   report.BuildID,
			Generator: "pagesmith " + version.Version,
		},
	}

	err := b.runStage(ctx, report, StagePrepare, func(context.Context) error {
		if err := stage.begin(); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create staging directory").
				WithContext("path", output).Build()
		}
		rc.stageDir = stage.dir
		rc.writer = bundle.NewWriter(b.bundles, stage.dir)

		l, err := loadLayouts(b.cfg.LayoutsDir())
		if err != nil {
			return err
		}
		rc.layouts = l

		hash, err := globalHash(b.cfg, b.bundles.Digest())
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "hash site inputs").Build()
		}
		rc.globalHash = hash
		if b.cfg.Build.Incremental && !b.cfg.Build.Clean {
			rc.previous = loadManifest(output)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var found *discovery
	err = b.runStage(ctx, report, StageDiscover, func(ctx context.Context) error {
		d, err := b.discover(ctx)
		found = d
		return err
	})
	if err != nil {
		return err
	}
	report.Pages.Skipped = found.drafts

	manifest := newManifest(rc.globalHash)
	err = b.runStage(ctx, report, StageRender, func(ctx context.Context) error {
		results, err := b.renderAll(ctx, rc, found.pages)
		if err != nil {
			return err
		}
		for i, res := range results {
			manifest.Pages[found.pages[i].Rel] = res.entry
			if res.reused {
				report.Pages.Reused++
			} else {
				report.Pages.Rendered++
			}
		}
		report.Bundles = rc.writer.Files()
		return nil
	})
	if err != nil {
		return err
	}

	err = b.runStage(ctx, report, StagePassthrough, func(ctx context.Context) error {
		res, err := b.copier.Copy(ctx, b.cfg.Passthrough, rc.stageDir)
		if res != nil {
			report.FilesCopied = res.Files
			report.BytesCopied = res.Bytes
			report.Passthrough = res.Rules
		}
		return err
	})
	if err != nil {
		return err
	}

	return b.runStage(ctx, report, StagePromote, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := manifest.save(rc.stageDir); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "write manifest").Build()
		}
		if err := stage.finalize(); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "promote output").
				WithContext("path", output).Build()
		}
		return nil
	})
}

// renderAll processes pages with bounded concurrency. Results are returned
// in page order.
func (b *Builder) renderAll(ctx context.Context, rc *renderContext, pages []*Page) ([]pageResult, error) {
	results := make([]pageResult, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, b.cfg.Build.Concurrency))
	for i, p := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := b.processPage(gctx, rc, p)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, ctx.Err()
}

func isCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
