package commands

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/passthrough"
	"git.home.luguber.info/inful/pagesmith/internal/server"
	"git.home.luguber.info/inful/pagesmith/internal/site"
	"git.home.luguber.info/inful/pagesmith/internal/watch"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Port         int    `help:"Port to listen on (overrides config)"`
	Host         string `help:"Host to bind (overrides config)"`
	NoLiveReload bool   `name:"no-live-reload" help:"Disable live reload and script injection"`
	Metrics      bool   `help:"Expose Prometheus metrics at /metrics"`
	Drafts       bool   `help:"Include pages marked draft"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	load := func() (*config.Config, error) {
		cfg, err := loadConfig(root)
		if err != nil {
			return nil, err
		}
		s.apply(cfg)
		return cfg, nil
	}
	cfg, err := load()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return RunServe(ctx, cfg, root.Config, load)
}

func (s *ServeCmd) apply(cfg *config.Config) {
	if s.Port != 0 {
		cfg.Serve.Port = s.Port
	}
	if s.Host != "" {
		cfg.Serve.Host = s.Host
	}
	if s.NoLiveReload {
		off := false
		cfg.Serve.LiveReload = &off
	}
	if s.Metrics {
		cfg.Serve.Metrics = true
	}
	if s.Drafts {
		cfg.Build.Drafts = true
	}
}

// serveSession rebuilds the site on change and reports results to the
// preview server. The output directory is fixed for the session.
type serveSession struct {
	load     func() (*config.Config, error)
	output   string
	srv      *server.Server
	recorder metrics.Recorder
}

// RunServe builds cfg once, then serves the output directory and rebuilds
// on source changes until ctx is canceled. load re-reads the configuration
// before every rebuild.
func RunServe(ctx context.Context, cfg *config.Config, configPath string, load func() (*config.Config, error)) error {
	var (
		recorder       metrics.Recorder = metrics.NoopRecorder{}
		metricsHandler http.Handler
	)
	if cfg.Serve.Metrics {
		reg := prom.NewRegistry()
		reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusRecorder(reg)
		metricsHandler = metrics.HTTPHandler(reg)
	}

	output, err := filepath.Abs(cfg.OutputDir())
	if err != nil {
		return err
	}
	sess := &serveSession{
		load:     load,
		output:   output,
		recorder: recorder,
		srv: server.New(server.Options{
			Root:       output,
			LiveReload: cfg.Serve.LiveReloadEnabled(),
			Metrics:    metricsHandler,
			Recorder:   recorder,
		}),
	}
	sess.rebuild(ctx)

	watcher, err := watch.New(watchOptions(cfg, configPath), sess.rebuild)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error {
		addr := net.JoinHostPort(cfg.Serve.Host, strconv.Itoa(cfg.Serve.Port))
		return sess.srv.ListenAndServe(gctx, addr)
	})
	return g.Wait()
}

func (s *serveSession) rebuild(ctx context.Context) {
	cfg, err := s.load()
	if err == nil {
		cfg.Output = s.output
		var report *site.Report
		if report, err = RunBuild(ctx, cfg, s.recorder); err == nil {
			s.srv.BuildSucceeded(report.BuildID)
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	s.srv.BuildFailed(err)
	slog.Error("Rebuild failed; fix the error and save to retry", logfields.Error(err))
}

// watchOptions adds the config file and passthrough sources outside the
// input directory to the watched set.
func watchOptions(cfg *config.Config, configPath string) watch.Options {
	opts := watch.Options{
		Dirs:   []string{cfg.InputDir()},
		Files:  []string{configPath},
		Ignore: []string{cfg.OutputDir(), cfg.OutputDir() + "_stage", cfg.OutputDir() + ".prev"},
	}
	input, _ := filepath.Abs(cfg.InputDir())
	copier := &passthrough.Copier{InputDir: cfg.InputDir(), ProjectDir: cfg.Root}
	for _, p := range copier.Sources(cfg.Passthrough).Paths() {
		if within(input, p) {
			continue
		}
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		if fi.IsDir() {
			opts.Dirs = append(opts.Dirs, p)
		} else {
			opts.Files = append(opts.Files, p)
		}
	}
	return opts
}

func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
