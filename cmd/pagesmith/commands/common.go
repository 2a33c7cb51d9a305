package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/observability"
)

// LogLevelEnv overrides the configured log level.
const LogLevelEnv = "PAGESMITH_LOG_LEVEL"

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	// Out receives user-facing command output. Defaults to stdout.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"pagesmith.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd   `cmd:"" help:"Build the site into the output directory"`
	Serve      ServeCmd   `cmd:"" help:"Build, watch and serve the site with live reload"`
	Init       InitCmd    `cmd:"" help:"Write a starter configuration and input directory"`
	ShowConfig ConfigCmd  `cmd:"" name:"config" help:"Print the resolved configuration as YAML"`
	Plugins    PluginsCmd `cmd:"" help:"List the assembled plugins in registration order"`
	Check      CheckCmd   `cmd:"" help:"Verify internal links and anchors of a built site"`
}

// AfterApply runs after flag parsing and installs the bootstrap logger used
// until a configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(newLogger(c.Verbose, config.LoggingConfig{}))
	return nil
}

// newLogger resolves the process logger. Precedence: -v > PAGESMITH_LOG_LEVEL > config.
func newLogger(verbose bool, lc config.LoggingConfig) *slog.Logger {
	level := lc.Level.SlogLevel()
	if env := os.Getenv(LogLevelEnv); env != "" {
		level = config.NormalizeLogLevel(env).SlogLevel()
	}
	if verbose {
		level = slog.LevelDebug
	}
	return observability.NewLogger(os.Stderr, level, string(lc.Format))
}

// loadConfig loads the configuration named by the global flag and switches
// the default logger to its logging section.
func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(root.Verbose, cfg.Logging))
	return cfg, nil
}

// overridePath sets *dst from a CLI path flag. Flags are relative to the
// working directory, config values to the config file.
func overridePath(dst *string, flag string) {
	if flag == "" {
		return
	}
	if abs, err := filepath.Abs(flag); err == nil {
		flag = abs
	}
	*dst = flag
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
