package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/rw-r-r-0644/kata-audit/kata/script"
)

// options holds everything a command invocation needs. A preset logger is
// kept as is; otherwise one is built from the config.
type options struct {
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
	cfg    *Config

	verbose    bool
	configPath string
	backendID  string
	settings   map[string]string
	slug       string
	n          int
	delay      float64
}

func newRootCmd(o *options) *cobra.Command {
	var ownLogger bool

	root := &cobra.Command{
		Use:   "kata-audit [flags] <roster>",
		Short: "Check a roster of users for completed coding challenges",
		Long: `kata-audit reads a roster of "handle,external-id" lines and asks the
platform, one user at a time, whether each user completed a challenge
(--slug) or at least N challenges (--n). The result is printed as one
JSON object mapping handle to true/false.

Users whose check fails are reported on stderr and left out of the output.

Examples:
  kata-audit --slug multiply roster.csv
  kata-audit --n 10 --delay 1 roster.csv
  kata-audit --backend script -S command="python3 mirror.py" --n 5 roster.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(o.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if o.backendID != "" {
				cfg.Backend = o.backendID
			}
			for k, v := range o.settings {
				cfg.Settings[k] = v
			}
			o.cfg = cfg

			if o.logger != nil {
				return nil
			}
			logger, err := buildLogger(cfg.LogLevel, o.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			o.logger = logger.With(zap.String("run_id", uuid.NewString()))
			ownLogger = true
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if ownLogger {
				_ = o.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("delay") && o.cfg.Delay != nil {
				o.delay = *o.cfg.Delay
			}
			return runAudit(cmd.Context(), o, args[0], queryFromFlags(cmd, o))
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&o.configPath, "config", "kata-audit.yaml", "Path to config file")
	pf.StringVar(&o.backendID, "backend", "", "Backend ID (e.g. codewars, script)")
	pf.StringToStringVarP(&o.settings, "setting", "S", nil, "Backend settings (key=value), can be repeated")

	f := root.Flags()
	f.StringVar(&o.slug, "slug", "", "Check if each user completed the challenge with this slug")
	f.IntVar(&o.n, "n", 0, "Check if each user completed at least N challenges")
	f.Float64Var(&o.delay, "delay", 2, "Seconds to wait between requests")
	root.MarkFlagsMutuallyExclusive("slug", "n")
	root.MarkFlagsOneRequired("slug", "n")

	root.AddCommand(&cobra.Command{
		Use:   "backends",
		Short: "List available backends and their settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackends(o.stdout)
		},
	})

	return root
}

func buildLogger(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o := &options{stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(o).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[error] %v\n", err)
		stop()
		os.Exit(1)
	}
}
