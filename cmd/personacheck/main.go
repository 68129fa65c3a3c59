// Package main provides the personacheck binary entry point.
// Personacheck validates persona content roots: it loads agent, task and
// template documents, resolves the dependencies each persona declares, and
// checks required content markers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/c360studio/personacheck/config"
	"github.com/c360studio/personacheck/output/report"
	contentwatcher "github.com/c360studio/personacheck/processor/content-watcher"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version and BuildTime are reported by the version command.
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "personacheck"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	noColor    bool
}

// overrides are validate/watch flags that take precedence over config files.
type overrides struct {
	root       string
	strictness string
	timeout    time.Duration
	outDir     string
	format     string
	natsURL    string
	textfile   string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Persona content integrity checker",
		Long: `Personacheck validates persona content roots.

It loads persona, task and template documents, parses the structured
block each persona declares its dependencies in, and checks that every
dependency resolves and that required content markers are present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable coloured output")

	cmd.AddCommand(
		validateCmd(&g),
		watchCmd(&g),
		rulesCmd(&g),
		initCmd(&g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func addOverrideFlags(cmd *cobra.Command, o *overrides) {
	cmd.Flags().StringVar(&o.root, "root", "", "Content root directory")
	cmd.Flags().StringVar(&o.strictness, "strictness", "", "Category strictness (strict, warn, off)")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "Validation time budget (0 = none)")
	cmd.Flags().StringVar(&o.outDir, "out", "", "Directory for run artifacts")
	cmd.Flags().StringVar(&o.format, "format", "", "Report format (text, json)")
	cmd.Flags().StringVar(&o.natsURL, "nats-url", "", "Publish run summaries to this NATS server")
	cmd.Flags().StringVar(&o.textfile, "metrics-file", "", "Write Prometheus metrics to this textfile")
}

// loadConfig builds the logger and the layered config, then applies flag
// overrides.
func loadConfig(cmd *cobra.Command, g *globalFlags, o *overrides) (*config.Config, *slog.Logger, error) {
	logger := newLogger(cmd.ErrOrStderr(), parseLevel(g.logLevel), g.noColor)

	cfg, err := config.NewLoader(logger).Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}

	if o != nil {
		flags := cmd.Flags()
		if flags.Changed("root") {
			cfg.Content.Root = o.root
		}
		if flags.Changed("strictness") {
			cfg.Validation.Strictness = o.strictness
		}
		if flags.Changed("timeout") {
			cfg.Validation.Timeout = o.timeout
		}
		if flags.Changed("out") {
			cfg.Report.OutDir = o.outDir
		}
		if flags.Changed("format") {
			cfg.Report.Format = o.format
		}
		if flags.Changed("nats-url") {
			cfg.NATS.URL = o.natsURL
		}
		if flags.Changed("metrics-file") {
			cfg.Metrics.Textfile = o.textfile
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid flags: %w", err)
		}
	}

	return cfg, logger, nil
}

func validateCmd(g *globalFlags) *cobra.Command {
	var o overrides
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a content root once",
		Long: `Validate loads the content root, checks every declared dependency and
every rule, and prints the full report. It exits with status 1 when any
check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, g, &o)
			if err != nil {
				return err
			}

			p, err := newPipeline(cmd.Context(), cfg, cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			defer p.Close()

			_, err = p.run(cmd.Context())
			return err
		},
	}
	addOverrideFlags(cmd, &o)
	return cmd
}

func watchCmd(g *globalFlags) *cobra.Command {
	var (
		o        overrides
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Validate, then re-validate whenever content changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, g, &o)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			p, err := newPipeline(ctx, cfg, cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			defer p.Close()

			if _, err := p.run(ctx); err != nil {
				logger.Warn("Validation failed", "error", err)
			}

			wcfg := contentwatcher.DefaultConfig()
			wcfg.Debounce = debounce
			w, err := contentwatcher.New(wcfg, cfg.Content.Root, logger)
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer w.Stop()
			if err := w.Start(ctx); err != nil {
				return err
			}

			for batch := range w.Batches() {
				logger.Info("Content changed", "paths", batch.Paths())
				if _, err := p.run(ctx); err != nil {
					logger.Warn("Validation failed", "error", err)
				}
			}
			return nil
		},
	}
	addOverrideFlags(cmd, &o)
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before re-validating")
	return cmd
}

func rulesCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the configured rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, g, nil)
			if err != nil {
				return err
			}
			if format == config.FormatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg.Rules)
			}
			return report.RenderRules(cmd.OutOrStdout(), cfg.Rules)
		},
	}
	cmd.Flags().StringVar(&format, "format", config.FormatText, "Output format (text, json)")
	return cmd
}

func initCmd(g *globalFlags) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a project config with the default rule set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), parseLevel(g.logLevel), g.noColor)
			abs, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolve directory: %w", err)
			}

			path, created, err := config.NewLoader(logger).EnsureProjectConfig(abs)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the project config into")
	return cmd
}
