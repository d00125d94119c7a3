package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-isbn-stats/config"
)

// app carries the resolved configuration and the streams shared by all commands.
type app struct {
	cfg        *config.Config
	flags      *config.Config
	configPath string
	envFile    string
	fromDump   string

	// transport replaces the fetcher's HTTP transport when set.
	transport http.RoundTripper
	stdout    io.Writer
	stderr    io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		slog.Error("isbnstats failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	a.flags = config.DefaultConfig()

	root := &cobra.Command{
		Use:   "isbnstats",
		Short: "Fetch catalog records for a list of ISBNs and report statistics about them",
		Long: "isbnstats looks up every ISBN of the input file in a remote catalog, normalizes the\n" +
			"records into a dataset, dumps it and prints descriptive statistics.\n" +
			"Running it without a subcommand does fetch and report in one go.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReport(cmd.Context())
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file with ISBNSTATS_* variables")
	pf.StringVar(&a.flags.BaseURL, "base-url", a.flags.BaseURL, "lookup URL template containing "+config.ISBNPlaceholder)
	pf.StringVarP(&a.flags.InputFile, "input", "i", a.flags.InputFile, "file with one ISBN per line")
	pf.StringVarP(&a.flags.OutputFile, "output", "o", a.flags.OutputFile, "dump file path")
	pf.StringVar(&a.flags.OutputFormat, "format", a.flags.OutputFormat, "dump format: csv, json, or dual")
	pf.DurationVar(&a.flags.Timeout, "timeout", a.flags.Timeout, "per-request timeout")
	pf.IntVar(&a.flags.MaxRetries, "max-retries", a.flags.MaxRetries, "retries per ISBN on timeouts and connection errors")
	pf.DurationVar(&a.flags.RetryBackoff, "retry-backoff", a.flags.RetryBackoff, "initial retry backoff")
	pf.DurationVar(&a.flags.RetryBackoffMax, "retry-backoff-max", a.flags.RetryBackoffMax, "maximum retry backoff")
	pf.StringVar(&a.flags.MetricsAddr, "metrics-addr", a.flags.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	pf.BoolVarP(&a.flags.Verbose, "verbose", "v", a.flags.Verbose, "enable verbose logging")

	root.AddCommand(newFetchCmd(a), newReportCmd(a))
	return root
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and normalize the input ISBNs and write the dump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.ingest(cmd.Context())
			return err
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print statistics, from a CSV dump or from a fresh fetch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReport(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&a.fromDump, "from-dump", "", "read records from this CSV dump instead of fetching")
	return cmd
}

// setup resolves the configuration: defaults, then the YAML file, then the
// environment (including the dotenv file), then explicitly set flags.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if a.configPath != "" {
		if err := cfg.LoadFile(a.configPath); err != nil {
			return err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	applyFlags(cmd, a.flags, cfg)
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger, level := newLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())
	return nil
}

// applyFlags copies every flag the user set on the command line into cfg.
func applyFlags(cmd *cobra.Command, from, cfg *config.Config) {
	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("base-url", func() { cfg.BaseURL = from.BaseURL })
	set("input", func() { cfg.InputFile = from.InputFile })
	set("output", func() { cfg.OutputFile = from.OutputFile })
	set("format", func() { cfg.OutputFormat = from.OutputFormat })
	set("timeout", func() { cfg.Timeout = from.Timeout })
	set("max-retries", func() { cfg.MaxRetries = from.MaxRetries })
	set("retry-backoff", func() { cfg.RetryBackoff = from.RetryBackoff })
	set("retry-backoff-max", func() { cfg.RetryBackoffMax = from.RetryBackoffMax })
	set("metrics-addr", func() { cfg.MetricsAddr = from.MetricsAddr })
	set("verbose", func() { cfg.Verbose = from.Verbose })
}

func newLogger(out *os.File, verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(out) {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
