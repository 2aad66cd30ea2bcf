// Package cli implements the addrsync command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrz1836/addrsync/internal/config"
	"github.com/mrz1836/addrsync/internal/output"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter

	enrichOnce sync.Once
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "addrsync",
	Short: "Keep a wallet's address ledger in sync with the network",
	Long: `addrsync derives the addresses of a seed, reconciles their balances and
spend state against a ledger node, and keeps a local address ledger whose
last entry is always the first unused address.

Example:
  ADDRSYNC_MNEMONIC="..." addrsync sync --account main
  addrsync addresses list --account main --unspent
  addrsync inputs --account main --amount 1500`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initGlobals(cmd); err != nil {
			return err
		}
		SetCmdContext(cmd, NewCommandContext(cfg, logger, formatter))
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command and reports any error on stderr.
func Execute() error {
	enrichOnce.Do(func() { walkCommands(rootCmd, enrichParentLong) })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(rootCmd.ErrOrStderr(), err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return syncerr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	switch {
	case errors.Is(err, syncerr.ErrConfigNotFound):
		cfg = config.Defaults()
		cfg.Home = home
	case err != nil:
		return err
	}

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	if err := cfg.Validate(); err != nil {
		return syncerr.WithSuggestion(err, fmt.Sprintf("fix %s or the ADDRSYNC_* environment", config.Path(home)))
	}

	logger = newLogger(cfg, cmd.ErrOrStderr())

	explicit := output.ParseFormat(cfg.Output.DefaultFormat)
	formatter = output.NewFormatter(output.DetectFormat(cmd.OutOrStdout(), explicit), cmd.OutOrStdout()).
		WithColor(cfg.Output.Color)
	return nil
}

// newLogger opens the configured log file, falling back to the console when
// no file is set and to a null logger when the file cannot be opened.
func newLogger(c *config.Config, stderr io.Writer) *config.Logger {
	level := config.ParseLogLevel(c.Logging.Level)
	if c.Logging.File == "" {
		if level == config.LogLevelOff {
			return config.NullLogger()
		}
		return config.NewConsoleLogger(stderr, level, c.Logging.JSON)
	}

	l, err := config.NewLogger(level, c.Logging.File)
	if err != nil {
		return config.NullLogger()
	}
	return l
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...any) {
	fmt.Fprintln(w, args...)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "addrsync data directory (default: ~/.addrsync)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}
