package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string // config file path; empty means config.Path()
	Database string // overrides the configured database
	User     string // caller identity; defaults to $FASTLOG_USER
	Zone     string // zone for wall-clock input and output

	logger *slog.Logger
	clock  chrono.Clock // nil means the system clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the fastlog CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fastlog",
		Short: "fastlog - track fasting periods",
		Long: `fastlog records fasts: start one, end it with an outcome and a note,
amend or delete it later, and review, export or archive your history.

Times are wall-clock readings ("2025-01-01T08:00") in your zone: --zone,
else the zone saved with "fastlog zone", else the configured default.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default $FASTLOG_CONFIG or ~/.config/fastlog/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVarP(&opts.User, "user", "u", os.Getenv(config.EnvUser), "user to act as (default $FASTLOG_USER)")
	cmd.PersistentFlags().StringVar(&opts.Zone, "zone", "", "IANA zone for times given and shown")

	// Add subcommands
	cmd.AddCommand(NewStartCommand(opts))
	cmd.AddCommand(NewEndCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewActiveCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewZoneCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewArchiveCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are rendered in the selected format: JSON envelopes go to stdout, text
// goes to stderr. SIGINT and SIGTERM cancel the command's context.
func Execute(args []string, stdout, stderr io.Writer) int {
	return execute(&RootOptions{}, args, stdout, stderr)
}

func execute(opts *RootOptions, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	out := &OutputFormatter{Format: opts.Format, Writer: stderr, Verbose: opts.Verbose}
	if opts.Format == "json" {
		out.Writer = stdout
	}
	_ = out.Error(ErrorCode(err), err.Error(), ErrorDetails(err))
	return GetExitCode(err)
}

// newLogger builds the CLI's stderr logger. Warnings and errors only, unless
// verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
