package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fastlog/internal/archive"
)

// ArchiveOptions holds flags for the archive command.
type ArchiveOptions struct {
	Days      int
	BatchSize int
	DryRun    bool
	Out       string
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{}

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Remove old completed fasts",
		Long: `Delete completed fasts that ended more than --days ago, across all users.

With --out the removed fasts are first written to a zstd-compressed JSON Lines
file. Defaults come from the archive section of the config file.

Examples:
  fastlog archive --dry-run
  fastlog archive --days 365 --out archive-2025.jsonl.zst`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Days < 0 || opts.BatchSize < 0 {
				return NewExitError(ExitCommandError, "--days and --batch-size must not be negative")
			}
			return withApp(cmd, rootOpts, false, func(ctx context.Context, a *App) error {
				return runArchive(ctx, a, opts)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Days, "days", 0, "archive fasts that ended more than this many days ago (default from config)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "fasts per batch (default from config)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "count candidates without removing anything")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write removed fasts to this file first")

	return cmd
}

func runArchive(ctx context.Context, a *App, opts *ArchiveOptions) error {
	after := a.Config.Archive.After()
	if opts.Days > 0 {
		after = time.Duration(opts.Days) * 24 * time.Hour
	}
	batch := a.Config.Archive.BatchSize
	if opts.BatchSize > 0 {
		batch = opts.BatchSize
	}

	jobOpts := []archive.Option{
		archive.WithLogger(a.Logger),
		archive.WithClock(a.Engine),
		archive.WithAfter(after),
		archive.WithBatchSize(batch),
		archive.WithDryRun(opts.DryRun),
	}

	var sink *os.File
	if opts.Out != "" && !opts.DryRun {
		f, err := os.Create(opts.Out)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create archive file", err)
		}
		sink = f
		jobOpts = append(jobOpts, archive.WithSink(f))
	}

	res, err := archive.New(a.Store, a.Engine, jobOpts...).Run(ctx)
	if sink != nil {
		if closeErr := sink.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close %s: %w", opts.Out, closeErr)
		}
	}
	if err != nil {
		return err
	}

	view := ArchiveView{Result: res}
	if sink != nil {
		view.Path = opts.Out
	}
	return a.out.Success(view)
}
