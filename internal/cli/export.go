package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fastlog/internal/export"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	To  string
	Out string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export your fasts",
		Long: `Write all of your fasts as one document in JSON, YAML, CBOR or CSV.

Without --out the document goes to stdout as is. With --out it is written to
the file and a short report is printed in the selected --format.

Examples:
  fastlog export --to csv > fasts.csv
  fastlog export --to cbor --out fasts.cbor`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(opts.To)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --to", err)
			}
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *App) error {
				return runExport(ctx, a, cmd.OutOrStdout(), format, opts.Out)
			})
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "json", "document format (json|yaml|cbor|csv)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write to file instead of stdout")

	return cmd
}

func runExport(ctx context.Context, a *App, stdout io.Writer, format export.Format, path string) error {
	x := a.exporter()
	if path == "" {
		_, err := x.Export(ctx, stdout, a.User, format)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create export file", err)
	}
	count, err := x.Export(ctx, f, a.User, format)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", path, closeErr)
	}
	if err != nil {
		return err
	}

	a.Logger.Debug("export written", "path", path, "format", format, "count", count)
	return a.out.Success(ExportView{Path: path, Format: format, Count: count})
}
