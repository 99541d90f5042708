package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fastlog/internal/engine"
	"github.com/roach88/fastlog/internal/export"
	"github.com/roach88/fastlog/internal/fast"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	Limit  int
	Offset int
	Status string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your fasts, most recent first",
		Long: `List your fasts, most recent start first.

Examples:
  fastlog list
  fastlog list --status completed --limit 10
  fastlog list --limit 10 --offset 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Limit < 0 || opts.Offset < 0 {
				return NewExitError(ExitCommandError, "--limit and --offset must not be negative")
			}
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *App) error {
				fasts, err := a.Engine.List(ctx, a.User, engine.ListOptions{
					Status: fast.Status(opts.Status),
					Limit:  opts.Limit,
					Offset: opts.Offset,
				})
				if err != nil {
					return err
				}
				records, err := a.describeAll(ctx, fasts)
				if err != nil {
					return err
				}
				return a.out.Success(ListView{Owner: a.User, Count: len(records), Fasts: records})
			})
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum fasts to show (0 for all)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "fasts to skip")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only active or completed fasts")

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one fast with its neighbors",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *App) error {
				f, err := a.Engine.Get(ctx, a.User, args[0])
				if err != nil {
					return err
				}
				prev, next, err := a.Engine.Neighbors(ctx, a.User, f.ID)
				if err != nil {
					return err
				}
				rec, err := a.exporter().Describe(ctx, a.User, f)
				if err != nil {
					return err
				}

				view := FastView{Record: rec}
				if prev != nil {
					view.Previous = prev.ID
				}
				if next != nil {
					view.Next = next.ID
				}
				return a.out.Success(view)
			})
		},
	}
	return cmd
}

// NewActiveCommand creates the active command.
func NewActiveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "active",
		Short:         "Show the fast in progress",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *App) error {
				f, err := a.Engine.Active(ctx, a.User)
				if err != nil {
					return err
				}
				return a.showFast(ctx, f)
			})
		},
	}
	return cmd
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "summary",
		Short:         "Count your fasts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *App) error {
				s, err := a.Engine.Summary(ctx, a.User)
				if err != nil {
					return err
				}
				view := SummaryView{Owner: a.User, Total: s.Total, Completed: s.Completed, Active: s.Active}
				if s.Current != nil {
					rec, err := a.exporter().Describe(ctx, a.User, *s.Current)
					if err != nil {
						return err
					}
					view.Current = &rec
				}
				return a.out.Success(view)
			})
		},
	}
	return cmd
}

// NewZoneCommand creates the zone command.
func NewZoneCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zone [name]",
		Short: "Show or set your time zone",
		Long: `Without an argument, print the zone your times are read and shown in.
With an IANA zone name, save it as your preference.

Examples:
  fastlog zone
  fastlog zone America/New_York`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *App) error {
				if len(args) == 1 {
					if err := a.Engine.SetZone(ctx, a.User, args[0]); err != nil {
						return err
					}
					a.Logger.Debug("zone saved", "owner", a.User, "zone", args[0])
				}
				zone, err := a.Engine.Zone(ctx, a.User)
				if err != nil {
					return err
				}
				return a.out.Success(ZoneView{Owner: a.User, Zone: zone})
			})
		},
	}
	return cmd
}

// describeAll renders fasts in the caller's zone.
func (a *App) describeAll(ctx context.Context, fasts []fast.Fast) ([]export.Record, error) {
	x := a.exporter()
	records := make([]export.Record, 0, len(fasts))
	for _, f := range fasts {
		rec, err := x.Describe(ctx, a.User, f)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", f.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
