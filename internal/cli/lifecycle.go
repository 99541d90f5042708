package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fastlog/internal/fast"
)

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a fast",
		Long: `Start a fast now, or at the wall-clock time given with --at.

Only one fast can be active at a time.

Examples:
  fastlog start
  fastlog start --at 2025-01-01T20:00
  fastlog start --at "2025-01-01 20:00" --zone Europe/Berlin`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *App) error {
				start, zone, err := a.local("at", at)
				if err != nil {
					return err
				}
				f, err := a.Engine.Start(ctx, a.User, start, zone)
				if err != nil {
					return err
				}
				a.Logger.Debug("fast started", "id", f.ID, "owner", f.Owner)
				return a.showFast(ctx, f)
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "start time (YYYY-MM-DDTHH:MM[:SS]); default now")

	return cmd
}

// EndOptions holds flags for the end command.
type EndOptions struct {
	At      string
	Outcome string
	Note    string
}

// NewEndCommand creates the end command.
func NewEndCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EndOptions{}

	cmd := &cobra.Command{
		Use:   "end [id]",
		Short: "End a fast with an outcome",
		Long: `End a fast now, or at the time given with --at, recording how it went.

Without an id the active fast is ended. Outcomes: energized, satisfied,
challenging, difficult.

Examples:
  fastlog end --outcome satisfied
  fastlog end --outcome challenging --note "rough afternoon"
  fastlog end 0193c2a4-... --at 2025-01-02T12:00 --outcome energized`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *App) error {
				var id string
				if len(args) == 1 {
					id = args[0]
				} else {
					active, err := a.Engine.Active(ctx, a.User)
					if err != nil {
						return err
					}
					id = active.ID
				}

				end, zone, err := a.local("at", opts.At)
				if err != nil {
					return err
				}
				f, err := a.Engine.End(ctx, a.User, id, end, zone, parseOutcome(opts.Outcome), opts.Note)
				if err != nil {
					return err
				}
				a.Logger.Debug("fast ended", "id", f.ID, "outcome", opts.Outcome)
				return a.showFast(ctx, f)
			})
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "end time (YYYY-MM-DDTHH:MM[:SS]); default now")
	cmd.Flags().StringVarP(&opts.Outcome, "outcome", "o", "", "how it went (required)")
	cmd.Flags().StringVarP(&opts.Note, "note", "n", "", "optional note, up to 128 characters")
	_ = cmd.MarkFlagRequired("outcome")

	return cmd
}

// EditOptions holds flags for the edit command.
type EditOptions struct {
	Start        string
	End          string
	Outcome      string
	Note         string
	ClearEnd     bool
	ClearOutcome bool
	ClearNote    bool
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Amend a fast",
		Long: `Change the start, end, outcome or note of a fast.

Setting --end and --outcome together completes an active fast. A completed
fast cannot be made active again.

Examples:
  fastlog edit 0193c2a4-... --start 2025-01-01T19:30
  fastlog edit 0193c2a4-... --note "felt great"
  fastlog edit 0193c2a4-... --clear-note`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *App) error {
				patch, err := a.buildPatch(ctx, cmd, opts)
				if err != nil {
					return err
				}
				f, err := a.Engine.Edit(ctx, a.User, args[0], patch)
				if err != nil {
					return err
				}
				a.Logger.Debug("fast edited", "id", f.ID, "version", f.Version)
				return a.showFast(ctx, f)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "new start time")
	cmd.Flags().StringVar(&opts.End, "end", "", "new end time")
	cmd.Flags().StringVarP(&opts.Outcome, "outcome", "o", "", "new outcome")
	cmd.Flags().StringVarP(&opts.Note, "note", "n", "", "new note")
	cmd.Flags().BoolVar(&opts.ClearEnd, "clear-end", false, "remove the end time")
	cmd.Flags().BoolVar(&opts.ClearOutcome, "clear-outcome", false, "remove the outcome")
	cmd.Flags().BoolVar(&opts.ClearNote, "clear-note", false, "remove the note")
	cmd.MarkFlagsMutuallyExclusive("end", "clear-end")
	cmd.MarkFlagsMutuallyExclusive("outcome", "clear-outcome")
	cmd.MarkFlagsMutuallyExclusive("note", "clear-note")

	return cmd
}

// buildPatch turns the edit flags into a patch. Flags that were not given
// leave their field alone; an explicitly empty --note sets an empty note.
func (a *App) buildPatch(ctx context.Context, cmd *cobra.Command, opts *EditOptions) (fast.Patch, error) {
	var p fast.Patch
	flags := cmd.Flags()

	if flags.Changed("start") {
		t, err := a.instant(ctx, "start", opts.Start)
		if err != nil {
			return p, err
		}
		p.Start = fast.Set(t)
	}
	if flags.Changed("end") {
		t, err := a.instant(ctx, "end", opts.End)
		if err != nil {
			return p, err
		}
		p.End = fast.Set(t)
	}
	if flags.Changed("outcome") {
		p.Outcome = fast.Set(parseOutcome(opts.Outcome))
	}
	if flags.Changed("note") {
		p.Note = fast.Set(opts.Note)
	}
	if opts.ClearEnd {
		p.End = fast.Clear[time.Time]()
	}
	if opts.ClearOutcome {
		p.Outcome = fast.Clear[fast.Outcome]()
	}
	if opts.ClearNote {
		p.Note = fast.Clear[string]()
	}
	return p, nil
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a fast permanently",
		Example:       "  fastlog delete 0193c2a4-...",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, true, func(ctx context.Context, a *App) error {
				if err := a.Engine.Delete(ctx, a.User, args[0]); err != nil {
					return err
				}
				a.Logger.Debug("fast deleted", "id", args[0])
				return a.out.Success(DeleteView{ID: args[0], Deleted: true})
			})
		},
	}
	return cmd
}

// showFast writes f in the caller's zone.
func (a *App) showFast(ctx context.Context, f fast.Fast) error {
	rec, err := a.exporter().Describe(ctx, a.User, f)
	if err != nil {
		return err
	}
	return a.out.Success(FastView{Record: rec})
}

// parseOutcome accepts values and display names in any case. Anything else
// is passed through so the engine reports it as a validation error.
func parseOutcome(s string) fast.Outcome {
	if o, err := fast.ParseOutcome(s); err == nil {
		return o
	}
	return fast.Outcome(s)
}
