package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/roach88/fastlog/internal/archive"
	"github.com/roach88/fastlog/internal/export"
	"github.com/roach88/fastlog/internal/fast"
)

// FastView is one fast as shown by start, end, edit, show and active.
type FastView struct {
	export.Record

	// Set by show only.
	Previous string `json:"previous,omitempty"`
	Next     string `json:"next,omitempty"`
}

func (v FastView) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", v.ID, v.Status)
	fmt.Fprintf(tw, "  start\t%s\n", v.StartLocal)
	if v.EndLocal != "" {
		fmt.Fprintf(tw, "  end\t%s\n", v.EndLocal)
	}
	fmt.Fprintf(tw, "  duration\t%s\n", v.Duration)
	if v.Outcome != "" {
		fmt.Fprintf(tw, "  outcome\t%s\n", outcomeLabel(v.Outcome))
	}
	if v.Note != "" {
		fmt.Fprintf(tw, "  note\t%s\n", v.Note)
	}
	if v.Previous != "" {
		fmt.Fprintf(tw, "  previous\t%s\n", v.Previous)
	}
	if v.Next != "" {
		fmt.Fprintf(tw, "  next\t%s\n", v.Next)
	}
	return tw.Flush()
}

// ListView is a page of fasts.
type ListView struct {
	Owner string          `json:"owner"`
	Count int             `json:"count"`
	Fasts []export.Record `json:"fasts"`
}

func (v ListView) RenderText(w io.Writer) error {
	if len(v.Fasts) == 0 {
		_, err := fmt.Fprintln(w, "No fasts.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTART\tEND\tDURATION\tOUTCOME")
	for _, r := range v.Fasts {
		end := r.EndLocal
		if end == "" {
			end = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Status, r.StartLocal, end, r.Duration, outcomeLabel(r.Outcome))
	}
	return tw.Flush()
}

// SummaryView counts the caller's fasts.
type SummaryView struct {
	Owner     string         `json:"owner"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Active    int            `json:"active"`
	Current   *export.Record `json:"current,omitempty"`
}

func (v SummaryView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%d fasts: %d completed, %d active\n", v.Total, v.Completed, v.Active)
	if v.Current != nil {
		fmt.Fprintf(w, "Current: %s since %s (%s)\n", v.Current.ID, v.Current.StartLocal, v.Current.Duration)
	}
	return nil
}

// DeleteView confirms a deletion.
type DeleteView struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (v DeleteView) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Deleted %s\n", v.ID)
	return err
}

// ZoneView shows the zone the caller's times are read in.
type ZoneView struct {
	Owner string `json:"owner"`
	Zone  string `json:"zone"`
}

func (v ZoneView) RenderText(w io.Writer) error {
	_, err := fmt.Fprintln(w, v.Zone)
	return err
}

// ExportView reports an export written to a file.
type ExportView struct {
	Path   string        `json:"path"`
	Format export.Format `json:"format"`
	Count  int           `json:"count"`
}

func (v ExportView) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Exported %d fasts to %s (%s)\n", v.Count, v.Path, v.Format)
	return err
}

// ArchiveView reports an archival run.
type ArchiveView struct {
	archive.Result
	Path string `json:"path,omitempty"`
}

func (v ArchiveView) RenderText(w io.Writer) error {
	cutoff := v.Cutoff.Format("2006-01-02")
	if v.DryRun {
		_, err := fmt.Fprintf(w, "Dry run: %d completed fasts ended before %s would be archived\n", v.Candidates, cutoff)
		return err
	}
	fmt.Fprintf(w, "Archived %d of %d completed fasts ended before %s", v.Deleted, v.Candidates, cutoff)
	if v.Path != "" {
		fmt.Fprintf(w, " to %s", v.Path)
	}
	fmt.Fprintln(w)
	if v.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d already gone\n", v.Skipped)
	}
	return nil
}

func outcomeLabel(s string) string {
	if s == "" {
		return "-"
	}
	if label := fast.Outcome(s).Display(); label != "" {
		return label
	}
	return s
}
