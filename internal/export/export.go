package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/engine"
	"github.com/roach88/fastlog/internal/fast"
)

// DefaultPageSize is how many fasts are fetched per List call.
const DefaultPageSize = 500

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
	FormatCSV  Format = "csv"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatCBOR, FormatCSV}

// ParseFormat matches s case-insensitively against Formats.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q (want json, yaml, cbor or csv)", s)
}

// Source is the read surface the exporter needs. *engine.Engine implements it.
type Source interface {
	List(ctx context.Context, owner string, opts engine.ListOptions) ([]fast.Fast, error)
	LocalOf(ctx context.Context, owner string, t time.Time, zone string) (chrono.Local, error)
	Zone(ctx context.Context, owner string) (string, error)
	Now() time.Time
}

// Record is the exported form of one fast.
type Record struct {
	ID              string      `json:"id" yaml:"id"`
	Status          fast.Status `json:"status" yaml:"status"`
	Start           time.Time   `json:"start" yaml:"start"`
	End             *time.Time  `json:"end,omitempty" yaml:"end,omitempty"`
	StartLocal      string      `json:"start_local" yaml:"start_local"`
	EndLocal        string      `json:"end_local,omitempty" yaml:"end_local,omitempty"`
	DurationSeconds int64       `json:"duration_seconds" yaml:"duration_seconds"`
	Duration        string      `json:"duration" yaml:"duration"`
	Outcome         string      `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Note            string      `json:"note,omitempty" yaml:"note,omitempty"`
	CreatedAt       time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" yaml:"updated_at"`
}

// Document is a complete export for one owner.
type Document struct {
	Owner      string    `json:"owner" yaml:"owner"`
	Zone       string    `json:"zone" yaml:"zone"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	Count      int       `json:"count" yaml:"count"`
	Fasts      []Record  `json:"fasts" yaml:"fasts"`
}

// Exporter builds and writes export documents.
type Exporter struct {
	src      Source
	pageSize int
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithPageSize sets how many fasts each List call fetches.
func WithPageSize(n int) Option {
	return func(x *Exporter) {
		if n > 0 {
			x.pageSize = n
		}
	}
}

// New creates an Exporter reading from src.
func New(src Source, opts ...Option) *Exporter {
	x := &Exporter{src: src, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Collect walks all of owner's fasts, most recent first, and builds the
// document. Durations of active fasts are measured at the source's now.
func (x *Exporter) Collect(ctx context.Context, owner string) (Document, error) {
	zone, err := x.src.Zone(ctx, owner)
	if err != nil {
		return Document{}, fmt.Errorf("export: %w", err)
	}
	now := x.src.Now()

	doc := Document{
		Owner:      owner,
		Zone:       zone,
		ExportedAt: now.UTC(),
		Fasts:      make([]Record, 0),
	}
	for offset := 0; ; offset += x.pageSize {
		page, err := x.src.List(ctx, owner, engine.ListOptions{Limit: x.pageSize, Offset: offset})
		if err != nil {
			return Document{}, fmt.Errorf("export: %w", err)
		}
		for _, f := range page {
			rec, err := x.record(ctx, owner, zone, f, now)
			if err != nil {
				return Document{}, fmt.Errorf("export %s: %w", f.ID, err)
			}
			doc.Fasts = append(doc.Fasts, rec)
		}
		if len(page) < x.pageSize {
			break
		}
	}
	doc.Count = len(doc.Fasts)
	return doc, nil
}

// Describe renders a single fast the way Collect would, in owner's zone.
func (x *Exporter) Describe(ctx context.Context, owner string, f fast.Fast) (Record, error) {
	zone, err := x.src.Zone(ctx, owner)
	if err != nil {
		return Record{}, fmt.Errorf("describe: %w", err)
	}
	return x.record(ctx, owner, zone, f, x.src.Now())
}

func (x *Exporter) record(ctx context.Context, owner, zone string, f fast.Fast, now time.Time) (Record, error) {
	startLocal, err := x.src.LocalOf(ctx, owner, f.Start, zone)
	if err != nil {
		return Record{}, err
	}

	secs := chrono.Duration(f.Start, f.End, now)
	rec := Record{
		ID:              f.ID,
		Status:          f.Status(),
		Start:           f.Start,
		End:             f.End,
		StartLocal:      startLocal.String(),
		DurationSeconds: secs,
		Duration:        chrono.FormatHours(secs),
		Note:            f.Note,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
	if f.End != nil {
		endLocal, err := x.src.LocalOf(ctx, owner, *f.End, zone)
		if err != nil {
			return Record{}, err
		}
		rec.EndLocal = endLocal.String()
	}
	if f.Outcome != nil {
		rec.Outcome = string(*f.Outcome)
	}
	return rec, nil
}

// Export collects owner's fasts and writes them to w in format. It returns
// the number of fasts written.
func (x *Exporter) Export(ctx context.Context, w io.Writer, owner string, format Format) (int, error) {
	enc, ok := encoders[format]
	if !ok {
		return 0, fmt.Errorf("export: unknown format %q", format)
	}

	doc, err := x.Collect(ctx, owner)
	if err != nil {
		return 0, err
	}
	if err := enc(w, doc); err != nil {
		return 0, fmt.Errorf("export %s: %w", format, err)
	}
	return doc.Count, nil
}
