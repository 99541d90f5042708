// Package archive removes old completed fasts, optionally writing them to a
// zstd-compressed JSON Lines file first.
//
// Candidates are selected across all owners by end instant, oldest first,
// in batches keyed on (end, id). Each fast is removed through the engine's
// ordinary Delete on behalf of its owner, so the job needs no special store
// access for writes. A fast that disappears between selection and delete is
// counted as skipped, not as a failure.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/fastlog/internal/chrono"
	"github.com/roach88/fastlog/internal/engine"
	"github.com/roach88/fastlog/internal/fast"
	"github.com/roach88/fastlog/internal/store"
)

// Defaults for New.
const (
	DefaultAfter     = 730 * 24 * time.Hour
	DefaultBatchSize = 1000
)

// Candidates selects completed fasts older than a cutoff. *store.Store
// implements it.
type Candidates interface {
	ListCompletedBefore(ctx context.Context, cutoff time.Time, after store.Cursor, limit int) ([]fast.Fast, error)
	CountCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Deleter removes a fast on behalf of its owner. *engine.Engine implements it.
type Deleter interface {
	Delete(ctx context.Context, owner, id string) error
}

// Result summarizes one run.
type Result struct {
	Cutoff     time.Time `json:"cutoff"`
	Candidates int       `json:"candidates"`
	Archived   int       `json:"archived"`
	Deleted    int       `json:"deleted"`
	Skipped    int       `json:"skipped"`
	DryRun     bool      `json:"dry_run"`
}

// Job is one configured archival run.
type Job struct {
	candidates Candidates
	deleter    Deleter
	clock      chrono.Clock
	logger     *slog.Logger
	after      time.Duration
	batchSize  int
	dryRun     bool
	sink       io.Writer
}

// Option configures a Job.
type Option func(*Job)

// WithClock sets the clock the cutoff is measured from.
func WithClock(c chrono.Clock) Option {
	return func(j *Job) {
		if c != nil {
			j.clock = c
		}
	}
}

// WithLogger sets the logger. Nil discards.
func WithLogger(l *slog.Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithAfter sets the age past which completed fasts are archived.
func WithAfter(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.after = d
		}
	}
}

// WithBatchSize sets how many fasts are selected per batch.
func WithBatchSize(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.batchSize = n
		}
	}
}

// WithDryRun makes Run count candidates without touching them.
func WithDryRun(dry bool) Option {
	return func(j *Job) {
		j.dryRun = dry
	}
}

// WithSink writes every archived fast to w as zstd-compressed JSON Lines
// before it is deleted.
func WithSink(w io.Writer) Option {
	return func(j *Job) {
		j.sink = w
	}
}

// New creates a Job.
func New(c Candidates, d Deleter, opts ...Option) *Job {
	j := &Job{
		candidates: c,
		deleter:    d,
		clock:      chrono.System{},
		logger:     slog.New(slog.DiscardHandler),
		after:      DefaultAfter,
		batchSize:  DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run archives every completed fast whose end is before now minus the
// configured age.
func (j *Job) Run(ctx context.Context) (Result, error) {
	res := Result{Cutoff: j.clock.Now().Add(-j.after).UTC(), DryRun: j.dryRun}

	count, err := j.candidates.CountCompletedBefore(ctx, res.Cutoff)
	if err != nil {
		return res, fmt.Errorf("archive: %w", err)
	}
	res.Candidates = count

	j.logger.Info("archive starting",
		"cutoff", res.Cutoff.Format(time.RFC3339),
		"candidates", count,
		"batch_size", j.batchSize,
		"dry_run", j.dryRun,
	)
	if j.dryRun || count == 0 {
		return res, nil
	}

	var w *lineWriter
	if j.sink != nil {
		w, err = newLineWriter(j.sink)
		if err != nil {
			return res, fmt.Errorf("archive: %w", err)
		}
	}

	runErr := j.drain(ctx, w, &res)
	if w != nil {
		if err := w.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("archive: close sink: %w", err)
		}
	}

	j.logger.Info("archive finished",
		"archived", res.Archived,
		"deleted", res.Deleted,
		"skipped", res.Skipped,
	)
	return res, runErr
}

func (j *Job) drain(ctx context.Context, w *lineWriter, res *Result) error {
	var cursor store.Cursor
	for batch := 1; ; batch++ {
		page, err := j.candidates.ListCompletedBefore(ctx, res.Cutoff, cursor, j.batchSize)
		if err != nil {
			return fmt.Errorf("archive: batch %d: %w", batch, err)
		}
		if len(page) == 0 {
			return nil
		}

		for _, f := range page {
			if w != nil {
				if err := w.Write(f); err != nil {
					return fmt.Errorf("archive %s: %w", f.ID, err)
				}
				res.Archived++
			}

			err := j.deleter.Delete(ctx, f.Owner, f.ID)
			switch {
			case err == nil:
				res.Deleted++
			case engine.IsNotFound(err):
				res.Skipped++
				j.logger.Debug("fast already gone", "id", f.ID, "owner", f.Owner)
			default:
				return fmt.Errorf("archive %s: %w", f.ID, err)
			}
		}

		last := page[len(page)-1]
		cursor = store.Cursor{EndAt: *last.End, ID: last.ID}
		j.logger.Debug("archive batch done", "batch", batch, "size", len(page), "deleted", res.Deleted)

		if len(page) < j.batchSize {
			return nil
		}
	}
}

// lineWriter writes one JSON object per line into a zstd stream.
type lineWriter struct {
	zw  *zstd.Encoder
	enc *json.Encoder
}

func newLineWriter(w io.Writer) (*lineWriter, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	return &lineWriter{zw: zw, enc: json.NewEncoder(zw)}, nil
}

func (l *lineWriter) Write(f fast.Fast) error {
	return l.enc.Encode(f)
}

func (l *lineWriter) Close() error {
	return l.zw.Close()
}

// Read decodes an archive written by Run.
func Read(r io.Reader) ([]fast.Fast, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	var out []fast.Fast
	dec := json.NewDecoder(zr)
	for {
		var f fast.Fast
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		out = append(out, f)
	}
}
