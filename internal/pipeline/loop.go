package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// RecordReader produces records one at a time. Next returns io.EOF after the
// last record.
type RecordReader[R any] interface {
	Next(ctx context.Context) (R, error)
}

// Stats summarizes one pass.
type Stats struct {
	Records int64
}

// LoopOption configures Loop.
type LoopOption func(*loopConfig)

type loopConfig struct {
	logger *slog.Logger
	limit  int64
}

// WithLogger sets the logger for start/stop messages. Default: slog.Default().
func WithLogger(l *slog.Logger) LoopOption {
	return func(c *loopConfig) {
		c.logger = l
	}
}

// WithLimit stops the pass after n records. n <= 0 means no limit.
func WithLimit(n int64) LoopOption {
	return func(c *loopConfig) {
		c.limit = n
	}
}

// Loop reads records from r and delivers each one to src until r is
// exhausted. It returns after the first reader or sink error.
//
// The context is checked between records. A cancelled pass is abandoned:
// whatever sinks accumulated so far is left as is and ctx.Err() is returned.
func Loop[R any](ctx context.Context, r RecordReader[R], src *Source[R], opts ...LoopOption) (Stats, error) {
	cfg := loopConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	var stats Stats
	logger.Info("pass starting", "sinks", src.Len())

	for {
		if err := ctx.Err(); err != nil {
			logger.Info("pass abandoned: context cancelled", "records", stats.Records)
			return stats, err
		}
		if cfg.limit > 0 && stats.Records >= cfg.limit {
			logger.Info("pass stopping: record limit reached", "records", stats.Records)
			return stats, nil
		}

		rec, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			logger.Info("pass finished", "records", stats.Records)
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("read record %d: %w", stats.Records, err)
		}

		if err := src.HandleRecord(rec); err != nil {
			logger.Error("record delivery failed", "record", stats.Records, "error", err)
			return stats, fmt.Errorf("record %d: %w", stats.Records, err)
		}
		stats.Records++
	}
}

// SliceReader serves records from memory.
type SliceReader[R any] struct {
	recs []R
	pos  int
}

// NewSliceReader returns a reader over recs.
func NewSliceReader[R any](recs ...R) *SliceReader[R] {
	return &SliceReader[R]{recs: recs}
}

// Next implements RecordReader.
func (s *SliceReader[R]) Next(context.Context) (R, error) {
	if s.pos >= len(s.recs) {
		var zero R
		return zero, io.EOF
	}
	rec := s.recs[s.pos]
	s.pos++
	return rec, nil
}
