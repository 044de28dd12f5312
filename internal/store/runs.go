package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cutflow/internal/binning"
	"github.com/roach88/cutflow/internal/hist"
)

// Run is one persisted analysis pass.
type Run struct {
	ID       string `json:"id"`
	Seq      int64  `json:"seq"`
	Analysis string `json:"analysis"`
	Records  int64  `json:"records"`
}

// binningName is where a histogram's binning lives inside its run directory.
func binningName(histogram string) string {
	return histogram + "/binning"
}

// SaveRun records a pass over records events of analysis together with its
// histograms. Each histogram's binning is written to
// "<run id>/<histogram>/binning".
func (s *Store) SaveRun(ctx context.Context, analysis string, records int64, hs []*hist.Histogram) (Run, error) {
	run := Run{ID: s.ids.Generate(), Analysis: analysis, Records: records}

	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq)
	if err != nil {
		return Run{}, fmt.Errorf("save run: next seq: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, analysis, records)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.Seq, run.Analysis, run.Records)
	if err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}

	for _, h := range hs {
		if err := s.SaveHistogram(ctx, run.ID, h); err != nil {
			return run, err
		}
	}
	return run, nil
}

// SaveHistogram stores h and its binning under runID.
func (s *Store) SaveHistogram(ctx context.Context, runID string, h *hist.Histogram) error {
	dir := s.Dir(runID)
	name := binningName(h.Name())
	if err := h.Binning().SaveTo(ctx, dir, name); err != nil {
		return fmt.Errorf("save histogram %q: %w", h.Name(), err)
	}
	p, err := dir.Path(name)
	if err != nil {
		return fmt.Errorf("save histogram %q: %w", h.Name(), err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO histograms (run_id, name, binning_path, contents, entries)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, name) DO UPDATE SET
			binning_path = excluded.binning_path,
			contents = excluded.contents,
			entries = excluded.entries
	`, runID, h.Name(), p, packContents(h.Contents()), h.Entries())
	if err != nil {
		return fmt.Errorf("save histogram %q: %w", h.Name(), err)
	}
	return nil
}

// LoadHistogram reads a histogram back. Its binning is interned in reg, so
// it shares the ID of an equal binning already known to reg.
func (s *Store) LoadHistogram(ctx context.Context, reg *binning.Registry, runID, name string) (*hist.Histogram, error) {
	var (
		data    []byte
		entries int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT contents, entries FROM histograms WHERE run_id = ? AND name = ?
	`, runID, name).Scan(&data, &entries)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load histogram %s/%s: %w", runID, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load histogram %s/%s: %w", runID, name, err)
	}

	b, err := reg.LoadFrom(ctx, s.Dir(runID), binningName(name))
	if err != nil {
		return nil, fmt.Errorf("load histogram %s/%s: %w", runID, name, err)
	}
	contents, err := unpackContents(data)
	if err != nil {
		return nil, fmt.Errorf("load histogram %s/%s: %w", runID, name, err)
	}
	return hist.FromContents(name, b, contents, entries)
}

// HistogramNames lists the histograms of a run by name.
func (s *Store) HistogramNames(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM histograms WHERE run_id = ?
		ORDER BY name COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query histograms: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan histogram: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate histograms: %w", err)
	}
	return names, nil
}

// Runs lists all runs in seq order.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, analysis, records FROM runs ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Seq, &r.Analysis, &r.Records); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run. An empty id selects the latest run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	query := `SELECT id, seq, analysis, records FROM runs WHERE id = ?`
	args := []any{id}
	if id == "" {
		query = `SELECT id, seq, analysis, records FROM runs ORDER BY seq DESC LIMIT 1`
		args = nil
	}

	var r Run
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&r.ID, &r.Seq, &r.Analysis, &r.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("run %q: %w", id, err)
	}
	return r, nil
}
