package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/roach88/cutflow/internal/binning"
)

// Dir is a view of the binning namespace rooted at a path prefix. It
// implements binning.Directory.
type Dir struct {
	s      *Store
	prefix string
}

var _ binning.Directory = Dir{}

// Dir returns a view rooted at prefix. The empty prefix is the root.
func (s *Store) Dir(prefix string) Dir {
	return Dir{s: s, prefix: strings.Trim(prefix, "/")}
}

// Sub returns a view rooted at name below d.
func (d Dir) Sub(name string) Dir {
	return Dir{s: d.s, prefix: strings.Trim(path.Join(d.prefix, name), "/")}
}

// Prefix returns the view's root path.
func (d Dir) Prefix() string { return d.prefix }

// Path resolves name against the view. Names may contain slashes but no
// empty, "." or ".." segments.
func (d Dir) Path(name string) (string, error) {
	name = strings.Trim(name, "/")
	if name == "" {
		return "", fmt.Errorf("empty binning name")
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("binning name %q: invalid path segment %q", name, seg)
		}
	}
	if d.prefix == "" {
		return name, nil
	}
	return d.prefix + "/" + name, nil
}

// WriteBinning stores rec under name, replacing any previous record.
// The record is validated before it is written.
func (d Dir) WriteBinning(ctx context.Context, name string, rec binning.Record) error {
	p, err := d.Path(name)
	if err != nil {
		return fmt.Errorf("write binning: %w", err)
	}
	// A scratch registry validates the record without touching the caller's IDs.
	b, err := binning.NewRegistry().FromRecord(rec)
	if err != nil {
		return fmt.Errorf("write binning %s: %w", p, err)
	}
	data, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("write binning %s: %w", p, err)
	}

	_, err = d.s.db.ExecContext(ctx, `
		INSERT INTO binnings (path, fingerprint, record)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET fingerprint = excluded.fingerprint, record = excluded.record
	`, p, b.Fingerprint(), data)
	if err != nil {
		return fmt.Errorf("write binning %s: %w", p, err)
	}
	return nil
}

// ReadBinning returns the record stored under name.
func (d Dir) ReadBinning(ctx context.Context, name string) (binning.Record, error) {
	p, err := d.Path(name)
	if err != nil {
		return binning.Record{}, fmt.Errorf("read binning: %w", err)
	}

	var data string
	err = d.s.db.QueryRowContext(ctx, `SELECT record FROM binnings WHERE path = ?`, p).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return binning.Record{}, fmt.Errorf("read binning %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return binning.Record{}, fmt.Errorf("read binning %s: %w", p, err)
	}
	return unmarshalRecord(data)
}

// BinningEntry is one stored binning.
type BinningEntry struct {
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
}

// List returns every binning at or below the view, ordered by path.
func (d Dir) List(ctx context.Context) ([]BinningEntry, error) {
	query := `SELECT path, fingerprint FROM binnings ORDER BY path COLLATE BINARY ASC`
	var args []any
	if d.prefix != "" {
		query = `
			SELECT path, fingerprint FROM binnings
			WHERE path = ? OR substr(path, 1, ?) = ?
			ORDER BY path COLLATE BINARY ASC`
		args = []any{d.prefix, len(d.prefix) + 1, d.prefix + "/"}
	}

	rows, err := d.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query binnings: %w", err)
	}
	defer rows.Close()

	entries := []BinningEntry{}
	for rows.Next() {
		var e BinningEntry
		if err := rows.Scan(&e.Path, &e.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan binning: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate binnings: %w", err)
	}
	return entries, nil
}
