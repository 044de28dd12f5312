package record

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/roach88/cutflow/internal/pipeline"
)

// ErrMalformed is returned for lines that are not a flat JSON object of
// numbers, booleans and nulls.
var ErrMalformed = errors.New("malformed record")

const maxLine = 4 << 20

// JSONLReader reads one Event per line. Numbers are taken as is, booleans
// become 1 or 0, null becomes NaN. Blank lines are skipped.
type JSONLReader struct {
	sc   *bufio.Scanner
	line int
	seq  int64
}

// NewJSONLReader reads events from r.
func NewJSONLReader(r io.Reader) *JSONLReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &JSONLReader{sc: sc}
}

// Next implements pipeline.RecordReader.
func (r *JSONLReader) Next(ctx context.Context) (*Event, error) {
	for r.sc.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		fields, err := decodeLine(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		ev := &Event{Seq: r.seq, Fields: fields}
		r.seq++
		return ev, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	return nil, io.EOF
}

func decodeLine(raw []byte) (map[string]float64, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	fields := make(map[string]float64, len(obj))
	for k, v := range obj {
		switch x := v.(type) {
		case float64:
			fields[k] = x
		case bool:
			if x {
				fields[k] = 1
			} else {
				fields[k] = 0
			}
		case nil:
			fields[k] = math.NaN()
		default:
			return nil, fmt.Errorf("%w: field %q has type %T", ErrMalformed, k, v)
		}
	}
	return fields, nil
}

// FileReader is a JSONLReader over a file, decompressed by suffix.
type FileReader struct {
	*JSONLReader
	closers []func() error
}

// Open opens path for reading. Files ending in .zst are zstd-decoded and
// files ending in .gz are gzip-decoded; anything else is read as plain text.
func Open(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	fr := &FileReader{closers: []func() error{f.Close}}

	var r io.Reader = f
	switch {
	case strings.HasSuffix(path, ".zst"):
		d, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open records %s: %w", path, err)
		}
		fr.closers = append(fr.closers, func() error { d.Close(); return nil })
		r = d
	case strings.HasSuffix(path, ".gz"):
		d, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open records %s: %w", path, err)
		}
		fr.closers = append(fr.closers, d.Close)
		r = d
	}
	fr.JSONLReader = NewJSONLReader(r)
	return fr, nil
}

// Close releases the decoder and the file.
func (fr *FileReader) Close() error {
	var errs []error
	for i := len(fr.closers) - 1; i >= 0; i-- {
		if err := fr.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	fr.closers = nil
	return errors.Join(errs...)
}

// ReadAll drains r into a slice.
func ReadAll(ctx context.Context, r pipeline.RecordReader[*Event]) ([]*Event, error) {
	var out []*Event
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		ev, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}
