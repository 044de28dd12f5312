package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"runtime"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/cutflow/internal/binning"
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	zstdEncoder = enc
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		panic(err)
	}
	zstdDecoder = dec
}

// marshalRecord serializes a binning record to JSON.
// HTML escaping is disabled so labels are stored as written.
func marshalRecord(rec binning.Record) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("marshal binning record: %w", err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unmarshalRecord deserializes a binning record from JSON.
func unmarshalRecord(data string) (binning.Record, error) {
	var rec binning.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return binning.Record{}, fmt.Errorf("unmarshal binning record: %w", err)
	}
	return rec, nil
}

// packContents encodes histogram slots as little-endian float64 bits in a
// zstd frame. NaN and infinities survive unchanged.
func packContents(contents []float64) []byte {
	raw := make([]byte, 8*len(contents))
	for i, v := range contents {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	return zstdEncoder.EncodeAll(raw, nil)
}

// unpackContents reverses packContents.
func unpackContents(data []byte) ([]float64, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("unpack contents: %w", err)
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("unpack contents: %d bytes is not a whole number of slots", len(raw))
	}
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return out, nil
}
