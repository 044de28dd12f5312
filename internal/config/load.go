package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE []byte

// Format selects the decoder for LoadBytes.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf returns the format implied by a file name.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported analysis file extension %q (want .yaml, .yml or .cue)", filepath.Ext(path))
	}
}

// Load reads, decodes and validates an analysis file.
func Load(path string) (*Analysis, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis file: %w", err)
	}
	a, err := LoadBytes(data, format, path)
	if err != nil {
		return nil, err
	}
	if err := Validate(a); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w", err)
	}
	return a, nil
}

// LoadBytes decodes data without validating it. name is used in CUE error
// positions.
func LoadBytes(data []byte, format Format, name string) (*Analysis, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(data)
	case FormatCUE:
		return decodeCUE(data, name)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func decodeYAML(data []byte) (*Analysis, error) {
	var a Analysis
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &a, nil
}

func decodeCUE(data []byte, name string) (*Analysis, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("building CUE schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Analysis")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE schema: %w", err)
	}

	var a Analysis
	if err := unified.Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding CUE value: %w", err)
	}
	return &a, nil
}
