package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tomdoesdev/cthash/internal/hash"
	"github.com/tomdoesdev/cthash/internal/strtab"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	FormatHeader OutputFormat = "header"
	FormatJSON   OutputFormat = "json"
	FormatYAML   OutputFormat = "yaml"
)

// ParseFormat validates a format name
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatHeader, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// Entry is one generated constant
type Entry struct {
	Name string `json:"name" yaml:"name"`
	Hash string `json:"hash" yaml:"hash"`
}

// Manifest is the machine-readable form of the generated constants
type Manifest struct {
	Macro   string  `json:"macro" yaml:"macro"`
	Bits    int     `json:"bits" yaml:"bits"`
	Count   int     `json:"count" yaml:"count"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Transform renders the key table as generated constants
type Transform struct {
	format OutputFormat
	macro  string
	bits   int
	args   []string
}

// New creates a transform that emits a C header
func New(macro string, bits int) *Transform {
	return NewWithFormat(FormatHeader, macro, bits)
}

// NewWithFormat creates a new transform instance with specified format
func NewWithFormat(format OutputFormat, macro string, bits int) *Transform {
	return &Transform{format: format, macro: macro, bits: bits}
}

// SetFormat sets the output format
func (t *Transform) SetFormat(format OutputFormat) {
	t.format = format
}

// SetArguments records the command line echoed in the header comment
func (t *Transform) SetArguments(args []string) {
	t.args = args
}

// Transform renders every key, newest first, in the configured format
func (t *Transform) Transform(keys *strtab.Table[struct{}]) (string, error) {
	if !hash.ValidBits(t.bits) {
		return "", fmt.Errorf("unsupported hash width %d", t.bits)
	}

	switch t.format {
	case FormatHeader:
		return t.toHeader(keys), nil
	case FormatJSON:
		return t.toJSON(keys)
	case FormatYAML:
		return t.toYAML(keys)
	default:
		return "", fmt.Errorf("unsupported output format: %s", t.format)
	}
}

// Manifest builds the entry list in table order
func (t *Transform) Manifest(keys *strtab.Table[struct{}]) Manifest {
	m := Manifest{Macro: t.macro, Bits: t.bits, Count: keys.Len(), Entries: make([]Entry, 0, keys.Len())}
	for e := range keys.All() {
		m.Entries = append(m.Entries, Entry{Name: e.Key, Hash: hash.Format(hash.Sum(e.Key, t.bits), t.bits)})
	}
	return m
}

// toHeader emits an enum with one constant per key and a zero sentinel
func (t *Transform) toHeader(keys *strtab.Table[struct{}]) string {
	prefix := "_" + t.macro + "_"
	suffix := "UINT32_C"
	if t.bits == 64 {
		suffix = "UINT64_C"
	}

	var out strings.Builder
	out.WriteString("#pragma once\n")
	out.WriteString("// This header file was automatically generated.\n")
	fmt.Fprintf(&out, "// Arguments: %s\n", strings.Join(t.args, " "))
	out.WriteString("#include <stdint.h>\n")
	fmt.Fprintf(&out, "#define %s(name) (%s ## name)\n", t.macro, prefix)
	fmt.Fprintf(&out, "enum // %d entries\n{\n", keys.Len())
	for _, e := range t.Manifest(keys).Entries {
		fmt.Fprintf(&out, "\t%s%s = %s(%s),\n", prefix, e.Name, suffix, e.Hash)
	}
	fmt.Fprintf(&out, "\t%s = %s(0x0)\n", prefix, suffix)
	out.WriteString("};\n")
	return out.String()
}

// toJSON converts the manifest to JSON format
func (t *Transform) toJSON(keys *strtab.Table[struct{}]) (string, error) {
	jsonBytes, err := json.MarshalIndent(t.Manifest(keys), "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshaling to JSON: %w", err)
	}
	return string(jsonBytes) + "\n", nil
}

// toYAML converts the manifest to YAML format
func (t *Transform) toYAML(keys *strtab.Table[struct{}]) (string, error) {
	yamlBytes, err := yaml.Marshal(t.Manifest(keys))
	if err != nil {
		return "", fmt.Errorf("error marshaling to YAML: %w", err)
	}
	return string(yamlBytes), nil
}
