// Package config resolves cthash options. Later sources override earlier
// ones: built-in defaults, the environment (optionally seeded from a .env
// file), a YAML file, and finally command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tomdoesdev/cthash/internal/hash"
	"github.com/tomdoesdev/cthash/internal/strtab"
	"github.com/tomdoesdev/cthash/internal/transform"
)

// Environment variables read by ApplyEnv
const (
	EnvPath       = "CTHASH_ENV_PATH"
	EnvConfig     = "CTHASH_CONFIG"
	EnvPaths      = "CTHASH_PATHS"
	EnvMarkers    = "CTHASH_MARKERS"
	EnvBits       = "CTHASH_BITS"
	EnvMacro      = "CTHASH_MACRO"
	EnvTableExp   = "CTHASH_TABLE_EXP"
	EnvFormat     = "CTHASH_FORMAT"
	EnvExtensions = "CTHASH_EXTENSIONS"
	EnvContinue   = "CTHASH_CONTINUE"
	EnvOutput     = "CTHASH_OUTPUT"
	EnvVerbose    = "CTHASH_VERBOSE"
)

const DefaultDotEnv = ".env"

var ErrNoSearchPaths = errors.New("no search paths given")

type Options struct {
	SearchPaths     []string `yaml:"search_paths"`
	Markers         []string `yaml:"markers"`
	Bits            int      `yaml:"bits"`
	Macro           string   `yaml:"macro"`
	TableExponent   int      `yaml:"table_exponent"`
	Format          string   `yaml:"format"`
	Extensions      []string `yaml:"extensions"`
	ContinueOnError bool     `yaml:"continue_on_error"`
	Output          string   `yaml:"output"` // generate: empty means stdout
	Check           bool     `yaml:"-"`      // rewrite: report only
	Verbose         bool     `yaml:"verbose"`
}

// Default returns the built-in options
func Default() *Options {
	return &Options{
		Bits:          32,
		Macro:         "CT_HASH",
		TableExponent: 16,
		Format:        string(transform.FormatHeader),
		Extensions:    []string{".c", ".h", ".cpp", ".cc", ".hpp", ".hxx"},
	}
}

// LoadDotEnv loads variables from a .env file into the process
// environment. Variables already set are not overridden. The path comes
// from CTHASH_ENV_PATH when set, otherwise defaultPath. A missing file is
// only an error when required is true.
func LoadDotEnv(defaultPath string, required bool) error {
	envPath := os.Getenv(EnvPath)
	if envPath == "" {
		envPath = defaultPath
	}

	if err := godotenv.Load(envPath); err != nil {
		if required {
			return fmt.Errorf("load %s: %w", envPath, err)
		}
		slog.Debug("Skipping .env ...", "path", envPath, "error", err)
	}
	return nil
}

// ApplyEnv overrides options from CTHASH_* variables found by lookup
func (o *Options) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPaths); ok {
		o.SearchPaths = splitList(v)
	}
	if v, ok := lookup(EnvMarkers); ok {
		o.Markers = splitList(v)
	}
	if v, ok := lookup(EnvExtensions); ok {
		o.Extensions = splitList(v)
	}
	if v, ok := lookup(EnvMacro); ok && v != "" {
		o.Macro = v
	}
	if v, ok := lookup(EnvFormat); ok && v != "" {
		o.Format = v
	}
	if v, ok := lookup(EnvOutput); ok {
		o.Output = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvBits, &o.Bits},
		{EnvTableExp, &o.TableExponent},
	}
	for _, e := range ints {
		v, ok := lookup(e.name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", e.name, err)
		}
		*e.dst = n
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{EnvContinue, &o.ContinueOnError},
		{EnvVerbose, &o.Verbose},
	}
	for _, e := range bools {
		v, ok := lookup(e.name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", e.name, err)
		}
		*e.dst = b
	}
	return nil
}

// YAMLLoader reads options from a YAML document
type YAMLLoader struct {
	reader io.Reader
}

func NewYAMLLoader(reader io.Reader) *YAMLLoader {
	return &YAMLLoader{
		reader: reader,
	}
}

// Load decodes the document over o. Keys absent from the document keep
// their current values; an empty document changes nothing.
func (yl *YAMLLoader) Load(o *Options) error {
	decoder := yaml.NewDecoder(yl.reader)
	decoder.KnownFields(true)
	if err := decoder.Decode(o); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadFile applies the YAML file at path to o
func (o *Options) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := NewYAMLLoader(f).Load(o); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// Load builds options from the defaults, the environment and the config
// file. The config file is configPath, or CTHASH_CONFIG when that is empty.
func Load(dotEnvPath, configPath string) (*Options, error) {
	if err := LoadDotEnv(dotEnvPath, false); err != nil {
		return nil, err
	}

	o := Default()
	if err := o.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if configPath == "" {
		configPath = os.Getenv(EnvConfig)
	}
	if configPath != "" {
		if err := o.LoadFile(configPath); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Validate checks the options and fills in derived values: the macro is the
// only marker when none are given, and extensions get a leading dot.
func (o *Options) Validate() error {
	if !hash.ValidBits(o.Bits) {
		return fmt.Errorf("bits must be 32 or 64, got %d", o.Bits)
	}
	if o.Macro == "" {
		return errors.New("macro name must not be empty")
	}
	if !isIdentifier(o.Macro) {
		return fmt.Errorf("macro name %q is not a C identifier", o.Macro)
	}
	if o.TableExponent < strtab.MinExp || o.TableExponent > strtab.MaxExp {
		return fmt.Errorf("table exponent must be between %d and %d, got %d", strtab.MinExp, strtab.MaxExp, o.TableExponent)
	}
	if _, err := transform.ParseFormat(o.Format); err != nil {
		return err
	}
	if len(o.SearchPaths) == 0 {
		return ErrNoSearchPaths
	}

	o.Markers = removeEmpty(o.Markers)
	if len(o.Markers) == 0 {
		o.Markers = []string{o.Macro}
	}
	for _, m := range o.Markers {
		if !isIdentifier(m) {
			return fmt.Errorf("marker %q is not a C identifier", m)
		}
	}

	exts := removeEmpty(o.Extensions)
	for i, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[i] = strings.ToLower(ext)
	}
	o.Extensions = exts
	return nil
}

// Level returns the log level the options ask for
func (o *Options) Level() slog.Level {
	if o.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return removeEmpty(parts)
}

func removeEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
