package compiler

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomdoesdev/cthash/internal/analyzer"
	"github.com/tomdoesdev/cthash/internal/ast"
	"github.com/tomdoesdev/cthash/internal/config"
	"github.com/tomdoesdev/cthash/internal/lexer"
	"github.com/tomdoesdev/cthash/internal/parser"
	"github.com/tomdoesdev/cthash/internal/rewrite"
	"github.com/tomdoesdev/cthash/internal/stream"
	"github.com/tomdoesdev/cthash/internal/strtab"
	"github.com/tomdoesdev/cthash/internal/transform"
)

// Compiler orchestrates a run over every source file below the search
// paths. Each file is its own session: a fatal tokenizer error ends that
// file, and the options decide whether the run goes on without it.
type Compiler struct {
	opts    *config.Options
	markers parser.Markers
	args    []string
	log     *slog.Logger
}

// Summary describes a rewrite run
type Summary struct {
	Files   int
	Failed  int
	Calls   int
	Updated int
	Changed []string // files with at least one stale literal
}

// New validates opts and creates a compiler
func New(opts *config.Options, log *slog.Logger) (*Compiler, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	markers := parser.NewMarkers(opts.Markers...)
	log.Debug("markers", "names", opts.Markers, "distinct", markers.Len())
	return &Compiler{
		opts:    opts,
		markers: markers,
		log:     log,
	}, nil
}

// SetArguments records the command line echoed in generated headers
func (c *Compiler) SetArguments(args []string) {
	c.args = args
}

// Sources lists the files to process. Directories are walked recursively
// and filtered by extension; a search path naming a file is always taken.
func (c *Compiler) Sources() ([]string, error) {
	var files []string
	for _, root := range c.opts.SearchPaths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("search path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !c.matches(path) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("search path %s: %w", root, err)
		}
	}
	c.log.Debug("found sources", "count", len(files))
	return files, nil
}

func (c *Compiler) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, want := range c.opts.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// Generate collects keys from every source and renders them in the
// configured output format
func (c *Compiler) Generate() (string, error) {
	files, err := c.Sources()
	if err != nil {
		return "", err
	}

	a, err := analyzer.New(c.opts.TableExponent, c.opts.Bits, c.log)
	if err != nil {
		return "", err
	}

	failed, err := c.each(files, func(path string) error {
		return c.CollectFile(a, path)
	})
	if err != nil {
		return "", err
	}
	c.log.Info("collected keys", "files", len(files), "failed", failed, "keys", a.Keys().Len())

	format, err := transform.ParseFormat(c.opts.Format)
	if err != nil {
		return "", err
	}
	t := transform.New(c.opts.Macro, c.opts.Bits)
	t.SetFormat(format)
	t.SetArguments(c.args)
	output, err := t.Transform(a.Keys())
	if err != nil {
		return "", fmt.Errorf("generation error: %w", err)
	}
	return output, nil
}

// CollectFile runs one collect session over the file at path
func (c *Compiler) CollectFile(a *analyzer.Analyzer, path string) error {
	buf, err := stream.ReadFile(path)
	if err != nil {
		return err
	}
	return c.Collect(a, path, buf)
}

// Collect feeds the keys of every marker call in r to a. Nothing is added
// unless the whole input tokenizes cleanly.
func (c *Compiler) Collect(a *analyzer.Analyzer, name string, r io.ReadSeeker) error {
	l := lexer.New(r, lexer.Config{
		SkipComments:       true,
		PrintSourceOnError: c.opts.Verbose,
		Filename:           name,
		Logger:             c.log,
	})
	p := parser.New(l, c.markers)

	var calls []*ast.Call
	for {
		call, err := p.NextCall()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		c.log.Debug("found call", "file", name, "call", call.String())
		calls = append(calls, call)
	}

	for _, call := range calls {
		if err := a.Analyze(call); err != nil {
			return err
		}
	}
	return nil
}

// Rewrite refreshes stale cached literals in every source. With the Check
// option set, files are reported but left untouched.
func (c *Compiler) Rewrite() (*Summary, error) {
	files, err := c.Sources()
	if err != nil {
		return nil, err
	}

	rw, err := rewrite.New(c.markers, c.opts.Bits, c.log)
	if err != nil {
		return nil, err
	}

	s := &Summary{Files: len(files)}
	s.Failed, err = c.each(files, func(path string) error {
		res, err := rw.File(path, c.opts.Check)
		if err != nil {
			return err
		}
		s.Calls += res.Calls
		s.Updated += res.Updated
		if res.Changed() {
			s.Changed = append(s.Changed, path)
			if c.opts.Check {
				c.log.Info("stale hashes", "file", path, "calls", res.Updated)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("rewrite finished", "files", s.Files, "failed", s.Failed, "calls", s.Calls, "updated", s.Updated)
	return s, nil
}

// each runs fn for every file. A failing file aborts the run unless
// ContinueOnError is set; collisions and a full table always abort.
func (c *Compiler) each(files []string, fn func(path string) error) (failed int, err error) {
	for _, path := range files {
		err := fn(path)
		if err == nil {
			continue
		}
		if fatal(err) || !c.opts.ContinueOnError {
			return failed, fmt.Errorf("error while parsing '%s': %w", path, err)
		}
		failed++
		c.log.Warn("skipping file", "file", path, "error", err)
	}
	return failed, nil
}

func fatal(err error) bool {
	var collision *analyzer.CollisionError
	return errors.As(err, &collision) || errors.Is(err, strtab.ErrFull)
}
