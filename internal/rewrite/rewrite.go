// Package rewrite refreshes cached hash literals in marker calls such as
// CT_HASH("name", 0x1234abcd) when they no longer match their key.
package rewrite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tomdoesdev/cthash/internal/hash"
	"github.com/tomdoesdev/cthash/internal/lexer"
	"github.com/tomdoesdev/cthash/internal/parser"
	"github.com/tomdoesdev/cthash/internal/stream"
)

// Result summarizes the rewrite of one source
type Result struct {
	Calls   int    // marker calls with a cached literal
	Updated int    // calls whose literal was replaced
	Output  []byte // rewritten source, the input itself when nothing changed
}

// Changed reports whether any literal was replaced
func (r Result) Changed() bool {
	return r.Updated > 0
}

// Rewriter recomputes cached hashes at a fixed width
type Rewriter struct {
	markers parser.Markers
	bits    int
	log     *slog.Logger
}

// New creates a rewriter for the given markers and hash width
func New(markers parser.Markers, bits int, log *slog.Logger) (*Rewriter, error) {
	if !hash.ValidBits(bits) {
		return nil, fmt.Errorf("unsupported hash width %d", bits)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Rewriter{markers: markers, bits: bits, log: log}, nil
}

// Line rewrites one physical line. It returns the line itself when every
// cached literal is current.
func (r *Rewriter) Line(name string, line []byte) (out []byte, calls, updated int, err error) {
	l := lexer.New(stream.New(name, line), lexer.Config{
		TokenizeWhitespace:        true,
		TokenizeWhitespaceGrouped: true,
		StringRaw:                 true,
		Filename:                  name,
		Logger:                    r.log,
	})
	p := parser.New(l, r.markers)

	w := stream.NewWriter(name)
	var last int64
	for {
		call, err := p.NextCacheCall()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, calls, 0, err
		}
		calls++

		key := call.KeyText()
		want := hash.Sum(key, r.bits)
		have, err := lexer.ParseInt(call.Literal.Text)
		if err == nil && have == want {
			continue
		}

		literal := hash.Format(want, r.bits)
		r.log.Debug("stale hash", "file", name, "key", key, "old", call.Literal.Text, "new", literal)
		w.Write(line[last:call.Literal.Token.Position])
		w.WriteString(literal)
		last = call.Literal.Token.End()
		updated++
	}

	if updated == 0 {
		return line, calls, 0, nil
	}
	w.Write(line[last:])
	return w.Bytes(), calls, updated, nil
}

// Source rewrites every line of src. Line terminators are kept as they are.
func (r *Rewriter) Source(name string, src []byte) (Result, error) {
	var res Result
	out := stream.NewWriter(name)
	for i, line := range bytes.SplitAfter(src, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		rewritten, calls, updated, err := r.Line(name, line)
		if err != nil {
			return Result{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		res.Calls += calls
		res.Updated += updated
		out.Write(rewritten)
	}

	res.Output = src
	if res.Changed() {
		res.Output = out.Bytes()
	}
	return res, nil
}

// File rewrites the file at path. The file is only written when a literal
// changed and dryRun is false.
func (r *Rewriter) File(path string, dryRun bool) (Result, error) {
	buf, err := stream.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	res, err := r.Source(path, buf.Bytes())
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	if !res.Changed() || dryRun {
		return res, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return res, err
	}
	if err := os.WriteFile(path, res.Output, info.Mode().Perm()); err != nil {
		return res, fmt.Errorf("write %s: %w", path, err)
	}
	r.log.Info("rewrote file", "file", path, "updated", res.Updated)
	return res, nil
}
