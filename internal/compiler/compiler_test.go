package compiler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomdoesdev/cthash/internal/analyzer"
	"github.com/tomdoesdev/cthash/internal/config"
	"github.com/tomdoesdev/cthash/internal/hash"
	"github.com/tomdoesdev/cthash/internal/lexer"
	"github.com/tomdoesdev/cthash/internal/stream"
	"github.com/tomdoesdev/cthash/internal/transform"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// writeTree creates files relative to a fresh temp dir and returns the dir
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newCompiler(t *testing.T, modify func(*config.Options)) *Compiler {
	t.Helper()
	opts := config.Default()
	if modify != nil {
		modify(opts)
	}
	c, err := New(opts, quiet)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestGenerateHeader(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.c":          "int x = CT_HASH(bar);\n",
		"b.h":          "// CT_HASH(hidden)\nenum { Y = CT_HASH(baz) };",
		"notes.txt":    "CT_HASH(ignored)\n",
		"sub/c.cpp":    "f(CT_HASH(bar), \"CT_HASH(nope)\");\n",
		"sub/d.hxx":    "",
		"sub/e.C":      "CT_HASH(upper)\n",
		"sub/Makefile": "CT_HASH(make)\n",
	})

	c := newCompiler(t, func(o *config.Options) { o.SearchPaths = []string{dir} })
	c.SetArguments([]string{"cthash", "generate", "-d", "src"})
	output, err := c.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	expected := "#pragma once\n" +
		"// This header file was automatically generated.\n" +
		"// Arguments: cthash generate -d src\n" +
		"#include <stdint.h>\n" +
		"#define CT_HASH(name) (_CT_HASH_ ## name)\n" +
		"enum // 3 entries\n{\n" +
		"\t_CT_HASH_upper = UINT32_C(" + hash.Format(hash.Sum("upper", 32), 32) + "),\n" +
		"\t_CT_HASH_baz = UINT32_C(0x6eb77082),\n" +
		"\t_CT_HASH_bar = UINT32_C(0x76b77d1a),\n" +
		"\t_CT_HASH_ = UINT32_C(0x0)\n" +
		"};\n"
	if output != expected {
		t.Errorf("unexpected header:\n%s\nwant:\n%s", output, expected)
	}
}

func TestGenerateManifest(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"keys.c": "HASH_A(first) HASH_B(second, third) OTHER(skipped)\n",
	})

	c := newCompiler(t, func(o *config.Options) {
		o.SearchPaths = []string{filepath.Join(dir, "keys.c")}
		o.Markers = []string{"HASH_A", "HASH_B"}
		o.Format = "json"
		o.Bits = 64
	})
	output, err := c.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var m transform.Manifest
	if err := json.Unmarshal([]byte(output), &m); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if m.Bits != 64 || m.Count != 3 {
		t.Errorf("unexpected manifest header: %+v", m)
	}
	var names []string
	for _, e := range m.Entries {
		names = append(names, e.Name)
	}
	if got := strings.Join(names, ","); got != "third,second,first" {
		t.Errorf("expected newest key first, got %s", got)
	}
	if m.Entries[2].Hash != hash.Format(hash.Sum64("first"), 64) {
		t.Errorf("unexpected hash for first: %s", m.Entries[2].Hash)
	}
}

func TestCollectNestedCall(t *testing.T) {
	c := newCompiler(t, func(o *config.Options) { o.SearchPaths = []string{"."} })
	a, err := analyzer.New(8, 32, quiet)
	if err != nil {
		t.Fatal(err)
	}

	src := "CT_HASH(f(a, (b)), c) d"
	if err := c.Collect(a, "nested.c", stream.New("nested.c", []byte(src))); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	keys := a.Keys().Keys()
	if strings.Join(keys, ",") != "c,b,a,f" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestCollisionAbortsRun(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.c": "CT_HASH(costarring)\n",
		"b.c": "CT_HASH(liquid)\n",
	})

	c := newCompiler(t, func(o *config.Options) {
		o.SearchPaths = []string{dir}
		o.ContinueOnError = true
	})
	_, err := c.Generate()
	if err == nil {
		t.Fatal("expected a collision error")
	}

	var collision *analyzer.CollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected CollisionError, got %v", err)
	}
	if collision.Key != "liquid" || collision.Other != "costarring" {
		t.Errorf("unexpected collision pair: %s / %s", collision.Key, collision.Other)
	}
}

func TestBadFilePolicy(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.c":   "CT_HASH(good)\n",
		"bad.c": "CT_HASH(x) \x01\n",
	})

	c := newCompiler(t, func(o *config.Options) { o.SearchPaths = []string{dir} })
	_, err := c.Generate()
	if !errors.Is(err, lexer.ErrUnexpectedChar) {
		t.Fatalf("expected the run to abort on bad.c, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad.c") {
		t.Errorf("error should name the file: %v", err)
	}

	c = newCompiler(t, func(o *config.Options) {
		o.SearchPaths = []string{dir}
		o.ContinueOnError = true
	})
	output, err := c.Generate()
	if err != nil {
		t.Fatalf("expected bad.c to be skipped, got %v", err)
	}
	if !strings.Contains(output, "_CT_HASH_good") {
		t.Errorf("keys from good files must survive:\n%s", output)
	}
	if strings.Contains(output, "_CT_HASH_x") {
		t.Errorf("keys from a skipped file must not leak into the output:\n%s", output)
	}
}

func TestCollectAddsNothingOnFailure(t *testing.T) {
	c := newCompiler(t, func(o *config.Options) { o.SearchPaths = []string{"."} })
	a, err := analyzer.New(8, 32, quiet)
	if err != nil {
		t.Fatal(err)
	}

	src := "CT_HASH(leaked) CT_HASH(also)\n\x01"
	err = c.Collect(a, "bad.c", stream.New("bad.c", []byte(src)))
	if !errors.Is(err, lexer.ErrUnexpectedChar) {
		t.Fatalf("expected unexpected character, got %v", err)
	}
	if n := a.Keys().Len(); n != 0 {
		t.Errorf("expected no keys from a failed file, got %v", a.Keys().Keys())
	}
}

func TestMarkerAtEndOfFile(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.c": "x = CT_HASH"})

	c := newCompiler(t, func(o *config.Options) { o.SearchPaths = []string{dir} })
	if _, err := c.Generate(); !errors.Is(err, lexer.ErrUnexpectedEOF) {
		t.Errorf("expected unexpected end of input, got %v", err)
	}
}

func TestTableFull(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.c": "CT_HASH(a, b, c, d)\n"})

	c := newCompiler(t, func(o *config.Options) {
		o.SearchPaths = []string{dir}
		o.TableExponent = 2
		o.ContinueOnError = true
	})
	if _, err := c.Generate(); err == nil {
		t.Error("expected the table to run out of space")
	}
}

func TestMissingSearchPath(t *testing.T) {
	c := newCompiler(t, func(o *config.Options) {
		o.SearchPaths = []string{filepath.Join(t.TempDir(), "missing")}
	})
	if _, err := c.Generate(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}

func TestNewValidates(t *testing.T) {
	opts := config.Default()
	if _, err := New(opts, quiet); !errors.Is(err, config.ErrNoSearchPaths) {
		t.Errorf("expected ErrNoSearchPaths, got %v", err)
	}
}

func TestRewrite(t *testing.T) {
	stale := "int a = CT_HASH(\"bar\", 0x00000000);\n"
	fresh := "int b = CT_HASH(baz, 0x6eb77082);\n"
	dir := writeTree(t, map[string]string{
		"stale.c": stale,
		"fresh.c": fresh,
	})

	check := newCompiler(t, func(o *config.Options) {
		o.SearchPaths = []string{dir}
		o.Check = true
	})
	s, err := check.Rewrite()
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if s.Files != 2 || s.Calls != 2 || s.Updated != 1 || len(s.Changed) != 1 {
		t.Errorf("unexpected check summary: %+v", s)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "stale.c"))
	if string(data) != stale {
		t.Errorf("check mode must not write, got %q", data)
	}

	c := newCompiler(t, func(o *config.Options) { o.SearchPaths = []string{dir} })
	if _, err := c.Rewrite(); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "stale.c"))
	if string(data) != "int a = CT_HASH(\"bar\", 0x76b77d1a);\n" {
		t.Errorf("unexpected rewrite: %q", data)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "fresh.c"))
	if string(data) != fresh {
		t.Errorf("current file must stay byte-identical, got %q", data)
	}
}
