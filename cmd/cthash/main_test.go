package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return dir
}

func TestRunCLIHelp(t *testing.T) {
	if err := runCLI([]string{"cthash", "help"}); err != nil {
		t.Fatalf("runCLI help failed: %v", err)
	}
}

func TestRunCLIInvalidCommand(t *testing.T) {
	for _, args := range [][]string{{"cthash"}, {"cthash", "unknown"}} {
		err := runCLI(args)
		if err == nil || !strings.Contains(err.Error(), "invalid command") {
			t.Fatalf("unexpected error for %v: %v", args, err)
		}
	}
}

func TestGenerateCommand(t *testing.T) {
	dir := writeSource(t, "main.c", "a = CT_HASH(bar); b = CT_HASH(baz);\n")

	var out bytes.Buffer
	if err := generateCommand([]string{"cthash", "generate", "-d", dir}, &out); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	got := out.String()
	want := "\t_CT_HASH_baz = UINT32_C(0x6eb77082),\n\t_CT_HASH_bar = UINT32_C(0x76b77d1a),\n\t_CT_HASH_ = UINT32_C(0x0)\n};\n"
	if !strings.HasSuffix(got, want) {
		t.Fatalf("unexpected output:\n%s", got)
	}
	if !strings.Contains(got, "// Arguments: cthash generate -d "+dir) {
		t.Errorf("header should echo the arguments:\n%s", got)
	}
}

func TestGenerateCommandFlags(t *testing.T) {
	dir := writeSource(t, "main.c", "KEY(bar)\n")
	outFile := filepath.Join(t.TempDir(), "keys.yaml")

	var out bytes.Buffer
	args := []string{"cthash", "generate", "-f", "KEY", "-b", "64", "-format", "yaml", "-o", outFile, dir}
	if err := generateCommand(args, &out); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should go to stdout with -o, got %q", out.String())
	}
	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "name: bar") || !strings.Contains(string(data), "bits: 64") {
		t.Errorf("unexpected manifest:\n%s", data)
	}
}

func TestGenerateRequiresSearchPath(t *testing.T) {
	err := generateCommand([]string{"cthash", "generate"}, new(bytes.Buffer))
	if err == nil || !strings.Contains(err.Error(), "no search paths") {
		t.Fatalf("expected missing search path error, got %v", err)
	}
}

func TestRewriteCommand(t *testing.T) {
	dir := writeSource(t, "main.c", "x = CT_HASH(\"bar\", 0x0);\n")
	path := filepath.Join(dir, "main.c")

	var out bytes.Buffer
	err := rewriteCommand([]string{"cthash", "rewrite", "-check", "-d", dir}, &out)
	if !errors.Is(err, errStale) {
		t.Fatalf("expected stale error, got %v", err)
	}
	if strings.TrimSpace(out.String()) != path {
		t.Errorf("check should list the stale file, got %q", out.String())
	}

	if err := rewriteCommand([]string{"cthash", "rewrite", "-d", dir}, new(bytes.Buffer)); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "x = CT_HASH(\"bar\", 0x76b77d1a);\n" {
		t.Fatalf("unexpected rewrite: %q", data)
	}

	if err := rewriteCommand([]string{"cthash", "rewrite", "-check", dir}, new(bytes.Buffer)); err != nil {
		t.Fatalf("check after rewrite should pass: %v", err)
	}
}

func TestUnknownFlag(t *testing.T) {
	if err := rewriteCommand([]string{"cthash", "rewrite", "-nope"}, new(bytes.Buffer)); err == nil {
		t.Fatal("expected a flag error")
	}
}
