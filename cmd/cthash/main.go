package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomdoesdev/cthash/internal/compiler"
	"github.com/tomdoesdev/cthash/internal/config"
)

var errStale = errors.New("stale hashes found")

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "generate":
		return generateCommand(args, os.Stdout)
	case "rewrite":
		return rewriteCommand(args, os.Stdout)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

// commonFlags are shared by every subcommand
type commonFlags struct {
	fs         *flag.FlagSet
	paths      pathList
	markers    pathList
	bits       *int
	macro      *string
	configPath *string
	cont       *bool
	verbose    *bool
}

func newFlags(name string) *commonFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	f := &commonFlags{fs: fs}
	fs.Var(&f.paths, "d", "add a search path (repeatable)")
	fs.Var(&f.markers, "f", "add a marker function name (repeatable)")
	f.bits = fs.Int("b", 32, "hash width in bits, 32 or 64")
	f.macro = fs.String("m", "CT_HASH", "macro name used in generated code")
	f.configPath = fs.String("config", "", "YAML config file")
	f.cont = fs.Bool("continue", false, "skip files that fail to parse")
	f.verbose = fs.Bool("v", false, "log debug output")
	return f
}

// load resolves options from the environment and config file, then applies
// every flag given on the command line. Positional arguments are search
// paths as well.
func (f *commonFlags) load(args []string) (*config.Options, error) {
	if err := f.fs.Parse(args); err != nil {
		return nil, err
	}
	opts, err := config.Load(config.DefaultDotEnv, *f.configPath)
	if err != nil {
		return nil, err
	}

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "d":
			opts.SearchPaths = f.paths
		case "f":
			opts.Markers = f.markers
		case "b":
			opts.Bits = *f.bits
		case "m":
			opts.Macro = *f.macro
		case "continue":
			opts.ContinueOnError = *f.cont
		case "v":
			opts.Verbose = *f.verbose
		}
	})
	opts.SearchPaths = append(opts.SearchPaths, f.fs.Args()...)
	return opts, nil
}

func newLogger(opts *config.Options) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: opts.Level()}))
}

func generateCommand(args []string, stdout io.Writer) error {
	f := newFlags("generate")
	format := f.fs.String("format", "header", "output format: header, json or yaml")
	output := f.fs.String("o", "", "write output to file instead of stdout")
	exp := f.fs.Int("exp", 16, "string table size as a power of two")
	opts, err := f.load(args[2:])
	if err != nil {
		return err
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "format":
			opts.Format = *format
		case "o":
			opts.Output = *output
		case "exp":
			opts.TableExponent = *exp
		}
	})

	log := newLogger(opts)
	c, err := compiler.New(opts, log)
	if err != nil {
		return fmt.Errorf("cthash generate: %w", err)
	}
	c.SetArguments(args)

	result, err := c.Generate()
	if err != nil {
		return fmt.Errorf("cthash generate: %w", err)
	}
	if opts.Output == "" {
		_, err = io.WriteString(stdout, result)
		return err
	}
	if err := os.WriteFile(opts.Output, []byte(result), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info("wrote output", "file", opts.Output)
	return nil
}

func rewriteCommand(args []string, stdout io.Writer) error {
	f := newFlags("rewrite")
	check := f.fs.Bool("check", false, "list files with stale hashes without writing them")
	opts, err := f.load(args[2:])
	if err != nil {
		return err
	}
	opts.Check = *check

	c, err := compiler.New(opts, newLogger(opts))
	if err != nil {
		return fmt.Errorf("cthash rewrite: %w", err)
	}
	summary, err := c.Rewrite()
	if err != nil {
		return fmt.Errorf("cthash rewrite: %w", err)
	}
	if !opts.Check {
		return nil
	}
	for _, path := range summary.Changed {
		fmt.Fprintln(stdout, path)
	}
	if len(summary.Changed) > 0 {
		return fmt.Errorf("%w in %d file(s)", errStale, len(summary.Changed))
	}
	return nil
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s generate [flags] [path...]\n", prog)
	fmt.Fprintf(os.Stderr, "       %s rewrite [flags] [path...]\n", prog)
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  -d <path>")
	fmt.Fprintln(os.Stderr, "    add a search path (repeatable)")
	fmt.Fprintln(os.Stderr, "  -f <name>")
	fmt.Fprintln(os.Stderr, "    add a marker function name (repeatable, default: the macro name)")
	fmt.Fprintln(os.Stderr, "  -b 32|64")
	fmt.Fprintln(os.Stderr, "    hash width (default 32)")
	fmt.Fprintln(os.Stderr, "  -m <name>")
	fmt.Fprintln(os.Stderr, "    macro name (default \"CT_HASH\")")
	fmt.Fprintln(os.Stderr, "  -config <file>")
	fmt.Fprintln(os.Stderr, "    YAML config file")
	fmt.Fprintln(os.Stderr, "  -continue")
	fmt.Fprintln(os.Stderr, "    skip files that fail to parse")
	fmt.Fprintln(os.Stderr, "  -v")
	fmt.Fprintln(os.Stderr, "    log debug output")
	fmt.Fprintln(os.Stderr, "generate only: -format header|json|yaml, -o <file>, -exp <n>")
	fmt.Fprintln(os.Stderr, "rewrite only: -check")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}

type pathList []string

func (l *pathList) String() string {
	return strings.Join(*l, string(os.PathListSeparator))
}

func (l *pathList) Set(value string) error {
	*l = append(*l, value)
	return nil
}
