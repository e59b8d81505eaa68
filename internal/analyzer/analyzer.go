package analyzer

import (
	"fmt"
	"log/slog"

	"github.com/tomdoesdev/cthash/internal/ast"
	"github.com/tomdoesdev/cthash/internal/hash"
	"github.com/tomdoesdev/cthash/internal/strtab"
)

// Key is a discovered key. Its address identifies the key across tables.
type Key = strtab.Entry[struct{}]

// CollisionError reports two distinct keys whose narrow hashes are equal.
type CollisionError struct {
	Key   string
	Other string
	Hash  uint64
	Bits  int
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("hash collision found for string '%s' and '%s' (%s)", e.Key, e.Other, hash.Format(e.Hash, e.Bits))
}

// Analyzer collects keys from marker calls. It deduplicates keys and checks
// that no two of them share the hash that will be emitted for them.
type Analyzer struct {
	bits    int
	keys    *strtab.Table[struct{}]
	reverse *strtab.Table[*Key] // narrow hash (hex) -> first key that produced it
	log     *slog.Logger
}

// New creates an analyzer whose tables hold up to 2^exp-1 keys
func New(exp, bits int, log *slog.Logger) (*Analyzer, error) {
	if !hash.ValidBits(bits) {
		return nil, fmt.Errorf("unsupported hash width %d", bits)
	}
	keys, err := strtab.New[struct{}](exp)
	if err != nil {
		return nil, err
	}
	reverse, err := strtab.New[*Key](exp)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{bits: bits, keys: keys, reverse: reverse, log: log}, nil
}

// Analyze records every key of a call
func (a *Analyzer) Analyze(call *ast.Call) error {
	for _, arg := range call.Args {
		if _, err := a.Add(arg.Text); err != nil {
			return err
		}
	}
	return nil
}

// Add records one key and returns its table entry.
func (a *Analyzer) Add(key string) (*Key, error) {
	entry, err := a.keys.Insert(key)
	if err != nil {
		return nil, fmt.Errorf("insert %q: %w", key, err)
	}

	narrow := hash.Sum(key, a.bits)
	rev, err := a.reverse.Insert(hash.Format(narrow, a.bits))
	if err != nil {
		return nil, fmt.Errorf("insert hash of %q: %w", key, err)
	}
	if rev.Value != nil && rev.Value != entry {
		return nil, &CollisionError{Key: key, Other: rev.Value.Key, Hash: narrow, Bits: a.bits}
	}
	if rev.Value == nil {
		a.log.Debug("new key", "key", key, "hash", hash.Format(narrow, a.bits))
	}
	rev.Value = entry
	return entry, nil
}

// Keys returns the table of discovered keys
func (a *Analyzer) Keys() *strtab.Table[struct{}] {
	return a.keys
}

// Bits returns the emitted hash width
func (a *Analyzer) Bits() int {
	return a.bits
}
