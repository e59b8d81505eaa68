// Package strtab implements a fixed-capacity open-addressing string table
// that remembers insertion order.
//
// Slots are probed with the mask-step-index scheme: the step is taken from
// the top bits of the key hash and forced odd, so it is coprime with the
// power-of-two capacity and every slot is visited before a repeat.
package strtab

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/tomdoesdev/cthash/internal/hash"
)

const (
	MinExp = 1
	MaxExp = 24
)

// ErrFull is returned when an insertion would fill the last free slot.
var ErrFull = errors.New("strtab: table is full")

// Entry is one stored key. Entries are never moved or freed individually,
// so a *Entry is a stable identity for its key.
type Entry[V any] struct {
	Key   string
	Value V
	prev  *Entry[V]
}

// Prev returns the entry inserted just before e, or nil.
func (e *Entry[V]) Prev() *Entry[V] {
	return e.prev
}

// Table maps distinct strings to values of type V.
type Table[V any] struct {
	exp     int
	slots   []int32    // arena index + 1, zero when empty
	entries []Entry[V] // arena, preallocated so it never relocates
	tail    *Entry[V]
}

// New creates a table with 2^exp slots. At most 2^exp-1 keys fit.
func New[V any](exp int) (*Table[V], error) {
	if exp < MinExp || exp > MaxExp {
		return nil, fmt.Errorf("strtab: exponent %d out of range [%d, %d]", exp, MinExp, MaxExp)
	}
	size := 1 << exp
	return &Table[V]{
		exp:     exp,
		slots:   make([]int32, size),
		entries: make([]Entry[V], 0, size-1),
	}, nil
}

// probe returns the slot after idx in the sequence for h
func probe(h uint64, exp int, idx uint32) uint32 {
	mask := uint32(1)<<exp - 1
	step := uint32(h>>(64-exp)) | 1
	return (idx + step) & mask
}

// Insert returns the entry for key, adding it if it is not present.
// Inserting an existing key returns the existing entry untouched.
func (t *Table[V]) Insert(key string) (*Entry[V], error) {
	h := hash.Sum64(key)
	idx := uint32(h)
	for n := 0; n < len(t.slots); n++ {
		idx = probe(h, t.exp, idx)
		slot := t.slots[idx]
		if slot == 0 {
			if len(t.entries)+1 == len(t.slots) {
				return nil, ErrFull
			}
			t.entries = append(t.entries, Entry[V]{Key: strings.Clone(key), prev: t.tail})
			e := &t.entries[len(t.entries)-1]
			t.slots[idx] = int32(len(t.entries))
			t.tail = e
			return e, nil
		}
		if e := &t.entries[slot-1]; e.Key == key {
			return e, nil
		}
	}
	return nil, ErrFull
}

// Find looks key up. The probe is bounded by the number of stored keys
// rather than the capacity, which keeps misses cheap on sparse tables.
func (t *Table[V]) Find(key string) (*Entry[V], bool) {
	h := hash.Sum64(key)
	idx := uint32(h)
	for n := 0; n < len(t.entries); n++ {
		idx = probe(h, t.exp, idx)
		slot := t.slots[idx]
		if slot == 0 {
			continue
		}
		if e := &t.entries[slot-1]; e.Key == key {
			return e, true
		}
	}
	return nil, false
}

// Len returns the number of stored keys.
func (t *Table[V]) Len() int { return len(t.entries) }

// Cap returns the number of slots.
func (t *Table[V]) Cap() int { return len(t.slots) }

// Tail returns the most recently inserted entry, or nil when empty.
func (t *Table[V]) Tail() *Entry[V] { return t.tail }

// All yields every entry from the newest to the oldest.
func (t *Table[V]) All() iter.Seq[*Entry[V]] {
	return func(yield func(*Entry[V]) bool) {
		for e := t.tail; e != nil; e = e.prev {
			if !yield(e) {
				return
			}
		}
	}
}

// Keys returns the stored keys from the newest to the oldest.
func (t *Table[V]) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for e := range t.All() {
		keys = append(keys, e.Key)
	}
	return keys
}
