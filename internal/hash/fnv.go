// Package hash implements the FNV-1a hashes used to identify marker names
// and to produce the generated constant values.
package hash

import "fmt"

const (
	Offset64 uint64 = 0xcbf29ce484222325
	Prime64  uint64 = 0x00000100000001b3

	Offset32 uint32 = 0x811c9dc5
	Prime32  uint32 = 0x01000193
)

// Add64 folds one byte into a running FNV-1a-64 state.
func Add64(h uint64, b byte) uint64 {
	h ^= uint64(b)
	h *= Prime64
	return h
}

// Add32 folds one byte into a running FNV-1a-32 state.
func Add32(h uint32, b byte) uint32 {
	h ^= uint32(b)
	h *= Prime32
	return h
}

// Sum64 returns the FNV-1a-64 hash of s.
func Sum64(s string) uint64 {
	h := Offset64
	for i := 0; i < len(s); i++ {
		h = Add64(h, s[i])
	}
	return h
}

// Sum32 returns the FNV-1a-32 hash of s.
func Sum32(s string) uint32 {
	h := Offset32
	for i := 0; i < len(s); i++ {
		h = Add32(h, s[i])
	}
	return h
}

// Sum returns the hash of s at the given width. Any width other than 64
// is treated as 32.
func Sum(s string, bits int) uint64 {
	if bits == 64 {
		return Sum64(s)
	}
	return uint64(Sum32(s))
}

// Format renders v as a zero-padded hexadecimal literal of the given width.
func Format(v uint64, bits int) string {
	if bits == 64 {
		return fmt.Sprintf("0x%016x", v)
	}
	return fmt.Sprintf("0x%08x", uint32(v))
}

// ValidBits reports whether bits is a supported output width.
func ValidBits(bits int) bool {
	return bits == 32 || bits == 64
}
