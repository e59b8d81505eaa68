package token

import "fmt"

// Type identifies a token. Values below 256 are single-byte tokens whose type
// is the byte itself, so '(' has type 0x28.
type Type uint16

const (
	// Named token types
	IDENT Type = 256 + iota // identifiers like "CT_HASH"
	STRING                  // "hello"
	NUMBER                  // 123, 0xff, 1.5e3f
	COMMENT                 // // line or /* block */
	MULTILINE_COMMENT       // /* block */ when kept separate
	WHITESPACE              // ' ', '\t', '\r', '\n'
)

// Token describes a span of the input stream. The text itself is not copied;
// it can be read back from the stream through Position and Length.
type Token struct {
	Type     Type
	Position int64  // stream offset of the first content byte
	Length   int    // number of bytes in the span
	Hash     uint64 // FNV-1a-64 of the span
	Next     *Token // free for callers that chain tokens
}

// Byte reports whether t is a single-byte token type.
func (t Type) Byte() bool {
	return t < 256
}

// String returns a string representation of the token type
func (t Type) String() string {
	switch t {
	case IDENT:
		return "identifier"
	case STRING:
		return "string"
	case NUMBER:
		return "number"
	case COMMENT:
		return "comment"
	case MULTILINE_COMMENT:
		return "multiline comment"
	case WHITESPACE:
		return "whitespace"
	}
	if t >= 0x20 && t <= 0xff {
		return string(rune(t))
	}
	if t < 0x20 {
		return fmt.Sprintf("\\x%02x", uint16(t))
	}
	return "UNKNOWN"
}

// End returns the stream offset just past the token.
func (t Token) End() int64 {
	return t.Position + int64(t.Length)
}
