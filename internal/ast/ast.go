package ast

import (
	"strings"

	"github.com/tomdoesdev/cthash/internal/token"
)

// Node represents any marker call found in a source
type Node interface {
	TokenLiteral() string // Returns the marker name
	String() string       // String representation for debugging
}

// Arg is one call argument together with its source text
type Arg struct {
	Token token.Token
	Text  string
}

// Call is a marker call whose identifier arguments are keys to generate
// constants for, e.g. CT_HASH(player_health).
type Call struct {
	Marker token.Token
	Name   string
	Args   []Arg
}

func (c *Call) TokenLiteral() string { return c.Name }
func (c *Call) String() string {
	keys := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		keys = append(keys, a.Text)
	}
	return c.Name + "(" + strings.Join(keys, ", ") + ")"
}

// Keys returns the argument texts in source order
func (c *Call) Keys() []string {
	keys := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		keys = append(keys, a.Text)
	}
	return keys
}

// CacheCall is a marker call that carries a cached hash of its first
// argument, e.g. CT_HASH("bar", 0x76b77d1a).
type CacheCall struct {
	Marker  token.Token
	Name    string
	Key     Arg // STRING (quotes kept) or IDENT
	Literal Arg // NUMBER holding the cached hash
	Close   token.Token
}

func (c *CacheCall) TokenLiteral() string { return c.Name }
func (c *CacheCall) String() string {
	return c.Name + "(" + c.Key.Text + ", " + c.Literal.Text + ")"
}

// KeyText returns the text that is hashed: string keys lose their quotes.
func (c *CacheCall) KeyText() string {
	if c.Key.Token.Type != token.STRING {
		return c.Key.Text
	}
	text := strings.TrimPrefix(c.Key.Text, `"`)
	if closed(text) {
		text = text[:len(text)-1]
	}
	return text
}

// closed reports whether text ends in a quote that is not escaped, i.e. one
// preceded by an even number of backslashes.
func closed(text string) bool {
	if !strings.HasSuffix(text, `"`) {
		return false
	}
	n := 0
	for i := len(text) - 2; i >= 0 && text[i] == '\\'; i-- {
		n++
	}
	return n%2 == 0
}
