package ast

import (
	"testing"

	"github.com/tomdoesdev/cthash/internal/token"
)

func TestCallString(t *testing.T) {
	call := &Call{
		Name: "CT_HASH",
		Args: []Arg{{Text: "foo"}, {Text: "bar"}},
	}
	if got := call.String(); got != "CT_HASH(foo, bar)" {
		t.Errorf("unexpected String(): %q", got)
	}
	if got := call.Keys(); len(got) != 2 || got[0] != "foo" || got[1] != "bar" {
		t.Errorf("unexpected Keys(): %v", got)
	}
	if call.TokenLiteral() != "CT_HASH" {
		t.Errorf("unexpected TokenLiteral(): %q", call.TokenLiteral())
	}
}

func TestCacheCallKeyText(t *testing.T) {
	tests := []struct {
		typ  token.Type
		text string
		want string
	}{
		{token.STRING, `"bar"`, "bar"},
		{token.STRING, `"bar`, "bar"},
		{token.STRING, `"a\"`, `a\"`},
		{token.STRING, `""`, ""},
		{token.STRING, `"a\\"`, `a\\`},
		{token.IDENT, "bar", "bar"},
	}

	for _, tt := range tests {
		call := &CacheCall{Name: "CT_HASH", Key: Arg{Token: token.Token{Type: tt.typ}, Text: tt.text}}
		if got := call.KeyText(); got != tt.want {
			t.Errorf("KeyText() of %q = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestCacheCallString(t *testing.T) {
	call := &CacheCall{Name: "H", Key: Arg{Text: `"k"`}, Literal: Arg{Text: "0x1"}}
	if got := call.String(); got != `H("k", 0x1)` {
		t.Errorf("unexpected String(): %q", got)
	}
}
