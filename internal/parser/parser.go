package parser

import (
	"errors"
	"io"

	"github.com/tomdoesdev/cthash/internal/ast"
	"github.com/tomdoesdev/cthash/internal/hash"
	"github.com/tomdoesdev/cthash/internal/lexer"
	"github.com/tomdoesdev/cthash/internal/token"
)

// Markers is the set of identifiers whose calls are of interest. Names are
// matched by their FNV-1a-64 hash, which the lexer computes while scanning.
type Markers struct {
	names map[uint64]string
}

// NewMarkers builds a marker set from names
func NewMarkers(names ...string) Markers {
	m := Markers{names: make(map[uint64]string, len(names))}
	for _, name := range names {
		m.names[hash.Sum64(name)] = name
	}
	return m
}

// Match reports whether tok is an identifier naming a marker
func (m Markers) Match(tok token.Token) (string, bool) {
	if tok.Type != token.IDENT {
		return "", false
	}
	name, ok := m.names[tok.Hash]
	return name, ok
}

// Len returns the number of markers
func (m Markers) Len() int {
	return len(m.names)
}

// Parser finds marker calls in a token stream
type Parser struct {
	l       *lexer.Lexer
	markers Markers
}

// New creates a new parser instance
func New(l *lexer.Lexer, markers Markers) *Parser {
	return &Parser{l: l, markers: markers}
}

// NextCall scans forward to the next marker followed by '(' and collects
// every identifier up to the matching ')'. It returns io.EOF when the input
// holds no further calls. A call cut short by the end of input is returned
// with the arguments seen so far.
func (p *Parser) NextCall() (*ast.Call, error) {
	for {
		tok, err := p.l.Next()
		if err != nil {
			return nil, err
		}
		name, ok := p.markers.Match(tok)
		if !ok {
			continue
		}
		_, ok, err = p.l.Accept('(')
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		call := &ast.Call{Marker: tok, Name: name}
		if err := p.parseArguments(call); err != nil {
			return nil, err
		}
		return call, nil
	}
}

// parseArguments collects identifier arguments until the matching ')'
func (p *Parser) parseArguments(call *ast.Call) error {
	depth := 1
	for {
		tok, err := p.l.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch tok.Type {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return nil
			}
		case token.IDENT:
			text, err := p.l.Text(tok)
			if err != nil {
				return err
			}
			call.Args = append(call.Args, ast.Arg{Token: tok, Text: text})
		}
	}
}

// NextCacheCall scans forward to the next call of the form
// marker(<string or identifier>, <number>). Whitespace tokens between the
// parts are allowed. A marker that does not start a call of that shape is
// skipped and scanning resumes right after it.
func (p *Parser) NextCacheCall() (*ast.CacheCall, error) {
	for {
		tok, err := p.l.Next()
		if err != nil {
			return nil, err
		}
		name, ok := p.markers.Match(tok)
		if !ok {
			continue
		}

		after, err := p.l.Offset()
		if err != nil {
			return nil, err
		}
		call, err := p.parseCacheCall(tok, name)
		if err != nil {
			return nil, err
		}
		if call != nil {
			return call, nil
		}
		if err := p.l.Rewind(after); err != nil {
			return nil, err
		}
	}
}

// parseCacheCall returns nil without error when the shape does not match
func (p *Parser) parseCacheCall(marker token.Token, name string) (*ast.CacheCall, error) {
	if _, ok, err := p.acceptAfterSpace('('); err != nil || !ok {
		return nil, err
	}

	key, ok, err := p.acceptAfterSpace(token.STRING)
	if err != nil {
		return nil, err
	}
	if !ok {
		if key.Type != token.IDENT {
			return nil, nil
		}
		if key, ok, err = p.l.Accept(token.IDENT); err != nil || !ok {
			return nil, err
		}
	}

	if _, ok, err := p.acceptAfterSpace(','); err != nil || !ok {
		return nil, err
	}
	literal, ok, err := p.acceptAfterSpace(token.NUMBER)
	if err != nil || !ok {
		return nil, err
	}
	closing, ok, err := p.acceptAfterSpace(')')
	if err != nil || !ok {
		return nil, err
	}

	keyText, err := p.l.Text(key)
	if err != nil {
		return nil, err
	}
	literalText, err := p.l.Text(literal)
	if err != nil {
		return nil, err
	}
	return &ast.CacheCall{
		Marker:  marker,
		Name:    name,
		Key:     ast.Arg{Token: key, Text: keyText},
		Literal: ast.Arg{Token: literal, Text: literalText},
		Close:   closing,
	}, nil
}

// acceptAfterSpace skips whitespace tokens and then accepts tt. Running out
// of input is reported as a plain mismatch.
func (p *Parser) acceptAfterSpace(tt token.Type) (token.Token, bool, error) {
	for {
		next, err := p.l.Peek()
		if errors.Is(err, io.EOF) {
			return token.Token{}, false, nil
		}
		if err != nil {
			return token.Token{}, false, err
		}
		if next.Type != token.WHITESPACE {
			break
		}
		if _, err := p.l.Next(); err != nil {
			return token.Token{}, false, err
		}
	}
	return p.l.Accept(tt)
}
