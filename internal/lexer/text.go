package lexer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tomdoesdev/cthash/internal/token"
)

// ReadText reads at most limit bytes of tok's text from the stream. A limit
// of zero or less reads the whole token. The stream position is restored.
func (l *Lexer) ReadText(tok token.Token, limit int) (text string, err error) {
	saved, err := l.Offset()
	if err != nil {
		return "", l.ioFail(err)
	}
	defer func() {
		if rerr := l.Rewind(saved); rerr != nil && err == nil {
			text, err = "", l.ioFail(rerr)
		}
	}()

	if err := l.Rewind(tok.Position); err != nil {
		return "", err
	}
	n := tok.Length
	if limit > 0 && limit < n {
		n = limit
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(l.r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return string(buf[:read]), nil
}

// Text reads tok's full text from the stream.
func (l *Lexer) Text(tok token.Token) (string, error) {
	return l.ReadText(tok, 0)
}

// Int parses a NUMBER token as an unsigned integer. Text containing an 'x'
// is read as hex from the byte after the 'x'; anything else as decimal.
// Parsing stops at the first byte that is not a digit of the base.
func (l *Lexer) Int(tok token.Token) (uint64, error) {
	text, err := l.Text(tok)
	if err != nil {
		return 0, err
	}
	return ParseInt(text)
}

// ParseInt applies Int's rules to text.
func ParseInt(text string) (uint64, error) {
	base := 10
	if i := strings.IndexByte(text, 'x'); i >= 0 {
		text = text[i+1:]
		base = 16
	}
	end := 0
	for end < len(text) && digitValue(text[end]) < base {
		end++
	}
	if end == 0 {
		return 0, nil
	}
	v, err := strconv.ParseUint(text[:end], base, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", text, err)
	}
	return v, nil
}

// Float parses a NUMBER token as a floating-point value. A trailing 'f'
// suffix is ignored.
func (l *Lexer) Float(tok token.Token) (float64, error) {
	text, err := l.Text(tok)
	if err != nil {
		return 0, err
	}
	return ParseFloat(text)
}

// ParseFloat applies Float's rules to text.
func ParseFloat(text string) (float64, error) {
	end := 0
	for end < len(text) && strings.IndexByte("0123456789.eE+-", text[end]) >= 0 {
		end++
	}
	text = strings.TrimRight(text[:end], "eE+-")
	if text == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", text, err)
	}
	return v, nil
}

// ExpectInt reads the next token, which must be a NUMBER, as an integer.
func (l *Lexer) ExpectInt() (uint64, error) {
	tok, err := l.Expect(token.NUMBER)
	if err != nil {
		return 0, err
	}
	return l.Int(tok)
}

// ExpectFloat reads the next token, which must be a NUMBER, as a float.
func (l *Lexer) ExpectFloat() (float64, error) {
	tok, err := l.Expect(token.NUMBER)
	if err != nil {
		return 0, err
	}
	return l.Float(tok)
}

// ExpectText reads the next token's text. The token must be an identifier,
// string or number.
func (l *Lexer) ExpectText() (string, error) {
	pos, err := l.Offset()
	if err != nil {
		return "", l.ioFail(err)
	}
	tok, err := l.Next()
	if errors.Is(err, io.EOF) {
		return "", l.fail(pos, ErrUnexpectedEOF, "unexpected end of input, expected identifier, string or number")
	}
	if err != nil {
		return "", err
	}
	switch tok.Type {
	case token.IDENT, token.STRING, token.NUMBER:
		return l.Text(tok)
	}
	return "", l.fail(tok.Position, ErrUnexpectedToken, fmt.Sprintf("expected identifier, string or number, got %s", tok.Type))
}

func digitValue(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return 99
}
