package lexer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tomdoesdev/cthash/internal/hash"
	"github.com/tomdoesdev/cthash/internal/token"
)

// excerptRadius is how many bytes on each side of a failure are shown when
// PrintSourceOnError is set.
const excerptRadius = 100

// maxEmptyReads bounds consecutive (0, nil) reads from a stream without
// io.ByteReader.
const maxEmptyReads = 100

var (
	ErrUnexpectedEOF   = errors.New("unexpected end of input")
	ErrUnexpectedChar  = errors.New("unexpected character")
	ErrUnexpectedToken = errors.New("unexpected token")
)

// Config selects the lexical mode. The zero value skips whitespace, returns
// comments, and treats '-' as punctuation.
type Config struct {
	SkipComments                 bool // drop comment tokens
	TokenizeNewlines             bool // return '\n' as a single-byte token
	TokenizeWhitespace           bool // return whitespace as WHITESPACE tokens
	TokenizeWhitespaceGrouped    bool // coalesce runs of whitespace, needs TokenizeWhitespace
	TreatNegativeSignAsNumber    bool // '-' followed by a digit starts a NUMBER
	MultilineCommentSeparateType bool // /* */ comments get MULTILINE_COMMENT
	PrintSourceOnError           bool // attach a source excerpt to fatal errors
	StringRaw                    bool // STRING tokens keep their quotes

	// IdentifierIncludesHyphen is accepted for compatibility but not
	// consulted when scanning identifiers.
	IdentifierIncludesHyphen bool

	Filename string       // used in diagnostics
	Logger   *slog.Logger // diagnostic sink, slog.Default() when nil
}

// Lexer turns a seekable byte stream into tokens. It keeps no state besides
// the stream cursor, so backtracking is a seek.
type Lexer struct {
	r   io.ReadSeeker
	br  io.ByteReader
	cfg Config
	log *slog.Logger
	err error // sticky fatal error
}

// New creates a lexer reading from r at its current offset
func New(r io.ReadSeeker, cfg Config) *Lexer {
	l := &Lexer{r: r, cfg: cfg, log: cfg.Logger}
	if br, ok := r.(io.ByteReader); ok {
		l.br = br
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	return l
}

// Err returns the fatal error that stopped the lexer, if any.
func (l *Lexer) Err() error {
	return l.err
}

// Offset returns the current stream offset.
func (l *Lexer) Offset() (int64, error) {
	return l.r.Seek(0, io.SeekCurrent)
}

// Rewind moves the stream back (or forward) to an offset previously
// obtained from Offset or a token.
func (l *Lexer) Rewind(pos int64) error {
	_, err := l.r.Seek(pos, io.SeekStart)
	return err
}

// Unget steps the stream back by one byte. At offset 0 it does nothing.
func (l *Lexer) Unget() error {
	pos, err := l.Offset()
	if err != nil {
		return err
	}
	if pos == 0 {
		return nil
	}
	return l.Rewind(pos - 1)
}

// Next returns the next token, or io.EOF once the stream is exhausted.
// Any other error is fatal and is returned again by every later call.
func (l *Lexer) Next() (token.Token, error) {
	if l.err != nil {
		return token.Token{}, l.err
	}
	return l.next()
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (token.Token, error) {
	if l.err != nil {
		return token.Token{}, l.err
	}
	pos, err := l.Offset()
	if err != nil {
		return token.Token{}, l.ioFail(err)
	}
	tok, err := l.next()
	if err != nil {
		return tok, err
	}
	if err := l.Rewind(pos); err != nil {
		return token.Token{}, l.ioFail(err)
	}
	return tok, nil
}

// Accept consumes the next token if it has type tt. On a mismatch the stream
// is restored and ok is false. Running out of input is fatal.
func (l *Lexer) Accept(tt token.Type) (tok token.Token, ok bool, err error) {
	if l.err != nil {
		return token.Token{}, false, l.err
	}
	pos, err := l.Offset()
	if err != nil {
		return token.Token{}, false, l.ioFail(err)
	}
	tok, err = l.next()
	if errors.Is(err, io.EOF) {
		return tok, false, l.fail(pos, ErrUnexpectedEOF, fmt.Sprintf("unexpected end of input, expected %s", tt))
	}
	if err != nil {
		return tok, false, err
	}
	if tok.Type != tt {
		if err := l.Rewind(pos); err != nil {
			return tok, false, l.ioFail(err)
		}
		return tok, false, nil
	}
	return tok, true, nil
}

// Expect is Accept where a mismatch is fatal.
func (l *Lexer) Expect(tt token.Type) (token.Token, error) {
	tok, ok, err := l.Accept(tt)
	if err != nil {
		return tok, err
	}
	if !ok {
		return tok, l.fail(tok.Position, ErrUnexpectedToken, fmt.Sprintf("expected %s, got %s", tt, tok.Type))
	}
	return tok, nil
}

// next implements one step of the scanner
func (l *Lexer) next() (token.Token, error) {
	for {
		pos, err := l.Offset()
		if err != nil {
			return token.Token{}, l.ioFail(err)
		}
		b, err := l.readByte()
		if errors.Is(err, io.EOF) {
			return token.Token{}, io.EOF
		}
		if err != nil {
			return token.Token{}, l.ioFail(err)
		}

		tok := token.Token{
			Type:     token.Type(b),
			Position: pos,
			Length:   1,
			Hash:     hash.Add64(hash.Offset64, b),
		}

		switch {
		case b == '"':
			return l.readString(tok)

		case b == '.' || (b == '-' && l.cfg.TreatNegativeSignAsNumber):
			digit, err := l.peekIs(isDigit)
			if err != nil {
				return token.Token{}, err
			}
			if digit {
				tok.Type = token.NUMBER
				return l.readWhile(tok, isNumeric)
			}
			return tok, nil

		case isWhitespace(b):
			if b == '\n' && l.cfg.TokenizeNewlines {
				return tok, nil
			}
			if !l.cfg.TokenizeWhitespace {
				continue
			}
			tok.Type = token.WHITESPACE
			if l.cfg.TokenizeWhitespaceGrouped {
				return l.readWhile(tok, l.continuesWhitespace)
			}
			return tok, nil

		case b == '/':
			tok, skip, err := l.readSlash(tok)
			if err != nil {
				return token.Token{}, err
			}
			if skip {
				continue
			}
			return tok, nil

		case isDigit(b):
			tok.Type = token.NUMBER
			return l.readWhile(tok, isNumeric)

		case isLetter(b) || b == '_':
			tok.Type = token.IDENT
			return l.readWhile(tok, isIdent)

		case b >= 0x20:
			return tok, nil

		default:
			return token.Token{}, l.fail(pos, ErrUnexpectedChar, fmt.Sprintf("unexpected character \\x%02x", b))
		}
	}
}

// readByte reads one byte, reporting io.EOF at the end of the stream
func (l *Lexer) readByte() (byte, error) {
	if l.br != nil {
		return l.br.ReadByte()
	}
	var buf [1]byte
	for range maxEmptyReads {
		n, err := l.r.Read(buf[:])
		if n == 1 {
			return buf[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
	return 0, io.ErrNoProgress
}

// peekIs reports whether the next byte satisfies pred without consuming it
func (l *Lexer) peekIs(pred func(byte) bool) (bool, error) {
	c, err := l.readByte()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, l.ioFail(err)
	}
	if err := l.Unget(); err != nil {
		return false, l.ioFail(err)
	}
	return pred(c), nil
}

// readWhile extends tok with every following byte accepted by pred. The
// first rejected byte is left in the stream.
func (l *Lexer) readWhile(tok token.Token, pred func(byte) bool) (token.Token, error) {
	for {
		c, err := l.readByte()
		if errors.Is(err, io.EOF) {
			return tok, nil
		}
		if err != nil {
			return token.Token{}, l.ioFail(err)
		}
		if !pred(c) {
			if err := l.Unget(); err != nil {
				return token.Token{}, l.ioFail(err)
			}
			return tok, nil
		}
		tok.Length++
		tok.Hash = hash.Add64(tok.Hash, c)
	}
}

// readString reads up to the closing unescaped quote. The opening quote has
// already been consumed into tok. An unterminated string ends at end of input.
func (l *Lexer) readString(tok token.Token) (token.Token, error) {
	tok.Type = token.STRING
	if !l.cfg.StringRaw {
		tok.Position++
		tok.Length = 0
		tok.Hash = hash.Offset64
	}

	escaped := false
	for {
		c, err := l.readByte()
		if errors.Is(err, io.EOF) {
			return tok, nil
		}
		if err != nil {
			return token.Token{}, l.ioFail(err)
		}
		if c == '"' && !escaped {
			if l.cfg.StringRaw {
				tok.Length++
				tok.Hash = hash.Add64(tok.Hash, c)
			}
			return tok, nil
		}
		escaped = !escaped && c == '\\'
		tok.Length++
		tok.Hash = hash.Add64(tok.Hash, c)
	}
}

// readSlash handles '/', which is either punctuation or opens a comment.
// skip is true when the comment should be dropped.
func (l *Lexer) readSlash(tok token.Token) (_ token.Token, skip bool, err error) {
	c, err := l.readByte()
	if errors.Is(err, io.EOF) {
		return tok, false, nil
	}
	if err != nil {
		return token.Token{}, false, l.ioFail(err)
	}
	if c != '/' && c != '*' {
		if err := l.Unget(); err != nil {
			return token.Token{}, false, l.ioFail(err)
		}
		return tok, false, nil
	}

	comment := token.Token{
		Type:     token.COMMENT,
		Position: tok.Position + 2,
		Hash:     hash.Offset64,
	}
	if c == '/' {
		comment, err = l.readWhile(comment, func(c byte) bool { return c != '\r' && c != '\n' })
	} else {
		if l.cfg.MultilineCommentSeparateType {
			comment.Type = token.MULTILINE_COMMENT
		}
		comment, err = l.readBlockComment(comment)
	}
	if err != nil {
		return token.Token{}, false, err
	}
	return comment, l.cfg.SkipComments, nil
}

// readBlockComment reads through the closing "*/", or to end of input
func (l *Lexer) readBlockComment(tok token.Token) (token.Token, error) {
	for {
		c, err := l.readByte()
		if errors.Is(err, io.EOF) {
			return tok, nil
		}
		if err != nil {
			return token.Token{}, l.ioFail(err)
		}
		tok.Length++
		tok.Hash = hash.Add64(tok.Hash, c)
		if c != '*' {
			continue
		}

		d, err := l.readByte()
		if errors.Is(err, io.EOF) {
			return tok, nil
		}
		if err != nil {
			return token.Token{}, l.ioFail(err)
		}
		if d == '/' {
			tok.Length++
			tok.Hash = hash.Add64(tok.Hash, d)
			return tok, nil
		}
		// Re-examine d, it may start the terminator itself ("**/")
		if err := l.Unget(); err != nil {
			return token.Token{}, l.ioFail(err)
		}
	}
}

func (l *Lexer) continuesWhitespace(c byte) bool {
	if c == '\n' && l.cfg.TokenizeNewlines {
		return false
	}
	return isWhitespace(c)
}

// isLetter checks if a character is an ASCII letter
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

// isDigit checks if a character is a decimal digit
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

// isNumeric accepts the permissive number alphabet: digits, '.', 'x' and
// hex letters (which include the 'e' exponent and 'f' suffix).
func isNumeric(ch byte) bool {
	return isDigit(ch) || ch == '.' || ch == 'x' || isHexLetter(ch)
}

func isIdent(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_'
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
