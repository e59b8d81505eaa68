package lexer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	srcerr "github.com/tomdoesdev/cthash/internal/errors"
)

// fail records a fatal error at offset, logs it and makes it sticky
func (l *Lexer) fail(offset int64, cause error, message string) error {
	line, column, excerpt, restoreErr := l.locate(offset, message)
	err := &srcerr.SourceError{
		Message:  message,
		Offset:   offset,
		Line:     line,
		Column:   column,
		Filename: l.cfg.Filename,
		Excerpt:  excerpt,
		Cause:    cause,
	}

	attrs := []any{"file", l.cfg.Filename, "offset", offset, "line", line, "column", column}
	if excerpt != "" {
		attrs = append(attrs, "source", excerpt)
	}
	l.log.Error("lexer: "+message, attrs...)

	l.err = err
	if restoreErr != nil {
		l.log.Error("lexer: stream failure", "file", l.cfg.Filename, "error", restoreErr)
		l.err = errors.Join(err, fmt.Errorf("lexer: stream: %w", restoreErr))
	}
	return l.err
}

// ioFail reports a failure of the underlying stream
func (l *Lexer) ioFail(err error) error {
	if l.err != nil {
		return l.err
	}
	l.err = fmt.Errorf("lexer: stream: %w", err)
	l.log.Error("lexer: stream failure", "file", l.cfg.Filename, "error", err)
	return l.err
}

// locate computes the line and column of offset and, when configured, renders
// the surrounding source. The stream position is restored afterwards; err
// reports a failed restore.
func (l *Lexer) locate(offset int64, message string) (line, column int, excerpt string, err error) {
	saved, err := l.Offset()
	if err != nil {
		return 0, 0, "", err
	}
	defer func() {
		if rerr := l.Rewind(saved); rerr != nil && err == nil {
			err = rerr
		}
	}()

	if err := l.Rewind(0); err != nil {
		return 0, 0, "", nil
	}
	head := make([]byte, offset)
	n, rerr := io.ReadFull(l.r, head)
	if rerr != nil && !errors.Is(rerr, io.ErrUnexpectedEOF) && !errors.Is(rerr, io.EOF) {
		return 0, 0, "", nil
	}
	head = head[:n]

	start := len(head) - excerptRadius
	if start < 0 {
		start = 0
	}
	tail := make([]byte, excerptRadius)
	m, _ := io.ReadFull(l.r, tail)

	window := make([]byte, 0, len(head)-start+m)
	window = append(window, head[start:]...)
	window = append(window, tail[:m]...)

	firstLine := 1 + bytes.Count(head[:start], []byte{'\n'})
	reporter := srcerr.NewExcerptReporter(string(window), l.cfg.Filename, firstLine)
	line, column = reporter.Position(len(head) - start)

	if l.cfg.PrintSourceOnError {
		excerpt = reporter.ReportError(message, line, column)
	}
	return line, column, excerpt, nil
}
