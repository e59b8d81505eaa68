package errors

import (
	"fmt"
	"strings"
)

// SourceError is a fatal scanning error pinned to a byte offset of the input.
type SourceError struct {
	Message  string
	Offset   int64
	Line     int
	Column   int
	Filename string
	Excerpt  string // rendered source window, empty unless requested
	Cause    error
}

func (e *SourceError) Error() string {
	var b strings.Builder
	if e.Filename != "" {
		fmt.Fprintf(&b, "%s:", e.Filename)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, "%d:%d: ", e.Line, e.Column)
	} else {
		fmt.Fprintf(&b, "offset %d: ", e.Offset)
	}
	b.WriteString(e.Message)
	if e.Excerpt != "" {
		b.WriteString("\n")
		b.WriteString(e.Excerpt)
	}
	return b.String()
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// ErrorReporter renders an annotated view of a source window.
type ErrorReporter struct {
	source    string
	filename  string
	lines     []string
	firstLine int // line number of lines[0]
}

// NewErrorReporter creates a reporter over a complete source text
func NewErrorReporter(source, filename string) *ErrorReporter {
	return NewExcerptReporter(source, filename, 1)
}

// NewExcerptReporter creates a reporter over a window of a larger source
// whose first line is firstLine.
func NewExcerptReporter(excerpt, filename string, firstLine int) *ErrorReporter {
	if firstLine < 1 {
		firstLine = 1
	}
	return &ErrorReporter{
		source:    excerpt,
		filename:  filename,
		lines:     strings.Split(excerpt, "\n"),
		firstLine: firstLine,
	}
}

// Position converts an offset within the reporter's source into a line and
// 1-based column.
func (er *ErrorReporter) Position(offset int) (line, column int) {
	if offset > len(er.source) {
		offset = len(er.source)
	}
	if offset < 0 {
		offset = 0
	}
	before := er.source[:offset]
	line = er.firstLine + strings.Count(before, "\n")
	column = offset - strings.LastIndex(before, "\n")
	return line, column
}

// ReportError formats a Rust-style error message with the surrounding lines
// of the window and a caret under the offending column.
func (er *ErrorReporter) ReportError(message string, line, column int) string {
	idx := line - er.firstLine
	if idx < 0 || idx >= len(er.lines) {
		return fmt.Sprintf("error: %s (line %d outside excerpt)\n", message, line)
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("error: %s\n", message))
	result.WriteString(fmt.Sprintf("  --> %s:%d:%d\n", er.filename, line, column))

	width := len(fmt.Sprintf("%d", er.firstLine+len(er.lines)-1))
	padding := strings.Repeat(" ", width)
	result.WriteString(fmt.Sprintf("%s |\n", padding))

	for i, text := range er.lines {
		text = strings.TrimRight(text, "\r")
		result.WriteString(fmt.Sprintf("%*d | %s\n", width, er.firstLine+i, printable(text)))
		if i != idx {
			continue
		}
		col := column
		if col < 1 {
			col = 1
		}
		pointer := strings.Repeat(" ", col-1) + "^"
		result.WriteString(fmt.Sprintf("%s | %s\n", padding, pointer))
	}
	result.WriteString(fmt.Sprintf("%s |\n", padding))

	return result.String()
}

// printable replaces control bytes so the excerpt keeps its layout.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' {
			return '?'
		}
		return r
	}, s)
}
