// Package stream provides the seekable byte stream the lexer reads from and
// the rewriter writes to.
package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrShortBuffer is returned by Write on a fixed-size buffer that cannot
// hold the data.
var ErrShortBuffer = errors.New("stream: write past end of fixed buffer")

// Buffer is an in-memory stream. Seeks are clamped to [0, Len()] and reads
// past the end report io.EOF. A growable buffer extends itself on write.
type Buffer struct {
	name   string
	data   []byte
	offset int64
	grow   bool
}

// New wraps data in a fixed-size buffer. The buffer does not copy data.
func New(name string, data []byte) *Buffer {
	return &Buffer{name: name, data: data}
}

// NewWriter creates an empty buffer that grows as it is written to.
func NewWriter(name string) *Buffer {
	return &Buffer{name: name, grow: true}
}

// ReadFile loads a whole file into a buffer named after its path.
func ReadFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return New(path, data), nil
}

func (b *Buffer) Name() string { return b.name }

func (b *Buffer) Len() int { return len(b.data) }

// Bytes returns the buffer contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data }

// Tell returns the current offset.
func (b *Buffer) Tell() int64 { return b.offset }

// EOF reports whether the offset is at the end of the data.
func (b *Buffer) EOF() bool { return b.offset >= int64(len(b.data)) }

func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.EOF() {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.offset:])
	b.offset += int64(n)
	return n, nil
}

func (b *Buffer) ReadByte() (byte, error) {
	if b.EOF() {
		return 0, io.EOF
	}
	c := b.data[b.offset]
	b.offset++
	return c, nil
}

func (b *Buffer) Write(p []byte) (int, error) {
	end := b.offset + int64(len(p))
	if end > int64(len(b.data)) {
		if !b.grow {
			return 0, ErrShortBuffer
		}
		if end > int64(cap(b.data)) {
			grown := make([]byte, end, end*2)
			copy(grown, b.data)
			b.data = grown
		} else {
			b.data = b.data[:end]
		}
	}
	copy(b.data[b.offset:], p)
	b.offset = end
	return len(p), nil
}

// WriteString writes s at the current offset.
func (b *Buffer) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

// Seek moves the offset. The result is clamped to the data bounds rather
// than failing, so a seek before the start lands at 0.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.offset + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return b.offset, fmt.Errorf("stream: invalid whence %d", whence)
	}
	if abs < 0 {
		abs = 0
	}
	if abs > int64(len(b.data)) {
		abs = int64(len(b.data))
	}
	b.offset = abs
	return abs, nil
}
