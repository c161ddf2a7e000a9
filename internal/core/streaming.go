package core

// streaming.go wraps CSV input readers:
//
//   - BOMSkippingReader drops a leading UTF-8 BOM (0xEF 0xBB 0xBF), which
//     spreadsheet exports on Windows commonly add.
//   - LimitedReader fails with ErrFileTooLarge once a byte budget is exceeded,
//     so oversized input is rejected without being held in memory.

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// ErrFileTooLarge is returned when input exceeds the configured size.
var ErrFileTooLarge = errors.New("file too large")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader strips a UTF-8 BOM from the start of a stream.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if bytes.Equal(head, utf8BOM) {
			_, _ = b.r.Discard(len(utf8BOM))
		} else if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
	}
	return b.r.Read(p)
}

// LimitedReader reads at most N bytes from R. Unlike io.LimitReader it
// reports ErrFileTooLarge when the input is longer than N instead of
// silently truncating.
type LimitedReader struct {
	R io.Reader
	N int64
}

// NewLimitedReader wraps r. A non-positive limit disables the check.
func NewLimitedReader(r io.Reader, limit int64) io.Reader {
	if limit <= 0 {
		return r
	}
	return &LimitedReader{R: r, N: limit}
}

// Read implements io.Reader.
func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.N < 0 {
		return 0, ErrFileTooLarge
	}
	// Read one byte past the budget so "exactly N" and "more than N" differ.
	if int64(len(p)) > l.N+1 {
		p = p[:l.N+1]
	}
	n, err := l.R.Read(p)
	l.N -= int64(n)
	if l.N < 0 {
		return n + int(l.N), ErrFileTooLarge
	}
	return n, err
}
