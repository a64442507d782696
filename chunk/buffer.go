package chunk

import (
	"errors"
	"io"
)

// Buffer is an in-memory io.WriteSeeker, the write-side counterpart of
// bytes.Reader. Seeking past the end and writing there zero-fills the gap.
type Buffer struct {
	buf []byte
	off int
}

var _ io.WriteSeeker = (*Buffer)(nil)

var errNegativeOffset = errors.New("chunk: negative offset")

// NewBuffer returns a Buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the written data. The slice is only valid until the next
// Write.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len returns the size of the written data.
func (b *Buffer) Len() int {
	return len(b.buf)
}

func (b *Buffer) Write(p []byte) (int, error) {
	end := b.off + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			c := max(2*cap(b.buf), end, 64)
			nb := make([]byte, len(b.buf), c)
			copy(nb, b.buf)
			b.buf = nb
		}
		old := len(b.buf)
		b.buf = b.buf[:end]
		if b.off > old {
			clear(b.buf[old:b.off])
		}
	}
	copy(b.buf[b.off:], p)
	b.off = end
	return len(p), nil
}

func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.off) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("chunk: invalid whence")
	}
	if abs < 0 {
		return 0, errNegativeOffset
	}
	b.off = int(abs)
	return abs, nil
}
