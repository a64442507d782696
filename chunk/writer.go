package chunk

import (
	"fmt"
	"io"
	"math"
)

// Writer emits nested chunks into a seekable sink.
//
// Open writes a header with zero lengths and pushes a pending frame; Write
// appends content to the innermost open chunk; Close pops the frame, patches
// its header with the measured lengths and returns to the end of the chunk.
// Chunks must be closed in LIFO order.
//
// Content of a chunk must be written before its first child is opened.
type Writer struct {
	w     io.WriteSeeker
	pos   int64
	stack []pendingFrame
}

type pendingFrame struct {
	id            ID
	headerOff     int64
	contentOff    int64
	childrenOff   int64 // -1 until the first child is opened
	contentClosed bool
}

var _ io.Writer = (*Writer)(nil)

// NewWriter returns a Writer that starts emitting chunks at the current
// position of w.
func NewWriter(w io.WriteSeeker) (*Writer, error) {
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &Writer{w: w, pos: pos}, nil
}

// Offset returns the current write position.
func (cw *Writer) Offset() int64 {
	return cw.pos
}

// Depth returns the number of open chunks.
func (cw *Writer) Depth() int {
	return len(cw.stack)
}

// Open starts a new chunk, nested inside the currently open one if any.
func (cw *Writer) Open(id ID) error {
	if n := len(cw.stack); n > 0 {
		parent := &cw.stack[n-1]
		if parent.childrenOff < 0 {
			parent.childrenOff = cw.pos
			parent.contentClosed = true
		}
	}

	headerOff := cw.pos
	var buf [HeaderSize]byte
	putHeader(buf[:], id, 0, 0)
	if _, err := cw.write(buf[:]); err != nil {
		return err
	}

	cw.stack = append(cw.stack, pendingFrame{
		id:          id,
		headerOff:   headerOff,
		contentOff:  cw.pos,
		childrenOff: -1,
	})
	return nil
}

// Write appends p to the content of the innermost open chunk.
func (cw *Writer) Write(p []byte) (int, error) {
	n := len(cw.stack)
	if n == 0 {
		panic("chunk: Write called with no open chunk")
	}
	if cw.stack[n-1].contentClosed {
		panic(fmt.Errorf("chunk: content written to %v after its children", cw.stack[n-1].id))
	}
	return cw.write(p)
}

func (cw *Writer) write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.pos += int64(n)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// Close finishes the innermost open chunk and patches its header.
func (cw *Writer) Close() error {
	n := len(cw.stack)
	if n == 0 {
		panic("chunk: Close called with no open chunk")
	}
	pf := cw.stack[n-1]
	cw.stack = cw.stack[:n-1]

	end := cw.pos
	contentEnd := end
	if pf.childrenOff >= 0 {
		contentEnd = pf.childrenOff
	}
	contentLen := contentEnd - pf.contentOff
	childrenLen := end - contentEnd
	if contentLen > math.MaxUint32 {
		return &OverflowError{ID: pf.id, Field: "content length", Value: contentLen}
	}
	if childrenLen > math.MaxUint32 {
		return &OverflowError{ID: pf.id, Field: "children length", Value: childrenLen}
	}

	var buf [HeaderSize]byte
	putHeader(buf[:], pf.id, uint32(contentLen), uint32(childrenLen))

	if _, err := cw.w.Seek(pf.headerOff+4, io.SeekStart); err != nil {
		return errf(pf.headerOff, err, "seeking to header of %v", pf.id)
	}
	if _, err := cw.w.Write(buf[4:]); err != nil {
		return errf(pf.headerOff, err, "patching header of %v", pf.id)
	}
	if _, err := cw.w.Seek(end, io.SeekStart); err != nil {
		return errf(end, err, "seeking past %v", pf.id)
	}
	return nil
}

// Chunk opens a chunk, runs fn to produce its content and children, and closes
// it. Any chunks fn leaves open are closed as well, including when fn fails,
// in which case fn's error is returned.
func (cw *Writer) Chunk(id ID, fn func(cw *Writer) error) error {
	depth := len(cw.stack)
	if err := cw.Open(id); err != nil {
		return err
	}
	err := fn(cw)
	closeErr := cw.closeTo(depth)
	if err != nil {
		return err
	}
	return closeErr
}

// ContentChunk is a shorthand for a chunk that only has content.
func (cw *Writer) ContentChunk(id ID, content []byte) error {
	return cw.Chunk(id, func(cw *Writer) error {
		_, err := cw.Write(content)
		return err
	})
}

func (cw *Writer) closeTo(depth int) error {
	var firstErr error
	for len(cw.stack) > depth {
		if err := cw.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OverflowError is returned when a measured length does not fit into the
// 32-bit header field.
type OverflowError struct {
	ID    ID
	Field string
	Value int64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("chunk: %v %s %d does not fit into uint32", e.ID, e.Field, e.Value)
}
