// Package chunk implements the RIFF-style framing used by VOX files.
//
// Every chunk is laid out as
//
//	id:4 contentLen:u32 childrenLen:u32 content:contentLen children:childrenLen
//
// with all integers little-endian. Children are chunks framed the same way,
// to arbitrary depth. Since both lengths are declared upfront, a reader can
// skip any chunk (and its whole subtree) with a single seek.
//
// Reading is lazy: ReadHeader decodes a single header, Frame.Children walks
// the direct children by seeking from header to header, and Frame.Content
// returns a reader bounded to exactly the chunk's content.
//
// Writing goes through Writer, which emits placeholder lengths and patches
// them when the chunk is closed.
package chunk

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
)

// HeaderSize is the size of a chunk header: id, content length, children length.
const HeaderSize = 12

// ID is a 4-byte chunk identifier.
type ID [4]byte

var (
	Main = ID{'M', 'A', 'I', 'N'}
	Pack = ID{'P', 'A', 'C', 'K'}
	Size = ID{'S', 'I', 'Z', 'E'}
	XYZI = ID{'X', 'Y', 'Z', 'I'}
	RGBA = ID{'R', 'G', 'B', 'A'}
	MATL = ID{'M', 'A', 'T', 'L'}

	// Scene graph and editor chunks. Decoders never interpret these; they
	// are listed so that dumps and logs can name them.
	Transform = ID{'n', 'T', 'R', 'N'}
	Group     = ID{'n', 'G', 'R', 'P'}
	Shape     = ID{'n', 'S', 'H', 'P'}
	Layer     = ID{'L', 'A', 'Y', 'R'}
	RenderObj = ID{'r', 'O', 'B', 'J'}
	Camera    = ID{'r', 'C', 'A', 'M'}
	Note      = ID{'N', 'O', 'T', 'E'}
	IndexMap  = ID{'I', 'M', 'A', 'P'}
)

var knownIDs = map[ID]bool{
	Main: true, Pack: true, Size: true, XYZI: true, RGBA: true, MATL: true,
	Transform: true, Group: true, Shape: true, Layer: true,
	RenderObj: true, Camera: true, Note: true, IndexMap: true,
}

// IDOf converts a 4-character string into an ID. Panics if s is not exactly
// 4 bytes long.
func IDOf(s string) ID {
	if len(s) != 4 {
		panic(fmt.Errorf("chunk id must be 4 bytes, got %q", s))
	}
	var id ID
	copy(id[:], s)
	return id
}

// Known reports whether id is one of the ids defined by the VOX format.
func (id ID) Known() bool {
	return knownIDs[id]
}

func (id ID) String() string {
	for _, b := range id {
		if b < 32 || b > 126 {
			return fmt.Sprintf("%x", id[:])
		}
	}
	return string(id[:])
}

// Frame describes a chunk header found in a byte source.
type Frame struct {
	ID          ID
	Offset      int64 // offset of the header
	ContentLen  uint32
	ChildrenLen uint32
}

// ContentOffset returns the offset of the first content byte.
func (f Frame) ContentOffset() int64 {
	return f.Offset + HeaderSize
}

// ChildrenOffset returns the offset of the first child header.
func (f Frame) ChildrenOffset() int64 {
	return f.ContentOffset() + int64(f.ContentLen)
}

// End returns the offset of the next sibling.
func (f Frame) End() int64 {
	return f.ChildrenOffset() + int64(f.ChildrenLen)
}

// Size returns the total number of bytes occupied by the chunk, header included.
func (f Frame) Size() int64 {
	return f.End() - f.Offset
}

func (f Frame) String() string {
	return fmt.Sprintf("%v@0x%x(content=%d, children=%d)", f.ID, f.Offset, f.ContentLen, f.ChildrenLen)
}

func putHeader(buf []byte, id ID, contentLen, childrenLen uint32) {
	copy(buf[0:4], id[:])
	binary.LittleEndian.PutUint32(buf[4:8], contentLen)
	binary.LittleEndian.PutUint32(buf[8:12], childrenLen)
}

func decodeHeader(buf []byte, off int64) Frame {
	var f Frame
	copy(f.ID[:], buf[0:4])
	f.Offset = off
	f.ContentLen = binary.LittleEndian.Uint32(buf[4:8])
	f.ChildrenLen = binary.LittleEndian.Uint32(buf[8:12])
	return f
}

// ReadHeader reads a chunk header at the current position of r. The declared
// lengths are not checked against the size of r; overruns are detected later
// when the content is read.
func ReadHeader(r io.ReadSeeker) (Frame, error) {
	off, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return Frame{}, err
	}
	return readHeaderAt(r, off)
}

func readHeaderAt(r io.Reader, off int64) (Frame, error) {
	var buf [HeaderSize]byte
	_, err := io.ReadFull(r, buf[:])
	if err == io.EOF {
		return Frame{}, errf(off, io.ErrUnexpectedEOF, "missing chunk header")
	} else if err == io.ErrUnexpectedEOF {
		return Frame{}, errf(off, err, "truncated chunk header")
	} else if err != nil {
		return Frame{}, errf(off, err, "reading chunk header")
	}
	return decodeHeader(buf[:], off), nil
}

// Children returns the direct children of f in file order. Each step seeks
// to the next header, so content that the caller does not read, and the
// subtrees of children, are never touched.
//
// The returned sequence is single-pass, but every call to Children starts
// over from the first child. The first error terminates the sequence.
func (f Frame) Children(r io.ReadSeeker) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		cur := f.ChildrenOffset()
		end := f.End()
		for cur < end {
			if end-cur < HeaderSize {
				yield(Frame{}, errf(cur, nil, "%d trailing bytes in children of %v, not enough for a chunk header", end-cur, f.ID))
				return
			}
			if _, err := r.Seek(cur, io.SeekStart); err != nil {
				yield(Frame{}, errf(cur, err, "seeking to child of %v", f.ID))
				return
			}
			child, err := readHeaderAt(r, cur)
			if err != nil {
				yield(Frame{}, err)
				return
			}
			if !yield(child, nil) {
				return
			}
			cur = child.End()
		}
	}
}

// Content seeks to the content of f and returns a reader limited to exactly
// f.ContentLen bytes. The reader shares the position of r, so it must be
// consumed before r is used for anything else.
func (f Frame) Content(r io.ReadSeeker) (*ContentReader, error) {
	if _, err := r.Seek(f.ContentOffset(), io.SeekStart); err != nil {
		return nil, errf(f.ContentOffset(), err, "seeking to content of %v", f.ID)
	}
	return &ContentReader{r: r, frame: f, remaining: int64(f.ContentLen)}, nil
}

// ContentReader reads the content of a single chunk. It returns io.EOF once
// ContentLen bytes have been read, even if the source has more data, and
// io.ErrUnexpectedEOF if the source ends early.
type ContentReader struct {
	r         io.Reader
	frame     Frame
	remaining int64
}

var _ io.Reader = (*ContentReader)(nil)

func (cr *ContentReader) Read(p []byte) (int, error) {
	if cr.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > cr.remaining {
		p = p[:cr.remaining]
	}
	n, err := cr.r.Read(p)
	cr.remaining -= int64(n)
	if err == io.EOF {
		if cr.remaining > 0 {
			return n, io.ErrUnexpectedEOF
		}
		err = nil
	}
	return n, err
}

// Frame returns the chunk being read.
func (cr *ContentReader) Frame() Frame {
	return cr.frame
}

// Remaining returns the number of content bytes not read yet.
func (cr *ContentReader) Remaining() int64 {
	return cr.remaining
}

// Offset returns the absolute source offset of the next byte to be read.
func (cr *ContentReader) Offset() int64 {
	return cr.frame.ChildrenOffset() - cr.remaining
}

// Error describes a framing failure at a given source offset.
type Error struct {
	Off int64
	Err error
	Msg string
}

func errf(off int64, err error, format string, args ...any) error {
	return &Error{off, err, fmt.Sprintf(format, args...)}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chunk: %s at 0x%x: %v", e.Msg, e.Off, e.Err)
	} else {
		return fmt.Sprintf("chunk: %s at 0x%x", e.Msg, e.Off)
	}
}
