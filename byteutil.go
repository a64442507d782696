package vox

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/andreyvit/vox/chunk"
)

// fieldReader decodes little-endian fields from a chunk's content. Short
// reads become *DataError values pointing at the field's offset.
type fieldReader struct {
	cr  *chunk.ContentReader
	buf [4]byte
}

func newFieldReader(cr *chunk.ContentReader) *fieldReader {
	return &fieldReader{cr: cr}
}

func (fr *fieldReader) read(n int, what string) ([]byte, error) {
	off := fr.cr.Offset()
	b := fr.buf[:n]
	_, err := io.ReadFull(fr.cr, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, dataErrf(fr.cr.Frame().ID, off, err, "reading %s", what)
	}
	return b, nil
}

func (fr *fieldReader) U8(what string) (uint8, error) {
	b, err := fr.read(1, what)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (fr *fieldReader) U32(what string) (uint32, error) {
	b, err := fr.read(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (fr *fieldReader) F32(what string) (float32, error) {
	v, err := fr.U32(what)
	return math.Float32frombits(v), err
}

func (fr *fieldReader) Vector(what string) (Vector, error) {
	b, err := fr.read(3, what)
	if err != nil {
		return Vector{}, err
	}
	return Vector{int8(b[0]), int8(b[1]), int8(b[2])}, nil
}

func (fr *fieldReader) Voxel() (Voxel, error) {
	b, err := fr.read(4, "voxel")
	if err != nil {
		return Voxel{}, err
	}
	return Voxel{Vector{int8(b[0]), int8(b[1]), int8(b[2])}, ColorIndex(b[3])}, nil
}

func (fr *fieldReader) Color() (Color, error) {
	b, err := fr.read(4, "color")
	if err != nil {
		return Color{}, err
	}
	return Color{b[0], b[1], b[2], b[3]}, nil
}

func (fr *fieldReader) Offset() int64 {
	return fr.cr.Offset()
}

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

// bytesBuilder accumulates chunk content before it is handed to a
// chunk.Writer.
type bytesBuilder struct {
	Buf []byte
}

func (bb *bytesBuilder) Grow(n int) (off int) {
	off, bb.Buf = grow(bb.Buf, n)
	return
}

func (bb *bytesBuilder) Reset() {
	bb.Buf = bb.Buf[:0]
}

func (bb *bytesBuilder) Len() int {
	return len(bb.Buf)
}

func (bb *bytesBuilder) AppendByte(v byte) {
	off := bb.Grow(1)
	bb.Buf[off] = v
}

func (bb *bytesBuilder) AppendU32(v uint32) {
	off := bb.Grow(4)
	binary.LittleEndian.PutUint32(bb.Buf[off:], v)
}

func (bb *bytesBuilder) AppendF32(v float32) {
	bb.AppendU32(math.Float32bits(v))
}

func (bb *bytesBuilder) AppendVector(v Vector) {
	off := bb.Grow(3)
	bb.Buf[off] = byte(v.X)
	bb.Buf[off+1] = byte(v.Y)
	bb.Buf[off+2] = byte(v.Z)
}

func (bb *bytesBuilder) AppendVoxel(v Voxel) {
	bb.AppendVector(v.Point)
	bb.AppendByte(byte(v.Color))
}

func (bb *bytesBuilder) AppendColor(c Color) {
	off := bb.Grow(4)
	bb.Buf[off] = c.R
	bb.Buf[off+1] = c.G
	bb.Buf[off+2] = c.B
	bb.Buf[off+3] = c.A
}

// FlushTo writes the accumulated bytes to w and empties the builder.
func (bb *bytesBuilder) FlushTo(w io.Writer) error {
	if len(bb.Buf) == 0 {
		return nil
	}
	_, err := w.Write(bb.Buf)
	bb.Reset()
	return err
}
