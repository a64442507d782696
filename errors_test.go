package vox

import (
	"errors"
	"io"
	"testing"

	"github.com/andreyvit/vox/chunk"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&MagicError{Got: [4]byte{'R', 'I', 'F', 'F'}}, `got "RIFF"`},
		{&UnexpectedChunkError{Got: chunk.Frame{ID: chunk.Pack, Offset: 8}}, "expected MAIN chunk"},
		{&DuplicateChunkError{First: chunk.Frame{ID: chunk.RGBA, Offset: 20}, Second: chunk.Frame{ID: chunk.RGBA, Offset: 1052}}, "multiple RGBA chunks (at 0x14 and 0x41c)"},
		{&ModelCountError{SizeChunks: 1, VoxelChunks: 1, Declared: 2}, "found 1 SIZE chunks and 1 XYZI chunks, but expected 2 models"},
		{&MaterialTypeError{Got: 9, Off: 36}, "invalid material type 9 at 0x24"},
		{&MaterialTypeError{Got: 9, Off: -1}, "vox: invalid material type 9"},
		{&OverflowError{What: "voxel count", Value: 1234567}, "voxel count 1234567 does not fit into uint32"},
		{dataErrf(chunk.XYZI, 0x30, io.ErrUnexpectedEOF, "reading voxel"), "XYZI chunk at 0x30: reading voxel: unexpected EOF"},
		{dataErrf(chunk.Size, 0x30, nil, "bad"), "SIZE chunk at 0x30: bad"},
	}
	for _, tt := range tests {
		contains(t, tt.err.Error(), tt.want)
	}
}

func TestDataError_unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := dataErrf(chunk.RGBA, 0, inner, "oops")
	if !errors.Is(err, inner) {
		t.Errorf("errors.Is(err, inner) = false, wanted true")
	}
	var de *DataError
	if !errors.As(err, &de) || de.Chunk != chunk.RGBA {
		t.Errorf("errors.As = %v, wanted *DataError for RGBA", de)
	}
}
