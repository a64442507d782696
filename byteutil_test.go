package vox

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/andreyvit/vox/chunk"
	"github.com/andreyvit/vox/voxtest"
)

func TestBytesBuilder(t *testing.T) {
	var bb bytesBuilder
	bb.AppendByte(0x7f)
	bb.AppendU32(0x04030201)
	bb.AppendF32(1)
	bb.AppendVector(Vec(-1, 0, 1))
	bb.AppendVoxel(NewVoxel(2, 3, 4, 255))
	bb.AppendColor(RGBA(0xaa, 0xbb, 0xcc, 0xdd))

	voxtest.BytesEq(t, bb.Buf, expand("7f 01_02_03_04 00_00_80_3f ff_00_01 02_03_04_ff aa_bb_cc_dd"))

	var buf bytes.Buffer
	ensure(bb.FlushTo(&buf))
	if bb.Len() != 0 {
		t.Errorf("Len after FlushTo = %d, wanted 0", bb.Len())
	}
	if buf.Len() != 19 {
		t.Errorf("flushed %d bytes, wanted 19", buf.Len())
	}
}

func TestGrow(t *testing.T) {
	var buf []byte
	for i := range 100 {
		var off int
		off, buf = grow(buf, 3)
		if off != 3*i {
			t.Fatalf("grow #%d off = %d, wanted %d", i, off, 3*i)
		}
		buf[off] = byte(i)
	}
	if len(buf) != 300 {
		t.Errorf("len = %d, wanted 300", len(buf))
	}
	if buf[297] != 99 {
		t.Errorf("buf[297] = %d, wanted 99", buf[297])
	}
}

func TestFieldReader(t *testing.T) {
	data := mkchunk("MATL", expand("#7 02 00_00_00_3f 05_06_07"))
	r := bytes.NewReader(data)
	f := must(chunk.ReadHeader(r))
	fr := must(openFields(r, f))

	if v := must(fr.U32("id")); v != 7 {
		t.Errorf("U32 = %d, wanted 7", v)
	}
	if v := must(fr.U8("type")); v != 2 {
		t.Errorf("U8 = %d, wanted 2", v)
	}
	if v := must(fr.F32("weight")); v != 0.5 {
		t.Errorf("F32 = %v, wanted 0.5", v)
	}
	if off := fr.Offset(); off != 21 {
		t.Errorf("Offset = %d, wanted 21", off)
	}

	_, err := fr.U32("flags")
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("err = %T %v, wanted *DataError", err, err)
	}
	if de.Chunk != chunk.MATL || de.Off != 21 {
		t.Errorf("DataError at %v/%d, wanted MATL/21", de.Chunk, de.Off)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err = %v, wanted io.ErrUnexpectedEOF", err)
	}
	contains(t, err.Error(), "reading flags")
}
