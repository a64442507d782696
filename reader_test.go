package vox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/andreyvit/vox/chunk"
	"github.com/andreyvit/vox/voxtest"
)

var (
	expand  = voxtest.Expand
	mkchunk = voxtest.Chunk
	mkfile  = voxtest.File
)

func TestRead_singleModel(t *testing.T) {
	data := mkfile(150,
		mkchunk("SIZE", expand("01 02 03")),
		mkchunk("XYZI", expand("#2 00_01_02_05 ff_fe_00_ff")),
	)
	d, err := Read(bytes.NewReader(data), Options{Logger: voxtest.Logger(t), Verbose: true})
	if err != nil {
		t.Fatal(err)
	}
	if d.Version != 150 {
		t.Errorf("Version = %d, wanted 150", d.Version)
	}
	deepEq(t, d.Models, []Model{
		{Size: Vec(1, 2, 3), Voxels: []Voxel{NewVoxel(0, 1, 2, 5), NewVoxel(-1, -2, 0, 255)}},
	})
	if !d.Palette.IsDefault() {
		t.Errorf("palette is not the default one")
	}
	if d.Materials.Len() != 0 {
		t.Errorf("Materials.Len() = %d, wanted 0", d.Materials.Len())
	}
}

func TestRead_skipsUnknownChunksWithoutReadingThem(t *testing.T) {
	trn := mkchunk("nTRN", expand("aa*20"), mkchunk("nGRP", expand("bb*8")))
	size := mkchunk("SIZE", expand("01 02 03"))
	data := mkfile(150, size, trn, mkchunk("XYZI", expand("#1 01_02_03_04")))

	// the nTRN chunk follows the file header, MAIN header and SIZE chunk
	trnOff := int64(8 + chunk.HeaderSize + len(size))
	trnEnd := trnOff + int64(len(trn))

	r := &rangeTracker{r: bytes.NewReader(data)}
	d, err := FromReader(r)
	if err != nil {
		t.Fatal(err)
	}
	deepEq(t, d.Models, []Model{
		{Size: Vec(1, 2, 3), Voxels: []Voxel{NewVoxel(1, 2, 3, 4)}},
	})

	for _, rg := range r.reads {
		if rg[0] < trnEnd && rg[1] > trnOff+chunk.HeaderSize {
			t.Errorf("read [%d, %d) touches skipped content [%d, %d)", rg[0], rg[1], trnOff+chunk.HeaderSize, trnEnd)
		}
	}
}

func TestRead_duplicateSingletonChunks(t *testing.T) {
	for _, id := range []string{"PACK", "RGBA"} {
		t.Run(id, func(t *testing.T) {
			var content []byte
			if id == "PACK" {
				content = expand("#1")
			} else {
				content = expand("00*1020")
			}
			first := mkchunk(id, content)
			data := mkfile(150,
				first,
				mkchunk("SIZE", expand("01 01 01")),
				mkchunk(id, content),
				mkchunk("XYZI", expand("#0")),
			)

			_, err := FromBytes(data)
			var de *DuplicateChunkError
			if !errors.As(err, &de) {
				t.Fatalf("err = %T %v, wanted *DuplicateChunkError", err, err)
			}
			if de.First.ID != chunk.IDOf(id) || de.Second.ID != chunk.IDOf(id) {
				t.Errorf("ids = %v, %v, wanted %s", de.First.ID, de.Second.ID, id)
			}
			firstOff := int64(8 + chunk.HeaderSize)
			secondOff := firstOff + int64(len(first)) + 15
			if de.First.Offset != firstOff || de.Second.Offset != secondOff {
				t.Errorf("offsets = %d, %d, wanted %d, %d", de.First.Offset, de.Second.Offset, firstOff, secondOff)
			}
		})
	}
}

func TestRead_modelCountMismatch(t *testing.T) {
	data := mkfile(150,
		mkchunk("PACK", expand("#2")),
		mkchunk("SIZE", expand("01 01 01")),
		mkchunk("XYZI", expand("#0")),
	)
	_, err := FromBytes(data)
	var ce *ModelCountError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %T %v, wanted *ModelCountError", err, err)
	}
	deepEq(t, *ce, ModelCountError{SizeChunks: 1, VoxelChunks: 1, Declared: 2})
}

func TestRead_noModelsWithoutPack(t *testing.T) {
	_, err := FromBytes(mkfile(150))
	var ce *ModelCountError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %T %v, wanted *ModelCountError", err, err)
	}
	deepEq(t, *ce, ModelCountError{SizeChunks: 0, VoxelChunks: 0, Declared: 1})
}

func TestRead_badMagic(t *testing.T) {
	_, err := FromBytes(expand("'VOXX #150"))
	var me *MagicError
	if !errors.As(err, &me) {
		t.Fatalf("err = %T %v, wanted *MagicError", err, err)
	}
	if string(me.Got[:]) != "VOXX" {
		t.Errorf("Got = %q, wanted VOXX", me.Got[:])
	}
}

func TestRead_unexpectedTopChunk(t *testing.T) {
	data := append(expand("'VOX 20 #150"), mkchunk("PACK", expand("#1"))...)
	_, err := FromBytes(data)
	var ue *UnexpectedChunkError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %T %v, wanted *UnexpectedChunkError", err, err)
	}
	if ue.Got.ID != chunk.Pack || ue.Got.Offset != 8 {
		t.Errorf("Got = %v, wanted PACK at 8", ue.Got)
	}
}

func TestRead_truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", expand("'VOX 20 96")},
		{"no main", expand("'VOX 20 #150")},
		{"short main", expand("'VOX 20 #150 'MAIN #0")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBytes(tt.data)
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Fatalf("err = %v, wanted io.ErrUnexpectedEOF", err)
			}
		})
	}
}

func TestRead_truncatedVoxelList(t *testing.T) {
	data := mkfile(150,
		mkchunk("SIZE", expand("01 01 01")),
		mkchunk("XYZI", expand("#2 00_00_00_01")),
	)
	_, err := FromBytes(data)
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("err = %T %v, wanted *DataError", err, err)
	}
	if de.Chunk != chunk.XYZI {
		t.Errorf("Chunk = %v, wanted XYZI", de.Chunk)
	}
	// header 8, MAIN 12, SIZE 15, XYZI header 12, count 4, one voxel 4
	if e := int64(8 + 12 + 15 + 12 + 4 + 4); de.Off != e {
		t.Errorf("Off = %d, wanted %d", de.Off, e)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err = %v, wanted io.ErrUnexpectedEOF", err)
	}
}

func TestRead_shortSize(t *testing.T) {
	data := mkfile(150,
		mkchunk("SIZE", expand("01 01")),
		mkchunk("XYZI", expand("#0")),
	)
	_, err := FromBytes(data)
	var de *DataError
	if !errors.As(err, &de) || de.Chunk != chunk.Size {
		t.Fatalf("err = %T %v, wanted *DataError in SIZE", err, err)
	}
}

func TestRead_paletteByteOrder(t *testing.T) {
	data := mkfile(150,
		mkchunk("SIZE", expand("01 01 01")),
		mkchunk("XYZI", expand("#0")),
		mkchunk("RGBA", expand("11_22_33_44 00*1012 aa_bb_cc_dd")),
	)
	d, err := FromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if c, e := d.Palette.Get(1), RGBA(0x11, 0x22, 0x33, 0x44); c != e {
		t.Errorf("Colors[1] = %v, wanted %v", c, e)
	}
	if c, e := d.Palette.Get(255), RGBA(0xaa, 0xbb, 0xcc, 0xdd); c != e {
		t.Errorf("Colors[255] = %v, wanted %v", c, e)
	}
	if c, e := d.Palette.Get(2), (Color{}); c != e {
		t.Errorf("Colors[2] = %v, wanted %v", c, e)
	}
	if c, e := d.Palette.Get(0), defaultPalette.Get(0); c != e {
		t.Errorf("Colors[0] = %v, wanted default %v", c, e)
	}
}

func TestRead_materials(t *testing.T) {
	data := mkfile(150,
		mkchunk("SIZE", expand("01 01 01")),
		mkchunk("XYZI", expand("#0")),
		// plastic and specular only
		mkchunk("MATL", expand("#7 01 00_00_00_3f #5 00_00_80_3e 00_00_80_3f")),
		// total power carries no payload
		mkchunk("MATL", expand("#9 03 00_00_80_3f #128")),
	)
	d, err := FromBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	deepEq(t, d.Materials.IDs(), []uint32{7, 9})

	m, _ := d.Materials.Get(7)
	deepEq(t, m, Material{Type: Metal, Weight: 0.5, Flags: HasPlastic | HasSpecular, Plastic: 0.25, Specular: 1})
	if v, ok := m.Get(HasRoughness); ok || v != 0 {
		t.Errorf("Get(HasRoughness) = %v, %v, wanted 0, false", v, ok)
	}
	if n := m.PresentCount(); n != 2 {
		t.Errorf("PresentCount = %d, wanted 2", n)
	}

	m, _ = d.Materials.Get(9)
	deepEq(t, m, Material{Type: Emissive, Weight: 1, Flags: TotalPower})
	if !m.IsTotalPower() {
		t.Errorf("IsTotalPower = false, wanted true")
	}
	if n := m.PresentCount(); n != 0 {
		t.Errorf("PresentCount = %d, wanted 0", n)
	}
}

func TestRead_invalidMaterialType(t *testing.T) {
	data := mkfile(150,
		mkchunk("MATL", expand("#1 04 00_00_80_3f #0")),
		mkchunk("SIZE", expand("01 01 01")),
		mkchunk("XYZI", expand("#0")),
	)
	_, err := FromBytes(data)
	var me *MaterialTypeError
	if !errors.As(err, &me) {
		t.Fatalf("err = %T %v, wanted *MaterialTypeError", err, err)
	}
	// header 8, MAIN 12, MATL header 12, id 4
	if me.Got != 4 || me.Off != 36 {
		t.Errorf("got type %d at %d, wanted 4 at 36", me.Got, me.Off)
	}
}

func TestRead_truncatedMaterial(t *testing.T) {
	data := mkfile(150,
		mkchunk("MATL", expand("#1 00 00_00_80_3f #3 00_00_80_3f")),
		mkchunk("SIZE", expand("01 01 01")),
		mkchunk("XYZI", expand("#0")),
	)
	_, err := FromBytes(data)
	var de *DataError
	if !errors.As(err, &de) || de.Chunk != chunk.MATL {
		t.Fatalf("err = %T %v, wanted *DataError in MATL", err, err)
	}
}

func TestReadInto_eventOrder(t *testing.T) {
	data := mkfile(150,
		mkchunk("PACK", expand("#2")),
		mkchunk("SIZE", expand("01 02 03")),
		mkchunk("XYZI", expand("#1 00_00_00_01")),
		mkchunk("SIZE", expand("04 05 06")),
		mkchunk("XYZI", expand("#2 01_01_01_02 02_02_02_03")),
		mkchunk("MATL", expand("#3 00 00_00_80_3f #0")),
		mkchunk("RGBA", expand("00*1020")),
	)
	var rec recordingSink
	if err := ReadInto(bytes.NewReader(data), &rec, Options{}); err != nil {
		t.Fatal(err)
	}
	deepEq(t, rec.events, []string{
		"version 150",
		"palette",
		"material 3",
		"models 2",
		"size (1, 2, 3)",
		"voxel (0, 0, 0)#1",
		"size (4, 5, 6)",
		"voxel (1, 1, 1)#2",
		"voxel (2, 2, 2)#3",
	})
}

func TestReadInto_noPaletteEvent(t *testing.T) {
	data := mkfile(200,
		mkchunk("SIZE", expand("01 01 01")),
		mkchunk("XYZI", expand("#0")),
	)
	var rec basicSink
	if err := ReadInto(bytes.NewReader(data), &rec, Options{}); err != nil {
		t.Fatal(err)
	}
	deepEq(t, rec.events, []string{"version 200", "models 1", "size (1, 1, 1)"})
}

func TestRead_versionPassthrough(t *testing.T) {
	data := mkfile(7,
		mkchunk("SIZE", expand("01 01 01")),
		mkchunk("XYZI", expand("#0")),
	)
	d := must(FromBytes(data))
	if d.Version != 7 {
		t.Errorf("Version = %d, wanted 7", d.Version)
	}
}

// basicSink does not implement MaterialSink.
type basicSink struct {
	events []string
}

func (s *basicSink) log(format string, args ...any) {
	s.events = append(s.events, fmt.Sprintf(format, args...))
}

func (s *basicSink) SetVersion(v Version) { s.log("version %d", v) }
func (s *basicSink) SetPalette(p *Palette) { s.log("palette") }
func (s *basicSink) SetModelCount(n int) { s.log("models %d", n) }
func (s *basicSink) SetModelSize(size Vector) { s.log("size %v", size) }
func (s *basicSink) AddVoxel(v Voxel) { s.log("voxel %v", v) }

type recordingSink struct {
	basicSink
}

func (s *recordingSink) SetMaterial(id uint32, m Material) { s.log("material %d", id) }

type rangeTracker struct {
	r     *bytes.Reader
	reads [][2]int64
}

func (rt *rangeTracker) Read(p []byte) (int, error) {
	off, _ := rt.r.Seek(0, io.SeekCurrent)
	n, err := rt.r.Read(p)
	if n > 0 {
		rt.reads = append(rt.reads, [2]int64{off, off + int64(n)})
	}
	return n, err
}

func (rt *rangeTracker) Seek(offset int64, whence int) (int64, error) {
	return rt.r.Seek(offset, whence)
}

func deepEq[T any](t testing.TB, a, e T) bool {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %+v, wanted %+v", a, e)
		return false
	}
	return true
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func contains(t testing.TB, s, substr string) {
	if !strings.Contains(s, substr) {
		t.Helper()
		t.Errorf("** %q does not contain %q", s, substr)
	}
}
