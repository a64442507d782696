package voxtest

import (
	"bytes"
	"testing"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		layout string
		want   []byte
	}{
		{"", nil},
		{"01 02_03 0405", []byte{1, 2, 3, 4, 5}},
		{"'VOX 20", []byte("VOX ")},
		{"#150", []byte{150, 0, 0, 0}},
		{"#65536", []byte{0, 0, 1, 0}},
		{"ab*3", []byte{0xab, 0xab, 0xab}},
		{"01..", []byte{1, 0, 0, 0}},
		{"01..02", []byte{1, 0, 0, 2}},
		{"ff/comment 01", []byte{0xff, 1}},
		{"07..*2", []byte{7, 0, 0, 0, 7, 0, 0, 0}},
	}
	for _, tt := range tests {
		if got := Expand(tt.layout); !bytes.Equal(got, tt.want) {
			t.Errorf("Expand(%q) = %x, wanted %x", tt.layout, got, tt.want)
		}
	}
}

func TestExpand_invalid(t *testing.T) {
	for _, layout := range []string{"zz", "#x", "01*y"} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Expand(%q) did not panic", layout)
				}
			}()
			Expand(layout)
		}()
	}
}

func TestChunkAndFile(t *testing.T) {
	c := Chunk("SIZE", []byte{1, 2, 3})
	BytesEq(t, c, Expand("'SIZE #3 #0 01_02_03"))

	f := File(150, c)
	BytesEq(t, f, Expand("'VOX 20 #150 'MAIN #0 #15 'SIZE #3 #0 01_02_03"))
}

func TestHexDump(t *testing.T) {
	got := HexDump([]byte("VOX \x96\x00\x00\x00MA"), 8)
	want := "00000000  56 4f 58 20 96 00 00 00  |VOX ....|\n" +
		"00000008 >4d 41                    |MA|\n"
	if got != want {
		t.Errorf("HexDump got:\n%s\nwanted:\n%s", got, want)
	}
}
