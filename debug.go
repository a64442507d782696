package vox

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/andreyvit/vox/chunk"
)

type DumpFlags uint64

const (
	DumpHeader = DumpFlags(1 << iota)
	DumpContent
	DumpOffsets

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)

	indentStep = "  "

	// content bytes shown per chunk
	dumpContentLimit = 32
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the chunk tree of a VOX file, recursing into the children of
// every chunk, including ones the decoder would skip.
func Dump(r io.ReadSeeker, f DumpFlags) (string, error) {
	var buf strings.Builder

	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", fmt.Errorf("vox: reading file header: %w", err)
	}
	if f.Contains(DumpHeader) {
		fmt.Fprintf(&buf, "%q version %d\n", hdr[:4], binary.LittleEndian.Uint32(hdr[4:]))
	}

	for {
		eof, err := isAtEOF(r)
		if err != nil {
			return buf.String(), err
		}
		if eof {
			break
		}
		top, err := chunk.ReadHeader(r)
		if err != nil {
			return buf.String(), err
		}
		if err := dumpChunk(&buf, r, f, top, ""); err != nil {
			return buf.String(), err
		}
		if _, err := r.Seek(top.End(), io.SeekStart); err != nil {
			return buf.String(), err
		}
	}
	return buf.String(), nil
}

func dumpChunk(w *strings.Builder, r io.ReadSeeker, f DumpFlags, fr chunk.Frame, indent string) error {
	w.WriteString(indent)
	w.WriteString(fr.ID.String())
	if f.Contains(DumpOffsets) {
		fmt.Fprintf(w, " @0x%x", fr.Offset)
	}
	fmt.Fprintf(w, " content=%d children=%d", fr.ContentLen, fr.ChildrenLen)
	if !fr.ID.Known() {
		w.WriteString(" (unknown)")
	}

	if f.Contains(DumpContent) && fr.ContentLen > 0 {
		cr, err := fr.Content(r)
		if err != nil {
			return err
		}
		n := min(int(fr.ContentLen), dumpContentLimit)
		b := make([]byte, n)
		if _, err := io.ReadFull(cr, b); err != nil {
			return err
		}
		w.WriteString(" ")
		w.WriteString(hex.EncodeToString(b))
		if n < int(fr.ContentLen) {
			w.WriteString("...")
		}
	}
	w.WriteByte('\n')

	for child, err := range fr.Children(r) {
		if err != nil {
			return err
		}
		if err := dumpChunk(w, r, f, child, indent+indentStep); err != nil {
			return err
		}
	}
	return nil
}

func isAtEOF(r io.ReadSeeker) (bool, error) {
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return false, err
	}
	if _, err := r.Seek(cur, io.SeekStart); err != nil {
		return false, err
	}
	return cur >= end, nil
}
