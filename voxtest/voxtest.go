// Package voxtest provides helpers for testing code that reads and writes
// VOX files.
//
// Byte layouts are written with Expand, a whitespace-separated mini-language:
//
//	'VOX          ASCII bytes
//	#150          decimal, little-endian uint32
//	96_00_00_00   hex bytes (separators optional)
//	ff*3          repeat the element 3 times
//	00../pad      pad the element to 4 bytes; text after / is a comment
package voxtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"testing"
)

// Logger returns a logger that writes into the test log.
func Logger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(&logWriter{t}, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
	}))
}

type logWriter struct{ t testing.TB }

func (c *logWriter) Write(buf []byte) (int, error) {
	msg := string(buf)
	origLen := len(msg)
	msg = strings.TrimSuffix(msg, "\n")
	c.t.Log(msg)
	return origLen, nil
}

// Chunk builds a chunk header followed by the given content and children,
// computing both lengths.
func Chunk(id string, content []byte, children ...[]byte) []byte {
	if len(id) != 4 {
		panic(fmt.Sprintf("chunk id must be 4 bytes, got %q", id))
	}
	var kids []byte
	for _, c := range children {
		kids = append(kids, c...)
	}
	b := make([]byte, 0, 12+len(content)+len(kids))
	b = append(b, id...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(content)))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(kids)))
	b = append(b, content...)
	b = append(b, kids...)
	return b
}

// File builds a complete VOX file: magic, version and a MAIN chunk holding
// the given children.
func File(version uint32, children ...[]byte) []byte {
	b := []byte("VOX ")
	b = binary.LittleEndian.AppendUint32(b, version)
	return append(b, Chunk("MAIN", nil, children...)...)
}

// Expand decodes byte layouts written in the mini-language described in the
// package documentation.
func Expand(layouts ...string) []byte {
	var b []byte
	for _, layout := range layouts {
		for _, elem := range strings.Fields(layout) {
			base, _, _ := strings.Cut(elem, "/") // comment
			if base == "" {
				continue
			}

			base, repStr, _ := strings.Cut(base, "*")

			rep := 1
			if repStr != "" {
				var err error
				rep, err = strconv.Atoi(repStr)
				if err != nil {
					panic(fmt.Sprintf("invalid repeat count %q in element %q", repStr, elem))
				}
			}

			base, right, padTo4 := strings.Cut(base, "..")

			baseBytes, err := appendDecoding(nil, base)
			if err != nil {
				panic(fmt.Errorf("%w in element %q", err, elem))
			}

			rightBytes, err := appendDecoding(nil, right)
			if err != nil {
				panic(fmt.Errorf("%w in element %q", err, elem))
			}

			for range rep {
				b = append(b, baseBytes...)
				if n := len(baseBytes) + len(rightBytes); padTo4 && n < 4 {
					for range 4 - n {
						b = append(b, 0)
					}
				}
				b = append(b, rightBytes...)
			}
		}
	}
	return b
}

func appendDecoding(data []byte, hex string) ([]byte, error) {
	const none byte = 0xFF

	if decimal, ok := strings.CutPrefix(hex, "#"); ok {
		v, err := strconv.ParseUint(decimal, 10, 32)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint32(data, uint32(v)), nil
	} else if alpha, ok := strings.CutPrefix(hex, "'"); ok {
		return append(data, alpha...), nil
	}

	prev := none
	for _, b := range []byte(hex) {
		var half byte
		switch b {
		case '_', ' ':
			if prev != none {
				data = append(data, prev)
				prev = none
			}
			continue
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			half = b - '0'
		case 'a', 'b', 'c', 'd', 'e', 'f':
			half = b - 'a' + 10
		case 'A', 'B', 'C', 'D', 'E', 'F':
			half = b - 'A' + 10
		default:
			return nil, fmt.Errorf("invalid char '%c'", b)
		}
		if prev == none {
			prev = half
		} else {
			data = append(data, prev<<4|half)
			prev = none
		}
	}
	if prev != none {
		data = append(data, prev)
	}
	return data, nil
}

// HexDump formats b as 8-byte rows, marking the byte at highlightOff with '>'.
func HexDump(b []byte, highlightOff int) string {
	var buf strings.Builder
	var off int
	n := len(b)
	for {
		fmt.Fprintf(&buf, "%08x", off)
		if off >= n {
			buf.WriteByte('\n')
			break
		}
		buf.WriteByte(' ')
		for i := range 8 {
			if off+i >= n {
				buf.WriteString("   ")
			} else {
				if highlightOff >= 0 && off+i == highlightOff {
					buf.WriteByte('>')
				} else {
					buf.WriteByte(' ')
				}
				fmt.Fprintf(&buf, "%02x", b[off+i])
			}
		}
		buf.WriteString("  |")
		for i := range 8 {
			if off+i < n {
				v := b[off+i]
				if v >= 32 && v <= 126 {
					buf.WriteByte(v)
				} else {
					buf.WriteByte('.')
				}
			}
		}
		off += 8
		buf.WriteString("|\n")
		if off >= n {
			break
		}
	}
	return buf.String()
}

// BytesEq reports a hex dump of both values if a and e differ.
func BytesEq(t testing.TB, a, e []byte) bool {
	if !bytes.Equal(a, e) {
		an, en := len(a), len(e)
		off := min(an, en)
		for i := range min(an, en) {
			if a[i] != e[i] {
				off = i
				break
			}
		}

		t.Helper()
		t.Errorf("** got:\n%v\nwanted:\n%v\nfirst difference offset: 0x%x (%d)", HexDump(a, off), HexDump(e, off), off, off)
		return false
	}
	return true
}
