package vox

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/andreyvit/vox/chunk"
	"github.com/andreyvit/vox/mmap"
)

// voxel content is flushed into the chunk writer in pieces of this size
const flushThreshold = 64 * 1024

// Write encodes d into w: the file header, then a MAIN chunk holding an
// optional PACK chunk, a SIZE and XYZI chunk per model, an RGBA chunk unless
// the palette is the default one, and a MATL chunk per material.
func Write(w io.WriteSeeker, d *Data, o Options) error {
	version := d.Version
	if version == 0 {
		version = DefaultVersion
	}

	bb := bytesBuilder{Buf: contentBytesPool.Get().([]byte)}
	defer func() {
		releaseContentBytes(bb.Buf)
	}()

	bb.Buf = append(bb.Buf, Magic...)
	bb.AppendU32(uint32(version))
	if err := bb.FlushTo(w); err != nil {
		return err
	}

	cw, err := chunk.NewWriter(w)
	if err != nil {
		return err
	}
	err = cw.Chunk(chunk.Main, func(cw *chunk.Writer) error {
		return writeChildren(cw, d, &bb)
	})
	if err != nil {
		return err
	}

	if o.Verbose {
		o.logger().LogAttrs(context.Background(), slog.LevelDebug, "vox: encoded", slog.Int("models", len(d.Models)), slog.Bool("palette", !d.Palette.IsDefault()), slog.Int("materials", d.Materials.Len()), slog.Int64("size", cw.Offset()))
	}
	return nil
}

func writeChildren(cw *chunk.Writer, d *Data, bb *bytesBuilder) error {
	n := len(d.Models)
	if n == 0 {
		return ErrNoModels
	}
	if uint64(n) > math.MaxUint32 {
		return &OverflowError{What: "model count", Value: n}
	}
	if n > 1 {
		bb.AppendU32(uint32(n))
		if err := writeContentChunk(cw, chunk.Pack, bb); err != nil {
			return err
		}
	}

	for i := range d.Models {
		m := &d.Models[i]

		bb.AppendVector(m.Size)
		if err := writeContentChunk(cw, chunk.Size, bb); err != nil {
			return err
		}

		if err := writeVoxels(cw, m.Voxels, bb); err != nil {
			return err
		}
	}

	if !d.Palette.IsDefault() {
		for _, c := range d.Palette.Colors[1:] {
			bb.AppendColor(c)
		}
		if err := writeContentChunk(cw, chunk.RGBA, bb); err != nil {
			return err
		}
	}

	for id, m := range d.Materials.All() {
		if !m.Type.Valid() {
			return &MaterialTypeError{Got: uint8(m.Type), Off: -1}
		}
		appendMaterial(bb, id, &m)
		if err := writeContentChunk(cw, chunk.MATL, bb); err != nil {
			return err
		}
	}
	return nil
}

func writeContentChunk(cw *chunk.Writer, id chunk.ID, bb *bytesBuilder) error {
	return cw.Chunk(id, func(cw *chunk.Writer) error {
		return bb.FlushTo(cw)
	})
}

func writeVoxels(cw *chunk.Writer, voxels []Voxel, bb *bytesBuilder) error {
	if uint64(len(voxels)) > math.MaxUint32 {
		return &OverflowError{What: "voxel count", Value: len(voxels)}
	}
	return cw.Chunk(chunk.XYZI, func(cw *chunk.Writer) error {
		bb.AppendU32(uint32(len(voxels)))
		for _, v := range voxels {
			bb.AppendVoxel(v)
			if bb.Len() >= flushThreshold {
				if err := bb.FlushTo(cw); err != nil {
					return err
				}
			}
		}
		return bb.FlushTo(cw)
	})
}

func appendMaterial(bb *bytesBuilder, id uint32, m *Material) {
	bb.AppendU32(id)
	bb.AppendByte(byte(m.Type))
	bb.AppendF32(m.Weight)
	bb.AppendU32(uint32(m.Flags))
	for i, p := range m.props() {
		if m.Flags.Contains(MaterialFlags(1) << i) {
			bb.AppendF32(*p)
		}
	}
}

// ToWriter encodes d into w using default options.
func ToWriter(w io.WriteSeeker, d *Data) error {
	return Write(w, d, Options{})
}

// ToBytes encodes d into a new byte slice.
func ToBytes(d *Data) ([]byte, error) {
	buf := chunk.NewBuffer(1024)
	if err := ToWriter(buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToFile encodes d into the named file, replacing it. The file is synced
// before ToFile returns; on failure, the partially written file is removed.
func ToFile(path string, d *Data) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	var ok bool
	defer closeAndDeleteUnlessOK(f, &ok)

	if err := ToWriter(f, d); err != nil {
		return err
	}
	if err := mmap.Fdatasync(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		ok = true // closed already
		os.Remove(path)
		return err
	}
	ok = true
	return nil
}

func closeAndDeleteUnlessOK(f *os.File, ok *bool) {
	if *ok {
		return
	}
	f.Close()
	os.Remove(f.Name())
}
