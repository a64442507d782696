package vox

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/andreyvit/vox/chunk"
	"github.com/andreyvit/vox/mmap"
)

// Magic is the literal every VOX file starts with.
const Magic = "VOX "

// Options configure reading and writing.
type Options struct {
	Logger *slog.Logger

	// Verbose enables per-chunk debug logging.
	Verbose bool
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// ReadInto decodes a VOX file from r and delivers its contents to sink.
// The whole file is decoded in one pass; the first error aborts it.
func ReadInto(r io.ReadSeeker, sink Sink, o Options) error {
	logger := o.logger()
	ctx := context.Background()

	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("vox: reading file header: %w", err)
	}
	if string(hdr[:4]) != Magic {
		return &MagicError{Got: [4]byte(hdr[:4])}
	}
	version := Version(binary.LittleEndian.Uint32(hdr[4:]))
	sink.SetVersion(version)

	main, err := chunk.ReadHeader(r)
	if err != nil {
		return err
	}
	if main.ID != chunk.Main {
		return &UnexpectedChunkError{Got: main}
	}
	if o.Verbose {
		logger.LogAttrs(ctx, slog.LevelDebug, "vox: main chunk", slog.Uint64("version", uint64(version)), slog.Int64("content", int64(main.ContentLen)), slog.Int64("children", int64(main.ChildrenLen)))
	}

	var (
		packChunk  *chunk.Frame
		rgbaChunk  *chunk.Frame
		sizeChunks []chunk.Frame
		xyziChunks []chunk.Frame
		matlChunks []chunk.Frame
		skipped    int
	)
	for f, err := range main.Children(r) {
		if err != nil {
			return err
		}
		switch f.ID {
		case chunk.Pack:
			if packChunk != nil {
				return &DuplicateChunkError{First: *packChunk, Second: f}
			}
			packChunk = &f
		case chunk.RGBA:
			if rgbaChunk != nil {
				return &DuplicateChunkError{First: *rgbaChunk, Second: f}
			}
			rgbaChunk = &f
		case chunk.Size:
			sizeChunks = append(sizeChunks, f)
		case chunk.XYZI:
			xyziChunks = append(xyziChunks, f)
		case chunk.MATL:
			matlChunks = append(matlChunks, f)
		default:
			skipped++
			if o.Verbose {
				logger.LogAttrs(ctx, slog.LevelDebug, "vox: skipping chunk", slog.String("chunk", f.ID.String()), slog.Int64("off", f.Offset), slog.Int64("size", f.Size()))
			}
		}
	}

	// The palette goes first, so that sinks can resolve voxel colors.
	if rgbaChunk != nil {
		palette, err := readPalette(r, *rgbaChunk)
		if err != nil {
			return err
		}
		sink.SetPalette(palette)
	} else if o.Verbose {
		logger.LogAttrs(ctx, slog.LevelDebug, "vox: no RGBA chunk, using default palette")
	}

	if ms, ok := sink.(MaterialSink); ok {
		for _, f := range matlChunks {
			id, mat, err := readMaterial(r, f)
			if err != nil {
				return err
			}
			ms.SetMaterial(id, mat)
		}
	}

	numModels := 1
	if packChunk != nil {
		n, err := readModelCount(r, *packChunk)
		if err != nil {
			return err
		}
		numModels = n
	}
	if numModels != len(sizeChunks) || numModels != len(xyziChunks) {
		return &ModelCountError{
			SizeChunks:  len(sizeChunks),
			VoxelChunks: len(xyziChunks),
			Declared:    numModels,
		}
	}
	sink.SetModelCount(numModels)

	for i := range numModels {
		size, err := readModelSize(r, sizeChunks[i])
		if err != nil {
			return err
		}
		sink.SetModelSize(size)

		n, err := readVoxels(r, xyziChunks[i], sink)
		if err != nil {
			return err
		}
		if o.Verbose {
			logger.LogAttrs(ctx, slog.LevelDebug, "vox: model", slog.Int("model", i), slog.String("size", size.String()), slog.Int("voxels", n))
		}
	}

	if o.Verbose {
		logger.LogAttrs(ctx, slog.LevelDebug, "vox: decoded", slog.Int("models", numModels), slog.Int("materials", len(matlChunks)), slog.Int("skipped", skipped))
	}
	return nil
}

func readModelCount(r io.ReadSeeker, f chunk.Frame) (int, error) {
	fr, err := openFields(r, f)
	if err != nil {
		return 0, err
	}
	n, err := fr.U32("model count")
	return int(n), err
}

func readModelSize(r io.ReadSeeker, f chunk.Frame) (Vector, error) {
	fr, err := openFields(r, f)
	if err != nil {
		return Vector{}, err
	}
	return fr.Vector("model size")
}

func readVoxels(r io.ReadSeeker, f chunk.Frame, sink Sink) (int, error) {
	fr, err := openFields(r, f)
	if err != nil {
		return 0, err
	}
	n, err := fr.U32("voxel count")
	if err != nil {
		return 0, err
	}
	for range n {
		v, err := fr.Voxel()
		if err != nil {
			return 0, err
		}
		sink.AddVoxel(v)
	}
	return int(n), nil
}

// readPalette decodes the 255 stored entries over the default palette;
// index 0 is never stored.
func readPalette(r io.ReadSeeker, f chunk.Frame) (*Palette, error) {
	fr, err := openFields(r, f)
	if err != nil {
		return nil, err
	}
	p := defaultPalette
	for i := 1; i < PaletteSize; i++ {
		c, err := fr.Color()
		if err != nil {
			return nil, err
		}
		p.Colors[i] = c
	}
	return &p, nil
}

func readMaterial(r io.ReadSeeker, f chunk.Frame) (uint32, Material, error) {
	var m Material
	fr, err := openFields(r, f)
	if err != nil {
		return 0, m, err
	}
	id, err := fr.U32("material id")
	if err != nil {
		return 0, m, err
	}

	off := fr.Offset()
	typ, err := fr.U8("material type")
	if err != nil {
		return 0, m, err
	}
	m.Type = MaterialType(typ)
	if !m.Type.Valid() {
		return 0, m, &MaterialTypeError{Got: typ, Off: off}
	}

	m.Weight, err = fr.F32("material weight")
	if err != nil {
		return 0, m, err
	}
	flags, err := fr.U32("material flags")
	if err != nil {
		return 0, m, err
	}
	m.Flags = MaterialFlags(flags)

	for i, p := range m.props() {
		if m.Flags.Contains(MaterialFlags(1) << i) {
			*p, err = fr.F32("material property")
			if err != nil {
				return 0, m, err
			}
		}
	}
	return id, m, nil
}

func openFields(r io.ReadSeeker, f chunk.Frame) (*fieldReader, error) {
	cr, err := f.Content(r)
	if err != nil {
		return nil, err
	}
	return newFieldReader(cr), nil
}

// Read decodes a VOX file from r into a new Data.
func Read(r io.ReadSeeker, o Options) (*Data, error) {
	d := NewData()
	if err := ReadInto(r, d, o); err != nil {
		return nil, err
	}
	return d, nil
}

// FromReader decodes a VOX file from r using default options.
func FromReader(r io.ReadSeeker) (*Data, error) {
	return Read(r, Options{})
}

// FromBytes decodes a VOX file held in memory.
func FromBytes(b []byte) (*Data, error) {
	return FromReader(bytes.NewReader(b))
}

// FromFile reads and decodes the named file.
func FromFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes(raw)
}

// FromFileMapped decodes the named file through a read-only memory mapping.
// The result does not reference the mapping.
func FromFileMapped(path string) (*Data, error) {
	m, err := mmap.Open(path, mmap.SequentialAccess)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	return FromBytes(m.Bytes())
}
