package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/andreyvit/vox"
)

const (
	recordFormatVer1      = 1
	recordFormatVerLatest = recordFormatVer1

	maxRecordHeaderSize = binary.MaxVarintLen64 * 3
)

type recordFlags uint64

const (
	rfDefaultPalette = recordFlags(1 << iota)

	rfSupportedMask = rfDefaultPalette
)

// record is the stored form of vox.Data. Voxels and palette entries are kept
// packed in their on-disk VOX layout, which is far more compact than msgpack
// maps per voxel.
type record struct {
	Version   uint32           `msgpack:"v"`
	Palette   []byte           `msgpack:"p,omitempty"`
	Models    []modelRecord    `msgpack:"m"`
	Materials []materialRecord `msgpack:"t,omitempty"`
}

type modelRecord struct {
	Size   [3]int8 `msgpack:"s"`
	Voxels []byte  `msgpack:"x"`
}

type materialRecord struct {
	_msgpack struct{} `msgpack:",as_array"`

	ID     uint32
	Type   uint8
	Weight float32
	Flags  uint32
	Props  [7]float32
}

func newRecord(d *vox.Data) *record {
	rec := &record{
		Version: uint32(d.Version),
		Models:  make([]modelRecord, len(d.Models)),
	}
	if !d.Palette.IsDefault() {
		rec.Palette = make([]byte, 0, 4*(vox.PaletteSize-1))
		for _, c := range d.Palette.Colors[1:] {
			rec.Palette = append(rec.Palette, c.R, c.G, c.B, c.A)
		}
	}
	for i, m := range d.Models {
		mr := &rec.Models[i]
		mr.Size = [3]int8{m.Size.X, m.Size.Y, m.Size.Z}
		mr.Voxels = make([]byte, 0, 4*len(m.Voxels))
		for _, v := range m.Voxels {
			mr.Voxels = append(mr.Voxels, byte(v.Point.X), byte(v.Point.Y), byte(v.Point.Z), byte(v.Color))
		}
	}
	for id, m := range d.Materials.All() {
		rec.Materials = append(rec.Materials, materialRecord{
			ID:     id,
			Type:   uint8(m.Type),
			Weight: m.Weight,
			Flags:  uint32(m.Flags),
			Props:  [7]float32{m.Plastic, m.Roughness, m.Specular, m.IOR, m.Attenuation, m.Power, m.Glow},
		})
	}
	return rec
}

func (rec *record) data() (*vox.Data, error) {
	d := vox.NewData()
	d.Version = vox.Version(rec.Version)

	if rec.Palette != nil {
		if len(rec.Palette) != 4*(vox.PaletteSize-1) {
			return nil, fmt.Errorf("palette has %d bytes", len(rec.Palette))
		}
		for i := 1; i < vox.PaletteSize; i++ {
			b := rec.Palette[4*(i-1):]
			d.Palette.Colors[i] = vox.RGBA(b[0], b[1], b[2], b[3])
		}
	}

	d.Models = make([]vox.Model, len(rec.Models))
	for i, mr := range rec.Models {
		if len(mr.Voxels)%4 != 0 {
			return nil, fmt.Errorf("model %d: voxel data has %d bytes", i, len(mr.Voxels))
		}
		m := &d.Models[i]
		m.Size = vox.Vec(mr.Size[0], mr.Size[1], mr.Size[2])
		if n := len(mr.Voxels) / 4; n > 0 {
			m.Voxels = make([]vox.Voxel, 0, n)
		}
		for b := mr.Voxels; len(b) > 0; b = b[4:] {
			m.Voxels = append(m.Voxels, vox.NewVoxel(int8(b[0]), int8(b[1]), int8(b[2]), vox.ColorIndex(b[3])))
		}
	}

	for _, mr := range rec.Materials {
		d.Materials.Insert(mr.ID, vox.Material{
			Type:        vox.MaterialType(mr.Type),
			Weight:      mr.Weight,
			Flags:       vox.MaterialFlags(mr.Flags),
			Plastic:     mr.Props[0],
			Roughness:   mr.Props[1],
			Specular:    mr.Props[2],
			IOR:         mr.Props[3],
			Attenuation: mr.Props[4],
			Power:       mr.Props[5],
			Glow:        mr.Props[6],
		})
	}
	return d, nil
}

// encodeValue produces the stored value: flags, format version and data
// size as uvarints, followed by the msgpack-encoded record.
func encodeValue(d *vox.Data) ([]byte, error) {
	rec := newRecord(d)

	var flags recordFlags
	if rec.Palette == nil {
		flags |= rfDefaultPalette
	}

	var body bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.ResetDict(&body, nil)
	enc.SetSortMapKeys(true)
	err := enc.Encode(rec)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, fmt.Errorf("store: failed to encode record using MsgPack: %w", err)
	}

	buf := make([]byte, 0, maxRecordHeaderSize+body.Len())
	buf = binary.AppendUvarint(buf, uint64(flags))
	buf = binary.AppendUvarint(buf, recordFormatVerLatest)
	buf = binary.AppendUvarint(buf, uint64(body.Len()))
	return append(buf, body.Bytes()...), nil
}

func decodeValue(data []byte) (*vox.Data, error) {
	orig := data

	v, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, valueErrf(orig, data, nil, "bad flags")
	}
	if (v &^ uint64(rfSupportedMask)) != 0 {
		return nil, valueErrf(orig, data, nil, "unsupported flags %x", v)
	}
	flags, data := recordFlags(v), data[n:]

	v, n = binary.Uvarint(data)
	if n <= 0 {
		return nil, valueErrf(orig, data, nil, "bad format version")
	}
	if v != recordFormatVer1 {
		return nil, valueErrf(orig, data, nil, "unsupported format version %d", v)
	}
	data = data[n:]

	size, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, valueErrf(orig, data, nil, "bad data size")
	}
	data = data[n:]
	if uint64(len(data)) != size {
		return nil, valueErrf(orig, data, nil, "got %d bytes of data, expected %d", len(data), size)
	}

	var rec record
	dec := msgpack.GetDecoder()
	dec.ResetDict(bytes.NewReader(data), nil)
	err := dec.Decode(&rec)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, valueErrf(orig, data, err, "failed to decode msgpack")
	}
	if (flags&rfDefaultPalette != 0) != (rec.Palette == nil) {
		return nil, valueErrf(orig, data, nil, "palette flag does not match record")
	}

	d, err := rec.data()
	if err != nil {
		return nil, valueErrf(orig, data, err, "invalid record")
	}
	return d, nil
}

// ValueError describes a corrupted stored value.
type ValueError struct {
	Off int
	Err error
	Msg string
}

func valueErrf(orig, rem []byte, err error, format string, args ...any) error {
	return &ValueError{len(orig) - len(rem), err, fmt.Sprintf(format, args...)}
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

func (e *ValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store: invalid value at %d: %s: %v", e.Off, e.Msg, e.Err)
	} else {
		return fmt.Sprintf("store: invalid value at %d: %s", e.Off, e.Msg)
	}
}
