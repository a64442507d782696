package vox

import "slices"

// Sink receives the contents of a VOX file as it is decoded. ReadInto calls
// SetVersion first, then SetPalette (only if the file has an RGBA chunk),
// then SetModelCount, then SetModelSize followed by the model's voxels, once
// per model.
//
// A Sink that resolves colors on the fly can rely on the palette being set
// before any voxel is delivered.
type Sink interface {
	SetVersion(v Version)
	SetPalette(p *Palette)
	SetModelCount(n int)
	SetModelSize(size Vector)
	AddVoxel(v Voxel)
}

// MaterialSink is implemented by sinks that want MATL chunks. Materials are
// delivered after the palette and before SetModelCount.
type MaterialSink interface {
	SetMaterial(id uint32, m Material)
}

var (
	_ Sink         = (*Data)(nil)
	_ MaterialSink = (*Data)(nil)
)

func (d *Data) SetVersion(v Version) {
	d.Version = v
}

func (d *Data) SetPalette(p *Palette) {
	d.Palette = *p
}

func (d *Data) SetModelCount(n int) {
	d.Models = slices.Grow(d.Models[:0], n)
}

func (d *Data) SetModelSize(size Vector) {
	d.Models = append(d.Models, Model{Size: size})
}

func (d *Data) AddVoxel(v Voxel) {
	m := &d.Models[len(d.Models)-1]
	m.Voxels = append(m.Voxels, v)
}

func (d *Data) SetMaterial(id uint32, m Material) {
	d.Materials.Insert(id, m)
}
