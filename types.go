package vox

import (
	"fmt"
	"strconv"
)

// Version is the format version stored right after the magic.
type Version uint32

// DefaultVersion is written when Data.Version is zero.
const DefaultVersion Version = 150

func (v Version) String() string {
	return strconv.FormatUint(uint64(v), 10)
}

// Vector is a point or an extent on the voxel lattice.
type Vector struct {
	X, Y, Z int8
}

func Vec(x, y, z int8) Vector {
	return Vector{x, y, z}
}

func (v Vector) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// ColorIndex addresses a palette entry. All 256 values are valid, including
// 255; index 0 conventionally means "empty".
type ColorIndex uint8

// Voxel is a single filled lattice cell.
type Voxel struct {
	Point Vector
	Color ColorIndex
}

func NewVoxel(x, y, z int8, c ColorIndex) Voxel {
	return Voxel{Vector{x, y, z}, c}
}

func (v Voxel) String() string {
	return fmt.Sprintf("%v#%d", v.Point, v.Color)
}

// Color is a palette entry. Channels are stored on disk in r, g, b, a order.
type Color struct {
	R, G, B, A uint8
}

func RGBA(r, g, b, a uint8) Color {
	return Color{r, g, b, a}
}

// Uint32 packs the color the way it is laid out on disk, as a little-endian
// 0xAABBGGRR value.
func (c Color) Uint32() uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

func colorFromUint32(v uint32) Color {
	return Color{uint8(v), uint8(v >> 8), uint8(v >> 16), uint8(v >> 24)}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Model is a sparse voxel model.
type Model struct {
	Size   Vector
	Voxels []Voxel
}

// Data is a fully decoded VOX file. The zero value has an all-zero palette,
// which is written out as an explicit RGBA chunk; NewData starts from
// DefaultPalette() instead.
type Data struct {
	Version   Version
	Models    []Model
	Palette   Palette
	Materials MaterialPalette
}

// NewData returns an empty file with the default version and palette.
func NewData() *Data {
	return &Data{
		Version: DefaultVersion,
		Palette: defaultPalette,
	}
}

// AddModel appends a model and returns a pointer to it.
func (d *Data) AddModel(size Vector, voxels ...Voxel) *Model {
	d.Models = append(d.Models, Model{Size: size, Voxels: voxels})
	return &d.Models[len(d.Models)-1]
}
