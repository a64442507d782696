package vox

import (
	"fmt"
	"iter"
	"slices"
)

// MaterialType is the shading model of a material.
type MaterialType uint8

const (
	Diffuse MaterialType = iota
	Metal
	Glass
	Emissive

	maxMaterialType = Emissive
)

func (mt MaterialType) Valid() bool {
	return mt <= maxMaterialType
}

func (mt MaterialType) String() string {
	switch mt {
	case Diffuse:
		return "diffuse"
	case Metal:
		return "metal"
	case Glass:
		return "glass"
	case Emissive:
		return "emissive"
	default:
		return fmt.Sprintf("MaterialType(%d)", uint8(mt))
	}
}

// MaterialFlags select which optional material properties are present.
type MaterialFlags uint32

const (
	HasPlastic = MaterialFlags(1 << iota)
	HasRoughness
	HasSpecular
	HasIOR
	HasAttenuation
	HasPower
	HasGlow
	TotalPower

	valueFlagCount = 7 // flags followed by a stored float
)

func (f MaterialFlags) Contains(v MaterialFlags) bool {
	return (f & v) == v
}

// Material describes the shading of a palette entry. Optional properties are
// only meaningful when the matching flag is set in Flags.
type Material struct {
	Type   MaterialType
	Weight float32
	Flags  MaterialFlags

	Plastic     float32
	Roughness   float32
	Specular    float32
	IOR         float32
	Attenuation float32
	Power       float32
	Glow        float32
}

// props returns the optional properties in on-disk order, matching the
// flag bits 0..6.
func (m *Material) props() [valueFlagCount]*float32 {
	return [valueFlagCount]*float32{
		&m.Plastic, &m.Roughness, &m.Specular, &m.IOR,
		&m.Attenuation, &m.Power, &m.Glow,
	}
}

// Set stores an optional property and sets its flag. flag must be one of
// the Has* constants.
func (m *Material) Set(flag MaterialFlags, v float32) {
	for i, p := range m.props() {
		if flag == MaterialFlags(1)<<i {
			*p = v
			m.Flags |= flag
			return
		}
	}
	panic(fmt.Errorf("invalid material property flag %x", uint32(flag)))
}

// Get returns an optional property and whether it is present.
func (m *Material) Get(flag MaterialFlags) (float32, bool) {
	for i, p := range m.props() {
		if flag == MaterialFlags(1)<<i {
			return *p, m.Flags.Contains(flag)
		}
	}
	panic(fmt.Errorf("invalid material property flag %x", uint32(flag)))
}

// IsTotalPower reports whether the total power flag is set.
func (m *Material) IsTotalPower() bool {
	return m.Flags.Contains(TotalPower)
}

// PresentCount returns the number of optional properties stored on disk.
func (m *Material) PresentCount() int {
	var n int
	for i := range valueFlagCount {
		if m.Flags.Contains(MaterialFlags(1) << i) {
			n++
		}
	}
	return n
}

// MaterialPalette holds materials by material id.
type MaterialPalette struct {
	Materials map[uint32]Material
}

func (mp *MaterialPalette) Len() int {
	return len(mp.Materials)
}

func (mp *MaterialPalette) Get(id uint32) (Material, bool) {
	m, ok := mp.Materials[id]
	return m, ok
}

func (mp *MaterialPalette) Insert(id uint32, m Material) {
	if mp.Materials == nil {
		mp.Materials = make(map[uint32]Material)
	}
	mp.Materials[id] = m
}

// IDs returns material ids in ascending order.
func (mp *MaterialPalette) IDs() []uint32 {
	ids := make([]uint32, 0, len(mp.Materials))
	for id := range mp.Materials {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// All iterates over materials in ascending id order.
func (mp *MaterialPalette) All() iter.Seq2[uint32, Material] {
	return func(yield func(uint32, Material) bool) {
		for _, id := range mp.IDs() {
			if !yield(id, mp.Materials[id]) {
				return
			}
		}
	}
}
