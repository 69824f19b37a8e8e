package octree

import "fmt"

// MaxLevels is the deepest tree whose level-0 offsets still pack into a
// 63-bit Morton code (21 bits per axis).
const MaxLevels = 21

// Offset is a node position in units of the node's own side length.
type Offset [3]int

// Address identifies a cube in the domain: side 2^Level, origin Offset*2^Level.
type Address struct {
	Level  int
	Offset Offset
}

func (a Address) String() string {
	return fmt.Sprintf("L%d(%d,%d,%d)", a.Level, a.Offset[0], a.Offset[1], a.Offset[2])
}

// Valid reports whether a lies inside a domain of the given total levels.
func (a Address) Valid(levels int) bool {
	if a.Level < 0 || a.Level > levels {
		return false
	}
	n := 1 << (levels - a.Level)
	for _, o := range a.Offset {
		if o < 0 || o >= n {
			return false
		}
	}
	return true
}

// Parent returns the address of the enclosing cube one level up.
func (a Address) Parent() Address {
	return Address{
		Level:  a.Level + 1,
		Offset: Offset{a.Offset[0] >> 1, a.Offset[1] >> 1, a.Offset[2] >> 1},
	}
}

// Child returns the sub-cube for octant (bit 0 = x, bit 1 = y, bit 2 = z).
func (a Address) Child(octant int) Address {
	return Address{
		Level: a.Level - 1,
		Offset: Offset{
			a.Offset[0]<<1 | octant&1,
			a.Offset[1]<<1 | (octant>>1)&1,
			a.Offset[2]<<1 | (octant>>2)&1,
		},
	}
}

// Cube returns the half-open extent [min, max) of a in grid units.
func (a Address) Cube() (min, max Offset) {
	side := 1 << a.Level
	for i, o := range a.Offset {
		min[i] = o * side
		max[i] = min[i] + side
	}
	return min, max
}

// Code returns the Morton code of the offset. The code of a parent is the
// child's code shifted right by three.
func (a Address) Code() uint64 {
	return spread(uint64(a.Offset[0])) | spread(uint64(a.Offset[1]))<<1 | spread(uint64(a.Offset[2]))<<2
}

// AddressFromCode is the inverse of Address.Code.
func AddressFromCode(level int, code uint64) Address {
	return Address{
		Level:  level,
		Offset: Offset{int(compact(code)), int(compact(code >> 1)), int(compact(code >> 2))},
	}
}

// spread inserts two zero bits between each of the low 21 bits of v.
func spread(v uint64) uint64 {
	v &= 0x1fffff
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

func compact(v uint64) uint64 {
	v &= 0x1249249249249249
	v = (v ^ (v >> 2)) & 0x10c30c30c30c30c3
	v = (v ^ (v >> 4)) & 0x100f00f00f00f00f
	v = (v ^ (v >> 8)) & 0x1f0000ff0000ff
	v = (v ^ (v >> 16)) & 0x1f00000000ffff
	v = (v ^ (v >> 32)) & 0x1fffff
	return v
}
