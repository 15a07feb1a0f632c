package octree

import "fmt"

const (
	// MaxLevel is the deepest refinement level an octree supports.
	MaxLevel = 19
	// LatticeBits is the number of bits of a lattice coordinate. One lattice
	// unit is half the side of a MaxLevel cube so cube centres are representable.
	LatticeBits = MaxLevel + 1
	latticeSize = 1 << LatticeBits
)

// Coordinates locates a cube in the octree. At level L the root box is split
// into 2^L cubes per axis and X, Y, Z index the cube along each axis.
// In quadtree mode Z is always zero.
type Coordinates struct {
	X, Y, Z int32
	Level   uint8
}

// Packed returns a unique integer key for the coordinates.
func (c Coordinates) Packed() uint64 {
	return uint64(c.Level)<<57 | uint64(c.X)<<38 | uint64(c.Y)<<19 | uint64(c.Z)
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%d,%d,%d)@%d", c.X, c.Y, c.Z, c.Level)
}

// Child returns the coordinates of child i. Child i is offset by i&1 in x,
// (i>>1)&1 in y and (i>>2)&1 in z.
func (c Coordinates) Child(i int) Coordinates {
	return Coordinates{
		X:     2*c.X + int32(i&1),
		Y:     2*c.Y + int32((i>>1)&1),
		Z:     2*c.Z + int32((i>>2)&1),
		Level: c.Level + 1,
	}
}

// Parent returns the coordinates of the cube containing c one level up.
func (c Coordinates) Parent() Coordinates {
	if c.Level == 0 {
		panic("bug: root has no parent")
	}
	return Coordinates{X: c.X >> 1, Y: c.Y >> 1, Z: c.Z >> 1, Level: c.Level - 1}
}

// Ancestor returns the coordinates of the cube containing c at the given coarser level.
func (c Coordinates) Ancestor(level uint8) Coordinates {
	if level > c.Level {
		panic("bug: ancestor level finer than cube level")
	}
	shift := c.Level - level
	return Coordinates{X: c.X >> shift, Y: c.Y >> shift, Z: c.Z >> shift, Level: level}
}

// Offset returns the coordinates of the same level cube displaced by d.
func (c Coordinates) Offset(d Direction) Coordinates {
	return Coordinates{X: c.X + d[0], Y: c.Y + d[1], Z: c.Z + d[2], Level: c.Level}
}

// inRange reports whether the coordinates lie within the root cube.
func (c Coordinates) inRange(quadtree bool) bool {
	n := int32(1) << c.Level
	if quadtree && c.Z != 0 {
		return false
	}
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 && c.X < n && c.Y < n && (quadtree || c.Z < n)
}

// LatticePoint is a point on the finest integer lattice of the octree.
// Cube corners and centres of every level are lattice points.
type LatticePoint struct {
	X, Y, Z int32
}

// Add returns the sum of two lattice points.
func (p LatticePoint) Add(q LatticePoint) LatticePoint {
	return LatticePoint{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Mid returns the midpoint of p and q. Callers ensure it lies on the lattice.
func Mid(p, q LatticePoint) LatticePoint {
	return LatticePoint{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2, Z: (p.Z + q.Z) / 2}
}

// Component returns the lattice coordinate along axis i.
func (p LatticePoint) Component(i int) int32 {
	switch i {
	case 0:
		return p.X
	case 1:
		return p.Y
	case 2:
		return p.Z
	}
	panic("bug: axis out of range")
}

// SetComponent sets the lattice coordinate along axis i.
func (p *LatticePoint) SetComponent(i int, v int32) {
	switch i {
	case 0:
		p.X = v
	case 1:
		p.Y = v
	case 2:
		p.Z = v
	default:
		panic("bug: axis out of range")
	}
}

// LatticeBox is a closed axis aligned box on the lattice.
type LatticeBox struct {
	Min, Max LatticePoint
}

// Touches reports whether the closed boxes share at least one point.
func (a LatticeBox) Touches(b LatticeBox) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y &&
		a.Min.Z <= b.Max.Z && b.Min.Z <= a.Max.Z
}

// Center returns the centre of the box.
func (a LatticeBox) Center() LatticePoint { return Mid(a.Min, a.Max) }

// Corner returns box corner i using the child numbering of Coordinates.Child.
func (a LatticeBox) Corner(i int) LatticePoint {
	c := a.Min
	if i&1 != 0 {
		c.X = a.Max.X
	}
	if i&2 != 0 {
		c.Y = a.Max.Y
	}
	if i&4 != 0 {
		c.Z = a.Max.Z
	}
	return c
}

// Direction is an offset to one of the 26 cubes around a cube.
type Direction [3]int32

var (
	// FaceDirections are the 6 face neighbour directions ordered -x,+x,-y,+y,-z,+z.
	FaceDirections = [6]Direction{{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1}}
	// AllDirections are the 26 face, edge and corner neighbour directions.
	AllDirections = func() (dirs [26]Direction) {
		n := 0
		for z := int32(-1); z <= 1; z++ {
			for y := int32(-1); y <= 1; y++ {
				for x := int32(-1); x <= 1; x++ {
					if x == 0 && y == 0 && z == 0 {
						continue
					}
					dirs[n] = Direction{x, y, z}
					n++
				}
			}
		}
		return dirs
	}()
)
