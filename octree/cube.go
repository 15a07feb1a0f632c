package octree

import "strconv"

// CubeType classifies a cube with respect to the input surface.
type CubeType uint8

const (
	Unknown CubeType = 1 << iota
	Outside
	Data // cube intersects the surface.
	Inside
)

func (t CubeType) String() string {
	switch t {
	case Unknown:
		return "unknown"
	case Outside:
		return "outside"
	case Data:
		return "data"
	case Inside:
		return "inside"
	}
	return "CubeType(" + strconv.Itoa(int(t)) + ")"
}

// Processor ids with special meaning.
const (
	AllProcs  = -2 // cube spans leaves of several processors.
	OtherProc = -3
)

// Cube is a node of the octree. Cubes live in the octree's arena and refer to
// their children and surface data by index.
type Cube struct {
	Coordinates
	// ProcNo is the processor owning the cube.
	ProcNo int16
	// children is the arena index of the first of the 8 (quadtree: 4)
	// consecutive children, -1 for leaves.
	children int32
	parent   int32
	// slot is the index of the contained surface data, -1 if none.
	slot int32
	// typ is the classification of a leaf or the memoized type of an
	// internal cube. Zero means not yet computed.
	typ CubeType
}

// IsLeaf reports whether the cube has no children.
func (c *Cube) IsLeaf() bool { return c.children < 0 }

// Slot records the surface triangles and feature edges intersecting a cube.
type Slot struct {
	Triangles []int
	Edges     []int
}
