package octree

import "gonum.org/v1/gonum/spatial/r3"

// BoxType flags describe the role of a leaf in the volume mesh.
type BoxType uint8

const (
	// MeshCell leaves become cells of the volume mesh.
	MeshCell BoxType = 1 << iota
	// Boundary leaves intersect the surface.
	Boundary
)

// NodeType classifies a mesh node by its surrounding leaves.
type NodeType uint8

const (
	// InnerNode is surrounded by mesh cell leaves only.
	InnerNode NodeType = 1 + iota
	// OuterNode touches at least one leaf that is not a mesh cell.
	OuterNode
)

// Addressing derives mesh nodes from the corners of mesh cell leaves. All
// data is computed on first use and dropped by ClearOut, which must be
// called whenever the octree changes.
type Addressing struct {
	o            *Octree
	useDataBoxes bool

	boxTypes   []BoxType
	nodeLabels map[LatticePoint]int
	nodes      []LatticePoint
	leafNodes  map[int][8]int
	nodeLeaves [][]int
	nodeTypes  []NodeType
}

// NewAddressing returns the addressing of o. Inside leaves are mesh cells,
// and so are Data leaves when useDataBoxes is set.
func NewAddressing(o *Octree, useDataBoxes bool) *Addressing {
	return &Addressing{o: o, useDataBoxes: useDataBoxes}
}

// Octree returns the addressed octree.
func (a *Addressing) Octree() *Octree { return a.o }

// ClearOut drops all derived data.
func (a *Addressing) ClearOut() {
	a.boxTypes = nil
	a.nodeLabels = nil
	a.nodes = nil
	a.leafNodes = nil
	a.nodeLeaves = nil
	a.nodeTypes = nil
}

// BoxType returns the flags of cube ci. Internal cubes have no flags.
func (a *Addressing) BoxType(ci int) BoxType {
	if a.boxTypes == nil {
		a.calcBoxTypes()
	}
	return a.boxTypes[ci]
}

// IsMeshCell reports whether cube ci is a mesh cell leaf.
func (a *Addressing) IsMeshCell(ci int) bool { return a.BoxType(ci)&MeshCell != 0 }

// MeshCells returns the mesh cell leaves in depth first order.
func (a *Addressing) MeshCells() []int {
	var cells []int
	for _, l := range a.o.Leaves() {
		if a.IsMeshCell(l) {
			cells = append(cells, l)
		}
	}
	return cells
}

func (a *Addressing) calcBoxTypes() {
	a.boxTypes = make([]BoxType, a.o.NumCubes())
	for _, l := range a.o.Leaves() {
		var t BoxType
		switch a.o.CubeType(l) {
		case Inside:
			t = MeshCell
		case Data:
			t = Boundary
			if a.useDataBoxes {
				t |= MeshCell
			}
		}
		a.boxTypes[l] = t
	}
}

func (a *Addressing) calcNodes() {
	a.nodeLabels = make(map[LatticePoint]int)
	a.leafNodes = make(map[int][8]int)
	a.nodes = a.nodes[:0]
	a.nodeLeaves = a.nodeLeaves[:0]
	for _, l := range a.MeshCells() {
		lb := a.o.LatticeBox(l)
		var ln [8]int
		for i := range ln {
			p := lb.Corner(i)
			label, ok := a.nodeLabels[p]
			if !ok {
				label = len(a.nodes)
				a.nodeLabels[p] = label
				a.nodes = append(a.nodes, p)
				a.nodeLeaves = append(a.nodeLeaves, nil)
			}
			ln[i] = label
			a.nodeLeaves[label] = append(a.nodeLeaves[label], l)
		}
		a.leafNodes[l] = ln
	}
}

// NumNodes returns the number of distinct mesh cell corners.
func (a *Addressing) NumNodes() int {
	if a.nodeLabels == nil {
		a.calcNodes()
	}
	return len(a.nodes)
}

// NodeLabel returns the label of the node at lattice point p.
func (a *Addressing) NodeLabel(p LatticePoint) (int, bool) {
	if a.nodeLabels == nil {
		a.calcNodes()
	}
	label, ok := a.nodeLabels[p]
	return label, ok
}

// NodeLattice returns the lattice position of every node.
func (a *Addressing) NodeLattice() []LatticePoint {
	if a.nodeLabels == nil {
		a.calcNodes()
	}
	return a.nodes
}

// NodeCoordinates returns the spatial position of every node.
func (a *Addressing) NodeCoordinates() []r3.Vec {
	nodes := a.NodeLattice()
	pts := make([]r3.Vec, len(nodes))
	for i, p := range nodes {
		pts[i] = a.o.Point(p)
	}
	return pts
}

// LeafNodes returns the node labels of the corners of mesh cell leaf l in
// the corner order of LatticeBox.Corner.
func (a *Addressing) LeafNodes(l int) [8]int {
	if a.nodeLabels == nil {
		a.calcNodes()
	}
	ln, ok := a.leafNodes[l]
	if !ok {
		panic("bug: leaf is not a mesh cell")
	}
	return ln
}

// NodeLeaves returns for every node the mesh cell leaves having it as a corner.
func (a *Addressing) NodeLeaves() [][]int {
	if a.nodeLabels == nil {
		a.calcNodes()
	}
	return a.nodeLeaves
}

// NodeTypes returns whether each node is surrounded by mesh cells only.
func (a *Addressing) NodeTypes() []NodeType {
	if a.nodeTypes != nil {
		return a.nodeTypes
	}
	nodes := a.NodeLattice()
	types := make([]NodeType, len(nodes))
	for i, p := range nodes {
		types[i] = InnerNode
		for oct := 0; oct < 8; oct++ {
			c := Coordinates{X: p.X - 1 + int32(oct&1), Y: p.Y - 1 + int32((oct>>1)&1), Z: p.Z - 1 + int32((oct>>2)&1), Level: LatticeBits}
			if a.o.quadtree {
				c.Z = 0
			}
			leaf := a.o.findDeepest(c)
			if leaf < 0 || !a.IsMeshCell(leaf) {
				types[i] = OuterNode
				break
			}
		}
	}
	a.nodeTypes = types
	return types
}
