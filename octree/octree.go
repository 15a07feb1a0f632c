// Package octree implements an adaptive octree over a triangulated surface.
// Cubes are stored in a single arena and refer to their children, parent
// and contained surface data by index. Leaves are classified as inside,
// outside or intersecting (data) with respect to the surface.
package octree

import (
	"fmt"
	"math"

	"github.com/soypat/octmesh/internal/d3"
	"github.com/soypat/octmesh/surface"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Octree is an adaptive subdivision of a cubic root box. In quadtree mode
// only x and y are subdivided and every cube spans the root box along z.
type Octree struct {
	cubes     []Cube
	slots     []Slot
	surf      *surface.Surface
	features  []int
	angle     float64
	root      d3.Box
	quadtree  bool
	nChildren int
	leaves    []int
	log       *zap.Logger
	comm      Communicator
}

type config struct {
	log          *zap.Logger
	root         *d3.Box
	quadtree     bool
	comm         Communicator
	featureAngle float64
}

// Option configures an Octree.
type Option func(*config)

// WithLogger sets the logger used to report progress.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithRootBox sets the root box. In octree mode it must be a cube. Parts of
// the surface outside the root box are ignored.
func WithRootBox(b d3.Box) Option {
	return func(c *config) { c.root = &b }
}

// WithQuadtree subdivides the root box in x and y only.
func WithQuadtree() Option {
	return func(c *config) { c.quadtree = true }
}

// WithCommunicator sets the communicator used to agree on global decisions.
func WithCommunicator(comm Communicator) Option {
	return func(c *config) { c.comm = comm }
}

// WithFeatureAngle sets the angle in radians between facet normals above
// which a surface edge is a feature edge tracked in cube slots.
func WithFeatureAngle(angle float64) Option {
	return func(c *config) { c.featureAngle = angle }
}

// DefaultFeatureAngle is the default feature angle in radians.
const DefaultFeatureAngle = 45 * math.Pi / 180

// New creates a single cube octree enclosing surf.
func New(surf *surface.Surface, opts ...Option) (*Octree, error) {
	if err := surf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid surface: %w", err)
	}
	cfg := config{
		log:          zap.NewNop(),
		comm:         Serial{},
		featureAngle: DefaultFeatureAngle,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	bb := surf.Bounds()
	var root d3.Box
	switch {
	case cfg.root != nil:
		root = *cfg.root
	case cfg.quadtree:
		size := bb.Size()
		side := 1.1 * math.Max(size.X, size.Y)
		c := bb.Center()
		root = d3.Box{
			Min: r3.Vec{X: c.X - side/2, Y: c.Y - side/2, Z: bb.Min.Z},
			Max: r3.Vec{X: c.X + side/2, Y: c.Y + side/2, Z: bb.Max.Z},
		}
	default:
		root = bb.Cubic().ScaleAboutCenter(1.1)
	}
	size := root.Size()
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("degenerate root box %v", root)
	}
	if !cfg.quadtree && (math.Abs(size.X-size.Y) > 1e-9*size.X || math.Abs(size.X-size.Z) > 1e-9*size.X) {
		return nil, fmt.Errorf("octree root box must be cubic, got size %v", size)
	}
	o := &Octree{
		surf:      surf,
		features:  surf.FeatureEdges(cfg.featureAngle),
		angle:     cfg.featureAngle,
		root:      root,
		quadtree:  cfg.quadtree,
		nChildren: 8,
		log:       cfg.log,
		comm:      cfg.comm,
	}
	if o.quadtree {
		o.nChildren = 4
	}
	rootCube := Cube{ProcNo: 0, children: -1, parent: -1, slot: -1, typ: Unknown}
	slot := o.rootSlot()
	if len(slot.Triangles) > 0 {
		rootCube.slot = 0
		rootCube.typ = Data
		o.slots = append(o.slots, slot)
	}
	o.cubes = append(o.cubes, rootCube)
	o.log.Debug("octree created",
		zap.Int("facets", len(surf.Facets)),
		zap.Int("featureEdges", len(o.features)),
		zap.Bool("quadtree", o.quadtree),
	)
	return o, nil
}

// Surface returns the surface the octree was built for.
func (o *Octree) Surface() *surface.Surface { return o.surf }

// FeatureEdges returns the surface feature edges tracked by the octree.
func (o *Octree) FeatureEdges() []int { return o.features }

// RootBox returns the box of the root cube.
func (o *Octree) RootBox() d3.Box { return o.root }

// IsQuadtree reports whether the octree only subdivides in x and y.
func (o *Octree) IsQuadtree() bool { return o.quadtree }

// NumChildren returns the number of children of an internal cube, 8 or 4.
func (o *Octree) NumChildren() int { return o.nChildren }

// Logger returns the octree logger.
func (o *Octree) Logger() *zap.Logger { return o.log }

// Communicator returns the octree communicator.
func (o *Octree) Communicator() Communicator { return o.comm }

// NumCubes returns the number of cubes, internal and leaves.
func (o *Octree) NumCubes() int { return len(o.cubes) }

// Cube returns a copy of cube i.
func (o *Octree) Cube(i int) Cube { return o.cubes[i] }

// Coordinates returns the coordinates of cube i.
func (o *Octree) Coordinates(i int) Coordinates { return o.cubes[i].Coordinates }

// IsLeaf reports whether cube i has no children.
func (o *Octree) IsLeaf(i int) bool { return o.cubes[i].children < 0 }

// SubCube returns child j of cube i. ok is false for leaves and invalid j.
func (o *Octree) SubCube(i, j int) (child int, ok bool) {
	c := &o.cubes[i]
	if c.children < 0 || j < 0 || j >= o.nChildren {
		return -1, false
	}
	return int(c.children) + j, true
}

// Parent returns the parent of cube i or -1 for the root.
func (o *Octree) Parent(i int) int { return int(o.cubes[i].parent) }

// Leaves returns the leaf cubes in depth first order. The returned slice is
// shared and invalidated by any subdivision.
func (o *Octree) Leaves() []int {
	if o.leaves != nil {
		return o.leaves
	}
	leaves := make([]int, 0, len(o.cubes)*7/8+1)
	todo := []int{0}
	for len(todo) > 0 {
		ci := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		c := &o.cubes[ci]
		if c.IsLeaf() {
			leaves = append(leaves, ci)
			continue
		}
		// Push in reverse so children are visited in order.
		for j := o.nChildren - 1; j >= 0; j-- {
			todo = append(todo, int(c.children)+j)
		}
	}
	o.leaves = leaves
	return leaves
}

// MaxLevelUsed returns the level of the finest leaf.
func (o *Octree) MaxLevelUsed() uint8 {
	var max uint8
	for _, l := range o.Leaves() {
		if lvl := o.cubes[l].Level; lvl > max {
			max = lvl
		}
	}
	return max
}

// LatticeBox returns the lattice box of cube i.
func (o *Octree) LatticeBox(i int) LatticeBox {
	c := o.cubes[i].Coordinates
	shift := LatticeBits - int(c.Level)
	size := int32(1) << shift
	b := LatticeBox{
		Min: LatticePoint{X: c.X << shift, Y: c.Y << shift, Z: c.Z << shift},
	}
	b.Max = b.Min.Add(LatticePoint{X: size, Y: size, Z: size})
	if o.quadtree {
		b.Min.Z, b.Max.Z = 0, latticeSize
	}
	return b
}

// Point converts a lattice point to space coordinates.
func (o *Octree) Point(p LatticePoint) r3.Vec {
	size := o.root.Size()
	return r3.Vec{
		X: o.root.Min.X + size.X*float64(p.X)/latticeSize,
		Y: o.root.Min.Y + size.Y*float64(p.Y)/latticeSize,
		Z: o.root.Min.Z + size.Z*float64(p.Z)/latticeSize,
	}
}

// CubeBox returns the spatial box of cube i.
func (o *Octree) CubeBox(i int) d3.Box {
	lb := o.LatticeBox(i)
	return d3.Box{Min: o.Point(lb.Min), Max: o.Point(lb.Max)}
}

// CubeSize returns the side length of cube i in the subdivided directions.
func (o *Octree) CubeSize(i int) float64 {
	return o.root.Size().X / float64(int64(1)<<o.cubes[i].Level)
}

// CubeType returns the classification of cube i. Internal cubes are Data if
// any child is Data, the common type if all children agree and Unknown otherwise.
func (o *Octree) CubeType(i int) CubeType {
	c := &o.cubes[i]
	if c.IsLeaf() || c.typ != 0 {
		return c.typ
	}
	var t CubeType
	for j := 0; j < o.nChildren; j++ {
		ct := o.CubeType(int(c.children) + j)
		switch {
		case j == 0:
			t = ct
		case ct == Data || t == Data:
			t = Data
		case ct != t:
			t = Unknown
		}
	}
	o.cubes[i].typ = t
	return t
}

// HasContainedTriangles reports whether any surface facet intersects cube i.
func (o *Octree) HasContainedTriangles(i int) bool {
	s := o.cubes[i].slot
	return s >= 0 && len(o.slots[s].Triangles) > 0
}

// ContainedTriangles returns the surface facets intersecting cube i.
func (o *Octree) ContainedTriangles(i int) []int {
	if s := o.cubes[i].slot; s >= 0 {
		return o.slots[s].Triangles
	}
	return nil
}

// ContainedEdges returns the surface feature edges intersecting cube i.
func (o *Octree) ContainedEdges(i int) []int {
	if s := o.cubes[i].slot; s >= 0 {
		return o.slots[s].Edges
	}
	return nil
}

// subdivide replaces leaf ci by its children and distributes the parent's
// surface data among them.
func (o *Octree) subdivide(ci int) {
	c := &o.cubes[ci]
	if !c.IsLeaf() {
		panic("bug: subdividing internal cube")
	}
	if c.Level >= MaxLevel {
		panic("bug: subdividing cube at maximum level")
	}
	first := int32(len(o.cubes))
	parentSlot := c.slot
	coords := c.Coordinates
	proc := c.ProcNo
	c.children = first
	c.typ = 0
	for j := 0; j < o.nChildren; j++ {
		child := Cube{
			Coordinates: coords.Child(j),
			ProcNo:      proc,
			children:    -1,
			parent:      int32(ci),
			slot:        -1,
			typ:         Unknown,
		}
		o.cubes = append(o.cubes, child)
		if parentSlot >= 0 {
			ch := int(first) + j
			if slot, ok := o.filterSlot(o.slots[parentSlot], o.CubeBox(ch)); ok {
				o.cubes[ch].slot = int32(len(o.slots))
				o.slots = append(o.slots, slot)
				if len(slot.Triangles) > 0 {
					o.cubes[ch].typ = Data
				}
			}
		}
	}
	for p := o.cubes[ci].parent; p >= 0; p = o.cubes[p].parent {
		o.cubes[p].typ = 0
	}
	o.leaves = nil
}

// filterSlot returns the part of parent intersecting box.
func (o *Octree) filterSlot(parent Slot, box d3.Box) (Slot, bool) {
	var s Slot
	for _, t := range parent.Triangles {
		if o.surf.Triangle(t).OverlapsBox(box) {
			s.Triangles = append(s.Triangles, t)
		}
	}
	edges := o.surf.Edges()
	grown := box.ScaleAboutCenter(1 + 1e-9)
	for _, e := range parent.Edges {
		if grown.OverlapsSegment(o.surf.Points[edges[e][0]], o.surf.Points[edges[e][1]]) {
			s.Edges = append(s.Edges, e)
		}
	}
	return s, len(s.Triangles) > 0 || len(s.Edges) > 0
}

// RebuildSlots recomputes the surface data of every cube from the surface.
// It must be called after the surface geometry changes.
func (o *Octree) RebuildSlots() {
	o.surf.ClearAddressing()
	o.features = o.surf.FeatureEdges(o.angle)
	o.slots = o.slots[:0]
	for i := range o.cubes {
		o.cubes[i].slot = -1
	}
	root := o.rootSlot()
	var walk func(ci int, parent Slot)
	walk = func(ci int, parent Slot) {
		slot, ok := o.filterSlot(parent, o.CubeBox(ci))
		if !ok {
			return
		}
		o.cubes[ci].slot = int32(len(o.slots))
		o.slots = append(o.slots, slot)
		if c := o.cubes[ci]; !c.IsLeaf() {
			for j := 0; j < o.nChildren; j++ {
				walk(int(c.children)+j, slot)
			}
		}
	}
	walk(0, root)
	for i := range o.cubes {
		switch {
		case !o.cubes[i].IsLeaf():
			o.cubes[i].typ = 0
		case o.HasContainedTriangles(i):
			o.cubes[i].typ = Data
		case o.cubes[i].typ == Data:
			o.cubes[i].typ = Unknown
		}
	}
}

// rootSlot collects the facets intersecting the root box. In quadtree mode
// facets facing along z close the extruded profile and are not tracked.
func (o *Octree) rootSlot() Slot {
	slot := Slot{Edges: o.features}
	normals := o.surf.FacetNormals()
	for i := range o.surf.Facets {
		if o.quadtree && math.Abs(normals[i].Z) > 0.5 {
			continue
		}
		if o.surf.Triangle(i).OverlapsBox(o.root) {
			slot.Triangles = append(slot.Triangles, i)
		}
	}
	return slot
}

// FindCubeForPosition returns the cube with coordinates c or -1 if the octree
// is not refined down to it.
func (o *Octree) FindCubeForPosition(c Coordinates) int {
	ci := o.findDeepest(c)
	if ci < 0 || o.cubes[ci].Level != c.Level {
		return -1
	}
	return ci
}

// findDeepest returns the finest existing cube containing the cube at c,
// or -1 if c lies outside the root.
func (o *Octree) findDeepest(c Coordinates) int {
	if !c.inRange(o.quadtree) {
		return -1
	}
	ci := 0
	for lvl := uint8(1); lvl <= c.Level; lvl++ {
		cube := &o.cubes[ci]
		if cube.IsLeaf() {
			return ci
		}
		a := c.Ancestor(lvl)
		j := int(a.X&1) | int(a.Y&1)<<1 | int(a.Z&1)<<2
		ci = int(cube.children) + j
	}
	return ci
}

// FindLeafContainingPoint returns the leaf containing p or -1 if p is
// outside the root box. Points on shared faces resolve to the cube with the
// larger coordinates.
func (o *Octree) FindLeafContainingPoint(p r3.Vec) int {
	if !o.root.Contains(p) {
		return -1
	}
	size := o.root.Size()
	rel := d3.Clamp(r3.Sub(p, o.root.Min), r3.Vec{}, size)
	ci := 0
	for {
		c := &o.cubes[ci]
		if c.IsLeaf() {
			return ci
		}
		n := float64(int64(1) << (c.Level + 1))
		ix := min(int32(rel.X/size.X*n), int32(n)-1)
		iy := min(int32(rel.Y/size.Y*n), int32(n)-1)
		j := int(ix&1) | int(iy&1)<<1
		if !o.quadtree {
			iz := min(int32(rel.Z/size.Z*n), int32(n)-1)
			j |= int(iz&1) << 2
		}
		ci = int(c.children) + j
	}
}

// FindLeavesInBox returns the leaves whose closed boxes intersect b.
func (o *Octree) FindLeavesInBox(b d3.Box) []int {
	var found []int
	todo := []int{0}
	for len(todo) > 0 {
		ci := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		if !o.CubeBox(ci).Overlaps(b) {
			continue
		}
		c := &o.cubes[ci]
		if c.IsLeaf() {
			found = append(found, ci)
			continue
		}
		for j := 0; j < o.nChildren; j++ {
			todo = append(todo, int(c.children)+j)
		}
	}
	return found
}
