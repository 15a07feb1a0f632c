package extract

import (
	"github.com/soypat/octmesh/octree"
	"gonum.org/v1/gonum/spatial/r3"
)

// rect is an axis aligned rectangle on the lattice lying on a leaf face. Its
// normal is along axis, pointing in the positive direction when outward is
// set. lo and hi bound it along axes (axis+1)%3 and (axis+2)%3.
type rect struct {
	axis    int
	outward bool
	w       int32
	lo, hi  [2]int32
}

func (r rect) point(a, b int32) octree.LatticePoint {
	var p octree.LatticePoint
	p.SetComponent(r.axis, r.w)
	p.SetComponent((r.axis+1)%3, a)
	p.SetComponent((r.axis+2)%3, b)
	return p
}

// corners returns the rectangle corners counter-clockwise about its normal.
func (r rect) corners() [4]octree.LatticePoint {
	c := [4]octree.LatticePoint{
		r.point(r.lo[0], r.lo[1]),
		r.point(r.hi[0], r.lo[1]),
		r.point(r.hi[0], r.hi[1]),
		r.point(r.lo[0], r.hi[1]),
	}
	if !r.outward {
		c[1], c[3] = c[3], c[1]
	}
	return c
}

func (r rect) centre() octree.LatticePoint {
	return r.point((r.lo[0]+r.hi[0])/2, (r.lo[1]+r.hi[1])/2)
}

// leafFaces returns the six faces of a leaf lattice box ordered like
// octree.FaceDirections.
func leafFaces(lb octree.LatticeBox) [6]rect {
	var faces [6]rect
	for i := range faces {
		axis := i / 2
		u, v := (axis+1)%3, (axis+2)%3
		r := rect{
			axis:    axis,
			outward: i%2 == 1,
			w:       lb.Min.Component(axis),
			lo:      [2]int32{lb.Min.Component(u), lb.Min.Component(v)},
			hi:      [2]int32{lb.Max.Component(u), lb.Max.Component(v)},
		}
		if r.outward {
			r.w = lb.Max.Component(axis)
		}
		faces[i] = r
	}
	return faces
}

// facer splits the faces of mesh cell leaves into pieces matching their
// neighbours and numbers every lattice point the pieces use. Nodes of the
// addressing keep their labels; extra points, needed where a face is split
// against a neighbour that is only partly meshed, follow them.
//
// A piece is split while its centre is a node. Quadtree side faces are only
// split along their in-plane axis, testing the midpoint on the bottom plane.
// The octree must be balanced so hanging points only appear at midpoints.
type facer struct {
	o      *octree.Octree
	addr   *octree.Addressing
	cells  []int
	labels map[octree.LatticePoint]int
	points []octree.LatticePoint
	pieces [][]rect
}

func newFacer(o *octree.Octree, addr *octree.Addressing) *facer {
	f := &facer{
		o:      o,
		addr:   addr,
		cells:  addr.MeshCells(),
		labels: make(map[octree.LatticePoint]int),
	}
	for i, p := range addr.NodeLattice() {
		f.labels[p] = i
		f.points = append(f.points, p)
	}
	f.pieces = make([][]rect, len(f.cells))
	for i, leaf := range f.cells {
		for _, face := range leafFaces(o.LatticeBox(leaf)) {
			f.pieces[i] = f.split(face, f.pieces[i])
		}
	}
	return f
}

func (f *facer) isNode(p octree.LatticePoint) bool {
	_, ok := f.addr.NodeLabel(p)
	return ok
}

func (f *facer) label(p octree.LatticePoint) int {
	l, ok := f.labels[p]
	if !ok {
		l = len(f.points)
		f.labels[p] = l
		f.points = append(f.points, p)
	}
	return l
}

func (f *facer) split(r rect, out []rect) []rect {
	mu, mv := (r.lo[0]+r.hi[0])/2, (r.lo[1]+r.hi[1])/2
	if r.hi[0]-r.lo[0] > 1 && r.hi[1]-r.lo[1] > 1 {
		switch {
		case f.o.IsQuadtree() && r.axis == 2:
			// Caps have no neighbours.
		case f.o.IsQuadtree() && (r.axis+1)%3 == 2:
			// Extrusion along the first in-plane axis.
			if f.isNode(r.point(r.lo[0], mv)) {
				a, b := r, r
				a.hi[1], b.lo[1] = mv, mv
				return f.split(b, f.split(a, out))
			}
		case f.o.IsQuadtree():
			if f.isNode(r.point(mu, r.lo[1])) {
				a, b := r, r
				a.hi[0], b.lo[0] = mu, mu
				return f.split(b, f.split(a, out))
			}
		default:
			if f.isNode(r.centre()) {
				q := [4]rect{r, r, r, r}
				q[0].hi = [2]int32{mu, mv}
				q[1].lo[0], q[1].hi[1] = mu, mv
				q[2].lo = [2]int32{mu, mv}
				q[3].hi[0], q[3].lo[1] = mu, mv
				for _, sub := range q {
					out = f.split(sub, out)
				}
				return out
			}
		}
	}
	for _, c := range r.corners() {
		f.label(c)
	}
	return append(out, r)
}

// loop returns the outward point loop of a piece including the hanging
// points on its edges.
func (f *facer) loop(r rect) []int {
	cs := r.corners()
	loop := make([]int, 0, 8)
	for i, c := range cs {
		loop = append(loop, f.labels[c])
		loop = f.hanging(c, cs[(i+1)%4], loop)
	}
	return loop
}

func (f *facer) hanging(a, b octree.LatticePoint, out []int) []int {
	d := b.Add(octree.LatticePoint{X: -a.X, Y: -a.Y, Z: -a.Z})
	if abs32(d.X)+abs32(d.Y)+abs32(d.Z) < 2 {
		return out
	}
	m := octree.Mid(a, b)
	l, ok := f.labels[m]
	if !ok {
		return out
	}
	out = f.hanging(a, m, out)
	out = append(out, l)
	return f.hanging(m, b, out)
}

// coordinates returns the spatial position of every numbered point.
func (f *facer) coordinates() []r3.Vec {
	pts := make([]r3.Vec, len(f.points))
	for i, p := range f.points {
		pts[i] = f.o.Point(p)
	}
	return pts
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
