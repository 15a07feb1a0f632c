package surface

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/soypat/octmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
)

// boxItem is a facet or edge stored in an R-tree by its bounding box.
type boxItem struct {
	rect rtreego.Rect
	idx  int
}

func (b *boxItem) Bounds() rtreego.Rect { return b.rect }

// rect converts a box into an R-tree rectangle padded by pad on every side.
// rtreego treats touching rectangles as disjoint so pad must be positive.
func rect(b d3.Box, pad float64) rtreego.Rect {
	r, err := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min.X - pad, b.Min.Y - pad, b.Min.Z - pad},
		rtreego.Point{b.Max.X + pad, b.Max.Y + pad, b.Max.Z + pad},
	)
	if err != nil {
		panic("bug: " + err.Error())
	}
	return r
}

type index struct {
	tree *rtreego.Rtree
	pad  float64
}

func (s *Surface) spatial() *index {
	if s.index != nil {
		return s.index
	}
	pad := 1e-9 * (d3.Max(s.Bounds().Size()) + 1)
	items := make([]rtreego.Spatial, len(s.Facets))
	for i := range s.Facets {
		items[i] = &boxItem{rect: rect(s.Triangle(i).Bounds(), pad), idx: i}
	}
	s.index = &index{tree: rtreego.NewTree(3, rtreeMinChildren, rtreeMaxChildren, items...), pad: pad}
	return s.index
}

// FacetsInBox returns the facets whose bounding boxes touch box. The result
// is a superset of the facets intersecting box.
func (s *Surface) FacetsInBox(box d3.Box) []int {
	idx := s.spatial()
	found := idx.tree.SearchIntersect(rect(box, idx.pad))
	out := make([]int, len(found))
	for i := range found {
		out[i] = found[i].(*boxItem).idx
	}
	return out
}

// NearestFacet returns the facet closest to p and the closest point on it.
func (s *Surface) NearestFacet(p r3.Vec) (facet int, closest r3.Vec) {
	idx := s.spatial()
	return nearest(idx.tree, idx.pad, p, func(i int) r3.Vec {
		return s.Triangle(i).Closest(p)
	})
}

// nearest finds the item of tree with the smallest exact distance to p. The
// nearest bounding box gives an upper bound used to gather all candidates.
func nearest(tree *rtreego.Rtree, pad float64, p r3.Vec, closestOf func(i int) r3.Vec) (int, r3.Vec) {
	q := rtreego.Point{p.X, p.Y, p.Z}
	first := tree.NearestNeighbor(q)
	if first == nil {
		return -1, r3.Vec{}
	}
	best := first.(*boxItem).idx
	bestPoint := closestOf(best)
	bestDist2 := r3.Norm2(r3.Sub(p, bestPoint))
	for _, cand := range tree.SearchIntersect(q.ToRect(math.Sqrt(bestDist2) + pad)) {
		i := cand.(*boxItem).idx
		if i == best {
			continue
		}
		c := closestOf(i)
		if d2 := r3.Norm2(r3.Sub(p, c)); d2 < bestDist2 {
			best, bestPoint, bestDist2 = i, c, d2
		}
	}
	return best, bestPoint
}

// EdgeIndex answers nearest point queries over a subset of surface edges,
// typically the feature edges.
type EdgeIndex struct {
	s     *Surface
	edges []int
	tree  *rtreego.Rtree
	pad   float64
}

// NewEdgeIndex indexes the given edges of s. An empty edge list yields an
// index whose queries report no edge.
func (s *Surface) NewEdgeIndex(edges []int) *EdgeIndex {
	pad := 1e-9 * (d3.Max(s.Bounds().Size()) + 1)
	all := s.Edges()
	items := make([]rtreego.Spatial, len(edges))
	for i, ei := range edges {
		e := all[ei]
		bb := d3.Box{Min: s.Points[e[0]], Max: s.Points[e[0]]}.Include(s.Points[e[1]])
		items[i] = &boxItem{rect: rect(bb, pad), idx: i}
	}
	return &EdgeIndex{
		s:     s,
		edges: edges,
		tree:  rtreego.NewTree(3, rtreeMinChildren, rtreeMaxChildren, items...),
		pad:   pad,
	}
}

// Nearest returns the surface edge closest to p and the closest point on it.
// edge is -1 if the index is empty.
func (ei *EdgeIndex) Nearest(p r3.Vec) (edge int, closest r3.Vec) {
	if len(ei.edges) == 0 {
		return -1, r3.Vec{}
	}
	all := ei.s.Edges()
	i, c := nearest(ei.tree, ei.pad, p, func(i int) r3.Vec {
		e := all[ei.edges[i]]
		c, _ := d3.SegmentClosest(ei.s.Points[e[0]], ei.s.Points[e[1]], p)
		return c
	})
	return ei.edges[i], c
}
