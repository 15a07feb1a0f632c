package morph

import (
	"slices"

	"github.com/soypat/octmesh/surface"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// corner is a surface point shared by three or more patches, stored in a
// k-d tree.
type corner struct {
	P       r3.Vec
	patches []int // sorted.
}

func (c *corner) Compare(q kdtree.Comparable, d kdtree.Dim) float64 {
	p := q.(*corner).P
	switch d {
	case 0:
		return c.P.X - p.X
	case 1:
		return c.P.Y - p.Y
	case 2:
		return c.P.Z - p.Z
	}
	panic("bug: illegal dimension")
}

func (c *corner) Dims() int { return 3 }

func (c *corner) Distance(q kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(c.P, q.(*corner).P))
}

// cornerList implements kdtree.Interface.
type cornerList []corner

func (cl cornerList) Index(i int) kdtree.Comparable { return &cl[i] }

func (cl cornerList) Len() int { return len(cl) }

func (cl cornerList) Pivot(d kdtree.Dim) int {
	p := cornerPlane{dim: d, corners: cl}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (cl cornerList) Slice(start, end int) kdtree.Interface { return cl[start:end] }

type cornerPlane struct {
	dim     kdtree.Dim
	corners cornerList
}

func (p cornerPlane) Less(i, j int) bool {
	return p.corners[i].Compare(&p.corners[j], p.dim) < 0
}

func (p cornerPlane) Swap(i, j int) {
	p.corners[i], p.corners[j] = p.corners[j], p.corners[i]
}

func (p cornerPlane) Len() int { return len(p.corners) }

func (p cornerPlane) Slice(start, end int) kdtree.SortSlicer {
	p.corners = p.corners[start:end]
	return p
}

// cornerIndex answers nearest patch corner queries.
type cornerIndex struct {
	tree *kdtree.Tree
	n    int
}

// newCornerIndex indexes the candidate points of s shared by three or more
// patches.
func newCornerIndex(s *surface.Surface, candidates []int) cornerIndex {
	var cl cornerList
	for _, p := range candidates {
		patches := s.PointPatches(p)
		if len(patches) < 3 {
			continue
		}
		slices.Sort(patches)
		cl = append(cl, corner{P: s.Points[p], patches: patches})
	}
	if len(cl) == 0 {
		return cornerIndex{}
	}
	return cornerIndex{tree: kdtree.New(cl, false), n: len(cl)}
}

// nearest returns the corner closest to p and its squared distance.
func (ci cornerIndex) nearest(p r3.Vec) (*corner, float64) {
	if ci.n == 0 {
		return nil, 0
	}
	c, d2 := ci.tree.Nearest(&corner{P: p})
	return c.(*corner), d2
}

// covering returns the corner closest to p among those shared by all the
// given patches, or nil.
func (ci cornerIndex) covering(p r3.Vec, patches []int) *corner {
	if ci.n == 0 {
		return nil
	}
	keep := kdtree.NewNKeeper(ci.n)
	ci.tree.NearestSet(keep, &corner{P: p})
	for _, cd := range keep.Heap {
		c := cd.Comparable.(*corner)
		if isSubset(patches, c.patches) {
			return c
		}
	}
	return nil
}

// isSubset reports whether every element of a is in the sorted slice b.
func isSubset(a, b []int) bool {
	for _, v := range a {
		if _, ok := slices.BinarySearch(b, v); !ok {
			return false
		}
	}
	return true
}
