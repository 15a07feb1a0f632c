package surface

import (
	"math"

	"github.com/soypat/octmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Edge is an undirected surface edge stored with the lower point index first.
type Edge [2]int

func newEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// Other returns the end of the edge that is not p.
func (e Edge) Other(p int) int {
	if e[0] == p {
		return e[1]
	}
	return e[0]
}

// addressing holds topology derived from the facets. Every field is computed
// on first use and dropped together by clearOut.
type addressing struct {
	pointFacets  [][]int
	edges        []Edge
	facetEdges   [][3]int
	edgeFacets   [][]int
	pointEdges   [][]int
	facetNormals []r3.Vec
	pointNormals []r3.Vec
	bounds       *d3.Box
}

func (a *addressing) clearOut() { *a = addressing{} }

// ClearAddressing drops all cached topology and the spatial index.
// It must be called after editing Points or Facets.
func (s *Surface) ClearAddressing() {
	s.addr.clearOut()
	s.index = nil
}

// Bounds returns the bounding box of the surface points.
func (s *Surface) Bounds() d3.Box {
	if s.addr.bounds == nil {
		bb := d3.Set(s.Points).Bounds()
		s.addr.bounds = &bb
	}
	return *s.addr.bounds
}

// PointFacets returns for each point the facets using it.
func (s *Surface) PointFacets() [][]int {
	if s.addr.pointFacets == nil {
		pf := make([][]int, len(s.Points))
		for i, f := range s.Facets {
			for _, v := range f.V {
				pf[v] = append(pf[v], i)
			}
		}
		s.addr.pointFacets = pf
	}
	return s.addr.pointFacets
}

func (s *Surface) calcEdges() {
	lookup := make(map[Edge]int, 3*len(s.Facets)/2)
	facetEdges := make([][3]int, len(s.Facets))
	var edges []Edge
	var edgeFacets [][]int
	for i, f := range s.Facets {
		for j := 0; j < 3; j++ {
			e := newEdge(f.V[j], f.V[(j+1)%3])
			ei, ok := lookup[e]
			if !ok {
				ei = len(edges)
				lookup[e] = ei
				edges = append(edges, e)
				edgeFacets = append(edgeFacets, nil)
			}
			edgeFacets[ei] = append(edgeFacets[ei], i)
			facetEdges[i][j] = ei
		}
	}
	s.addr.edges = edges
	s.addr.facetEdges = facetEdges
	s.addr.edgeFacets = edgeFacets
}

// Edges returns all distinct surface edges.
func (s *Surface) Edges() []Edge {
	if s.addr.edges == nil {
		s.calcEdges()
	}
	return s.addr.edges
}

// FacetEdges returns for each facet the index of edges (V[j], V[j+1]).
func (s *Surface) FacetEdges() [][3]int {
	if s.addr.facetEdges == nil {
		s.calcEdges()
	}
	return s.addr.facetEdges
}

// EdgeFacets returns for each edge the facets sharing it.
func (s *Surface) EdgeFacets() [][]int {
	if s.addr.edgeFacets == nil {
		s.calcEdges()
	}
	return s.addr.edgeFacets
}

// PointEdges returns for each point the edges it is an end of.
func (s *Surface) PointEdges() [][]int {
	if s.addr.pointEdges == nil {
		edges := s.Edges()
		pe := make([][]int, len(s.Points))
		for i, e := range edges {
			pe[e[0]] = append(pe[e[0]], i)
			pe[e[1]] = append(pe[e[1]], i)
		}
		s.addr.pointEdges = pe
	}
	return s.addr.pointEdges
}

// FacetNormals returns the unit normal of each facet.
func (s *Surface) FacetNormals() []r3.Vec {
	if s.addr.facetNormals == nil {
		n := make([]r3.Vec, len(s.Facets))
		for i := range s.Facets {
			n[i] = s.Triangle(i).Normal()
		}
		s.addr.facetNormals = n
	}
	return s.addr.facetNormals
}

// PointNormals returns angle weighted pseudo normals at the points.
func (s *Surface) PointNormals() []r3.Vec {
	if s.addr.pointNormals == nil {
		fn := s.FacetNormals()
		pn := make([]r3.Vec, len(s.Points))
		for i, f := range s.Facets {
			tri := s.Triangle(i)
			for j := range f.V {
				s1 := r3.Sub(tri[(j+1)%3], tri[j])
				s2 := r3.Sub(tri[(j+2)%3], tri[j])
				alpha := math.Acos(math.Max(-1, math.Min(1, r3.Cos(s1, s2))))
				pn[f.V[j]] = r3.Add(pn[f.V[j]], r3.Scale(alpha, fn[i]))
			}
		}
		for i := range pn {
			if r3.Norm2(pn[i]) > 0 {
				pn[i] = r3.Unit(pn[i])
			}
		}
		s.addr.pointNormals = pn
	}
	return s.addr.pointNormals
}

// IsClosed reports whether every edge is shared by exactly two facets.
func (s *Surface) IsClosed() bool {
	for _, ef := range s.EdgeFacets() {
		if len(ef) != 2 {
			return false
		}
	}
	return true
}
