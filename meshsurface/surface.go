// Package meshsurface provides a view of the boundary of a polymesh.Mesh
// and classifies its edges and vertices.
package meshsurface

import (
	"math"
	"slices"

	"github.com/soypat/octmesh/polymesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is the boundary of a mesh: its boundary faces, the points they use
// and the edges between them. Boundary points and edges are numbered locally;
// Points maps them back to mesh points.
//
// Derived data is computed on first use. ClearOut must be called after the
// mesh changes.
type Surface struct {
	mesh *polymesh.Mesh

	faces        []int
	points       []int
	pointIndex   map[int]int
	pointFaces   [][]int
	edges        [][2]int
	faceEdges    [][]int
	edgeFaces    [][]int
	pointEdges   [][]int
	faceNormals  []r3.Vec
	faceCentres  []r3.Vec
	pointNormals []r3.Vec
}

// New returns the boundary view of m.
func New(m *polymesh.Mesh) *Surface { return &Surface{mesh: m} }

// Mesh returns the underlying mesh.
func (s *Surface) Mesh() *polymesh.Mesh { return s.mesh }

// ClearOut drops all derived data.
func (s *Surface) ClearOut() {
	*s = Surface{mesh: s.mesh}
}

// Faces returns the mesh indices of the boundary faces.
func (s *Surface) Faces() []int {
	if s.faces == nil {
		s.faces = s.mesh.BoundaryFaces()
		if s.faces == nil {
			s.faces = []int{}
		}
	}
	return s.faces
}

// Points returns the sorted mesh labels of the boundary points.
func (s *Surface) Points() []int {
	if s.points != nil {
		return s.points
	}
	s.points = []int{}
	for _, f := range s.Faces() {
		s.points = append(s.points, s.mesh.Faces[f].Points...)
	}
	slices.Sort(s.points)
	s.points = slices.Compact(s.points)
	return s.points
}

// PointIndex returns the boundary index of mesh point p.
func (s *Surface) PointIndex(p int) (int, bool) {
	if s.pointIndex == nil {
		s.pointIndex = make(map[int]int, len(s.Points()))
		for i, p := range s.Points() {
			s.pointIndex[p] = i
		}
	}
	i, ok := s.pointIndex[p]
	return i, ok
}

// FacePoints returns the boundary indices of the points of boundary face bf.
func (s *Surface) FacePoints(bf int) []int {
	mp := s.mesh.Faces[s.Faces()[bf]].Points
	out := make([]int, len(mp))
	for i, p := range mp {
		out[i], _ = s.PointIndex(p)
	}
	return out
}

// PointFaces returns the boundary faces around every boundary point.
func (s *Surface) PointFaces() [][]int {
	if s.pointFaces != nil {
		return s.pointFaces
	}
	pf := make([][]int, len(s.Points()))
	for bf := range s.Faces() {
		for _, p := range s.FacePoints(bf) {
			pf[p] = append(pf[p], bf)
		}
	}
	s.pointFaces = pf
	return pf
}

func (s *Surface) calcEdges() {
	index := make(map[[2]int]int)
	s.edges = [][2]int{}
	s.faceEdges = make([][]int, len(s.Faces()))
	s.edgeFaces = [][]int{}
	for bf := range s.Faces() {
		pts := s.FacePoints(bf)
		s.faceEdges[bf] = make([]int, len(pts))
		for j := range pts {
			key := polymesh.EdgeKey(pts[j], pts[(j+1)%len(pts)])
			e, ok := index[key]
			if !ok {
				e = len(s.edges)
				index[key] = e
				s.edges = append(s.edges, key)
				s.edgeFaces = append(s.edgeFaces, nil)
			}
			s.faceEdges[bf][j] = e
			s.edgeFaces[e] = append(s.edgeFaces[e], bf)
		}
	}
}

// Edges returns the boundary edges as pairs of boundary point indices, lower
// index first.
func (s *Surface) Edges() [][2]int {
	if s.edges == nil {
		s.calcEdges()
	}
	return s.edges
}

// FaceEdges returns the edges of every boundary face, edge j joining face
// points j and j+1.
func (s *Surface) FaceEdges() [][]int {
	if s.edges == nil {
		s.calcEdges()
	}
	return s.faceEdges
}

// EdgeFaces returns the boundary faces sharing every edge.
func (s *Surface) EdgeFaces() [][]int {
	if s.edges == nil {
		s.calcEdges()
	}
	return s.edgeFaces
}

// PointEdges returns the edges at every boundary point.
func (s *Surface) PointEdges() [][]int {
	if s.pointEdges != nil {
		return s.pointEdges
	}
	pe := make([][]int, len(s.Points()))
	for e, edge := range s.Edges() {
		pe[edge[0]] = append(pe[edge[0]], e)
		pe[edge[1]] = append(pe[edge[1]], e)
	}
	s.pointEdges = pe
	return pe
}

// FaceNormals returns the unit normal of every boundary face. Faces without
// area have a zero normal.
func (s *Surface) FaceNormals() []r3.Vec {
	if s.faceNormals != nil {
		return s.faceNormals
	}
	ns := make([]r3.Vec, len(s.Faces()))
	for bf, f := range s.Faces() {
		n := s.mesh.FaceAreaVector(f)
		if l := r3.Norm(n); l > 0 {
			ns[bf] = r3.Scale(1/l, n)
		}
	}
	s.faceNormals = ns
	return ns
}

// FaceCentres returns the centre of every boundary face.
func (s *Surface) FaceCentres() []r3.Vec {
	if s.faceCentres != nil {
		return s.faceCentres
	}
	cs := make([]r3.Vec, len(s.Faces()))
	for bf, f := range s.Faces() {
		cs[bf] = s.mesh.FaceCentre(f)
	}
	s.faceCentres = cs
	return cs
}

// PointNormals returns area weighted unit normals at every boundary point.
func (s *Surface) PointNormals() []r3.Vec {
	if s.pointNormals != nil {
		return s.pointNormals
	}
	ns := make([]r3.Vec, len(s.Points()))
	for p, faces := range s.PointFaces() {
		var n r3.Vec
		for _, bf := range faces {
			n = r3.Add(n, s.mesh.FaceAreaVector(s.Faces()[bf]))
		}
		if l := r3.Norm(n); l > 0 {
			ns[p] = r3.Scale(1/l, n)
		}
	}
	s.pointNormals = ns
	return ns
}

// FacePatch returns the patch of boundary face bf.
func (s *Surface) FacePatch(bf int) int {
	return s.mesh.Faces[s.Faces()[bf]].Patch
}

// Point returns the position of boundary point p.
func (s *Surface) Point(p int) r3.Vec {
	return s.mesh.Points[s.Points()[p]]
}

// EdgeLength returns the length of edge e.
func (s *Surface) EdgeLength(e int) float64 {
	edge := s.Edges()[e]
	return r3.Norm(r3.Sub(s.Point(edge[1]), s.Point(edge[0])))
}

// angleBetween returns the angle between unit vectors a and b.
func angleBetween(a, b r3.Vec) float64 {
	return math.Acos(math.Max(-1, math.Min(1, r3.Dot(a, b))))
}
