package meshsurface

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// EdgeType flags describe a boundary edge. An edge may carry several flags.
type EdgeType uint8

const (
	None      EdgeType = 0
	PatchEdge EdgeType = 1 << (iota - 1)
	FeatureEdge
	ConvexEdge
	ConcaveEdge
	Undetermined
)

var edgeTypeNames = []string{"patch", "feature", "convex", "concave", "undetermined"}

func (t EdgeType) String() string {
	if t == None {
		return "none"
	}
	var names []string
	for i, name := range edgeTypeNames {
		if t&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

// Has reports whether all flags in f are set.
func (t EdgeType) Has(f EdgeType) bool { return t&f == f }

// flatAngle is the normal deviation below which an edge is neither convex
// nor concave.
const flatAngle = 1e-4

// edgeChunk is the number of edges classified by one goroutine.
const edgeChunk = 4096

// CheckEdgeTypes classifies every boundary edge of s. The dihedral angle at
// an edge is the angle between its two faces measured through the mesh: π
// for coplanar faces, less than π for convex edges. Edges with a dihedral
// angle below threshold (radians) are feature edges. Edges between faces of
// different patches are patch edges and edges without exactly two boundary
// faces are undetermined.
func CheckEdgeTypes(s *Surface, threshold float64) ([]EdgeType, error) {
	if threshold <= 0 || threshold > math.Pi || math.IsNaN(threshold) {
		return nil, fmt.Errorf("dihedral threshold %g outside (0, π]", threshold)
	}
	edges := s.Edges()
	edgeFaces := s.EdgeFaces()
	normals := s.FaceNormals()
	centres := s.FaceCentres()
	types := make([]EdgeType, len(edges))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < len(edges); start += edgeChunk {
		end := min(start+edgeChunk, len(edges))
		g.Go(func() error {
			for e := start; e < end; e++ {
				faces := edgeFaces[e]
				if len(faces) != 2 {
					types[e] = Undetermined
					continue
				}
				f0, f1 := faces[0], faces[1]
				var t EdgeType
				if s.FacePatch(f0) != s.FacePatch(f1) {
					t |= PatchEdge
				}
				n0, n1 := normals[f0], normals[f1]
				if n0 == (r3.Vec{}) || n1 == (r3.Vec{}) {
					types[e] = t | Undetermined
					continue
				}
				deviation := angleBetween(n0, n1)
				if math.Pi-deviation < threshold {
					t |= FeatureEdge
				}
				if deviation > flatAngle {
					mid := r3.Scale(0.5, r3.Add(s.Point(edges[e][0]), s.Point(edges[e][1])))
					if r3.Dot(n0, r3.Sub(centres[f1], mid)) < 0 {
						t |= ConvexEdge
					} else {
						t |= ConcaveEdge
					}
				}
				types[e] = t
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return types, nil
}

// PointType classifies a boundary point by the feature and patch edges
// meeting at it.
type PointType uint8

const (
	// SmoothPoint has no feature or patch edges.
	SmoothPoint PointType = iota
	// EdgePoint lies inside a chain of exactly two feature or patch edges.
	EdgePoint
	// CornerPoint ends a chain or joins three or more chains.
	CornerPoint
)

// ClassifyPoints returns the type of every boundary point given the edge
// types from CheckEdgeTypes.
func ClassifyPoints(s *Surface, types []EdgeType) []PointType {
	out := make([]PointType, len(s.Points()))
	for p, pe := range s.PointEdges() {
		n := 0
		for _, e := range pe {
			if types[e]&(FeatureEdge|PatchEdge) != 0 {
				n++
			}
		}
		switch {
		case n == 2:
			out[p] = EdgePoint
		case n > 0:
			out[p] = CornerPoint
		}
	}
	return out
}
