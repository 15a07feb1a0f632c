package surface

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// FeatureEdges returns the indices of edges that must be preserved in the
// volume mesh: edges where the normals of the adjacent facets deviate by more
// than angle radians, edges between different patches and edges not shared
// by exactly two facets.
func (s *Surface) FeatureEdges(angle float64) []int {
	cosTol := math.Cos(angle)
	normals := s.FacetNormals()
	var features []int
	for ei, ef := range s.EdgeFacets() {
		if len(ef) != 2 {
			features = append(features, ei)
			continue
		}
		f0, f1 := ef[0], ef[1]
		if s.Facets[f0].Patch != s.Facets[f1].Patch || r3.Dot(normals[f0], normals[f1]) < cosTol {
			features = append(features, ei)
		}
	}
	return features
}

// PatchEdges returns the indices of edges between facets of different
// patches.
func (s *Surface) PatchEdges() []int {
	var edges []int
	for ei, ef := range s.EdgeFacets() {
		if len(ef) == 2 && s.Facets[ef[0]].Patch != s.Facets[ef[1]].Patch {
			edges = append(edges, ei)
		}
	}
	return edges
}

// FeatureCorners returns points where the feature edge network branches or
// ends: points with one or more than two feature edges.
func (s *Surface) FeatureCorners(featureEdges []int) []int {
	count := make(map[int]int)
	edges := s.Edges()
	for _, ei := range featureEdges {
		count[edges[ei][0]]++
		count[edges[ei][1]]++
	}
	var corners []int
	for p := range s.Points {
		if c := count[p]; c == 1 || c > 2 {
			corners = append(corners, p)
		}
	}
	return corners
}

// PointPatches returns the distinct patches of the facets around point p.
func (s *Surface) PointPatches(p int) []int {
	var patches []int
	for _, f := range s.PointFacets()[p] {
		patch := s.Facets[f].Patch
		found := false
		for _, q := range patches {
			found = found || q == patch
		}
		if !found {
			patches = append(patches, patch)
		}
	}
	return patches
}
