package meshsurface

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// CheckInvertedVertices returns the sorted mesh labels of boundary points at
// which a boundary face folds over. A face folds at an edge when the
// triangle joining the edge to the face centre points against the face
// normal or against the normal of either edge point.
func CheckInvertedVertices(s *Surface) []int {
	normals := s.FaceNormals()
	centres := s.FaceCentres()
	pointNormals := s.PointNormals()
	inverted := make([]bool, len(s.Points()))
	for bf := range s.Faces() {
		pts := s.FacePoints(bf)
		for j := range pts {
			a, b := pts[j], pts[(j+1)%len(pts)]
			tn := r3.Cross(r3.Sub(s.Point(a), centres[bf]), r3.Sub(s.Point(b), centres[bf]))
			if r3.Dot(tn, normals[bf]) <= 0 || r3.Dot(tn, pointNormals[a]) <= 0 || r3.Dot(tn, pointNormals[b]) <= 0 {
				inverted[a] = true
				inverted[b] = true
			}
		}
	}
	var out []int
	for p, inv := range inverted {
		if inv {
			out = append(out, s.Points()[p])
		}
	}
	slices.Sort(out)
	return out
}
