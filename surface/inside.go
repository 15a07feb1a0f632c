package surface

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// WindingNumber returns the generalized winding number of the surface around p.
// It is close to 1 inside a closed outward oriented surface and close to 0
// outside, and degrades gracefully for surfaces with small holes.
func (s *Surface) WindingNumber(p r3.Vec) float64 {
	sum := 0.0
	for i := range s.Facets {
		sum += s.Triangle(i).SolidAngle(p)
	}
	return sum / (4 * math.Pi)
}

// IsInside reports whether p is enclosed by the surface. Orientation of the
// facets does not matter.
func (s *Surface) IsInside(p r3.Vec) bool {
	return math.Abs(s.WindingNumber(p)) > 0.5
}

// rayDir is slightly off axis so rays from cell centres avoid facet edges
// of axis aligned surfaces.
var rayDir = r3.Unit(r3.Vec{X: 1, Y: 1.2345678e-5})

// IsInsideRay reports whether p is enclosed by the surface by counting facets
// crossed by a ray from p. Unlike IsInside it also works for surfaces that are
// closed only in the xy plane, such as extruded 2D profiles.
func (s *Surface) IsInsideRay(p r3.Vec) bool {
	crossings := 0
	for i := range s.Facets {
		if rayHitsTriangle(p, rayDir, s.Triangle(i)) {
			crossings++
		}
	}
	return crossings%2 == 1
}

// rayHitsTriangle is the Möller-Trumbore ray triangle intersection test.
func rayHitsTriangle(orig, dir r3.Vec, t [3]r3.Vec) bool {
	const eps = 1e-14
	e1 := r3.Sub(t[1], t[0])
	e2 := r3.Sub(t[2], t[0])
	h := r3.Cross(dir, e2)
	a := r3.Dot(e1, h)
	if math.Abs(a) < eps*r3.Norm(e1)*r3.Norm(e2) {
		return false // parallel.
	}
	f := 1 / a
	sv := r3.Sub(orig, t[0])
	u := f * r3.Dot(sv, h)
	if u < 0 || u > 1 {
		return false
	}
	q := r3.Cross(sv, e1)
	v := f * r3.Dot(dir, q)
	if v < 0 || u+v > 1 {
		return false
	}
	return f*r3.Dot(e2, q) > 0
}
