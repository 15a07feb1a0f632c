package d2

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Polygon is a closed loop of 2d points. The last point connects to the first.
type Polygon []r2.Vec

// Project maps 3d points onto the plane through origin with the given normal.
// The in-plane basis is right handed with respect to normal so loops that are
// counter-clockwise around normal come out counter-clockwise in 2d.
func Project(points []r3.Vec, origin, normal r3.Vec) Polygon {
	u, v := planeBasis(normal)
	poly := make(Polygon, len(points))
	for i, p := range points {
		d := r3.Sub(p, origin)
		poly[i] = r2.Vec{X: r3.Dot(d, u), Y: r3.Dot(d, v)}
	}
	return poly
}

func planeBasis(n r3.Vec) (u, v r3.Vec) {
	n = r3.Unit(n)
	axis := r3.Vec{X: 1}
	switch {
	case math.Abs(n.Y) <= math.Abs(n.X) && math.Abs(n.Y) <= math.Abs(n.Z):
		axis = r3.Vec{Y: 1}
	case math.Abs(n.Z) <= math.Abs(n.X) && math.Abs(n.Z) <= math.Abs(n.Y):
		axis = r3.Vec{Z: 1}
	}
	u = r3.Unit(r3.Cross(axis, n))
	v = r3.Cross(n, u)
	return u, v
}

// SignedArea returns the area enclosed by the polygon, positive when counter-clockwise.
func (p Polygon) SignedArea() float64 {
	sum := 0.0
	for i := range p {
		sum += Cross(p[i], p[(i+1)%len(p)])
	}
	return sum / 2
}

// Turn returns the orientation of the corner at vertex i.
func (p Polygon) Turn(i int) float64 {
	n := len(p)
	return Orientation(p[(i+n-1)%n], p[i], p[(i+1)%n])
}

// InTriangle reports whether q lies inside or on the counter-clockwise triangle abc.
func InTriangle(q, a, b, c r2.Vec, tol float64) bool {
	return Orientation(a, b, q) >= -tol && Orientation(b, c, q) >= -tol && Orientation(c, a, q) >= -tol
}
