package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a 3d triangle given by its vertices in counter-clockwise order
// when seen from the side its normal points to.
type Triangle [3]r3.Vec

// Normal returns the unit normal of the triangle. Degenerate triangles return NaN components.
func (t Triangle) Normal() r3.Vec {
	return r3.Unit(t.AreaVector())
}

// AreaVector returns the triangle normal scaled by twice its area.
func (t Triangle) AreaVector() r3.Vec {
	return r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
}

// Area returns the area of the triangle.
func (t Triangle) Area() float64 {
	return 0.5 * r3.Norm(t.AreaVector())
}

// Centroid returns the arithmetic mean of the vertices.
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1./3, r3.Add(t[0], r3.Add(t[1], t[2])))
}

// Bounds returns the bounding box of the triangle.
func (t Triangle) Bounds() Box {
	return Box{
		Min: MinElem(t[0], MinElem(t[1], t[2])),
		Max: MaxElem(t[0], MaxElem(t[1], t[2])),
	}
}

// Closest returns the point on the solid triangle closest to p.
//
// based on Geometric Tool's algorithm for
// distance between a point and a solid triangle,
// licensed under the Boost Software License
func (t Triangle) Closest(target r3.Vec) r3.Vec {
	a := t[0]
	diff := r3.Sub(target, a)
	edge0 := r3.Sub(t[1], a)
	edge1 := r3.Sub(t[2], a)

	a00 := r3.Dot(edge0, edge0)
	a01 := r3.Dot(edge0, edge1)
	a11 := r3.Dot(edge1, edge1)
	b0 := -r3.Dot(diff, edge0)
	b1 := -r3.Dot(diff, edge1)

	f00 := b0
	f10 := b0 + a00
	f01 := b0 + a01

	var p0, p1, p [2]float64
	var dt1, h0, h1 float64

	if f00 >= 0 {
		if f01 >= 0 {
			p = minEdge02(a11, b1)
		} else {
			p0[0] = 0
			p0[1] = f00 / (f00 - f01)
			p1[0] = f01 / (f01 - f10)
			p1[1] = 1 - p1[0]
			dt1 = p1[1] - p0[1]
			h0 = dt1 * (a11*p0[1] + b1)
			if h0 >= 0 {
				p = minEdge02(a11, b1)
			} else {
				h1 = dt1 * (a01*p1[0] + a11*p1[1] + b1)
				if h1 <= 0 {
					p = minEdge12(a01, a11, b1, f10, f01)
				} else {
					p = minInterior(p0, h0, p1, h1)
				}
			}
		}
	} else if f01 <= 0 {
		if f10 <= 0 {
			p = minEdge12(a01, a11, b1, f10, f01)
		} else {
			p0[0] = f00 / (f00 - f10)
			p0[1] = 0
			p1[0] = f01 / (f01 - f10)
			p1[1] = 1 - p1[0]
			h0 = p1[1] * (a01*p0[0] + b1)
			if h0 >= 0 {
				p = p0
			} else {
				h1 = p1[1] * (a01*p1[0] + a11*p1[1] + b1)
				if h1 <= 0 {
					p = minEdge12(a01, a11, b1, f10, f01)
				} else {
					p = minInterior(p0, h0, p1, h1)
				}
			}
		}
	} else if f10 <= 0 {
		p0[0] = 0
		p0[1] = f00 / (f00 - f01)
		p1[0] = f01 / (f01 - f10)
		p1[1] = 1 - p1[0]
		dt1 = p1[1] - p0[1]
		h0 = dt1 * (a11*p0[1] + b1)
		if h0 >= 0 {
			p = minEdge02(a11, b1)
		} else {
			h1 = dt1 * (a01*p1[0] + a11*p1[1] + b1)
			if h1 <= 0 {
				p = minEdge12(a01, a11, b1, f10, f01)
			} else {
				p = minInterior(p0, h0, p1, h1)
			}
		}
	} else {
		p0[0] = f00 / (f00 - f10)
		p0[1] = 0
		p1[0] = 0
		p1[1] = f00 / (f00 - f01)
		h0 = p1[1] * (a01*p0[0] + b1)
		if h0 >= 0 {
			p = p0
		} else {
			h1 = p1[1] * (a11*p1[1] + b1)
			if h1 <= 0 {
				p = minEdge02(a11, b1)
			} else {
				p = minInterior(p0, h0, p1, h1)
			}
		}
	}
	return r3.Add(a, r3.Add(r3.Scale(p[0], edge0), r3.Scale(p[1], edge1)))
}

func minEdge02(a11, b1 float64) (p [2]float64) {
	p[0] = 0
	if b1 >= 0 {
		p[1] = 0
	} else if a11+b1 <= 0 {
		p[1] = 1
	} else {
		p[1] = -b1 / a11
	}
	return p
}

func minEdge12(a01, a11, b1, f10, f01 float64) (p [2]float64) {
	h0 := a01 + b1 - f10
	if h0 >= 0 {
		p[1] = 0
	} else {
		h1 := a11 + b1 - f01
		if h1 <= 0 {
			p[1] = 1
		} else {
			p[1] = h0 / (h0 - h1)
		}
	}
	p[0] = 1 - p[1]
	return p
}

func minInterior(p0 [2]float64, h0 float64, p1 [2]float64, h1 float64) (p [2]float64) {
	z := h0 / (h0 - h1)
	omz := 1 - z
	p[0] = omz*p0[0] + z*p1[0]
	p[1] = omz*p0[1] + z*p1[1]
	return p
}

// OverlapsBox reports whether the closed triangle and box intersect using the
// separating axis test of Akenine-Möller. Touching counts as overlapping.
func (t Triangle) OverlapsBox(b Box) bool {
	if !t.Bounds().Overlaps(b) {
		return false
	}
	c := b.Center()
	h := r3.Scale(0.5, b.Size())
	// Slightly inflate so that triangles lying on a box face are kept.
	h = r3.Add(h, Elem(1e-9*(Max(h)+1)))
	v := [3]r3.Vec{r3.Sub(t[0], c), r3.Sub(t[1], c), r3.Sub(t[2], c)}
	e := [3]r3.Vec{r3.Sub(v[1], v[0]), r3.Sub(v[2], v[1]), r3.Sub(v[0], v[2])}
	axes := [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	for i := range axes {
		for j := range e {
			if separated(r3.Cross(axes[i], e[j]), v, h) {
				return false
			}
		}
	}
	n := r3.Cross(e[0], e[1])
	return !separated(n, v, h)
}

func separated(axis r3.Vec, v [3]r3.Vec, h r3.Vec) bool {
	if r3.Norm2(axis) < 1e-30 {
		return false
	}
	p0, p1, p2 := r3.Dot(axis, v[0]), r3.Dot(axis, v[1]), r3.Dot(axis, v[2])
	r := h.X*math.Abs(axis.X) + h.Y*math.Abs(axis.Y) + h.Z*math.Abs(axis.Z)
	return math.Min(p0, math.Min(p1, p2)) > r || math.Max(p0, math.Max(p1, p2)) < -r
}

// SolidAngle returns the signed solid angle the triangle subtends at p. It is
// positive when p lies behind the triangle with respect to its normal.
func (t Triangle) SolidAngle(p r3.Vec) float64 {
	a, b, c := r3.Sub(t[0], p), r3.Sub(t[1], p), r3.Sub(t[2], p)
	la, lb, lc := r3.Norm(a), r3.Norm(b), r3.Norm(c)
	num := r3.Dot(a, r3.Cross(b, c))
	den := la*lb*lc + r3.Dot(a, b)*lc + r3.Dot(a, c)*lb + r3.Dot(b, c)*la
	return 2 * math.Atan2(num, den)
}

// TetVolume returns the signed volume of the tetrahedron a,b,c,d. The volume
// is positive when a,b,c is counter-clockwise when seen from d.
func TetVolume(a, b, c, d r3.Vec) float64 {
	return r3.Dot(r3.Sub(d, a), r3.Cross(r3.Sub(b, a), r3.Sub(c, a))) / 6
}

// SegmentClosest returns the point on segment ab closest to p and
// the segment parameter in [0, 1] of that point.
func SegmentClosest(a, b, p r3.Vec) (r3.Vec, float64) {
	ab := r3.Sub(b, a)
	l2 := r3.Norm2(ab)
	if l2 == 0 {
		return a, 0
	}
	s := clamp(r3.Dot(r3.Sub(p, a), ab)/l2, 0, 1)
	return r3.Add(a, r3.Scale(s, ab)), s
}
