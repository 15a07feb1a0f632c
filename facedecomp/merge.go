package facedecomp

import (
	"slices"

	"github.com/soypat/octmesh/internal/d2"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// DecomposeFace splits the face into convex pieces, each planar within tol.
// A face that already is convex and planar is returned whole. Otherwise the
// face is triangulated and adjacent pieces are merged greedily while the
// merged piece stays convex and planar.
func DecomposeFace(face []int, points []r3.Vec, tol float64) ([][]int, error) {
	if IsFaceConvex(face, points) && IsFacePlanar(face, points, tol) {
		return [][]int{slices.Clone(face)}, nil
	}
	pieces, err := DecomposeFaceIntoTriangles(face, points)
	if err != nil {
		return nil, err
	}
	for merged := true; merged; {
		merged = false
	search:
		for i := 0; i < len(pieces); i++ {
			for j := i + 1; j < len(pieces); j++ {
				m, ok := mergeLoops(pieces[i], pieces[j])
				if !ok || !IsFaceConvex(m, points) || !IsFacePlanar(m, points, tol) {
					continue
				}
				pieces[i] = m
				pieces = slices.Delete(pieces, j, j+1)
				merged = true
				break search
			}
		}
	}
	return pieces, nil
}

// mergeLoops joins two loops sharing exactly one edge traversed in opposite
// directions.
func mergeLoops(a, b []int) ([]int, bool) {
	na, nb := len(a), len(b)
	for i := range a {
		p, q := a[i], a[(i+1)%na]
		j := slices.Index(b, q)
		if j < 0 || b[(j+1)%nb] != p {
			continue
		}
		// a from q around to p, then b past p up to before q.
		m := make([]int, 0, na+nb-2)
		for k := 1; k <= na; k++ {
			m = append(m, a[(i+k)%na])
		}
		for k := 2; k < nb; k++ {
			m = append(m, b[(j+k)%nb])
		}
		sorted := slices.Clone(m)
		slices.Sort(sorted)
		if len(slices.Compact(sorted)) != len(m) {
			return nil, false
		}
		return m, true
	}
	return nil, false
}

// inCone reports whether b lies strictly inside the interior angle at a of
// the counter-clockwise corner prev, a, next.
func inCone(prev, a, next, b r2.Vec) bool {
	if d2.Orientation(prev, a, next) >= 0 {
		return d2.Orientation(a, b, prev) > 0 && d2.Orientation(b, a, next) > 0
	}
	return !(d2.Orientation(a, b, next) >= 0 && d2.Orientation(b, a, prev) >= 0)
}

// segmentsIntersect reports whether segments ab and cd share any point.
func segmentsIntersect(a, b, c, d r2.Vec) bool {
	o1, o2 := d2.Orientation(a, b, c), d2.Orientation(a, b, d)
	o3, o4 := d2.Orientation(c, d, a), d2.Orientation(c, d, b)
	if ((o1 > 0 && o2 < 0) || (o1 < 0 && o2 > 0)) && ((o3 > 0 && o4 < 0) || (o3 < 0 && o4 > 0)) {
		return true
	}
	return (o1 == 0 && onSegment(a, b, c)) || (o2 == 0 && onSegment(a, b, d)) ||
		(o3 == 0 && onSegment(c, d, a)) || (o4 == 0 && onSegment(c, d, b))
}

// onSegment reports whether p, known to be collinear with ab, lies on ab.
func onSegment(a, b, p r2.Vec) bool {
	return min(a.X, b.X) <= p.X && p.X <= max(a.X, b.X) && min(a.Y, b.Y) <= p.Y && p.Y <= max(a.Y, b.Y)
}

// strictlyInside reports whether q lies in the interior of the
// counter-clockwise triangle abc.
func strictlyInside(q, a, b, c r2.Vec) bool {
	return d2.Orientation(a, b, q) > 0 && d2.Orientation(b, c, q) > 0 && d2.Orientation(c, a, q) > 0
}
