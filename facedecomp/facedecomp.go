// Package facedecomp tests polygonal mesh faces for convexity and planarity
// and splits them into triangles or convex pieces.
//
// Faces are loops of indices into a point slice. All predicates work on the
// projection of the face onto the plane of its Newell normal, so the loop
// orientation defines which corners are concave.
package facedecomp

import (
	"errors"
	"math"

	"github.com/soypat/octmesh/internal/d2"
	"github.com/soypat/octmesh/polymesh"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateFace is returned when a face has no well defined plane, such
// as when all its points are collinear.
var ErrDegenerateFace = errors.New("degenerate face")

// angleTol is the sine of the smallest corner deflection treated as a turn.
const angleTol = 1e-9

// projected is a face flattened onto its own plane.
type projected struct {
	face []int
	poly d2.Polygon
}

func project(face []int, points []r3.Vec) (projected, error) {
	pts := make([]r3.Vec, len(face))
	for i, p := range face {
		pts[i] = points[p]
	}
	n := polymesh.PolygonAreaVector(pts)
	var maxLen float64
	for i := range pts {
		maxLen = math.Max(maxLen, r3.Norm(r3.Sub(pts[(i+1)%len(pts)], pts[i])))
	}
	if maxLen == 0 || r3.Norm(n) <= angleTol*maxLen*maxLen {
		return projected{}, ErrDegenerateFace
	}
	return projected{face: face, poly: d2.Project(pts, pts[0], n)}, nil
}

// turn returns the sine of the deflection at corner i of the loop given by
// positions idx into the projected polygon. Concave corners are negative.
func (pr projected) turn(idx []int, i int) float64 {
	n := len(idx)
	a, b, c := pr.poly[idx[(i+n-1)%n]], pr.poly[idx[i]], pr.poly[idx[(i+1)%n]]
	l := math.Hypot(b.X-a.X, b.Y-a.Y) * math.Hypot(c.X-b.X, c.Y-b.Y)
	if l == 0 {
		return 0
	}
	return d2.Orientation(a, b, c) / l
}

func (pr projected) concave(idx []int) int {
	for i := range idx {
		if pr.turn(idx, i) < -angleTol {
			return i
		}
	}
	return -1
}

func (pr projected) labels(idx []int) []int {
	out := make([]int, len(idx))
	for i, k := range idx {
		out[i] = pr.face[k]
	}
	return out
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// IsFaceConvex reports whether no corner of the face turns against the face
// normal. Triangles are always convex and degenerate faces never are.
func IsFaceConvex(face []int, points []r3.Vec) bool {
	if len(face) == 3 {
		return true
	}
	pr, err := project(face, points)
	if err != nil {
		return false
	}
	return pr.concave(identity(len(face))) < 0
}

// IsFacePlanar reports whether every point of the face lies within tol of
// the plane through the face centre normal to the face.
func IsFacePlanar(face []int, points []r3.Vec, tol float64) bool {
	if len(face) <= 3 {
		return true
	}
	pts := make([]r3.Vec, len(face))
	for i, p := range face {
		pts[i] = points[p]
	}
	n := polymesh.PolygonAreaVector(pts)
	if r3.Norm2(n) == 0 {
		return true
	}
	n = r3.Unit(n)
	c := polymesh.PolygonCentre(pts)
	for _, p := range pts {
		if math.Abs(r3.Dot(r3.Sub(p, c), n)) > tol {
			return false
		}
	}
	return true
}

// ConcaveVertex returns the loop position of the first concave corner of the
// face, or -1 when the face is convex. When several corners are concave the
// first in loop order is chosen.
func ConcaveVertex(face []int, points []r3.Vec) (int, error) {
	if len(face) == 3 {
		return -1, nil
	}
	pr, err := project(face, points)
	if err != nil {
		return -1, err
	}
	return pr.concave(identity(len(face))), nil
}

// DecomposeFaceIntoTriangles splits the face into len(face)-2 triangles with
// the face's orientation. Convex faces are fanned from their first point;
// otherwise the fan starts at the first concave corner and the face is cut
// along a diagonal whenever that fan would invert or flatten a triangle.
func DecomposeFaceIntoTriangles(face []int, points []r3.Vec) ([][]int, error) {
	if len(face) == 3 {
		return [][]int{append([]int(nil), face...)}, nil
	}
	pr, err := project(face, points)
	if err != nil {
		return nil, err
	}
	idx := identity(len(face))
	if pr.concave(idx) < 0 && pr.fanValid(idx, 0) {
		return pr.fan(idx, 0), nil
	}
	return pr.triangulate(idx)
}

// fan returns the triangles from corner i of idx to every other edge.
func (pr projected) fan(idx []int, i int) [][]int {
	n := len(idx)
	tris := make([][]int, 0, n-2)
	for k := 1; k < n-1; k++ {
		tris = append(tris, pr.labels([]int{idx[i], idx[(i+k)%n], idx[(i+k+1)%n]}))
	}
	return tris
}

func (pr projected) triangulate(idx []int) ([][]int, error) {
	n := len(idx)
	if n == 3 {
		return [][]int{pr.labels(idx)}, nil
	}
	c := pr.concave(idx)
	switch {
	case c >= 0 && pr.fanValid(idx, c):
		return pr.fan(idx, c), nil
	case c < 0:
		// Straight corners can leave every fan with a flat triangle.
		for k := range idx {
			if pr.fanValid(idx, k) {
				return pr.fan(idx, k), nil
			}
		}
		c = 0
	}
	for k := 2; k < n-1; k++ {
		j := (c + k) % n
		if !pr.diagonal(idx, c, j) {
			continue
		}
		a, b := splitLoop(idx, c, j)
		ta, err := pr.triangulate(a)
		if err != nil {
			return nil, err
		}
		tb, err := pr.triangulate(b)
		if err != nil {
			return nil, err
		}
		return append(ta, tb...), nil
	}
	return nil, ErrDegenerateFace
}

// fanValid reports whether the fan from corner c covers the loop without
// inverted triangles or triangles containing other corners.
func (pr projected) fanValid(idx []int, c int) bool {
	n := len(idx)
	apex := pr.poly[idx[c]]
	for k := 1; k < n-1; k++ {
		b, d := pr.poly[idx[(c+k)%n]], pr.poly[idx[(c+k+1)%n]]
		if sine(apex, b, d) <= angleTol {
			return false
		}
		for m := 0; m < n; m++ {
			if m == c || m == (c+k)%n || m == (c+k+1)%n {
				continue
			}
			if q := pr.poly[idx[m]]; strictlyInside(q, apex, b, d) {
				return false
			}
		}
	}
	return true
}

// sine returns the orientation of triangle abc normalized by the lengths of
// the sides meeting at a.
func sine(a, b, c r2.Vec) float64 {
	l := math.Hypot(b.X-a.X, b.Y-a.Y) * math.Hypot(c.X-a.X, c.Y-a.Y)
	if l == 0 {
		return 0
	}
	return d2.Orientation(a, b, c) / l
}

// diagonal reports whether the segment between corners i and j of idx lies
// inside the loop.
func (pr projected) diagonal(idx []int, i, j int) bool {
	n := len(idx)
	a, b := pr.poly[idx[i]], pr.poly[idx[j]]
	if !inCone(pr.poly[idx[(i+n-1)%n]], a, pr.poly[idx[(i+1)%n]], b) ||
		!inCone(pr.poly[idx[(j+n-1)%n]], b, pr.poly[idx[(j+1)%n]], a) {
		return false
	}
	for k := 0; k < n; k++ {
		k1 := (k + 1) % n
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		if segmentsIntersect(a, b, pr.poly[idx[k]], pr.poly[idx[k1]]) {
			return false
		}
	}
	return true
}

// splitLoop cuts the loop idx along the diagonal between positions i and j.
func splitLoop(idx []int, i, j int) (a, b []int) {
	n := len(idx)
	for k := i; ; k = (k + 1) % n {
		a = append(a, idx[k])
		if k == j {
			break
		}
	}
	for k := j; ; k = (k + 1) % n {
		b = append(b, idx[k])
		if k == i {
			break
		}
	}
	return a, b
}
