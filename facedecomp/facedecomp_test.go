package facedecomp

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/soypat/octmesh/polymesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// planar lifts 2d points onto a tilted plane so tests do not rely on an
// axis aligned face.
func planar(xy ...[2]float64) ([]int, []r3.Vec) {
	u := r3.Unit(r3.Vec{X: 1, Y: 1})
	v := r3.Unit(r3.Vec{X: -1, Y: 1, Z: 1})
	v = r3.Unit(r3.Sub(v, r3.Scale(r3.Dot(v, u), u)))
	origin := r3.Vec{X: 3, Y: -2, Z: 1}
	face := make([]int, len(xy))
	pts := make([]r3.Vec, len(xy))
	for i, p := range xy {
		face[i] = i
		pts[i] = r3.Add(origin, r3.Add(r3.Scale(p[0], u), r3.Scale(p[1], v)))
	}
	return face, pts
}

func pieceArea(t *testing.T, pieces [][]int, pts []r3.Vec, normal r3.Vec) float64 {
	t.Helper()
	var area float64
	for _, piece := range pieces {
		loop := make([]r3.Vec, len(piece))
		for i, p := range piece {
			loop[i] = pts[p]
		}
		a := polymesh.PolygonAreaVector(loop)
		if r3.Dot(a, normal) <= 0 {
			t.Errorf("piece %v is inverted", piece)
		}
		area += r3.Norm(a)
	}
	return area
}

func faceNormal(face []int, pts []r3.Vec) r3.Vec {
	loop := make([]r3.Vec, len(face))
	for i, p := range face {
		loop[i] = pts[p]
	}
	return polymesh.PolygonAreaVector(loop)
}

var (
	lShape = [][2]float64{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}}
	uShape = [][2]float64{{0, 0}, {4, 0}, {4, 3}, {3, 3}, {3, 1}, {1, 1}, {1, 3}, {0, 3}}
)

func TestIsFacePlanar(t *testing.T) {
	face, pts := planar([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{1, 1}, [2]float64{0, 1})
	if !IsFacePlanar(face, pts, 1e-6) {
		t.Error("square should be planar")
	}
	n := r3.Unit(faceNormal(face, pts))
	pts[2] = r3.Add(pts[2], r3.Scale(1e-3, n))
	if IsFacePlanar(face, pts, 1e-6) {
		t.Error("perturbed square should not be planar")
	}
}

func TestTriangleAlwaysConvex(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		pts := make([]r3.Vec, 3)
		for j := range pts {
			pts[j] = r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
		}
		if i%10 == 0 {
			pts[2] = pts[1]
		}
		if !IsFaceConvex([]int{0, 1, 2}, pts) {
			t.Fatalf("triangle %v not convex", pts)
		}
	}
}

func TestConcaveVertex(t *testing.T) {
	for _, test := range []struct {
		name string
		xy   [][2]float64
		want int
	}{
		{"square", [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, -1},
		{"straight corner", [][2]float64{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {0, 1}}, -1},
		{"l shape", lShape, 3},
		{"u shape first of two", uShape, 4},
	} {
		face, pts := planar(test.xy...)
		got, err := ConcaveVertex(face, pts)
		if err != nil {
			t.Fatal(test.name, err)
		}
		if got != test.want {
			t.Errorf("%s: got concave vertex %d, want %d", test.name, got, test.want)
		}
		if convex := IsFaceConvex(face, pts); convex != (test.want < 0) {
			t.Errorf("%s: IsFaceConvex = %v", test.name, convex)
		}
	}
	face, pts := planar([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0}, [2]float64{3, 0})
	if _, err := ConcaveVertex(face, pts); !errors.Is(err, ErrDegenerateFace) {
		t.Errorf("collinear face: got %v, want %v", err, ErrDegenerateFace)
	}
}

func TestDecomposeConvexFan(t *testing.T) {
	var xy [][2]float64
	for i := 0; i < 7; i++ {
		a := 2 * math.Pi * float64(i) / 7
		xy = append(xy, [2]float64{2 * math.Cos(a), 2 * math.Sin(a)})
	}
	face, pts := planar(xy...)
	tris, err := DecomposeFaceIntoTriangles(face, pts)
	if err != nil {
		t.Fatal(err)
	}
	if len(tris) != len(face)-2 {
		t.Fatalf("got %d triangles, want %d", len(tris), len(face)-2)
	}
	for i, tri := range tris {
		if tri[0] != 0 {
			t.Errorf("triangle %d %v not fanned from vertex 0", i, tri)
		}
	}
	n := faceNormal(face, pts)
	if got, want := pieceArea(t, tris, pts, n), r3.Norm(n); math.Abs(got-want) > 1e-9*want {
		t.Errorf("triangle area %g, face area %g", got, want)
	}
}

func TestDecomposeHangingPoints(t *testing.T) {
	// Square with a point halfway along every side.
	face, pts := planar([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{2, 0}, [2]float64{2, 1},
		[2]float64{2, 2}, [2]float64{1, 2}, [2]float64{0, 2}, [2]float64{0, 1})
	tris, err := DecomposeFaceIntoTriangles(face, pts)
	if err != nil {
		t.Fatal(err)
	}
	if len(tris) != 6 {
		t.Fatalf("got %d triangles, want 6", len(tris))
	}
	for _, tri := range tris {
		if a := r3.Norm(faceNormal(tri, pts)); a < 1e-6 {
			t.Errorf("flat triangle %v with area %g", tri, a)
		}
	}
	n := faceNormal(face, pts)
	if got := pieceArea(t, tris, pts, n); math.Abs(got-4) > 1e-9 {
		t.Errorf("triangle area %g, want 4", got)
	}
}

func TestDecomposeConcave(t *testing.T) {
	for _, test := range []struct {
		name string
		xy   [][2]float64
		area float64
	}{
		{"l shape", lShape, 3},
		{"u shape", uShape, 8},
	} {
		face, pts := planar(test.xy...)
		n := faceNormal(face, pts)
		tris, err := DecomposeFaceIntoTriangles(face, pts)
		if err != nil {
			t.Fatal(test.name, err)
		}
		if len(tris) != len(face)-2 {
			t.Errorf("%s: got %d triangles, want %d", test.name, len(tris), len(face)-2)
		}
		if got := pieceArea(t, tris, pts, n); math.Abs(got-test.area) > 1e-9 {
			t.Errorf("%s: triangle area %g, want %g", test.name, got, test.area)
		}

		pieces, err := DecomposeFace(face, pts, 1e-9)
		if err != nil {
			t.Fatal(test.name, err)
		}
		for _, piece := range pieces {
			if !IsFaceConvex(piece, pts) {
				t.Errorf("%s: piece %v not convex", test.name, piece)
			}
		}
		if len(pieces) >= len(tris) {
			t.Errorf("%s: %d convex pieces did not merge any of %d triangles", test.name, len(pieces), len(tris))
		}
		if got := pieceArea(t, pieces, pts, n); math.Abs(got-test.area) > 1e-9 {
			t.Errorf("%s: piece area %g, want %g", test.name, got, test.area)
		}
	}
}

func TestDecomposeFaceConvexWhole(t *testing.T) {
	face, pts := planar([2]float64{0, 0}, [2]float64{1, 0}, [2]float64{1, 1}, [2]float64{0, 1})
	pieces, err := DecomposeFace(face, pts, 1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if len(pieces) != 1 || len(pieces[0]) != 4 {
		t.Errorf("convex planar face split into %v", pieces)
	}
	pts[2] = r3.Add(pts[2], r3.Scale(0.1, r3.Unit(faceNormal(face, pts))))
	pieces, err = DecomposeFace(face, pts, 1e-6)
	if err != nil {
		t.Fatal(err)
	}
	if len(pieces) != 2 {
		t.Errorf("warped quad: got %d pieces, want 2 triangles", len(pieces))
	}
}
