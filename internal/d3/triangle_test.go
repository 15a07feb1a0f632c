package d3

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestTriangleClosest(t *testing.T) {
	tri := Triangle{{}, {X: 1}, {Y: 1}}
	for _, test := range []struct {
		p, want r3.Vec
	}{
		{p: r3.Vec{X: 0.25, Y: 0.25, Z: 3}, want: r3.Vec{X: 0.25, Y: 0.25}},
		{p: r3.Vec{X: -1, Y: -1, Z: 0}, want: r3.Vec{}},
		{p: r3.Vec{X: 2, Y: -1, Z: 1}, want: r3.Vec{X: 1}},
		{p: r3.Vec{X: 1, Y: 1, Z: 0}, want: r3.Vec{X: 0.5, Y: 0.5}},
		{p: r3.Vec{X: -3, Y: 0.5, Z: 0}, want: r3.Vec{Y: 0.5}},
	} {
		got := tri.Closest(test.p)
		if !EqualWithin(got, test.want, 1e-12) {
			t.Errorf("closest to %v: got %v, want %v", test.p, got, test.want)
		}
	}
}

func TestTriangleOverlapsBox(t *testing.T) {
	box := Box{Min: r3.Vec{}, Max: Elem(1)}
	for _, test := range []struct {
		tri  Triangle
		want bool
	}{
		{tri: Triangle{{X: 0.5, Y: 0.5, Z: 0.5}, {X: 3, Y: 0.5, Z: 0.5}, {X: 0.5, Y: 3, Z: 0.5}}, want: true},
		{tri: Triangle{{X: 2, Y: 2, Z: 2}, {X: 3, Y: 2, Z: 2}, {X: 2, Y: 3, Z: 2}}, want: false},
		// Large triangle slicing through the box with no vertex inside.
		{tri: Triangle{{X: -5, Y: -5, Z: 0.5}, {X: 5, Y: -5, Z: 0.5}, {X: 0, Y: 10, Z: 0.5}}, want: true},
		// Bounding boxes overlap, triangle passes beside the corner.
		{tri: Triangle{{X: 2, Y: 0.5, Z: 0.5}, {X: 2, Y: 3, Z: 0.5}, {X: 0.5, Y: 3, Z: 0.5}}, want: false},
		// Lies on a box face.
		{tri: Triangle{{X: 0.2, Y: 0.2, Z: 1}, {X: 0.8, Y: 0.2, Z: 1}, {X: 0.2, Y: 0.8, Z: 1}}, want: true},
	} {
		got := test.tri.OverlapsBox(box)
		if got != test.want {
			t.Errorf("triangle %v: got overlap %v, want %v", test.tri, got, test.want)
		}
	}
}

func TestSolidAngleClosedBox(t *testing.T) {
	// Outward oriented unit cube triangles.
	v := Box{Max: Elem(1)}.Vertices()
	quads := [6][4]int{
		{0, 2, 3, 1}, {4, 5, 7, 6}, // -z, +z
		{0, 1, 5, 4}, {2, 6, 7, 3}, // -y, +y
		{0, 4, 6, 2}, {1, 3, 7, 5}, // -x, +x
	}
	winding := func(p r3.Vec) float64 {
		sum := 0.0
		for _, q := range quads {
			sum += Triangle{v[q[0]], v[q[1]], v[q[2]]}.SolidAngle(p)
			sum += Triangle{v[q[0]], v[q[2]], v[q[3]]}.SolidAngle(p)
		}
		return sum / (4 * math.Pi)
	}
	if w := winding(r3.Vec{X: 0.3, Y: 0.6, Z: 0.5}); math.Abs(w-1) > 1e-9 {
		t.Errorf("inside winding number %g, want 1", w)
	}
	if w := winding(r3.Vec{X: 2, Y: 0.6, Z: 0.5}); math.Abs(w) > 1e-9 {
		t.Errorf("outside winding number %g, want 0", w)
	}
}

func TestTetVolume(t *testing.T) {
	got := TetVolume(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1})
	if math.Abs(got-1./6) > 1e-15 {
		t.Fatalf("got volume %g, want 1/6", got)
	}
	got = TetVolume(r3.Vec{}, r3.Vec{Y: 1}, r3.Vec{X: 1}, r3.Vec{Z: 1})
	if got >= 0 {
		t.Fatalf("swapped tet should have negative volume, got %g", got)
	}
}
