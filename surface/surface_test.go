package surface

import (
	"bytes"
	"math"
	"testing"

	"github.com/soypat/octmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

func unitCube() *Surface {
	return Cuboid(d3.Box{Max: d3.Elem(1)})
}

func TestCuboidAddressing(t *testing.T) {
	s := unitCube()
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if len(s.Edges()) != 18 {
		t.Fatalf("got %d edges, want 18", len(s.Edges()))
	}
	if !s.IsClosed() {
		t.Fatal("cuboid should be closed")
	}
	for i, n := range s.FacetNormals() {
		c := s.Triangle(i).Centroid()
		out := r3.Sub(c, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5})
		if r3.Dot(n, out) <= 0 {
			t.Errorf("facet %d normal %v points inwards", i, n)
		}
	}
	features := s.FeatureEdges(math.Pi / 4)
	if len(features) != 12 {
		t.Errorf("got %d feature edges, want 12", len(features))
	}
	corners := s.FeatureCorners(features)
	if len(corners) != 8 {
		t.Errorf("got %d feature corners, want 8", len(corners))
	}
	// Side diagonals are not patch edges.
	if n := len(s.PatchEdges()); n != 12 {
		t.Errorf("got %d patch edges, want 12", n)
	}
	for _, p := range s.FeatureCorners(s.PatchEdges()) {
		if n := len(s.PointPatches(p)); n != 3 {
			t.Errorf("corner %d has %d patches, want 3", p, n)
		}
	}
	s.Points[0] = r3.Vec{X: -1}
	s.ClearAddressing()
	if s.Bounds().Min.X != -1 {
		t.Error("bounds not recomputed after ClearAddressing")
	}
}

func TestInside(t *testing.T) {
	for _, s := range []*Surface{unitCube(), Sphere(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 0.5, 2)} {
		if !s.IsInside(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}) {
			t.Error("centre should be inside")
		}
		if s.IsInside(r3.Vec{X: 1.5, Y: 0.5, Z: 0.5}) {
			t.Error("point right of surface should be outside")
		}
	}
}

func TestNearestFacet(t *testing.T) {
	s := unitCube()
	p := r3.Vec{X: 0.3, Y: 0.4, Z: 5}
	f, c := s.NearestFacet(p)
	if s.Patches[s.Facets[f].Patch].Name != "zMax" {
		t.Errorf("nearest facet %d on patch %q, want zMax", f, s.Patches[s.Facets[f].Patch].Name)
	}
	if !d3.EqualWithin(c, r3.Vec{X: 0.3, Y: 0.4, Z: 1}, 1e-12) {
		t.Errorf("closest point %v", c)
	}
	got := s.FacetsInBox(d3.Box{Min: r3.Vec{X: 0.9, Y: 0.2, Z: 0.2}, Max: r3.Vec{X: 1.1, Y: 0.8, Z: 0.8}})
	foundXMax := false
	for _, f := range got {
		foundXMax = foundXMax || s.Facets[f].Patch == 1
	}
	if !foundXMax {
		t.Errorf("FacetsInBox did not find xMax facets: %v", got)
	}
}

func TestEdgeIndexNearest(t *testing.T) {
	s := unitCube()
	idx := s.NewEdgeIndex(s.FeatureEdges(math.Pi / 4))
	e, c := idx.Nearest(r3.Vec{X: 1.2, Y: 0.5, Z: 1.3})
	if e < 0 {
		t.Fatal("no edge found")
	}
	if !d3.EqualWithin(c, r3.Vec{X: 1, Y: 0.5, Z: 1}, 1e-12) {
		t.Errorf("got closest %v on edge %v", c, s.Edges()[e])
	}
}

func TestSTLRoundTrip(t *testing.T) {
	s := Sphere(r3.Vec{}, 2, 1)
	var buf bytes.Buffer
	err := WriteSTL(&buf, s.Triangles())
	if err != nil {
		t.Fatal(err)
	}
	tris, err := ReadSTL(&buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := FromTriangles(tris, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Points) != len(s.Points) || len(got.Facets) != len(s.Facets) {
		t.Fatalf("got %d points %d facets, want %d and %d", len(got.Points), len(got.Facets), len(s.Points), len(s.Facets))
	}
	if !got.IsClosed() {
		t.Error("re-imported sphere is not closed")
	}
	if got.Patches[0].Name != "patch0" {
		t.Errorf("default patch name %q", got.Patches[0].Name)
	}
}

func TestFromTrianglesErrors(t *testing.T) {
	_, err := FromTriangles(nil, "", 0)
	if err == nil {
		t.Error("expected error for empty input")
	}
	_, err = FromTriangles([]d3.Triangle{{}}, "", 0)
	if err == nil {
		t.Error("expected error for degenerate input")
	}
	s := unitCube()
	if _, err := s.PatchIndex("nope"); err == nil {
		t.Error("expected unknown patch error")
	}
}
