package meshsurface

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/soypat/octmesh/polymesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// boundaryMesh returns a mesh whose faces are all boundary faces of cell 0.
func boundaryMesh(points []r3.Vec, faces [][]int, patches []int) *polymesh.Mesh {
	m := &polymesh.Mesh{Points: points, NumCells: 1}
	m.AddPatch("a", "patch")
	m.AddPatch("b", "patch")
	for i, f := range faces {
		patch := 0
		if patches != nil {
			patch = patches[i]
		}
		m.Faces = append(m.Faces, polymesh.Face{Points: f, Owner: 0, Neighbour: -1, Patch: patch})
	}
	return m
}

func sharedEdgeType(t *testing.T, m *polymesh.Mesh, threshold float64, a, b int) EdgeType {
	t.Helper()
	s := New(m)
	types, err := CheckEdgeTypes(s, threshold)
	if err != nil {
		t.Fatal(err)
	}
	ia, _ := s.PointIndex(a)
	ib, _ := s.PointIndex(b)
	key := polymesh.EdgeKey(ia, ib)
	for e, edge := range s.Edges() {
		if edge == key {
			return types[e]
		}
	}
	t.Fatalf("edge %d-%d not found", a, b)
	return 0
}

func TestCheckEdgeTypes(t *testing.T) {
	threshold := 150 * math.Pi / 180
	A, B := r3.Vec{}, r3.Vec{X: 1}
	for _, test := range []struct {
		name    string
		other   r3.Vec
		patches []int
		want    EdgeType
	}{
		{"coplanar", r3.Vec{X: 0.5, Y: -1}, nil, None},
		{"coplanar patches", r3.Vec{X: 0.5, Y: -1}, []int{0, 1}, PatchEdge},
		{"convex fold", r3.Vec{X: 0.5, Z: -1}, nil, FeatureEdge | ConvexEdge},
		{"concave fold", r3.Vec{X: 0.5, Z: 1}, nil, FeatureEdge | ConcaveEdge},
		{"shallow convex fold", r3.Vec{X: 0.5, Y: -1, Z: -0.1}, nil, ConvexEdge},
	} {
		pts := []r3.Vec{A, B, {X: 0.5, Y: 1}, test.other}
		m := boundaryMesh(pts, [][]int{{0, 1, 2}, {1, 0, 3}}, test.patches)
		if got := sharedEdgeType(t, m, threshold, 0, 1); got != test.want {
			t.Errorf("%s: got %v, want %v", test.name, got, test.want)
		}
	}
}

func TestCheckEdgeTypesUndetermined(t *testing.T) {
	pts := []r3.Vec{{}, {X: 1}, {X: 0.5, Y: 1}, {X: 0.5, Y: -1}, {X: 0.5, Z: 1}}
	m := boundaryMesh(pts, [][]int{{0, 1, 2}, {1, 0, 3}, {1, 0, 4}}, nil)
	if got := sharedEdgeType(t, m, 1, 0, 1); got != Undetermined {
		t.Errorf("edge with three faces: got %v, want %v", got, Undetermined)
	}
	if got := sharedEdgeType(t, m, 1, 1, 2); got != Undetermined {
		t.Errorf("open edge: got %v, want %v", got, Undetermined)
	}
	if _, err := CheckEdgeTypes(New(m), 0); err == nil {
		t.Error("expected error for zero threshold")
	}
}

func cubeMesh() *polymesh.Mesh {
	m := &polymesh.Mesh{}
	mod := polymesh.NewModifier(m)
	for i := 0; i < 8; i++ {
		mod.AppendPoints(r3.Vec{X: float64(i & 1), Y: float64((i >> 1) & 1), Z: float64((i >> 2) & 1)})
	}
	_, err := mod.AppendCells([][]int{{0, 4, 6, 2}, {1, 3, 7, 5}, {0, 1, 5, 4}, {2, 6, 7, 3}, {0, 2, 3, 1}, {4, 5, 7, 6}})
	if err != nil {
		panic(err)
	}
	return m
}

func TestCubeClassification(t *testing.T) {
	s := New(cubeMesh())
	types, err := CheckEdgeTypes(s, 150*math.Pi/180)
	if err != nil {
		t.Fatal(err)
	}
	if len(types) != 12 {
		t.Fatalf("got %d edges, want 12", len(types))
	}
	for e, typ := range types {
		if typ != FeatureEdge|ConvexEdge {
			t.Errorf("edge %d: got %v", e, typ)
		}
	}
	for p, pt := range ClassifyPoints(s, types) {
		if pt != CornerPoint {
			t.Errorf("point %d: got type %d, want corner", p, pt)
		}
	}
	if inv := CheckInvertedVertices(s); len(inv) != 0 {
		t.Errorf("cube has inverted vertices %v", inv)
	}
	s.ClearOut()
	if len(s.Points()) != 8 || len(s.PointEdges()[0]) != 3 {
		t.Error("addressing not rebuilt after ClearOut")
	}
}

func TestCheckInvertedVertices(t *testing.T) {
	pts := []r3.Vec{{}, {X: 1}, {Y: 1}, {X: -2}}
	m := boundaryMesh(pts, [][]int{{0, 1, 2}, {0, 3, 2}}, nil)
	got := CheckInvertedVertices(New(m))
	if diff := cmp.Diff([]int{0, 1, 2}, got); diff != "" {
		t.Errorf("inverted vertices (-want +got):\n%s", diff)
	}
}
