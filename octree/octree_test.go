package octree

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/octmesh/internal/d3"
	"github.com/soypat/octmesh/surface"
	"gonum.org/v1/gonum/spatial/r3"
)

func refineAll(t testing.TB, o *Octree, levels int) {
	t.Helper()
	m := NewModifier(o)
	for i := 0; i < levels; i++ {
		marked := make([]bool, o.NumCubes())
		for _, l := range o.Leaves() {
			marked[l] = true
		}
		m.RefineSelected(marked, false)
	}
}

func TestCoordinates(t *testing.T) {
	c := Coordinates{X: 3, Y: 1, Z: 2, Level: 2}
	seen := make(map[uint64]bool)
	for i := 0; i < 8; i++ {
		child := c.Child(i)
		if child.Parent() != c {
			t.Errorf("child %d parent %v, want %v", i, child.Parent(), c)
		}
		if seen[child.Packed()] {
			t.Errorf("duplicate packed key for child %d", i)
		}
		seen[child.Packed()] = true
	}
	if got := c.Child(7).Child(0).Ancestor(2); got != c {
		t.Errorf("ancestor %v, want %v", got, c)
	}
	if (Coordinates{X: 4, Level: 2}).inRange(false) {
		t.Error("x=4 at level 2 should be out of range")
	}
}

func TestLeafChildExclusivity(t *testing.T) {
	o, err := New(surface.Sphere(r3.Vec{}, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	refineAll(t, o, 2)
	for i := 0; i < o.NumCubes(); i++ {
		_, hasChild := o.SubCube(i, 0)
		if o.IsLeaf(i) == hasChild {
			t.Fatalf("cube %d: leaf=%v but has children=%v", i, o.IsLeaf(i), hasChild)
		}
		if o.IsLeaf(i) {
			continue
		}
		parent := o.LatticeBox(i)
		vol := int64(0)
		for j := 0; j < o.NumChildren(); j++ {
			ch, ok := o.SubCube(i, j)
			if !ok {
				t.Fatalf("missing child %d of cube %d", j, i)
			}
			lb := o.LatticeBox(ch)
			if !parent.Touches(lb) || lb.Min.X < parent.Min.X || lb.Max.X > parent.Max.X {
				t.Fatalf("child %d outside parent", ch)
			}
			d := int64(lb.Max.X - lb.Min.X)
			vol += d * d * d
		}
		d := int64(parent.Max.X - parent.Min.X)
		if vol != d*d*d {
			t.Fatalf("children of cube %d do not tile it", i)
		}
	}
	if _, ok := o.SubCube(o.Leaves()[0], 0); ok {
		t.Error("leaf returned a sub cube")
	}
	if len(o.Leaves()) != 64 {
		t.Errorf("got %d leaves, want 64", len(o.Leaves()))
	}
}

func TestPointFeatureRefinement(t *testing.T) {
	surf := surface.Cuboid(d3.Box{Min: d3.Elem(1), Max: d3.Elem(3)})
	o, err := New(surf, WithRootBox(d3.Box{Max: d3.Elem(4)}))
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRefiner(o, RefineSettings{
		MaxCellSize: 4,
		Sources:     []RefinementSource{{Centre: r3.Vec{}, Radius: 0, CellSize: 0.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Refine(); err != nil {
		t.Fatal(err)
	}
	if got := o.MaxLevelUsed(); got != 3 {
		t.Fatalf("max level %d, want 3", got)
	}
	corner := o.FindLeafContainingPoint(r3.Vec{X: 0.01, Y: 0.01, Z: 0.01})
	if lvl := o.Coordinates(corner).Level; lvl != 3 {
		t.Errorf("corner leaf level %d, want 3", lvl)
	}
	far := o.FindLeafContainingPoint(r3.Vec{X: 3.9, Y: 3.9, Z: 3.9})
	if lvl := o.Coordinates(far).Level; lvl != 1 {
		t.Errorf("far leaf level %d, want 1", lvl)
	}
	if err := o.CheckBalance(); err != nil {
		t.Fatal(err)
	}
	// Exhaustive scan including edge and corner neighbours.
	for _, leaf := range o.Leaves() {
		lvl := int(o.Coordinates(leaf).Level)
		for _, n := range o.FindAllLeafNeighbours(leaf) {
			if nl := int(o.Coordinates(n).Level); nl-lvl > 1 || lvl-nl > 1 {
				t.Fatalf("leaves %v and %v unbalanced", o.Coordinates(leaf), o.Coordinates(n))
			}
		}
	}
}

func TestClassifyLeaves(t *testing.T) {
	o, err := New(surface.Sphere(r3.Vec{}, 1, 2))
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRefiner(o, RefineSettings{MaxCellSize: 0.6, BoundaryCellSize: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Refine(); err != nil {
		t.Fatal(err)
	}
	if got := o.CubeType(o.FindLeafContainingPoint(r3.Vec{X: 0.05, Y: 0.02, Z: 0.01})); got != Inside {
		t.Errorf("centre leaf is %v, want inside", got)
	}
	rb := o.RootBox()
	if got := o.CubeType(o.FindLeafContainingPoint(r3.Add(rb.Min, d3.Elem(1e-3)))); got != Outside {
		t.Errorf("root corner leaf is %v, want outside", got)
	}
	if got := o.CubeType(0); got != Data {
		t.Errorf("root type %v, want data", got)
	}
	counts := make(map[CubeType]int)
	for _, l := range o.Leaves() {
		typ := o.CubeType(l)
		counts[typ]++
		if (typ == Data) != o.HasContainedTriangles(l) {
			t.Fatalf("leaf %d type %v inconsistent with contained triangles", l, typ)
		}
	}
	if counts[Unknown] != 0 {
		t.Errorf("%d leaves left unknown", counts[Unknown])
	}
	if err := o.CheckBalance(); err != nil {
		t.Error(err)
	}
}

func TestFindQueries(t *testing.T) {
	o, err := New(surface.Cuboid(d3.Box{Max: d3.Elem(1)}), WithRootBox(d3.Box{Max: d3.Elem(1)}))
	if err != nil {
		t.Fatal(err)
	}
	refineAll(t, o, 2)
	want := Coordinates{X: 1, Y: 2, Z: 3, Level: 2}
	ci := o.FindCubeForPosition(want)
	if ci < 0 || o.Coordinates(ci) != want {
		t.Fatalf("FindCubeForPosition got %d", ci)
	}
	if got := o.FindCubeForPosition(Coordinates{Level: 3}); got != -1 {
		t.Errorf("found cube below leaf level: %d", got)
	}
	p := o.CubeBox(ci).Center()
	if got := o.FindLeafContainingPoint(p); got != ci {
		t.Errorf("FindLeafContainingPoint %d, want %d", got, ci)
	}
	if got := o.FindLeafContainingPoint(r3.Vec{X: -1}); got != -1 {
		t.Errorf("point outside root found leaf %d", got)
	}
	inBox := o.FindLeavesInBox(d3.Box{Min: d3.Elem(0.3), Max: d3.Elem(0.6)})
	if len(inBox) != 8 {
		t.Errorf("got %d leaves in box, want 8", len(inBox))
	}
	face := o.FindNeighboursInDirection(ci, FaceDirections[1])
	if len(face) != 1 || o.Coordinates(face[0]) != want.Offset(Direction{1, 0, 0}) {
		t.Errorf("face neighbour %v", face)
	}
	if n := o.FindNeighboursInDirection(ci, FaceDirections[5]); len(n) != 0 {
		t.Errorf("neighbour beyond root: %v", n)
	}
	if got := len(o.FindAllLeafNeighbours(o.FindCubeForPosition(Coordinates{X: 1, Y: 1, Z: 1, Level: 2}))); got != 26 {
		t.Errorf("interior leaf has %d neighbours, want 26", got)
	}
	tris := o.ContainedTriangles(o.FindCubeForPosition(Coordinates{Level: 2}))
	if len(tris) == 0 {
		t.Error("corner leaf should contain surface triangles")
	}
	if len(o.ContainedEdges(o.FindCubeForPosition(Coordinates{Level: 2}))) == 0 {
		t.Error("corner leaf should contain feature edges")
	}
}

func TestDistributeLeaves(t *testing.T) {
	o, err := New(surface.Sphere(r3.Vec{}, 1, 0))
	if err != nil {
		t.Fatal(err)
	}
	refineAll(t, o, 1)
	o.DistributeLeavesToProcessors(2)
	counts := [2]int{}
	for _, l := range o.Leaves() {
		counts[o.Cube(l).ProcNo]++
	}
	if counts != [2]int{4, 4} {
		t.Errorf("leaf distribution %v", counts)
	}
	if o.Cube(0).ProcNo != AllProcs {
		t.Errorf("root proc %d, want AllProcs", o.Cube(0).ProcNo)
	}
}

func TestAddressing(t *testing.T) {
	// Root box strictly inside the surface so every leaf is a mesh cell.
	surf := surface.Cuboid(d3.Box{Min: d3.Elem(-1), Max: d3.Elem(2)})
	o, err := New(surf, WithRootBox(d3.Box{Max: d3.Elem(1)}))
	if err != nil {
		t.Fatal(err)
	}
	refineAll(t, o, 2)
	o.ClassifyLeaves()
	a := NewAddressing(o, false)
	if got := len(a.MeshCells()); got != 64 {
		t.Fatalf("got %d mesh cells, want 64", got)
	}
	if got := a.NumNodes(); got != 125 {
		t.Fatalf("got %d nodes, want 125", got)
	}
	inner := 0
	for _, typ := range a.NodeTypes() {
		if typ == InnerNode {
			inner++
		}
	}
	if inner != 27 {
		t.Errorf("got %d inner nodes, want 27", inner)
	}
	leaf := o.Leaves()[0]
	nodes := a.NodeCoordinates()
	ln := a.LeafNodes(leaf)
	box := o.CubeBox(leaf)
	if !d3.EqualWithin(nodes[ln[0]], box.Min, 1e-12) || !d3.EqualWithin(nodes[ln[7]], box.Max, 1e-12) {
		t.Errorf("leaf corner nodes %v %v do not match box %v", nodes[ln[0]], nodes[ln[7]], box)
	}
	refineAll(t, o, 1)
	o.ClassifyLeaves()
	a.ClearOut()
	if got := a.NumNodes(); got != 729 {
		t.Errorf("after refinement got %d nodes, want 729", got)
	}
}

func TestQuadtree(t *testing.T) {
	surf := surface.Cuboid(d3.Box{Max: r3.Vec{X: 2, Y: 1, Z: 0.1}})
	o, err := New(surf, WithQuadtree())
	if err != nil {
		t.Fatal(err)
	}
	refineAll(t, o, 3)
	if len(o.Leaves()) != 64 {
		t.Fatalf("got %d quadtree leaves, want 64", len(o.Leaves()))
	}
	box := o.CubeBox(o.Leaves()[5])
	if box.Min.Z != 0 || math.Abs(box.Max.Z-0.1) > 1e-12 {
		t.Errorf("quadtree leaf does not span z: %v", box)
	}
	o.ClassifyLeaves()
	if got := o.CubeType(o.FindLeafContainingPoint(r3.Vec{X: 1, Y: 0.5, Z: 0.05})); got != Inside && got != Data {
		t.Errorf("leaf at profile centre is %v", got)
	}
	if got := len(o.FindNeighboursInDirection(o.Leaves()[0], FaceDirections[5])); got != 0 {
		t.Errorf("quadtree leaf has %d z neighbours", got)
	}
}

func TestRefineSettingsValidate(t *testing.T) {
	err := RefineSettings{MaxCellSize: -1, MaxLevel: 40, AdditionalLayers: -1}.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	_, err = NewRefiner(nil, RefineSettings{})
	if err == nil {
		t.Fatal("expected error for zero max cell size")
	}
	if BalanceIterationCap(5) != 18 {
		t.Error("unexpected balance iteration cap")
	}
}

// cornerImbalance returns a uniform level 2 octree over [0,4]³ in which the
// leaf [1,2]³ is refined twice towards (2,2,2) and its face and edge
// neighbours on that side once. The finest leaves then touch the level 2
// leaf [2,3]³ only at the point (2,2,2).
func cornerImbalance(t *testing.T) *Octree {
	t.Helper()
	surf := surface.Cuboid(d3.Box{Min: d3.Elem(0.6), Max: d3.Elem(3.4)})
	o, err := New(surf, WithRootBox(d3.Box{Max: d3.Elem(4)}))
	if err != nil {
		t.Fatal(err)
	}
	refineAll(t, o, 2)
	m := NewModifier(o)
	refineAt := func(pts ...r3.Vec) {
		marked := make([]bool, o.NumCubes())
		for _, p := range pts {
			marked[o.FindLeafContainingPoint(p)] = true
		}
		m.RefineSelected(marked, false)
	}
	refineAt(
		r3.Vec{X: 1.5, Y: 1.5, Z: 1.5},
		r3.Vec{X: 2.5, Y: 1.5, Z: 1.5}, r3.Vec{X: 1.5, Y: 2.5, Z: 1.5}, r3.Vec{X: 1.5, Y: 1.5, Z: 2.5},
		r3.Vec{X: 2.5, Y: 2.5, Z: 1.5}, r3.Vec{X: 2.5, Y: 1.5, Z: 2.5}, r3.Vec{X: 1.5, Y: 2.5, Z: 2.5},
	)
	refineAt(r3.Vec{X: 1.9, Y: 1.9, Z: 1.9})
	if lvl := o.Coordinates(o.FindLeafContainingPoint(r3.Vec{X: 1.9, Y: 1.9, Z: 1.9})).Level; lvl != 4 {
		t.Fatalf("corner leaf level %d, want 4", lvl)
	}
	return o
}

func TestCheckBalanceCorner(t *testing.T) {
	o := cornerImbalance(t)
	// No pair of face neighbours is out of balance.
	for _, leaf := range o.Leaves() {
		lvl := int(o.Coordinates(leaf).Level)
		for _, d := range FaceDirections {
			for _, n := range o.FindNeighboursInDirection(leaf, d) {
				if nl := int(o.Coordinates(n).Level); nl-lvl > 1 || lvl-nl > 1 {
					t.Fatalf("face neighbours %v and %v unbalanced", o.Coordinates(leaf), o.Coordinates(n))
				}
			}
		}
	}
	if err := o.CheckBalance(); err == nil {
		t.Fatal("corner imbalance not reported")
	}
	refined, err := NewModifier(o).EnsureBalance()
	if err != nil {
		t.Fatal(err)
	}
	if refined == 0 {
		t.Error("EnsureBalance refined nothing")
	}
	if err := o.CheckBalance(); err != nil {
		t.Error(err)
	}
	if lvl := o.Coordinates(o.FindLeafContainingPoint(r3.Vec{X: 2.1, Y: 2.1, Z: 2.1})).Level; lvl != 3 {
		t.Errorf("diagonal leaf level %d, want 3", lvl)
	}
}

// stuckCommunicator reports a violation on another processor forever.
type stuckCommunicator struct{ Serial }

func (stuckCommunicator) ReduceOr(bool) bool { return true }

func TestEnsureBalanceNotConverged(t *testing.T) {
	surf := surface.Cuboid(d3.Box{Min: d3.Elem(0.6), Max: d3.Elem(3.4)})
	o, err := New(surf, WithRootBox(d3.Box{Max: d3.Elem(4)}), WithCommunicator(stuckCommunicator{}))
	if err != nil {
		t.Fatal(err)
	}
	refineAll(t, o, 2)
	refined, err := NewModifier(o).EnsureBalance()
	if !errors.Is(err, ErrBalanceNotConverged) {
		t.Fatalf("got %v, want ErrBalanceNotConverged", err)
	}
	if refined != 0 {
		t.Errorf("refined %d leaves of a balanced octree", refined)
	}
}
