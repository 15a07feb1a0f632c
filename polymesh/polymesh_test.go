package polymesh

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
)

// hexLoops are the outward face loops of a hexahedron whose corner i lies at
// offsets (i&1, i>>1&1, i>>2&1).
var hexLoops = [6][4]int{{0, 4, 6, 2}, {1, 3, 7, 5}, {0, 1, 5, 4}, {2, 6, 7, 3}, {0, 2, 3, 1}, {4, 5, 7, 6}}

// rowMesh returns a mesh of n unit hexahedra along x.
func rowMesh(t testing.TB, n int) *Mesh {
	t.Helper()
	m := &Mesh{}
	mod := NewModifier(m)
	idx := func(x, y, z int) int { return x + (n+1)*(y+2*z) }
	for z := 0; z < 2; z++ {
		for y := 0; y < 2; y++ {
			for x := 0; x <= n; x++ {
				mod.AppendPoints(r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)})
			}
		}
	}
	for x := 0; x < n; x++ {
		if _, err := mod.AppendCells(hexCell(x, idx)); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func hexCell(x0 int, idx func(x, y, z int) int) [][]int {
	var corners [8]int
	for i := range corners {
		corners[i] = idx(x0+(i&1), (i>>1)&1, (i>>2)&1)
	}
	faces := make([][]int, 6)
	for f, loop := range hexLoops {
		for _, c := range loop {
			faces[f] = append(faces[f], corners[c])
		}
	}
	return faces
}

func TestModifierPairsFaces(t *testing.T) {
	m := rowMesh(t, 2)
	if m.NumCells != 2 || len(m.Faces) != 11 || m.NumInternalFaces() != 1 {
		t.Fatalf("got %d cells, %d faces, %d internal", m.NumCells, len(m.Faces), m.NumInternalFaces())
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	for c, vol := range m.CellVolumes() {
		if math.Abs(vol-1) > 1e-12 {
			t.Errorf("cell %d volume %g, want 1", c, vol)
		}
		centre, _ := m.CellCentreVolume(c)
		want := r3.Vec{X: float64(c) + 0.5, Y: 0.5, Z: 0.5}
		if r3.Norm(r3.Sub(centre, want)) > 1e-12 {
			t.Errorf("cell %d centre %v, want %v", c, centre, want)
		}
	}
	for _, f := range m.BoundaryFaces() {
		if m.Faces[f].Patch != 0 || m.Patches[0].Name != DefaultPatch {
			t.Errorf("boundary face %d not in default patch", f)
		}
	}
}

func TestModifierErrors(t *testing.T) {
	m := rowMesh(t, 1)
	mod := NewModifier(m)
	idx := func(x, y, z int) int { return x + 2*(y+2*z) }
	_, err := mod.AppendCells(hexCell(0, idx))
	if !errors.Is(err, ErrInconsistentFace) {
		t.Errorf("duplicate cell: got %v, want %v", err, ErrInconsistentFace)
	}

	m = rowMesh(t, 2)
	mod = NewModifier(m)
	idx = func(x, y, z int) int { return x + 3*(y+2*z) }
	_, err = mod.AppendCells(hexCell(1, idx))
	if !errors.Is(err, ErrNonManifoldFace) {
		t.Errorf("third cell on internal face: got %v, want %v", err, ErrNonManifoldFace)
	}

	if _, err = mod.AppendCells([][]int{{0, 1}}); err == nil {
		t.Error("expected error for two point face")
	}
}

func TestSortAndPatchRanges(t *testing.T) {
	m := rowMesh(t, 3)
	walls := m.AddPatch("walls", "wall")
	for i := range m.Faces {
		if f := &m.Faces[i]; f.IsBoundary() && m.FaceAreaVector(i).Z != 0 {
			f.Patch = walls
		}
	}
	if _, err := m.PatchRanges(); !errors.Is(err, ErrNotSorted) {
		t.Errorf("unsorted mesh: got %v", err)
	}
	m.Sort()
	ranges, err := m.PatchRanges()
	if err != nil {
		t.Fatal(err)
	}
	want := []Range{{Start: 2, Size: 8}, {Start: 10, Size: 6}}
	if diff := cmp.Diff(want, ranges); diff != "" {
		t.Errorf("patch ranges (-want +got):\n%s", diff)
	}
	for i := 0; i < 2; i++ {
		if f := m.Faces[i]; f.Owner >= f.Neighbour {
			t.Errorf("internal face %d has owner %d >= neighbour %d", i, f.Owner, f.Neighbour)
		}
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestRemoveCells(t *testing.T) {
	m := rowMesh(t, 3)
	open := m.AddPatch("open", "patch")
	removed := m.RemoveCells([]bool{true, false, false}, open)
	if removed != 1 || m.NumCells != 2 || len(m.Points) != 12 {
		t.Fatalf("got removed=%d cells=%d points=%d", removed, m.NumCells, len(m.Points))
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	var nOpen int
	for _, f := range m.BoundaryFaces() {
		if m.Faces[f].Patch == open {
			nOpen++
			if n := m.FaceAreaVector(f); n.X >= 0 {
				t.Errorf("opened face normal %v does not point out of the mesh", n)
			}
		}
	}
	if nOpen != 1 {
		t.Errorf("got %d faces in opened patch, want 1", nOpen)
	}
	m.RemoveEmptyPatches()
	if _, err := m.PatchIndex(DefaultPatch); err != nil {
		t.Error(err)
	}
	if _, err := m.PatchIndex("nope"); !errors.Is(err, ErrUnknownPatch) || !strings.Contains(err.Error(), "open") {
		t.Errorf("got %v, want error listing patches", err)
	}
}

func TestIsReversed(t *testing.T) {
	for _, test := range []struct {
		a, b []int
		want bool
	}{
		{[]int{0, 1, 2, 3}, []int{3, 2, 1, 0}, true},
		{[]int{0, 1, 2, 3}, []int{1, 0, 3, 2}, true},
		{[]int{0, 1, 2, 3}, []int{1, 2, 3, 0}, false},
		{[]int{0, 1, 2}, []int{0, 2, 1}, true},
		{[]int{0, 1, 2}, []int{0, 2, 1, 4}, false},
	} {
		if got := IsReversed(test.a, test.b); got != test.want {
			t.Errorf("IsReversed(%v, %v) = %v, want %v", test.a, test.b, got, test.want)
		}
	}
}

func TestWriteVTK(t *testing.T) {
	m := rowMesh(t, 2)
	var buf bytes.Buffer
	if err := WriteVTK(&buf, m); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"POINTS 12 double", "CELLS 2 64", "CELL_TYPES 2", "SCALARS volume"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
