package smooth

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/soypat/octmesh/internal/d3"
	"github.com/soypat/octmesh/polymesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// hexBlock returns 8 unit hexahedra filling [0,2]³. Point 0 is the centre.
func hexBlock(t *testing.T) *polymesh.Mesh {
	t.Helper()
	m := &polymesh.Mesh{Points: []r3.Vec{{X: 1, Y: 1, Z: 1}}}
	label := map[r3.Vec]int{m.Points[0]: 0}
	var cells [][][]int
	for i := 0; i < 8; i++ {
		o := r3.Vec{X: float64(i & 1), Y: float64(i >> 1 & 1), Z: float64(i >> 2 & 1)}
		v := d3.Box{Min: o, Max: r3.Add(o, d3.Elem(1))}.Vertices()
		var ids [8]int
		for j, p := range v {
			id, ok := label[p]
			if !ok {
				id = len(m.Points)
				label[p] = id
				m.Points = append(m.Points, p)
			}
			ids[j] = id
		}
		var cell [][]int
		for _, loop := range [6][4]int{{0, 4, 6, 2}, {1, 3, 7, 5}, {0, 1, 5, 4}, {2, 6, 7, 3}, {0, 2, 3, 1}, {4, 5, 7, 6}} {
			cell = append(cell, []int{ids[loop[0]], ids[loop[1]], ids[loop[2]], ids[loop[3]]})
		}
		cells = append(cells, cell)
	}
	if _, err := polymesh.NewModifier(m).AppendCells(cells...); err != nil {
		t.Fatal(err)
	}
	if len(m.Points) != 27 {
		t.Fatalf("got %d points, want 27", len(m.Points))
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestUntangleValidMesh(t *testing.T) {
	m := hexBlock(t)
	before := m.Clone()
	if n := Untangle(m); n != 0 {
		t.Fatalf("%d tangled cells in a valid mesh", n)
	}
	if diff := cmp.Diff(before.Points, m.Points); diff != "" {
		t.Errorf("points moved (-before +after):\n%s", diff)
	}
}

func TestUntangle(t *testing.T) {
	m := hexBlock(t)
	// Push the centre through the x=2 side of the block.
	m.Points[0] = r3.Vec{X: 2.5, Y: 1.2, Z: 0.9}
	if len(newUntangler(m).tangledCells()) == 0 {
		t.Fatal("displaced centre left no tangled cell")
	}
	if n := Untangle(m); n != 0 {
		t.Fatalf("%d cells left tangled", n)
	}
	p := m.Points[0]
	if !(d3.Box{Max: d3.Elem(2)}).Contains(p) {
		t.Errorf("centre %v left outside the block", p)
	}
	for c, v := range m.CellVolumes() {
		if v <= 0 {
			t.Errorf("cell %d has volume %g", c, v)
		}
	}
	if err := m.Check(); err != nil {
		t.Error(err)
	}
}

func TestUntangleBoundaryFixed(t *testing.T) {
	m := hexBlock(t)
	m.Points[0] = r3.Vec{X: 2.5, Y: 1.2, Z: 0.9}
	before := m.Clone()
	Untangle(m)
	for p := 1; p < len(m.Points); p++ {
		if m.Points[p] != before.Points[p] {
			t.Errorf("boundary point %d moved from %v to %v", p, before.Points[p], m.Points[p])
		}
	}
}
