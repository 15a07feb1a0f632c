package octmesh_test

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/soypat/octmesh"
	"github.com/soypat/octmesh/extract"
	"github.com/soypat/octmesh/internal/d3"
	"github.com/soypat/octmesh/morph"
	"github.com/soypat/octmesh/octree"
	"github.com/soypat/octmesh/polymesh"
	"github.com/soypat/octmesh/surface"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestDecodeSettings(t *testing.T) {
	raw := map[string]any{
		"maxCellSize":      0.5,
		"boundaryCellSize": 0.25,
		"extractor":        "tet",
		"morph":            false,
		"additionalLayers": 2.0, // numbers in JSON documents are floats.
		"patchTypes":       map[string]any{"inlet": "patch"},
		"refinementSources": []any{
			map[string]any{"centre": map[string]any{"x": 1, "y": 2, "z": 3}, "radius": 0.5, "cellSize": 0.1},
		},
	}
	got, err := octmesh.DecodeSettings(raw)
	if err != nil {
		t.Fatal(err)
	}
	want := octmesh.DefaultSettings()
	want.MaxCellSize = 0.5
	want.BoundaryCellSize = 0.25
	want.Extractor = "tet"
	want.Morph = false
	want.AdditionalLayers = 2
	want.PatchTypes = map[string]string{"inlet": "patch"}
	want.RefinementSources = []octree.RefinementSource{{Centre: r3.Vec{X: 1, Y: 2, Z: 3}, Radius: 0.5, CellSize: 0.1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Error(err)
	}
}

func TestDecodeSettingsUnknownKey(t *testing.T) {
	_, err := octmesh.DecodeSettings(map[string]any{"maxCellSize": 1.0, "maxCelSize": 1.0})
	if err == nil || !strings.Contains(err.Error(), "maxCelSize") {
		t.Fatalf("want error naming the unknown key, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	s := octmesh.DefaultSettings()
	s.Extractor = "hexahedral"
	s.Processors = 0
	s.FeatureAngle = 180
	err := s.Validate()
	if got := len(multierr.Errors(err)); got != 4 {
		t.Fatalf("got %d errors, want 4: %v", got, err)
	}
	if !errors.Is(err, extract.ErrUnknownExtractor) {
		t.Errorf("want ErrUnknownExtractor in %v", err)
	}
	for _, name := range extract.Names() {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error does not list extractor %q: %v", name, err)
		}
	}

	s = octmesh.DefaultSettings()
	s.MaxCellSize = 1
	s.TwoDimensional = true
	s.Extractor = "voronoi"
	if err := s.Validate(); err == nil {
		t.Error("2d voronoi accepted")
	}
}

func TestGenerateInvalidSettings(t *testing.T) {
	_, err := octmesh.Generate(surface.Cuboid(d3.Box{Max: d3.Elem(1)}), octmesh.Settings{})
	if !errors.Is(err, extract.ErrUnknownExtractor) {
		t.Fatalf("want ErrUnknownExtractor, got %v", err)
	}
}

func TestGenerateEmpty(t *testing.T) {
	s := octmesh.DefaultSettings()
	s.MaxCellSize = 10
	res, err := octmesh.Generate(surface.Cuboid(d3.Box{Max: d3.Elem(1)}), s)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mesh.NumCells != 0 || len(res.Mesh.Faces) != 0 {
		t.Errorf("got %d cells and %d faces, want an empty mesh", res.Mesh.NumCells, len(res.Mesh.Faces))
	}
	if n := len(res.Octree.Leaves()); n != 1 {
		t.Errorf("got %d leaves, want the root", n)
	}
}

func TestGenerateBox(t *testing.T) {
	surf := surface.Cuboid(d3.Box{Max: d3.Elem(1)})
	for _, name := range extract.Names() {
		t.Run(name, func(t *testing.T) {
			s := octmesh.DefaultSettings()
			s.MaxCellSize = 0.15
			s.Extractor = name
			s.PatchTypes = map[string]string{"zMin": "wall"}
			if name != "cartesian" {
				// Boundary cells of tetrahedral meshes can not shed
				// boundary faces so morphing erodes them.
				s.Morph = false
			}
			res, err := octmesh.Generate(surf, s)
			if err != nil {
				t.Fatal(err)
			}
			m := res.Mesh
			if m.NumCells == 0 {
				t.Fatal("no cells")
			}
			if err := m.CheckTopology(); err != nil {
				t.Fatal(err)
			}
			if _, err := m.PatchRanges(); err != nil {
				t.Fatal(err)
			}
			for _, p := range m.Patches {
				if !slices.Contains(surface.CuboidPatchNames[:], p.Name) {
					t.Errorf("unexpected patch %q", p.Name)
				}
				if p.Name == "zMin" && p.Type != "wall" {
					t.Errorf("zMin has type %q", p.Type)
				}
			}
			checkOnSurface(t, m, surf)
			if name == "cartesian" {
				checkPatchPlanes(t, m, d3.Box{Max: d3.Elem(1)})
				checkCorners(t, m, d3.Box{Max: d3.Elem(1)})
			}
		})
	}
}

func TestGenerateBoxFeatures(t *testing.T) {
	box := d3.Box{Min: r3.Vec{X: 0.13, Y: -0.07, Z: 0.21}, Max: r3.Vec{X: 1.13, Y: 0.93, Z: 1.21}}
	surf := surface.Cuboid(box)
	for _, size := range []float64{0.15, 0.1} {
		s := octmesh.DefaultSettings()
		s.MaxCellSize = size
		res, err := octmesh.Generate(surf, s)
		if err != nil {
			t.Fatal(err)
		}
		m := res.Mesh
		if m.NumCells == 0 {
			t.Fatalf("size %g: no cells", size)
		}
		if err := m.CheckTopology(); err != nil {
			t.Fatalf("size %g: %v", size, err)
		}
		if got := len(m.Patches); got != 6 {
			t.Errorf("size %g: got %d patches, want 6", size, got)
		}
		if res.InvertedCells != 0 {
			t.Errorf("size %g: %d inverted cells", size, res.InvertedCells)
		}
		checkPatchPlanes(t, m, box)
		checkCorners(t, m, box)
	}
}

func TestCorrectEdgesIdempotent(t *testing.T) {
	box := d3.Box{Min: r3.Vec{X: 0.13, Y: -0.07, Z: 0.21}, Max: r3.Vec{X: 1.13, Y: 0.93, Z: 1.21}}
	for _, size := range []float64{0.15, 0.1} {
		s := octmesh.DefaultSettings()
		s.MaxCellSize = size
		res, err := octmesh.Generate(surface.Cuboid(box), s)
		if err != nil {
			t.Fatal(err)
		}
		m := res.Mesh
		type counts struct{ Cells, Faces, Points, Boundary int }
		count := func() counts {
			return counts{m.NumCells, len(m.Faces), len(m.Points), len(m.BoundaryFaces())}
		}
		before := count()
		if err := morph.CorrectEdgesBetweenPatches(m); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(before, count()); diff != "" {
			t.Errorf("size %g: second correction changed the mesh (-before +after):\n%s", size, diff)
		}
		if err := m.CheckTopology(); err != nil {
			t.Errorf("size %g: %v", size, err)
		}
	}
}

// checkPatchPlanes verifies every point of a boundary face lies on the box
// side its patch is named after.
func checkPatchPlanes(t *testing.T, m *polymesh.Mesh, box d3.Box) {
	t.Helper()
	const tol = 1e-9
	for _, f := range m.BoundaryFaces() {
		name := m.Patches[m.Faces[f].Patch].Name
		side := slices.Index(surface.CuboidPatchNames[:], name)
		if side < 0 {
			t.Fatalf("face %d in unexpected patch %q", f, name)
		}
		want := d3.Component(box.Min, side/2)
		if side%2 == 1 {
			want = d3.Component(box.Max, side/2)
		}
		for _, p := range m.Faces[f].Points {
			if got := d3.Component(m.Points[p], side/2); math.Abs(got-want) > tol {
				t.Errorf("face %d of %s: point %v off the plane %g", f, name, m.Points[p], want)
			}
		}
	}
}

// checkCorners verifies the mesh has a point at every corner of box.
func checkCorners(t *testing.T, m *polymesh.Mesh, box d3.Box) {
	t.Helper()
	for _, v := range box.Vertices() {
		found := slices.ContainsFunc(m.Points, func(p r3.Vec) bool {
			return d3.EqualWithin(p, v, 1e-9)
		})
		if !found {
			t.Errorf("no mesh point at corner %v", v)
		}
	}
}

func checkOnSurface(t *testing.T, m *polymesh.Mesh, surf *surface.Surface) {
	t.Helper()
	for _, f := range m.BoundaryFaces() {
		for _, p := range m.Faces[f].Points {
			_, c := surf.NearestFacet(m.Points[p])
			if d := r3.Norm(r3.Sub(c, m.Points[p])); d > 1e-9 {
				t.Fatalf("boundary point %v is %g off the surface", m.Points[p], d)
			}
		}
	}
}

func TestGenerate2D(t *testing.T) {
	surf := surface.Cuboid(d3.Box{Min: r3.Vec{X: 0.6, Y: 0.6}, Max: r3.Vec{X: 3.4, Y: 3.4, Z: 1}})
	s := octmesh.DefaultSettings()
	s.MaxCellSize = 0.8
	s.TwoDimensional = true
	s.PatchTypes = map[string]string{"xMin": "wall"}
	res, err := octmesh.Generate(surf, s)
	if err != nil {
		t.Fatal(err)
	}
	m := res.Mesh
	if !res.Octree.IsQuadtree() {
		t.Fatal("octree is not a quadtree")
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	want := []string{extract.BottomEmptyPatch, extract.TopEmptyPatch, "xMin", "xMax", "yMin", "yMax"}
	if diff := cmp.Diff(want, m.PatchNames()); diff != "" {
		t.Fatalf("patches (-want +got):\n%s", diff)
	}
	var vol float64
	for _, v := range m.CellVolumes() {
		vol += v
	}
	if math.Abs(vol-2.8*2.8) > 1e-9 {
		t.Errorf("volume %g, want %g", vol, 2.8*2.8)
	}
	for _, p := range m.Points {
		if p.Z != 0 && p.Z != 1 {
			t.Errorf("point %v off the extrusion planes", p)
		}
	}
	checkOnSurface(t, m, surf)
}
