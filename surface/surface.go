// Package surface implements the triangulated input surface a volume mesh is
// generated for: indexed points, facets grouped into patches, lazily computed
// topological addressing and a spatial index for proximity queries.
package surface

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/octmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Facet is a surface triangle. V holds point indices ordered counter-clockwise
// when seen from outside the meshed domain.
type Facet struct {
	V     [3]int
	Patch int
}

// Patch is a named group of facets. Type is carried through to the boundary
// patches of the generated volume mesh.
type Patch struct {
	Name string
	Type string
}

// DefaultPatchType is used for patches without an explicit type.
const DefaultPatchType = "patch"

// Surface is an indexed triangulated surface. Points, Facets and Patches
// may be edited directly but ClearAddressing must be called afterwards.
type Surface struct {
	Points  []r3.Vec
	Facets  []Facet
	Patches []Patch

	addr  addressing
	index *index
}

// Triangle returns the geometry of facet i.
func (s *Surface) Triangle(i int) d3.Triangle {
	f := s.Facets[i].V
	return d3.Triangle{s.Points[f[0]], s.Points[f[1]], s.Points[f[2]]}
}

// PatchIndex returns the index of the patch with the given name.
func (s *Surface) PatchIndex(name string) (int, error) {
	for i := range s.Patches {
		if s.Patches[i].Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("patch %q not found, valid patches: %v", name, s.PatchNames())
}

// PatchNames returns the names of all patches in order.
func (s *Surface) PatchNames() []string {
	names := make([]string, len(s.Patches))
	for i := range s.Patches {
		names[i] = s.Patches[i].Name
	}
	return names
}

// Validate checks the surface indices are consistent.
func (s *Surface) Validate() error {
	if len(s.Facets) == 0 {
		return errors.New("surface has no facets")
	}
	for i, f := range s.Facets {
		for _, v := range f.V {
			if v < 0 || v >= len(s.Points) {
				return fmt.Errorf("facet %d references point %d out of range [0, %d)", i, v, len(s.Points))
			}
		}
		if f.V[0] == f.V[1] || f.V[1] == f.V[2] || f.V[2] == f.V[0] {
			return fmt.Errorf("facet %d is degenerate: %v", i, f.V)
		}
		if f.Patch < 0 || f.Patch >= len(s.Patches) {
			return fmt.Errorf("facet %d has patch %d out of range [0, %d)", i, f.Patch, len(s.Patches))
		}
	}
	return nil
}

// FromTriangles builds an indexed surface with a single patch from a triangle soup.
// Vertices closer than vertexTol are merged. If vertexTol is zero it is
// inferred from the shortest triangle edge.
func FromTriangles(triangles []d3.Triangle, patch string, vertexTol float64) (*Surface, error) {
	if len(triangles) == 0 {
		return nil, errors.New("empty triangle slice")
	}
	bb := d3.EmptyBox()
	minDist2 := math.MaxFloat64
	maxDist2 := 0.0
	for i := range triangles {
		for j, vert := range triangles[i] {
			bb = bb.Include(vert)
			side2 := r3.Norm2(r3.Sub(triangles[i][(j+1)%3], vert))
			if side2 > 0 {
				minDist2 = math.Min(minDist2, side2)
			}
			maxDist2 = math.Max(maxDist2, side2)
		}
	}
	if maxDist2 == 0 {
		return nil, errors.New("all triangles are degenerate")
	}
	suggested := math.Sqrt(minDist2) / 256
	if vertexTol > math.Sqrt(maxDist2)/2 {
		return nil, fmt.Errorf("vertex tolerance is too large to generate appropiate surface, suggested tolerance: %g", suggested)
	}
	if vertexTol == 0 {
		vertexTol = suggested
	}
	div := d3.Max(bb.Size()) / vertexTol
	if div > math.MaxInt64/4 {
		return nil, errors.New("tolerance too small. overflowed int64")
	}
	if patch == "" {
		patch = "patch0"
	}
	s := &Surface{
		Patches: []Patch{{Name: patch, Type: DefaultPatchType}},
		Facets:  make([]Facet, 0, len(triangles)),
	}
	// vertex index cache keyed by coordinates scaled to integer tolerance units.
	cache := make(map[[3]int64]int)
	ri := 1 / vertexTol
	for _, tri := range triangles {
		var f Facet
		for j, vert := range tri {
			v := r3.Scale(ri, r3.Sub(vert, bb.Min))
			vi := [3]int64{int64(math.Round(v.X)), int64(math.Round(v.Y)), int64(math.Round(v.Z))}
			idx, ok := cache[vi]
			if !ok {
				idx = len(s.Points)
				cache[vi] = idx
				s.Points = append(s.Points, vert)
			}
			f.V[j] = idx
		}
		if f.V[0] == f.V[1] || f.V[1] == f.V[2] || f.V[2] == f.V[0] {
			continue // collapsed by merging.
		}
		s.Facets = append(s.Facets, f)
	}
	if len(s.Facets) == 0 {
		return nil, errors.New("all triangles collapsed during vertex merging")
	}
	return s, nil
}

// Triangles returns the geometry of every facet.
func (s *Surface) Triangles() []d3.Triangle {
	out := make([]d3.Triangle, len(s.Facets))
	for i := range s.Facets {
		out[i] = s.Triangle(i)
	}
	return out
}
