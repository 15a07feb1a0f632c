// Package polymesh implements an editable polyhedral volume mesh in
// owner/neighbour face form. Cells are implicit: a cell is the set of faces
// that name it as owner or neighbour.
package polymesh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnknownPatch is returned when a patch name does not exist.
var ErrUnknownPatch = errors.New("unknown patch")

// DefaultPatch is the patch boundary faces are placed in until they are
// assigned to surface patches.
const DefaultPatch = "defaultFaces"

// Face is a polygon given by an ordered loop of point indices. Its normal,
// by the right hand rule, points out of Owner and into Neighbour.
type Face struct {
	Points    []int
	Owner     int
	Neighbour int // -1 for boundary faces.
	Patch     int // boundary patch index, -1 for internal faces.
}

// IsBoundary reports whether the face has no neighbour cell.
func (f *Face) IsBoundary() bool { return f.Neighbour < 0 }

// Patch is a named group of boundary faces.
type Patch struct {
	Name string
	Type string
}

// Mesh is a polyhedral mesh. Fields may be edited directly, after which
// ClearAddressing must be called.
type Mesh struct {
	Points   []r3.Vec
	Faces    []Face
	Patches  []Patch
	NumCells int

	addr addressing
}

// PatchIndex returns the index of the patch called name.
func (m *Mesh) PatchIndex(name string) (int, error) {
	for i := range m.Patches {
		if m.Patches[i].Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w %q, valid patches: %v", ErrUnknownPatch, name, m.PatchNames())
}

// PatchNames returns the names of all patches.
func (m *Mesh) PatchNames() []string {
	names := make([]string, len(m.Patches))
	for i := range m.Patches {
		names[i] = m.Patches[i].Name
	}
	return names
}

// AddPatch returns the index of the patch called name, creating it with
// the given type if it does not exist.
func (m *Mesh) AddPatch(name, typ string) int {
	if i, err := m.PatchIndex(name); err == nil {
		return i
	}
	m.Patches = append(m.Patches, Patch{Name: name, Type: typ})
	return len(m.Patches) - 1
}

// BoundaryFaces returns the indices of faces without neighbour.
func (m *Mesh) BoundaryFaces() []int {
	var out []int
	for i := range m.Faces {
		if m.Faces[i].IsBoundary() {
			out = append(out, i)
		}
	}
	return out
}

// NumInternalFaces returns the number of faces with a neighbour.
func (m *Mesh) NumInternalFaces() int {
	n := 0
	for i := range m.Faces {
		if !m.Faces[i].IsBoundary() {
			n++
		}
	}
	return n
}

// FacePoints returns the positions of the points of face f.
func (m *Mesh) FacePoints(f int) []r3.Vec {
	pts := make([]r3.Vec, len(m.Faces[f].Points))
	for i, p := range m.Faces[f].Points {
		pts[i] = m.Points[p]
	}
	return pts
}

// Clone returns a deep copy of the mesh without cached addressing.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Points:   append([]r3.Vec(nil), m.Points...),
		Faces:    make([]Face, len(m.Faces)),
		Patches:  append([]Patch(nil), m.Patches...),
		NumCells: m.NumCells,
	}
	for i, f := range m.Faces {
		f.Points = append([]int(nil), f.Points...)
		c.Faces[i] = f
	}
	return c
}
