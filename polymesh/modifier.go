package polymesh

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrInconsistentFace is returned when a cell repeats an existing face
	// without reversing it.
	ErrInconsistentFace = errors.New("face orientation disagrees with existing face")
	// ErrNonManifoldFace is returned when a face is shared by more than two
	// cells.
	ErrNonManifoldFace = errors.New("face shared by more than two cells")
)

// Modifier appends points, cells and faces to a Mesh. Cells are given as
// loops of outward oriented faces; a face matching an unpaired boundary face
// of an earlier cell in reverse order becomes an internal face between them.
// Unpaired faces stay in the modifier's default patch.
type Modifier struct {
	m            *Mesh
	defaultPatch int
	faceByKey    map[string]int
	keyBuf       []int
}

// NewModifier returns a Modifier for m. Existing boundary faces take part in
// face pairing.
func NewModifier(m *Mesh) *Modifier {
	mod := &Modifier{
		m:            m,
		defaultPatch: m.AddPatch(DefaultPatch, "patch"),
		faceByKey:    make(map[string]int),
	}
	for i := range m.Faces {
		if m.Faces[i].IsBoundary() {
			mod.faceByKey[mod.key(m.Faces[i].Points)] = i
		}
	}
	return mod
}

// Mesh returns the modified mesh.
func (mod *Modifier) Mesh() *Mesh { return mod.m }

// DefaultPatch returns the index of the patch unpaired faces are put in.
func (mod *Modifier) DefaultPatch() int { return mod.defaultPatch }

// AppendPoints adds points to the mesh and returns the index of the first.
func (mod *Modifier) AppendPoints(pts ...r3.Vec) int {
	first := len(mod.m.Points)
	mod.m.Points = append(mod.m.Points, pts...)
	mod.m.ClearAddressing()
	return first
}

// AppendCells adds cells, each a list of outward oriented face loops, and
// returns the index of the first new cell. On error the mesh is left with
// the cells appended before the failing one.
func (mod *Modifier) AppendCells(cells ...[][]int) (first int, err error) {
	m := mod.m
	first = m.NumCells
	defer m.ClearAddressing()
	for _, faces := range cells {
		c := m.NumCells
		for _, loop := range faces {
			if err := mod.addCellFace(c, loop); err != nil {
				return first, fmt.Errorf("cell %d: %w", c, err)
			}
		}
		m.NumCells++
	}
	return first, nil
}

func (mod *Modifier) addCellFace(c int, loop []int) error {
	m := mod.m
	if len(loop) < 3 {
		return fmt.Errorf("face %v has fewer than 3 points", loop)
	}
	for _, p := range loop {
		if p < 0 || p >= len(m.Points) {
			return fmt.Errorf("face %v references point %d of %d", loop, p, len(m.Points))
		}
	}
	k := mod.key(loop)
	fi, ok := mod.faceByKey[k]
	if !ok {
		mod.faceByKey[k] = len(m.Faces)
		m.Faces = append(m.Faces, Face{
			Points:    slices.Clone(loop),
			Owner:     c,
			Neighbour: -1,
			Patch:     mod.defaultPatch,
		})
		return nil
	}
	f := &m.Faces[fi]
	switch {
	case !f.IsBoundary():
		return fmt.Errorf("%w: %v", ErrNonManifoldFace, loop)
	case f.Owner == c:
		return fmt.Errorf("face %v repeated in cell", loop)
	case !IsReversed(f.Points, loop):
		return fmt.Errorf("%w: %v against %v", ErrInconsistentFace, loop, f.Points)
	}
	f.Neighbour = c
	f.Patch = -1
	return nil
}

// AppendInternalFace adds a face between two existing cells, oriented out of
// owner. It returns the face index.
func (mod *Modifier) AppendInternalFace(points []int, owner, neighbour int) int {
	if owner < 0 || neighbour < 0 || owner >= mod.m.NumCells || neighbour >= mod.m.NumCells {
		panic("bug: internal face cell out of range")
	}
	mod.m.Faces = append(mod.m.Faces, Face{Points: slices.Clone(points), Owner: owner, Neighbour: neighbour, Patch: -1})
	mod.m.ClearAddressing()
	return len(mod.m.Faces) - 1
}

// AppendBoundaryFace adds a boundary face of owner in patch and returns the
// face index. The face may be paired by later cells.
func (mod *Modifier) AppendBoundaryFace(points []int, owner, patch int) int {
	if owner < 0 || owner >= mod.m.NumCells || patch < 0 || patch >= len(mod.m.Patches) {
		panic("bug: boundary face owner or patch out of range")
	}
	fi := len(mod.m.Faces)
	mod.m.Faces = append(mod.m.Faces, Face{Points: slices.Clone(points), Owner: owner, Neighbour: -1, Patch: patch})
	mod.faceByKey[mod.key(points)] = fi
	mod.m.ClearAddressing()
	return fi
}

// key returns an order independent key of a point loop.
func (mod *Modifier) key(loop []int) string {
	mod.keyBuf = append(mod.keyBuf[:0], loop...)
	slices.Sort(mod.keyBuf)
	var sb strings.Builder
	for i, p := range mod.keyBuf {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(p))
	}
	return sb.String()
}

// IsReversed reports whether loop b traverses the points of loop a in the
// opposite direction, starting anywhere.
func IsReversed(a, b []int) bool {
	n := len(a)
	if n != len(b) || n == 0 {
		return false
	}
	k := slices.Index(b, a[0])
	if k < 0 {
		return false
	}
	for i := 0; i < n; i++ {
		if b[(k+i)%n] != a[(n-i)%n] {
			return false
		}
	}
	return true
}
