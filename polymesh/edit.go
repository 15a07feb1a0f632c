package polymesh

import (
	"cmp"
	"errors"
	"slices"
)

// ErrNotSorted is returned by PatchRanges when faces are not in patch order.
var ErrNotSorted = errors.New("mesh faces are not sorted")

// FlipFace reverses the loop of internal face f and swaps its cells.
func (m *Mesh) FlipFace(f int) {
	face := &m.Faces[f]
	if face.IsBoundary() {
		panic("bug: flipping boundary face")
	}
	reverseLoop(face.Points)
	face.Owner, face.Neighbour = face.Neighbour, face.Owner
	m.ClearAddressing()
}

// reverseLoop reverses the direction of a loop keeping its first point.
func reverseLoop(pts []int) {
	slices.Reverse(pts[1:])
}

// RemoveCells deletes the marked cells. Faces between a removed and a kept
// cell become boundary faces of the kept cell in patch. Cells and points are
// renumbered compactly. It returns the number of removed cells.
func (m *Mesh) RemoveCells(remove []bool, patch int) int {
	newCell := make([]int, m.NumCells)
	n := 0
	for c := range newCell {
		if c < len(remove) && remove[c] {
			newCell[c] = -1
			continue
		}
		newCell[c] = n
		n++
	}
	removed := m.NumCells - n
	if removed == 0 {
		return 0
	}
	faces := m.Faces[:0]
	for _, f := range m.Faces {
		own := newCell[f.Owner]
		nei := -1
		if f.Neighbour >= 0 {
			nei = newCell[f.Neighbour]
		}
		switch {
		case own < 0 && nei < 0:
			continue
		case own < 0:
			reverseLoop(f.Points)
			f.Owner, f.Neighbour, f.Patch = nei, -1, patch
		case nei < 0 && f.Neighbour >= 0:
			f.Owner, f.Neighbour, f.Patch = own, -1, patch
		default:
			f.Owner, f.Neighbour = own, nei
		}
		faces = append(faces, f)
	}
	m.Faces = faces
	m.NumCells = n
	m.RemoveUnusedPoints()
	return removed
}

// RemoveFaces deletes the marked faces without touching cells.
func (m *Mesh) RemoveFaces(remove []bool) {
	faces := m.Faces[:0]
	for i, f := range m.Faces {
		if i < len(remove) && remove[i] {
			continue
		}
		faces = append(faces, f)
	}
	m.Faces = faces
	m.ClearAddressing()
}

// RemoveUnusedPoints deletes points no face uses and returns the new index
// of every old point, -1 for removed ones.
func (m *Mesh) RemoveUnusedPoints() []int {
	used := make([]bool, len(m.Points))
	for _, f := range m.Faces {
		for _, p := range f.Points {
			used[p] = true
		}
	}
	newPoint := make([]int, len(m.Points))
	n := 0
	for p := range m.Points {
		if !used[p] {
			newPoint[p] = -1
			continue
		}
		newPoint[p] = n
		m.Points[n] = m.Points[p]
		n++
	}
	m.Points = m.Points[:n]
	for i := range m.Faces {
		for j, p := range m.Faces[i].Points {
			m.Faces[i].Points[j] = newPoint[p]
		}
	}
	m.ClearAddressing()
	return newPoint
}

// Sort orders faces the way finite volume solvers expect them: internal
// faces first with owner lower than neighbour, ordered by owner then
// neighbour, followed by boundary faces grouped by patch.
func (m *Mesh) Sort() {
	for i := range m.Faces {
		if f := &m.Faces[i]; !f.IsBoundary() && f.Owner > f.Neighbour {
			reverseLoop(f.Points)
			f.Owner, f.Neighbour = f.Neighbour, f.Owner
		}
	}
	slices.SortStableFunc(m.Faces, func(a, b Face) int {
		if a.IsBoundary() != b.IsBoundary() {
			if a.IsBoundary() {
				return 1
			}
			return -1
		}
		if a.IsBoundary() {
			return cmp.Or(cmp.Compare(a.Patch, b.Patch), cmp.Compare(a.Owner, b.Owner))
		}
		return cmp.Or(cmp.Compare(a.Owner, b.Owner), cmp.Compare(a.Neighbour, b.Neighbour))
	})
	m.ClearAddressing()
}

// Range is a contiguous run of faces.
type Range struct {
	Start, Size int
}

// PatchRanges returns the face range of every patch. It fails unless the
// mesh is sorted.
func (m *Mesh) PatchRanges() ([]Range, error) {
	ranges := make([]Range, len(m.Patches))
	nInternal := m.NumInternalFaces()
	start := nInternal
	for p := range ranges {
		ranges[p].Start = start
		for start < len(m.Faces) && m.Faces[start].Patch == p {
			start++
		}
		ranges[p].Size = start - ranges[p].Start
	}
	if start != len(m.Faces) {
		return nil, ErrNotSorted
	}
	for i := 0; i < nInternal; i++ {
		if m.Faces[i].IsBoundary() {
			return nil, ErrNotSorted
		}
	}
	return ranges, nil
}

// RemoveEmptyPatches deletes patches without faces, keeping the order of
// the remaining ones.
func (m *Mesh) RemoveEmptyPatches() {
	count := make([]int, len(m.Patches))
	for _, f := range m.Faces {
		if f.IsBoundary() {
			count[f.Patch]++
		}
	}
	newPatch := make([]int, len(m.Patches))
	patches := m.Patches[:0]
	for p, patch := range m.Patches {
		if count[p] == 0 {
			newPatch[p] = -1
			continue
		}
		newPatch[p] = len(patches)
		patches = append(patches, patch)
	}
	m.Patches = patches
	for i := range m.Faces {
		if m.Faces[i].IsBoundary() {
			m.Faces[i].Patch = newPatch[m.Faces[i].Patch]
		}
	}
}
