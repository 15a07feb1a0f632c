package morph

import (
	"github.com/soypat/octmesh/polymesh"
)

// decomposeCells splits every marked cell into pyramids, one per face, with
// their apex at the cell centre. The first pyramid keeps the cell index and
// the others are appended. Faces of the cell keep their loops so neighbours
// are untouched. It returns the number of decomposed cells.
func decomposeCells(m *polymesh.Mesh, marked []bool) int {
	cellFaces := m.CellFaces()
	nCells := m.NumCells
	decomposed := 0
	for c := 0; c < nCells; c++ {
		faces := cellFaces[c]
		if c >= len(marked) || !marked[c] || len(faces) < minCellFaces || !m.IsCellClosed(c) {
			continue
		}
		centre, _ := m.CellCentreVolume(c)
		apex := len(m.Points)
		m.Points = append(m.Points, centre)
		// Pyramid holding each edge of the cell, directed out of c.
		pyramid := make(map[[2]int]int)
		for i, f := range faces {
			cell := c
			if i > 0 {
				cell = m.NumCells
				m.NumCells++
			}
			face := &m.Faces[f]
			out := face.Owner == c
			if out {
				face.Owner = cell
			} else {
				face.Neighbour = cell
			}
			pts := face.Points
			for j := range pts {
				a, b := pts[j], pts[(j+1)%len(pts)]
				if !out {
					a, b = b, a
				}
				pyramid[[2]int{a, b}] = cell
			}
		}
		done := make(map[[2]int]bool)
		for _, f := range faces {
			pts := m.Faces[f].Points
			for j := range pts {
				key := polymesh.EdgeKey(pts[j], pts[(j+1)%len(pts)])
				if done[key] {
					continue
				}
				done[key] = true
				a, b := key[0], key[1]
				m.Faces = append(m.Faces, polymesh.Face{
					Points:    []int{b, a, apex},
					Owner:     pyramid[[2]int{a, b}],
					Neighbour: pyramid[[2]int{b, a}],
					Patch:     -1,
				})
			}
		}
		decomposed++
	}
	if decomposed > 0 {
		m.ClearAddressing()
	}
	return decomposed
}
