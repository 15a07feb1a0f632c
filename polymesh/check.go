package polymesh

import (
	"fmt"

	"go.uber.org/multierr"
)

// maxReported bounds the number of problems Check reports.
const maxReported = 16

// IsCellClosed reports whether every edge of cell c is traversed exactly
// once in each direction by its faces oriented out of the cell.
func (m *Mesh) IsCellClosed(c int) bool {
	count := make(map[[2]int]int)
	for _, f := range m.CellFaces()[c] {
		pts := m.Faces[f].Points
		out := m.Faces[f].Owner == c
		for j := range pts {
			a, b := pts[j], pts[(j+1)%len(pts)]
			if !out {
				a, b = b, a
			}
			count[[2]int{a, b}]++
		}
	}
	for e, n := range count {
		if n != 1 || count[[2]int{e[1], e[0]}] != 1 {
			return false
		}
	}
	return true
}

// Check verifies the mesh topology and that every cell has positive volume.
// All problems found, up to a limit, are combined in the returned error.
func (m *Mesh) Check() error { return m.check(true) }

// CheckTopology is Check without the cell volume test.
func (m *Mesh) CheckTopology() error { return m.check(false) }

func (m *Mesh) check(volumes bool) error {
	var err error
	n := 0
	report := func(format string, args ...any) {
		n++
		if n <= maxReported {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}
	for i, f := range m.Faces {
		if len(f.Points) < 3 {
			report("face %d has %d points", i, len(f.Points))
		}
		for _, p := range f.Points {
			if p < 0 || p >= len(m.Points) {
				report("face %d references point %d of %d", i, p, len(m.Points))
			}
		}
		if f.Owner < 0 || f.Owner >= m.NumCells || f.Neighbour >= m.NumCells {
			report("face %d has cells %d/%d of %d", i, f.Owner, f.Neighbour, m.NumCells)
			continue
		}
		switch {
		case f.IsBoundary() && (f.Patch < 0 || f.Patch >= len(m.Patches)):
			report("boundary face %d has patch %d of %d", i, f.Patch, len(m.Patches))
		case !f.IsBoundary() && f.Patch >= 0:
			report("internal face %d has patch %d", i, f.Patch)
		case f.Owner == f.Neighbour:
			report("face %d has equal owner and neighbour %d", i, f.Owner)
		}
	}
	if err != nil {
		return err
	}
	for c := 0; c < m.NumCells; c++ {
		if len(m.CellFaces()[c]) < 4 {
			report("cell %d has %d faces", c, len(m.CellFaces()[c]))
			continue
		}
		if !m.IsCellClosed(c) {
			report("cell %d is not closed", c)
			continue
		}
		if !volumes {
			continue
		}
		if _, vol := m.CellCentreVolume(c); vol <= 0 {
			report("cell %d has non-positive volume %g", c, vol)
		}
	}
	if n > maxReported {
		err = multierr.Append(err, fmt.Errorf("%d more problems", n-maxReported))
	}
	return err
}
