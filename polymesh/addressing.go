package polymesh

import "slices"

// addressing holds connectivity derived from the face list. Everything is
// computed on first use and dropped together by clearOut.
type addressing struct {
	cellFaces  [][]int
	cellPoints [][]int
	pointFaces [][]int
	pointCells [][]int
}

func (a *addressing) clearOut() { *a = addressing{} }

// ClearAddressing drops derived connectivity. It must be called after the
// exported fields of the mesh are edited.
func (m *Mesh) ClearAddressing() { m.addr.clearOut() }

// CellFaces returns the faces of every cell.
func (m *Mesh) CellFaces() [][]int {
	if m.addr.cellFaces != nil {
		return m.addr.cellFaces
	}
	cf := make([][]int, m.NumCells)
	for i := range m.Faces {
		f := &m.Faces[i]
		if f.Owner < 0 || f.Owner >= m.NumCells {
			panic("bug: face owner out of range")
		}
		cf[f.Owner] = append(cf[f.Owner], i)
		if f.Neighbour >= 0 {
			cf[f.Neighbour] = append(cf[f.Neighbour], i)
		}
	}
	m.addr.cellFaces = cf
	return cf
}

// CellPoints returns the sorted distinct points of every cell.
func (m *Mesh) CellPoints() [][]int {
	if m.addr.cellPoints != nil {
		return m.addr.cellPoints
	}
	cf := m.CellFaces()
	cp := make([][]int, m.NumCells)
	for c, faces := range cf {
		var pts []int
		for _, f := range faces {
			pts = append(pts, m.Faces[f].Points...)
		}
		slices.Sort(pts)
		cp[c] = slices.Compact(pts)
	}
	m.addr.cellPoints = cp
	return cp
}

// PointFaces returns the faces using every point.
func (m *Mesh) PointFaces() [][]int {
	if m.addr.pointFaces != nil {
		return m.addr.pointFaces
	}
	pf := make([][]int, len(m.Points))
	for i := range m.Faces {
		for _, p := range m.Faces[i].Points {
			pf[p] = append(pf[p], i)
		}
	}
	m.addr.pointFaces = pf
	return pf
}

// PointCells returns the sorted cells using every point.
func (m *Mesh) PointCells() [][]int {
	if m.addr.pointCells != nil {
		return m.addr.pointCells
	}
	pc := make([][]int, len(m.Points))
	for c, pts := range m.CellPoints() {
		for _, p := range pts {
			pc[p] = append(pc[p], c)
		}
	}
	m.addr.pointCells = pc
	return pc
}

// FaceEdges returns the edges of face f, edge j joining point j to point j+1.
func (m *Mesh) FaceEdges(f int) [][2]int {
	pts := m.Faces[f].Points
	edges := make([][2]int, len(pts))
	for j := range pts {
		edges[j] = [2]int{pts[j], pts[(j+1)%len(pts)]}
	}
	return edges
}

// EdgeKey returns the edge ab with its points in increasing order.
func EdgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
