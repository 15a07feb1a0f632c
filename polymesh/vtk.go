package polymesh

import (
	"bufio"
	"fmt"
	"io"
)

const vtkPolyhedron = 42

// WriteVTK writes m as a legacy ASCII VTK unstructured grid of polyhedral
// cells, with the cell volume as cell data.
func WriteVTK(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# vtk DataFile Version 3.0\noctmesh\nASCII\nDATASET UNSTRUCTURED_GRID\n")
	fmt.Fprintf(bw, "POINTS %d double\n", len(m.Points))
	for _, p := range m.Points {
		fmt.Fprintf(bw, "%g %g %g\n", p.X, p.Y, p.Z)
	}
	cf := m.CellFaces()
	size := 0
	for _, faces := range cf {
		size += 2
		for _, f := range faces {
			size += 1 + len(m.Faces[f].Points)
		}
	}
	fmt.Fprintf(bw, "CELLS %d %d\n", m.NumCells, size)
	for c, faces := range cf {
		n := 1
		for _, f := range faces {
			n += 1 + len(m.Faces[f].Points)
		}
		fmt.Fprintf(bw, "%d %d", n, len(faces))
		for _, f := range faces {
			pts := m.Faces[f].Points
			fmt.Fprintf(bw, " %d", len(pts))
			if m.Faces[f].Owner == c {
				for _, p := range pts {
					fmt.Fprintf(bw, " %d", p)
				}
			} else {
				for j := len(pts) - 1; j >= 0; j-- {
					fmt.Fprintf(bw, " %d", pts[j])
				}
			}
		}
		bw.WriteByte('\n')
	}
	fmt.Fprintf(bw, "CELL_TYPES %d\n", m.NumCells)
	for c := 0; c < m.NumCells; c++ {
		fmt.Fprintf(bw, "%d\n", vtkPolyhedron)
	}
	fmt.Fprintf(bw, "CELL_DATA %d\nSCALARS volume double 1\nLOOKUP_TABLE default\n", m.NumCells)
	for _, v := range m.CellVolumes() {
		fmt.Fprintf(bw, "%g\n", v)
	}
	return bw.Flush()
}
