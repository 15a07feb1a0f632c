package polymesh

import (
	"github.com/soypat/octmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// PolygonAreaVector returns the area weighted normal of a closed loop of
// points using Newell's method.
func PolygonAreaVector(pts []r3.Vec) r3.Vec {
	var n r3.Vec
	for i := range pts {
		n = r3.Add(n, r3.Cross(pts[i], pts[(i+1)%len(pts)]))
	}
	return r3.Scale(0.5, n)
}

// PolygonCentre returns the area weighted centre of a polygon, built from
// the triangles joining each edge to the point average. Degenerate polygons
// return the point average.
func PolygonCentre(pts []r3.Vec) r3.Vec {
	var avg r3.Vec
	for _, p := range pts {
		avg = r3.Add(avg, p)
	}
	avg = r3.Scale(1/float64(len(pts)), avg)
	if len(pts) == 3 {
		return avg
	}
	n := PolygonAreaVector(pts)
	var sum r3.Vec
	var total float64
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		area := r3.Dot(r3.Cross(r3.Sub(a, avg), r3.Sub(b, avg)), n)
		c := r3.Scale(1.0/3, r3.Add(r3.Add(a, b), avg))
		sum = r3.Add(sum, r3.Scale(area, c))
		total += area
	}
	if total <= 1e-300 {
		return avg
	}
	return r3.Scale(1/total, sum)
}

// FaceAreaVector returns the area vector of face f. It points out of the
// face's owner.
func (m *Mesh) FaceAreaVector(f int) r3.Vec {
	return PolygonAreaVector(m.FacePoints(f))
}

// FaceCentre returns the centre of face f.
func (m *Mesh) FaceCentre(f int) r3.Vec {
	return PolygonCentre(m.FacePoints(f))
}

// CellCentreVolume returns the centroid and volume of cell c, computed from
// pyramids joining every face to the average of the face centres.
func (m *Mesh) CellCentreVolume(c int) (centre r3.Vec, volume float64) {
	faces := m.CellFaces()[c]
	if len(faces) == 0 {
		return r3.Vec{}, 0
	}
	fc := make([]r3.Vec, len(faces))
	fa := make([]r3.Vec, len(faces))
	var est r3.Vec
	for i, f := range faces {
		fc[i] = m.FaceCentre(f)
		fa[i] = m.FaceAreaVector(f)
		if m.Faces[f].Owner != c {
			fa[i] = r3.Scale(-1, fa[i])
		}
		est = r3.Add(est, fc[i])
	}
	est = r3.Scale(1/float64(len(faces)), est)
	var sum r3.Vec
	for i := range faces {
		pyr := r3.Dot(fa[i], r3.Sub(fc[i], est)) / 3
		pc := r3.Add(r3.Scale(0.75, fc[i]), r3.Scale(0.25, est))
		sum = r3.Add(sum, r3.Scale(pyr, pc))
		volume += pyr
	}
	if volume <= 1e-300 {
		return est, volume
	}
	return r3.Scale(1/volume, sum), volume
}

// CellVolumes returns the volume of every cell.
func (m *Mesh) CellVolumes() []float64 {
	vols := make([]float64, m.NumCells)
	for c := range vols {
		_, vols[c] = m.CellCentreVolume(c)
	}
	return vols
}

// BoundaryTriangles returns the boundary faces fan triangulated from their
// first point, oriented out of the mesh.
func (m *Mesh) BoundaryTriangles() []d3.Triangle {
	var tris []d3.Triangle
	for _, f := range m.BoundaryFaces() {
		pts := m.FacePoints(f)
		for i := 1; i+1 < len(pts); i++ {
			tris = append(tris, d3.Triangle{pts[0], pts[i], pts[i+1]})
		}
	}
	return tris
}
