package extract

import (
	"github.com/pkg/errors"
	"github.com/soypat/octmesh/internal/d3"
	"github.com/soypat/octmesh/octree"
	"github.com/soypat/octmesh/polymesh"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tet is a tetrahedron given by four point labels. Its fourth point lies on
// the side of the first three the right hand rule points to, so its signed
// volume is positive.
type Tet [4]int

// tetFaces are the outward faces of a positive Tet.
var tetFaces = [4][3]int{{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2}}

// Faces returns the outward triangles of t.
func (t Tet) Faces() [][]int {
	faces := make([][]int, 4)
	for i, f := range tetFaces {
		faces[i] = []int{t[f[0]], t[f[1]], t[f[2]]}
	}
	return faces
}

// tetCreator splits every mesh cell leaf into tetrahedra joining the leaf
// centre to triangles that fan each face piece from its centre.
type tetCreator struct {
	o       *octree.Octree
	f       *facer
	points  []r3.Vec
	centres map[octree.LatticePoint]int
	tets    []Tet
}

// createPoints numbers the leaf corners and hanging points.
func (tc *tetCreator) createPoints(o *octree.Octree, addr *octree.Addressing) {
	tc.o = o
	tc.f = newFacer(o, addr)
	tc.points = tc.f.coordinates()
	tc.centres = make(map[octree.LatticePoint]int)
}

func (tc *tetCreator) centre(p octree.LatticePoint) int {
	l, ok := tc.centres[p]
	if !ok {
		l = len(tc.points)
		tc.centres[p] = l
		tc.points = append(tc.points, tc.o.Point(p))
	}
	return l
}

// createTets builds the tetrahedra of every mesh cell leaf.
func (tc *tetCreator) createTets() error {
	for i, leaf := range tc.f.cells {
		c := tc.centre(tc.o.LatticeBox(leaf).Center())
		for _, r := range tc.f.pieces[i] {
			fc := tc.centre(r.centre())
			loop := tc.f.loop(r)
			for j := range loop {
				t := Tet{fc, loop[(j+1)%len(loop)], loop[j], c}
				if v := d3.TetVolume(tc.points[t[0]], tc.points[t[1]], tc.points[t[2]], tc.points[t[3]]); v <= 0 {
					return errors.Wrapf(ErrInvalidTet, "leaf %v volume %g", tc.o.Coordinates(leaf), v)
				}
				tc.tets = append(tc.tets, t)
			}
		}
	}
	return nil
}

// TetExtractor creates a tetrahedral mesh. Points are the leaf corners,
// hanging points, leaf centres and face centres. Every face piece of a leaf
// is fanned from its centre and every fan triangle is joined to the leaf
// centre.
type TetExtractor struct {
	base
	tc tetCreator
}

// NewTetExtractor returns a TetExtractor writing to m.
func NewTetExtractor(o *octree.Octree, m *polymesh.Mesh, opts ...Option) *TetExtractor {
	return &TetExtractor{base: newBase(o, m, opts)}
}

// CreateMesh implements Extractor.
func (e *TetExtractor) CreateMesh() error {
	if e.o.IsQuadtree() {
		return ErrQuadtree
	}
	e.createPoints()
	return e.createPolyMesh()
}

func (e *TetExtractor) createPoints() {
	e.tc.createPoints(e.o, e.addr)
}

func (e *TetExtractor) createPolyMesh() error {
	if err := e.tc.createTets(); err != nil {
		return err
	}
	if len(e.tc.tets) == 0 {
		e.log.Warn("octree has no mesh cells")
		return nil
	}
	mod := polymesh.NewModifier(e.m)
	offset := mod.AppendPoints(e.tc.points...)
	cells := make([][][]int, len(e.tc.tets))
	for i, t := range e.tc.tets {
		for j := range t {
			t[j] += offset
		}
		cells[i] = t.Faces()
	}
	if _, err := mod.AppendCells(cells...); err != nil {
		return errors.Wrap(err, "assembling tetrahedra")
	}
	e.log.Info("tetrahedral mesh created",
		zap.Int("tets", len(e.tc.tets)),
		zap.Int("points", len(e.tc.points)),
		zap.Int("leaves", len(e.tc.f.cells)),
	)
	return nil
}
