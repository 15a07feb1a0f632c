package extract

import (
	"github.com/pkg/errors"
	"github.com/soypat/octmesh/octree"
	"github.com/soypat/octmesh/polymesh"
	"go.uber.org/zap"
)

// Patches holding the caps of two dimensional meshes.
const (
	BottomEmptyPatch = "bottomEmptyFaces"
	TopEmptyPatch    = "topEmptyFaces"
)

// CartesianExtractor creates one hexahedral cell per mesh cell leaf. Faces
// shared with finer neighbours are split so every cell face matches exactly
// one neighbour face. In quadtree mode the mesh is a single layer of prisms
// whose caps go to BottomEmptyPatch and TopEmptyPatch.
type CartesianExtractor struct {
	base
}

// NewCartesianExtractor returns a CartesianExtractor writing to m.
func NewCartesianExtractor(o *octree.Octree, m *polymesh.Mesh, opts ...Option) *CartesianExtractor {
	return &CartesianExtractor{base: newBase(o, m, opts)}
}

// CreateMesh implements Extractor.
func (e *CartesianExtractor) CreateMesh() error {
	f := newFacer(e.o, e.addr)
	if len(f.cells) == 0 {
		e.log.Warn("octree has no mesh cells")
		return nil
	}
	mod := polymesh.NewModifier(e.m)
	offset := mod.AppendPoints(f.coordinates()...)
	firstCell := e.m.NumCells
	faces := make([][]int, 0, 24)
	for i, leaf := range f.cells {
		faces = faces[:0]
		for _, r := range f.pieces[i] {
			loop := f.loop(r)
			for j := range loop {
				loop[j] += offset
			}
			faces = append(faces, loop)
		}
		if _, err := mod.AppendCells(faces); err != nil {
			return errors.Wrapf(err, "leaf %v", e.o.Coordinates(leaf))
		}
	}
	if e.o.IsQuadtree() {
		e.assignCaps(mod, f, offset, firstCell)
	}
	e.log.Info("cartesian mesh created",
		zap.Int("cells", e.m.NumCells-firstCell),
		zap.Int("points", len(f.points)),
		zap.Int("faces", len(e.m.Faces)),
	)
	return nil
}

// assignCaps moves boundary faces lying on the bottom or top lattice plane
// into the empty patches.
func (e *CartesianExtractor) assignCaps(mod *polymesh.Modifier, f *facer, offset, firstCell int) {
	bottom := e.m.AddPatch(BottomEmptyPatch, "empty")
	top := e.m.AddPatch(TopEmptyPatch, "empty")
	for i := range e.m.Faces {
		face := &e.m.Faces[i]
		if !face.IsBoundary() || face.Patch != mod.DefaultPatch() || face.Owner < firstCell {
			continue
		}
		z := f.points[face.Points[0]-offset].Z
		flat := true
		for _, p := range face.Points[1:] {
			flat = flat && f.points[p-offset].Z == z
		}
		switch {
		case !flat:
		case z == 0:
			face.Patch = bottom
		default:
			face.Patch = top
		}
	}
}
