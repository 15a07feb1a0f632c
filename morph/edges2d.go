package morph

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"github.com/soypat/octmesh/polymesh"
	"github.com/soypat/octmesh/surface"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNotExtruded is returned by SurfaceEdgeExtractor2D for meshes that are
// not a single layer of cells between two planes of constant z.
var ErrNotExtruded = errors.New("mesh is not a single extruded layer")

// emptyPatchType is the type of the patches capping two dimensional meshes.
const emptyPatchType = "empty"

// SurfaceEdgeExtractor2D is the SurfaceEdgeExtractor of meshes extruded
// along z. Only the side of the surface is used. Points move in the xy plane
// and both points of a column move together, so they stay on top of each
// other. Faces in patches of type "empty" are left alone.
type SurfaceEdgeExtractor2D struct {
	edgeExtractor

	profile    *surface.Surface
	zMin, zMax float64
	// partner is the point above or below every point.
	partner []int
}

// NewSurfaceEdgeExtractor2D returns a SurfaceEdgeExtractor2D fitting the
// side boundary of m to surf.
func NewSurfaceEdgeExtractor2D(m *polymesh.Mesh, surf *surface.Surface, opts ...Option) *SurfaceEdgeExtractor2D {
	return &SurfaceEdgeExtractor2D{edgeExtractor: newEdgeExtractor(m, surf, opts)}
}

// ExtractEdges modifies the side boundary of the mesh.
func (e *SurfaceEdgeExtractor2D) ExtractEdges() error {
	if len(e.m.BoundaryFaces()) == 0 {
		e.cfg.log.Warn("mesh has no boundary faces")
		return nil
	}
	if err := e.findColumns(); err != nil {
		return err
	}
	e.profile = sideSurface(e.surf)
	if len(e.profile.Facets) == 0 {
		return errors.Wrap(ErrNotExtruded, "surface has no side facets")
	}
	e.createPatches()
	side := e.sideFaces()
	projected := e.projectBoundaryVertices(side)
	e.distributeBoundaryFaces(side)
	onEdges := e.captureFeatures(side)
	if err := e.checkColumns(); err != nil {
		return err
	}
	if err := e.reorderBoundary(); err != nil {
		return err
	}
	e.cfg.log.Info("2d surface edges extracted",
		zap.Int("projectedColumns", projected),
		zap.Int("edgeColumns", onEdges),
		zap.Strings("patches", e.m.PatchNames()),
	)
	return nil
}

// sideSurface returns the facets of surf not facing along z.
func sideSurface(surf *surface.Surface) *surface.Surface {
	side := &surface.Surface{Points: surf.Points, Patches: surf.Patches}
	normals := surf.FacetNormals()
	for i, f := range surf.Facets {
		if math.Abs(normals[i].Z) <= 0.5 {
			side.Facets = append(side.Facets, f)
		}
	}
	return side
}

// findColumns pairs every bottom point with the top point above it.
func (e *SurfaceEdgeExtractor2D) findColumns() error {
	e.zMin, e.zMax = math.Inf(1), math.Inf(-1)
	for _, p := range e.m.Points {
		e.zMin = math.Min(e.zMin, p.Z)
		e.zMax = math.Max(e.zMax, p.Z)
	}
	if !(e.zMax > e.zMin) {
		return errors.Wrap(ErrNotExtruded, "mesh has no thickness")
	}
	tol := 1e-9 * (e.zMax - e.zMin)
	bottom := make(map[[2]float64]int)
	e.partner = make([]int, len(e.m.Points))
	for p, v := range e.m.Points {
		e.partner[p] = -1
		switch {
		case math.Abs(v.Z-e.zMin) <= tol:
			bottom[[2]float64{v.X, v.Y}] = p
		case math.Abs(v.Z-e.zMax) > tol:
			return errors.Wrapf(ErrNotExtruded, "point %d at z=%g between the planes", p, v.Z)
		}
	}
	for p, v := range e.m.Points {
		if math.Abs(v.Z-e.zMax) > tol {
			continue
		}
		b, ok := bottom[[2]float64{v.X, v.Y}]
		if !ok {
			return errors.Wrapf(ErrNotExtruded, "top point %d has no bottom point", p)
		}
		e.partner[p], e.partner[b] = b, p
	}
	for p := range e.m.Points {
		if e.partner[p] < 0 {
			return errors.Wrapf(ErrNotExtruded, "bottom point %d has no top point", p)
		}
	}
	return nil
}

// sideFaces returns the boundary faces outside empty patches.
func (e *SurfaceEdgeExtractor2D) sideFaces() []int {
	var side []int
	for _, f := range e.m.BoundaryFaces() {
		if e.m.Patches[e.m.Faces[f].Patch].Type != emptyPatchType {
			side = append(side, f)
		}
	}
	return side
}

// bottomPoints returns the bottom point of every column the faces use.
func (e *SurfaceEdgeExtractor2D) bottomPoints(faces []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, f := range faces {
		for _, p := range e.m.Faces[f].Points {
			b := e.bottom(p)
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
	}
	return out
}

func (e *SurfaceEdgeExtractor2D) bottom(p int) int {
	if e.m.Points[p].Z > e.m.Points[e.partner[p]].Z {
		return e.partner[p]
	}
	return p
}

// moveColumn sets the xy position of the column with bottom point b.
func (e *SurfaceEdgeExtractor2D) moveColumn(b int, to r3.Vec) {
	for _, p := range [2]int{b, e.partner[b]} {
		e.m.Points[p].X, e.m.Points[p].Y = to.X, to.Y
	}
}

func (e *SurfaceEdgeExtractor2D) mid(b int) r3.Vec {
	v := e.m.Points[b]
	v.Z = (e.zMin + e.zMax) / 2
	return v
}

func (e *SurfaceEdgeExtractor2D) projectBoundaryVertices(side []int) int {
	columns := e.bottomPoints(side)
	for _, b := range columns {
		_, c := e.profile.NearestFacet(e.mid(b))
		e.moveColumn(b, c)
	}
	e.m.ClearAddressing()
	return len(columns)
}

func (e *SurfaceEdgeExtractor2D) distributeBoundaryFaces(side []int) {
	for _, f := range side {
		facet, _ := e.profile.NearestFacet(e.m.FaceCentre(f))
		e.m.Faces[f].Patch = e.patchOf[e.profile.Facets[facet].Patch]
	}
}

// captureFeatures moves columns between side patches onto the nearest
// vertical feature edge.
func (e *SurfaceEdgeExtractor2D) captureFeatures(side []int) int {
	var vertical []int
	edges := e.profile.Edges()
	for _, ei := range e.profile.FeatureEdges(e.cfg.featureAngle) {
		d := r3.Sub(e.profile.Points[edges[ei][1]], e.profile.Points[edges[ei][0]])
		if math.Abs(d.Z) > 0.5*r3.Norm(d) {
			vertical = append(vertical, ei)
		}
	}
	if len(vertical) == 0 {
		return 0
	}
	index := e.profile.NewEdgeIndex(vertical)
	patches := make(map[int][]int)
	for _, f := range side {
		for _, p := range e.m.Faces[f].Points {
			b := e.bottom(p)
			patch := e.m.Faces[f].Patch
			if !slices.Contains(patches[b], patch) {
				patches[b] = append(patches[b], patch)
			}
		}
	}
	n := 0
	for _, b := range e.bottomPoints(side) {
		if len(patches[b]) < 2 {
			continue
		}
		_, c := index.Nearest(e.mid(b))
		e.moveColumn(b, c)
		n++
	}
	e.m.ClearAddressing()
	return n
}

// checkColumns verifies both points of every column share their xy position.
func (e *SurfaceEdgeExtractor2D) checkColumns() error {
	tol := 1e-9 * (e.zMax - e.zMin)
	for p, q := range e.partner {
		a, b := e.m.Points[p], e.m.Points[q]
		if math.Hypot(a.X-b.X, a.Y-b.Y) > tol {
			return errors.Errorf("bug: column %d-%d split apart: %v %v", p, q, a, b)
		}
	}
	return nil
}
