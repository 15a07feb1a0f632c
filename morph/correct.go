package morph

import (
	"math"

	"github.com/pkg/errors"
	"github.com/soypat/octmesh/facedecomp"
	"github.com/soypat/octmesh/meshsurface"
	"github.com/soypat/octmesh/polymesh"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// maxCorrectionSweeps bounds the face passes of CorrectEdgesBetweenPatches.
const maxCorrectionSweeps = 16

// CorrectEdgesBetweenPatches decomposes boundary faces and cells that do not
// follow the edges between patches. The face passes below are repeated until
// none of them changes the boundary:
//
//   - boundary faces with more than one patch or feature edge are
//     triangulated,
//   - concave boundary faces are split into convex pieces,
//   - faces with no edge neighbour in their patch take the patch most of
//     their neighbours have.
//
// Cells touched by the face passes or with boundary faces in several patches
// are then split into pyramids. Running it on a corrected mesh changes
// nothing.
func CorrectEdgesBetweenPatches(m *polymesh.Mesh, opts ...Option) error {
	cfg := newConfig(opts)
	ec := &edgeCorrector{m: m, cfg: cfg, touched: make([]bool, m.NumCells)}
	var faces, concave, patches, sweeps int
	for {
		f, err := ec.decomposeProblematicFaces()
		if err != nil {
			return err
		}
		c := ec.decomposeConcaveFaces()
		p, err := ec.patchCorrection()
		if err != nil {
			return err
		}
		faces, concave, patches = faces+f, concave+c, patches+p
		sweeps++
		if f+c+p == 0 {
			break
		}
		if sweeps == maxCorrectionSweeps {
			cfg.log.Warn("boundary correction did not settle", zap.Int("sweeps", sweeps))
			break
		}
	}
	cells := ec.decomposeCorrectedCells()
	cfg.log.Info("edges between patches corrected",
		zap.Int("sweeps", sweeps),
		zap.Int("problematicFaces", faces),
		zap.Int("concaveFaces", concave),
		zap.Int("patchChanges", patches),
		zap.Int("decomposedCells", cells),
	)
	return nil
}

type edgeCorrector struct {
	m       *polymesh.Mesh
	cfg     config
	touched []bool
}

// edgeTypes classifies the boundary edges, failing on non-manifold ones.
func (ec *edgeCorrector) edgeTypes() (*meshsurface.Surface, []meshsurface.EdgeType, error) {
	s := meshsurface.New(ec.m)
	types, err := meshsurface.CheckEdgeTypes(s, math.Pi-ec.cfg.featureAngle)
	if err != nil {
		return nil, nil, err
	}
	for e, faces := range s.EdgeFaces() {
		if len(faces) != 2 {
			edge := s.Edges()[e]
			return nil, nil, errors.Wrapf(ErrNonManifold, "edge %d-%d has %d boundary faces",
				s.Points()[edge[0]], s.Points()[edge[1]], len(faces))
		}
	}
	return s, types, nil
}

// replaceFace swaps face f for pieces with the same cells and patch.
func (ec *edgeCorrector) replaceFace(f int, pieces [][]int) {
	face := ec.m.Faces[f]
	ec.m.Faces[f].Points = pieces[0]
	for _, p := range pieces[1:] {
		face.Points = p
		ec.m.Faces = append(ec.m.Faces, face)
	}
	ec.touched[face.Owner] = true
}

// decomposeProblematicFaces triangulates boundary faces with more than one
// patch or feature edge.
func (ec *edgeCorrector) decomposeProblematicFaces() (int, error) {
	s, types, err := ec.edgeTypes()
	if err != nil {
		return 0, err
	}
	n := 0
	for bf, f := range s.Faces() {
		pts := ec.m.Faces[f].Points
		if len(pts) == 3 {
			continue
		}
		special := 0
		for _, e := range s.FaceEdges()[bf] {
			if types[e]&(meshsurface.PatchEdge|meshsurface.FeatureEdge) != 0 {
				special++
			}
		}
		if special < 2 {
			continue
		}
		tris, err := facedecomp.DecomposeFaceIntoTriangles(pts, ec.m.Points)
		if err != nil {
			ec.cfg.log.Debug("problematic face not decomposed", zap.Int("face", f), zap.Error(err))
			continue
		}
		ec.replaceFace(f, tris)
		n++
	}
	if n > 0 {
		ec.m.ClearAddressing()
	}
	return n, nil
}

// decomposeConcaveFaces splits concave boundary faces into convex pieces.
func (ec *edgeCorrector) decomposeConcaveFaces() int {
	n := 0
	for _, f := range ec.m.BoundaryFaces() {
		pts := ec.m.Faces[f].Points
		if facedecomp.IsFaceConvex(pts, ec.m.Points) {
			continue
		}
		tol := ec.cfg.planarTol * math.Sqrt(r3.Norm(ec.m.FaceAreaVector(f)))
		pieces, err := facedecomp.DecomposeFace(pts, ec.m.Points, tol)
		if err != nil {
			ec.cfg.log.Debug("concave face not decomposed", zap.Int("face", f), zap.Error(err))
			continue
		}
		if len(pieces) > 1 {
			ec.replaceFace(f, pieces)
			n++
		}
	}
	if n > 0 {
		ec.m.ClearAddressing()
	}
	return n
}

// patchCorrection moves faces without an edge neighbour in their own patch
// to the patch most of their neighbours are in, the lowest on ties.
func (ec *edgeCorrector) patchCorrection() (int, error) {
	s, _, err := ec.edgeTypes()
	if err != nil {
		return 0, err
	}
	n := 0
	for bf, f := range s.Faces() {
		own := ec.m.Faces[f].Patch
		votes := make(map[int]int)
		isolated := true
		for _, e := range s.FaceEdges()[bf] {
			for _, nb := range s.EdgeFaces()[e] {
				if nb == bf {
					continue
				}
				p := ec.m.Faces[s.Faces()[nb]].Patch
				if p == own {
					isolated = false
				}
				votes[p]++
			}
		}
		if !isolated || len(votes) == 0 {
			continue
		}
		best, bestVotes := -1, 0
		for p, v := range votes {
			if v > bestVotes || (v == bestVotes && p < best) {
				best, bestVotes = p, v
			}
		}
		ec.m.Faces[f].Patch = best
		ec.touched[ec.m.Faces[f].Owner] = true
		n++
	}
	return n, nil
}

// decomposeCorrectedCells splits touched cells and cells with boundary faces
// in several patches into pyramids.
func (ec *edgeCorrector) decomposeCorrectedCells() int {
	patch := make([]int, ec.m.NumCells)
	for c := range patch {
		patch[c] = -1
	}
	marked := make([]bool, ec.m.NumCells)
	copy(marked, ec.touched)
	for _, f := range ec.m.BoundaryFaces() {
		face := ec.m.Faces[f]
		switch patch[face.Owner] {
		case -1:
			patch[face.Owner] = face.Patch
		case face.Patch:
		default:
			marked[face.Owner] = true
		}
	}
	for c, faces := range ec.m.CellFaces() {
		if !marked[c] {
			continue
		}
		nb := 0
		for _, f := range faces {
			if ec.m.Faces[f].IsBoundary() {
				nb++
			}
		}
		// A cell touching the boundary through one face needs no split.
		marked[c] = nb > 1
	}
	return decomposeCells(ec.m, marked)
}
