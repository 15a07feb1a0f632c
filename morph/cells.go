package morph

import (
	"slices"

	"github.com/soypat/octmesh/polymesh"
	"go.uber.org/zap"
)

// CellState marks cells during morphing.
type CellState uint8

const (
	// None cells have no boundary face.
	None CellState = iota
	// Boundary cells have at least one boundary face.
	Boundary
	// Changed cells were modified by the current pass.
	Changed
)

func (s CellState) String() string {
	switch s {
	case None:
		return "none"
	case Boundary:
		return "boundary"
	case Changed:
		return "changed"
	}
	return "CellState(?)"
}

// minCellFaces is the least number of faces a closed cell can have.
const minCellFaces = 4

// CellMorpher rebuilds boundary cells until each touches the boundary
// through a single face. Boundary faces of a cell sharing edges are merged,
// internal faces between the same two cells are merged, and cells that can
// not be repaired this way are removed.
type CellMorpher struct {
	m   *polymesh.Mesh
	log *zap.Logger

	boundaryVertex []bool
	cellState      []CellState
	nBoundaryFaces []int
}

// NewCellMorpher returns a CellMorpher modifying m.
func NewCellMorpher(m *polymesh.Mesh, opts ...Option) *CellMorpher {
	cfg := newConfig(opts)
	return &CellMorpher{m: m, log: cfg.log}
}

// MorphMesh runs the morphing passes until none changes the mesh and reports
// whether the mesh was changed. Afterwards no cell has more than one
// boundary face.
func (cm *CellMorpher) MorphMesh() bool {
	changed := false
	var removed, merged, iterations int
	for {
		iterations++
		cm.findBoundaryVertices()
		cm.findBoundaryCells()
		if n := cm.removeCellsWithAllVerticesAtTheBoundary(); n > 0 {
			removed += n
			changed = true
			continue
		}
		if n := cm.morphBoundaryFaces(); n > 0 {
			merged += n
			changed = true
			continue
		}
		if n := cm.morphInternalFaces(); n > 0 {
			merged += n
			changed = true
			continue
		}
		if n := cm.removeCellsWithMultipleBoundaryFaces(); n > 0 {
			removed += n
			changed = true
			continue
		}
		break
	}
	cm.log.Info("cells morphed",
		zap.Int("iterations", iterations),
		zap.Int("removedCells", removed),
		zap.Int("mergedFaces", merged),
		zap.Int("cells", cm.m.NumCells),
	)
	return changed
}

func (cm *CellMorpher) findBoundaryVertices() {
	cm.boundaryVertex = make([]bool, len(cm.m.Points))
	for _, f := range cm.m.Faces {
		if !f.IsBoundary() {
			continue
		}
		for _, p := range f.Points {
			cm.boundaryVertex[p] = true
		}
	}
}

func (cm *CellMorpher) findBoundaryCells() {
	cm.cellState = make([]CellState, cm.m.NumCells)
	cm.nBoundaryFaces = make([]int, cm.m.NumCells)
	for _, f := range cm.m.Faces {
		if f.IsBoundary() {
			cm.cellState[f.Owner] = Boundary
			cm.nBoundaryFaces[f.Owner]++
		}
	}
}

// removeCellsWithAllVerticesAtTheBoundary removes boundary cells without an
// interior vertex. Such cells can not be reduced to a single boundary face.
func (cm *CellMorpher) removeCellsWithAllVerticesAtTheBoundary() int {
	remove := make([]bool, cm.m.NumCells)
	found := false
	for c, pts := range cm.m.CellPoints() {
		if cm.cellState[c] != Boundary {
			continue
		}
		all := true
		for _, p := range pts {
			if !cm.boundaryVertex[p] {
				all = false
				break
			}
		}
		remove[c] = all
		found = found || all
	}
	if !found {
		return 0
	}
	return cm.m.RemoveCells(remove, defaultPatch(cm.m))
}

// removeCellsWithMultipleBoundaryFaces removes cells whose boundary faces
// could not be merged, such as ones touching the boundary at faces that
// share no edge.
func (cm *CellMorpher) removeCellsWithMultipleBoundaryFaces() int {
	remove := make([]bool, cm.m.NumCells)
	found := false
	for c, n := range cm.nBoundaryFaces {
		remove[c] = n > 1
		found = found || n > 1
	}
	if !found {
		return 0
	}
	return cm.m.RemoveCells(remove, defaultPatch(cm.m))
}

// morphBoundaryFaces merges boundary faces of the same cell that share a
// chain of edges no other face uses. It returns the number of merges.
func (cm *CellMorpher) morphBoundaryFaces() int {
	use := edgeUse(cm.m)
	cellFaces := cm.m.CellFaces()
	remove := make([]bool, len(cm.m.Faces))
	merges := 0
	for c, faces := range cellFaces {
		if cm.nBoundaryFaces[c] < 2 {
			continue
		}
		var bfs []int
		for _, f := range faces {
			if cm.m.Faces[f].IsBoundary() {
				bfs = append(bfs, f)
			}
		}
		allowed := slices.Clone(bfs)
		loops := make([][]int, len(bfs))
		for i, f := range bfs {
			loops[i] = cm.m.Faces[f].Points
		}
		nFaces := len(faces)
		for again := true; again; {
			again = false
		search:
			for i := range bfs {
				for j := i + 1; j < len(bfs); j++ {
					ml, chain, dropped, ok := mergeAlongChain(loops[i], loops[j])
					if !ok || nFaces-1 < minCellFaces || !chainFree(cm.m, use, chain, dropped, allowed) {
						continue
					}
					loops[i] = ml
					remove[bfs[j]] = true
					bfs = slices.Delete(bfs, j, j+1)
					loops = slices.Delete(loops, j, j+1)
					nFaces--
					merges++
					cm.cellState[c] = Changed
					again = true
					break search
				}
			}
		}
		for i, f := range bfs {
			cm.m.Faces[f].Points = loops[i]
		}
	}
	if merges > 0 {
		cm.m.RemoveFaces(remove)
		cm.m.RemoveUnusedPoints()
	}
	return merges
}

// morphInternalFaces merges faces between the same pair of cells that share
// a chain of edges no other face uses. It returns the number of merges.
func (cm *CellMorpher) morphInternalFaces() int {
	type pair struct{ owner, neighbour int }
	byPair := make(map[pair][]int)
	var pairs []pair
	for i, f := range cm.m.Faces {
		if f.IsBoundary() {
			continue
		}
		p := pair{min(f.Owner, f.Neighbour), max(f.Owner, f.Neighbour)}
		if byPair[p] == nil {
			pairs = append(pairs, p)
		}
		byPair[p] = append(byPair[p], i)
	}
	use := edgeUse(cm.m)
	nCellFaces := make([]int, cm.m.NumCells)
	for c, faces := range cm.m.CellFaces() {
		nCellFaces[c] = len(faces)
	}
	remove := make([]bool, len(cm.m.Faces))
	merges := 0
	for _, p := range pairs {
		faces := byPair[p]
		if len(faces) < 2 {
			continue
		}
		allowed := slices.Clone(faces)
		loops := make([][]int, len(faces))
		for i, f := range faces {
			loops[i] = slices.Clone(cm.m.Faces[f].Points)
			if cm.m.Faces[f].Owner != p.owner {
				slices.Reverse(loops[i])
			}
		}
		before := merges
		for again := true; again; {
			again = false
		search:
			for i := range faces {
				for j := i + 1; j < len(faces); j++ {
					ml, chain, dropped, ok := mergeAlongChain(loops[i], loops[j])
					if !ok || min(nCellFaces[p.owner], nCellFaces[p.neighbour])-1 < minCellFaces || !chainFree(cm.m, use, chain, dropped, allowed) {
						continue
					}
					loops[i] = ml
					remove[faces[j]] = true
					faces = slices.Delete(faces, j, j+1)
					loops = slices.Delete(loops, j, j+1)
					nCellFaces[p.owner]--
					nCellFaces[p.neighbour]--
					merges++
					again = true
					break search
				}
			}
		}
		for i, f := range faces {
			face := &cm.m.Faces[f]
			face.Points = loops[i]
			face.Owner, face.Neighbour = p.owner, p.neighbour
		}
		if merges > before {
			cm.cellState[p.owner] = Changed
			cm.cellState[p.neighbour] = Changed
		}
	}
	if merges > 0 {
		cm.m.RemoveFaces(remove)
		cm.m.RemoveUnusedPoints()
	}
	return merges
}
