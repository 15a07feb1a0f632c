package octree

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrBalanceNotConverged is returned when 2:1 balancing keeps finding
// violations after BalanceIterationCap iterations.
var ErrBalanceNotConverged = errors.New("octree balancing did not converge")

// BalanceIterationCap is the maximum number of balancing sweeps for an
// octree whose finest leaf is at maxLevel. Each sweep removes at least one
// level of imbalance so a correct octree converges well before the cap.
func BalanceIterationCap(maxLevel int) int { return 2*maxLevel + 8 }

// Modifier performs topological changes on an octree.
type Modifier struct {
	o *Octree
}

// NewModifier returns a Modifier for o.
func NewModifier(o *Octree) *Modifier { return &Modifier{o: o} }

// Octree returns the modified octree.
func (m *Modifier) Octree() *Octree { return m.o }

// RefineSelected subdivides every marked leaf. marked is indexed by cube and
// may be shorter than the number of cubes. With hexRefinement every leaf
// sibling of a marked leaf is refined too so refined cubes keep all their
// children at the same level. Leaves at MaxLevel are never refined. It
// returns the number of subdivided leaves.
func (m *Modifier) RefineSelected(marked []bool, hexRefinement bool) int {
	o := m.o
	if hexRefinement {
		m.EnsureCorrectRegularitySons(marked)
	}
	var selected []int
	for ci, mark := range marked {
		if mark && o.IsLeaf(ci) && o.cubes[ci].Level < MaxLevel {
			selected = append(selected, ci)
		}
	}
	for _, ci := range selected {
		o.subdivide(ci)
	}
	return len(selected)
}

// EnsureCorrectRegularitySons marks all leaf siblings of marked leaves.
func (m *Modifier) EnsureCorrectRegularitySons(marked []bool) {
	o := m.o
	for ci, mark := range marked {
		if !mark || ci == 0 || !o.IsLeaf(ci) {
			continue
		}
		first := int(o.cubes[o.cubes[ci].parent].children)
		for j := 0; j < o.nChildren; j++ {
			if sib := first + j; sib < len(marked) && o.IsLeaf(sib) {
				marked[sib] = true
			}
		}
	}
}

// MarkAdditionalLayers grows the set of marked leaves by nLayers rings of
// neighbouring leaves that are not finer than the leaf they are reached
// from. It returns the number of newly marked leaves.
func (m *Modifier) MarkAdditionalLayers(marked []bool, nLayers int) int {
	o := m.o
	added := 0
	front := make([]int, 0)
	for ci, mark := range marked {
		if mark && o.IsLeaf(ci) {
			front = append(front, ci)
		}
	}
	for layer := 0; layer < nLayers && len(front) > 0; layer++ {
		var next []int
		for _, ci := range front {
			lvl := o.cubes[ci].Level
			for _, n := range o.FindAllLeafNeighbours(ci) {
				if n < len(marked) && !marked[n] && o.cubes[n].Level <= lvl {
					marked[n] = true
					next = append(next, n)
					added++
				}
			}
		}
		front = next
	}
	return added
}

// EnsureBalance refines leaves until no leaf touches, across a face, edge or
// corner, a leaf more than one level finer. It returns the number of refined
// leaves and ErrBalanceNotConverged if the iteration cap is reached.
func (m *Modifier) EnsureBalance() (int, error) {
	o := m.o
	limit := BalanceIterationCap(int(o.MaxLevelUsed()))
	refined := 0
	for iter := 0; ; iter++ {
		marked := make([]bool, len(o.cubes))
		violations := 0
		for _, leaf := range o.Leaves() {
			if o.unbalancedNeighbour(leaf) >= 0 {
				marked[leaf] = true
				violations++
			}
		}
		if !o.comm.ReduceOr(violations > 0) {
			o.log.Debug("octree balanced", zap.Int("iterations", iter), zap.Int("refined", refined))
			return refined, nil
		}
		if iter == limit {
			return refined, fmt.Errorf("%w after %d iterations, %d leaves still unbalanced",
				ErrBalanceNotConverged, iter, violations)
		}
		refined += m.RefineSelected(marked, false)
	}
}
