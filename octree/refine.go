package octree

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// RefinementSource requests cells no larger than CellSize within Radius of
// Centre. A zero radius source is a point feature.
type RefinementSource struct {
	Centre   r3.Vec  `json:"centre"`
	Radius   float64 `json:"radius"`
	CellSize float64 `json:"cellSize"`
}

// RefineSettings controls the target resolution of the octree.
type RefineSettings struct {
	// MaxCellSize is the largest allowed cell size anywhere.
	MaxCellSize float64
	// BoundaryCellSize is the size of leaves intersecting the surface. Zero
	// means MaxCellSize.
	BoundaryCellSize float64
	// FeatureCellSize is the size of leaves containing feature edges. Zero
	// means BoundaryCellSize.
	FeatureCellSize float64
	// MaxLevel limits refinement depth. Zero means MaxLevel.
	MaxLevel int
	// AdditionalLayers of neighbours are refined around every marked leaf.
	AdditionalLayers int
	// HexRefinement refines all siblings of a refined leaf.
	HexRefinement bool
	Sources       []RefinementSource
}

// Validate checks the settings are usable.
func (s RefineSettings) Validate() error {
	var errs []error
	if s.MaxCellSize <= 0 || math.IsNaN(s.MaxCellSize) {
		errs = append(errs, fmt.Errorf("max cell size must be positive, got %g", s.MaxCellSize))
	}
	if s.BoundaryCellSize < 0 || s.FeatureCellSize < 0 {
		errs = append(errs, errors.New("boundary and feature cell sizes must not be negative"))
	}
	if s.MaxLevel < 0 || s.MaxLevel > MaxLevel {
		errs = append(errs, fmt.Errorf("max refinement level %d out of range [0, %d]", s.MaxLevel, MaxLevel))
	}
	if s.AdditionalLayers < 0 {
		errs = append(errs, errors.New("additional layers must not be negative"))
	}
	for i, src := range s.Sources {
		if src.Radius < 0 || src.CellSize <= 0 {
			errs = append(errs, fmt.Errorf("refinement source %d needs radius >= 0 and cell size > 0", i))
		}
	}
	return multierr.Combine(errs...)
}

// Refiner drives octree subdivision towards a target size field while
// keeping the octree balanced.
type Refiner struct {
	o   *Octree
	mod *Modifier
	s   RefineSettings
}

// NewRefiner returns a Refiner for o.
func NewRefiner(o *Octree, s RefineSettings) (*Refiner, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.BoundaryCellSize == 0 {
		s.BoundaryCellSize = s.MaxCellSize
	}
	if s.FeatureCellSize == 0 {
		s.FeatureCellSize = s.BoundaryCellSize
	}
	if s.MaxLevel == 0 {
		s.MaxLevel = MaxLevel
	}
	return &Refiner{o: o, mod: NewModifier(o), s: s}, nil
}

// TargetSize returns the requested cell size at leaf ci.
func (r *Refiner) TargetSize(ci int) float64 {
	o := r.o
	size := r.s.MaxCellSize
	if o.HasContainedTriangles(ci) {
		size = math.Min(size, r.s.BoundaryCellSize)
	}
	if len(o.ContainedEdges(ci)) > 0 {
		size = math.Min(size, r.s.FeatureCellSize)
	}
	if len(r.s.Sources) > 0 {
		box := o.CubeBox(ci)
		for _, src := range r.s.Sources {
			if box.MinDist2(src.Centre) <= src.Radius*src.Radius {
				size = math.Min(size, src.CellSize)
			}
		}
	}
	return size
}

// needsRefinement reports whether leaf ci is coarser than its target size.
func (r *Refiner) needsRefinement(ci int) bool {
	if int(r.o.cubes[ci].Level) >= r.s.MaxLevel {
		return false
	}
	return r.o.CubeSize(ci) > r.TargetSize(ci)*(1+1e-9)
}

// Refine subdivides leaves breadth first until every leaf meets its target
// size, balancing the octree after each pass, and finally classifies the
// leaves. Balancing failures are fatal.
func (r *Refiner) Refine() error {
	o := r.o
	for pass := 0; ; pass++ {
		marked := make([]bool, len(o.cubes))
		n := 0
		for _, leaf := range o.Leaves() {
			if r.needsRefinement(leaf) {
				marked[leaf] = true
				n++
			}
		}
		if !o.comm.ReduceOr(n > 0) {
			break
		}
		layers := r.mod.MarkAdditionalLayers(marked, r.s.AdditionalLayers)
		refined := r.mod.RefineSelected(marked, r.s.HexRefinement)
		balanced, err := r.mod.EnsureBalance()
		if err != nil {
			return fmt.Errorf("refinement pass %d: %w", pass, err)
		}
		o.log.Info("refinement pass",
			zap.Int("pass", pass),
			zap.Int("marked", n),
			zap.Int("layers", layers),
			zap.Int("refined", refined),
			zap.Int("balanced", balanced),
			zap.Int("leaves", len(o.Leaves())),
		)
	}
	o.ClassifyLeaves()
	return nil
}
