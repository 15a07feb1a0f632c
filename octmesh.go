// Package octmesh generates volume meshes from triangulated surfaces.
//
// Generate runs the whole pipeline: an octree is built around the surface,
// refined towards the requested cell sizes and balanced, a volume mesh is
// extracted from its leaves and the mesh boundary is then fitted to the
// surface, its patches and its feature edges. Cells folded by the fitting
// are untangled last. The stages are available separately in the octree,
// extract, morph and smooth packages.
package octmesh

import (
	"time"

	"github.com/pkg/errors"
	"github.com/soypat/octmesh/extract"
	"github.com/soypat/octmesh/morph"
	"github.com/soypat/octmesh/octree"
	"github.com/soypat/octmesh/polymesh"
	"github.com/soypat/octmesh/smooth"
	"github.com/soypat/octmesh/surface"
	"go.uber.org/zap"
)

type config struct {
	log *zap.Logger
}

// Option configures Generate.
type Option func(*config)

// WithLogger sets the logger every stage reports progress to.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// Result is the outcome of Generate.
type Result struct {
	// Mesh is the sorted volume mesh.
	Mesh *polymesh.Mesh
	// Octree is the refined octree the mesh was extracted from.
	Octree *octree.Octree
	// InvertedCells counts the cells of Mesh with non-positive volume left
	// after untangling.
	InvertedCells int
}

// Generate meshes the volume enclosed by surf. A surface too small for the
// requested cell sizes yields an empty mesh and no error.
func Generate(surf *surface.Surface, s Settings, opts ...Option) (*Result, error) {
	cfg := config{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.log
	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid settings")
	}

	start := time.Now()
	octOpts := []octree.Option{
		octree.WithLogger(log.Named("octree")),
		octree.WithFeatureAngle(s.featureAngle()),
	}
	if s.TwoDimensional {
		octOpts = append(octOpts, octree.WithQuadtree())
	}
	o, err := octree.New(surf, octOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating octree")
	}
	refiner, err := octree.NewRefiner(o, s.refineSettings())
	if err != nil {
		return nil, err
	}
	if err := refiner.Refine(); err != nil {
		return nil, errors.Wrap(err, "refining octree")
	}
	if s.Processors > 1 {
		o.DistributeLeavesToProcessors(s.Processors)
	}
	log.Info("octree ready",
		zap.Int("leaves", len(o.Leaves())),
		zap.Uint8("maxLevel", o.MaxLevelUsed()),
		zap.Duration("elapsed", time.Since(start)),
	)

	start = time.Now()
	m := &polymesh.Mesh{}
	ex, err := extract.New(s.Extractor, o, m,
		extract.WithLogger(log.Named("extract")),
		extract.WithDataBoxes(s.UseDataBoxes),
	)
	if err != nil {
		return nil, err
	}
	if err := ex.CreateMesh(); err != nil {
		return nil, errors.Wrapf(err, "%s extraction", s.Extractor)
	}
	log.Info("mesh extracted",
		zap.String("extractor", s.Extractor),
		zap.Int("cells", m.NumCells),
		zap.Int("faces", len(m.Faces)),
		zap.Duration("elapsed", time.Since(start)),
	)
	res := &Result{Mesh: m, Octree: o}
	if m.NumCells == 0 {
		log.Warn("no cells extracted, cell size may be too large for the surface")
		return res, nil
	}

	start = time.Now()
	if err := postProcess(m, surf, s, log); err != nil {
		return nil, err
	}
	m.Sort()
	if err := m.CheckTopology(); err != nil {
		return nil, errors.Wrap(err, "generated mesh is invalid")
	}
	if tangled := smooth.Untangle(m, smooth.WithLogger(log.Named("smooth"))); tangled > 0 {
		log.Warn("mesh has tangled cells", zap.Int("cells", tangled))
	}
	for _, v := range m.CellVolumes() {
		if v <= 0 {
			res.InvertedCells++
		}
	}
	if res.InvertedCells > 0 {
		log.Warn("mesh has inverted cells", zap.Int("cells", res.InvertedCells))
	}
	log.Info("mesh generated",
		zap.Int("cells", m.NumCells),
		zap.Int("faces", len(m.Faces)),
		zap.Int("points", len(m.Points)),
		zap.Strings("patches", m.PatchNames()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// postProcess fits the extracted mesh to surf. Two dimensional meshes are
// neither morphed nor corrected since both would break the extrusion.
func postProcess(m *polymesh.Mesh, surf *surface.Surface, s Settings, log *zap.Logger) error {
	opts := []morph.Option{
		morph.WithLogger(log.Named("morph")),
		morph.WithFeatureAngle(s.featureAngle()),
		morph.WithPlanarTolerance(s.PlanarTolerance),
		morph.WithPatchTypes(s.PatchTypes),
	}
	if s.Morph && !s.TwoDimensional {
		morph.NewCellMorpher(m, opts...).MorphMesh()
		if m.NumCells == 0 {
			log.Warn("morphing removed every cell")
			return nil
		}
	}
	switch {
	case s.CaptureFeatureEdges && s.TwoDimensional:
		if err := morph.NewSurfaceEdgeExtractor2D(m, surf, opts...).ExtractEdges(); err != nil {
			return errors.Wrap(err, "extracting 2d surface edges")
		}
	case s.CaptureFeatureEdges:
		if err := morph.NewSurfaceEdgeExtractor(m, surf, opts...).ExtractEdges(); err != nil {
			return errors.Wrap(err, "extracting surface edges")
		}
	case s.PatchTypes != nil:
		if err := morph.SetPatchTypes(m, s.PatchTypes); err != nil {
			return err
		}
	}
	if s.CorrectEdges && !s.TwoDimensional {
		if err := morph.CorrectEdgesBetweenPatches(m, opts...); err != nil {
			return errors.Wrap(err, "correcting edges between patches")
		}
	}
	return nil
}
