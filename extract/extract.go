// Package extract builds volume meshes from a refined, balanced and
// classified octree.
//
// Extractors are selected by name from a fixed registry. Each one walks the
// mesh cell leaves of the octree and appends points and cells to a
// polymesh.Mesh through a polymesh.Modifier. Boundary faces end up in the
// polymesh.DefaultPatch patch.
package extract

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/soypat/octmesh/octree"
	"github.com/soypat/octmesh/polymesh"
	"go.uber.org/zap"
)

var (
	// ErrUnknownExtractor is returned by New for names not in the registry.
	ErrUnknownExtractor = errors.New("unknown mesh extractor")
	// ErrInvalidTet is returned when a tetrahedron without positive volume
	// would be created.
	ErrInvalidTet = errors.New("tetrahedron with non-positive volume")
	// ErrQuadtree is returned by extractors that need a full octree.
	ErrQuadtree = errors.New("extractor does not support quadtrees")
)

// Extractor creates a volume mesh.
type Extractor interface {
	// CreateMesh appends the extracted cells to the mesh. It must be called
	// once.
	CreateMesh() error
}

type config struct {
	log          *zap.Logger
	useDataBoxes bool
}

// Option configures an extractor.
type Option func(*config)

// WithLogger sets the logger used to report progress.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithDataBoxes turns leaves intersecting the surface into mesh cells too.
func WithDataBoxes(use bool) Option {
	return func(c *config) { c.useDataBoxes = use }
}

// Factory constructs an extractor writing to m.
type Factory func(o *octree.Octree, m *polymesh.Mesh, opts ...Option) Extractor

var registry = map[string]Factory{
	"tet": func(o *octree.Octree, m *polymesh.Mesh, opts ...Option) Extractor {
		return NewTetExtractor(o, m, opts...)
	},
	"voronoi": func(o *octree.Octree, m *polymesh.Mesh, opts ...Option) Extractor {
		return NewVoronoiExtractor(o, m, opts...)
	},
	"cartesian": func(o *octree.Octree, m *polymesh.Mesh, opts ...Option) Extractor {
		return NewCartesianExtractor(o, m, opts...)
	},
}

// Names returns the sorted names of the registered extractors.
func Names() []string {
	names := lo.Keys(registry)
	slices.Sort(names)
	return names
}

// New returns the extractor registered under name.
func New(name string, o *octree.Octree, m *polymesh.Mesh, opts ...Option) (Extractor, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownExtractor, "extractor %q (valid: %v)", name, Names())
	}
	return factory(o, m, opts...), nil
}

// base holds what all extractors share.
type base struct {
	o    *octree.Octree
	m    *polymesh.Mesh
	addr *octree.Addressing
	log  *zap.Logger
}

func newBase(o *octree.Octree, m *polymesh.Mesh, opts []Option) base {
	cfg := config{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return base{
		o:    o,
		m:    m,
		addr: octree.NewAddressing(o, cfg.useDataBoxes),
		log:  cfg.log,
	}
}
