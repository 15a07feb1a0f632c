// Package morph post-processes extracted meshes so they conform to the input
// surface. CellMorpher leaves every boundary cell with a single boundary
// face, SurfaceEdgeExtractor moves boundary points onto the surface and cuts
// boundary faces along the edges and corners between surface patches, and
// CorrectEdgesBetweenPatches decomposes faces and cells left straddling
// patch boundaries.
package morph

import (
	"math"

	"github.com/pkg/errors"
	"github.com/soypat/octmesh/polymesh"
	"go.uber.org/zap"
)

var (
	// ErrUnknownPatch is returned for patch names the mesh does not have.
	ErrUnknownPatch = polymesh.ErrUnknownPatch
	// ErrNonManifold is returned when a boundary edge is not shared by
	// exactly two boundary faces.
	ErrNonManifold = errors.New("non-manifold boundary")
)

type config struct {
	log          *zap.Logger
	featureAngle float64
	planarTol    float64
	patchTypes   map[string]string
}

// Option configures the mesh post-processing steps.
type Option func(*config)

// WithLogger sets the logger used to report progress.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithFeatureAngle sets the angle in radians between face normals above
// which a boundary edge is a feature edge.
func WithFeatureAngle(angle float64) Option {
	return func(c *config) { c.featureAngle = angle }
}

// WithPlanarTolerance sets the relative distance from the face plane a point
// may have for a face to count as planar.
func WithPlanarTolerance(tol float64) Option {
	return func(c *config) { c.planarTol = tol }
}

// WithPatchTypes sets the type of named patches.
func WithPatchTypes(types map[string]string) Option {
	return func(c *config) { c.patchTypes = types }
}

// Default parameters.
const (
	DefaultFeatureAngle    = 45 * math.Pi / 180
	DefaultPlanarTolerance = 1e-3
)

func newConfig(opts []Option) config {
	cfg := config{
		log:          zap.NewNop(),
		featureAngle: DefaultFeatureAngle,
		planarTol:    DefaultPlanarTolerance,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// SetPatchTypes sets the type of the patches named in types.
func SetPatchTypes(m *polymesh.Mesh, types map[string]string) error {
	for name, typ := range types {
		i, err := m.PatchIndex(name)
		if err != nil {
			return errors.Wrap(err, "setting patch type")
		}
		m.Patches[i].Type = typ
	}
	return nil
}

// defaultPatch returns the index of polymesh.DefaultPatch, creating it.
func defaultPatch(m *polymesh.Mesh) int {
	return m.AddPatch(polymesh.DefaultPatch, "patch")
}
