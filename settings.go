package octmesh

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/soypat/octmesh/extract"
	"github.com/soypat/octmesh/octree"
	"go.uber.org/multierr"
)

// Settings controls mesh generation. Lengths are in surface units and
// angles in degrees.
type Settings struct {
	// MaxCellSize is the largest cell size anywhere in the mesh.
	MaxCellSize float64 `json:"maxCellSize"`
	// BoundaryCellSize is the cell size at the surface. Zero means MaxCellSize.
	BoundaryCellSize float64 `json:"boundaryCellSize"`
	// FeatureCellSize is the cell size at feature edges. Zero means
	// BoundaryCellSize.
	FeatureCellSize float64 `json:"featureCellSize"`
	// FeatureAngle is the angle between surface normals above which an
	// edge is a feature edge.
	FeatureAngle float64 `json:"featureAngle"`
	// MaxRefinementLevel limits octree depth. Zero means no limit besides
	// the lattice resolution.
	MaxRefinementLevel int  `json:"maxRefinementLevel"`
	AdditionalLayers   int  `json:"additionalLayers"`
	HexRefinement      bool `json:"hexRefinement"`
	// Extractor names the mesh extractor, one of extract.Names.
	Extractor    string `json:"extractor"`
	UseDataBoxes bool   `json:"useDataBoxes"`
	// Morph reduces every boundary cell to a single boundary face.
	Morph bool `json:"morph"`
	// CaptureFeatureEdges fits the mesh boundary to the surface, its
	// patches and feature edges.
	CaptureFeatureEdges bool `json:"captureFeatureEdges"`
	// CorrectEdges decomposes faces and cells straddling patch boundaries.
	CorrectEdges bool `json:"correctEdges"`
	// TwoDimensional meshes a surface extruded along z with a single layer
	// of cells.
	TwoDimensional  bool    `json:"twoDimensional"`
	PlanarTolerance float64 `json:"planarTolerance"`
	// PatchTypes sets the type of named output patches.
	PatchTypes        map[string]string         `json:"patchTypes"`
	RefinementSources []octree.RefinementSource `json:"refinementSources"`
	// Processors is the number of processors leaves are distributed to.
	Processors int `json:"processors"`
}

// DefaultSettings returns the settings used for keys absent from a
// configuration. MaxCellSize has no default.
func DefaultSettings() Settings {
	return Settings{
		FeatureAngle:        45,
		Extractor:           "cartesian",
		Morph:               true,
		CaptureFeatureEdges: true,
		CorrectEdges:        true,
		PlanarTolerance:     1e-3,
		Processors:          1,
	}
}

// DecodeSettings decodes a configuration dictionary on top of
// DefaultSettings. Unknown keys are an error.
func DecodeSettings(raw map[string]any) (Settings, error) {
	s := DefaultSettings()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &s,
		ErrorUnused: true,
	})
	if err != nil {
		return s, err
	}
	if err := decoder.Decode(raw); err != nil {
		return s, errors.Wrap(err, "decoding settings")
	}
	return s, nil
}

// Validate returns all problems found in s.
func (s Settings) Validate() error {
	var err error
	if !(s.MaxCellSize > 0) || math.IsInf(s.MaxCellSize, 1) {
		err = multierr.Append(err, fmt.Errorf("maxCellSize must be positive and finite, got %g", s.MaxCellSize))
	}
	if s.BoundaryCellSize < 0 || s.FeatureCellSize < 0 {
		err = multierr.Append(err, errors.New("boundaryCellSize and featureCellSize must not be negative"))
	}
	if !(s.FeatureAngle > 0 && s.FeatureAngle < 180) {
		err = multierr.Append(err, fmt.Errorf("featureAngle must be in (0, 180) degrees, got %g", s.FeatureAngle))
	}
	if s.MaxRefinementLevel < 0 || s.MaxRefinementLevel > octree.MaxLevel {
		err = multierr.Append(err, fmt.Errorf("maxRefinementLevel must be in [0, %d], got %d", octree.MaxLevel, s.MaxRefinementLevel))
	}
	if s.AdditionalLayers < 0 {
		err = multierr.Append(err, fmt.Errorf("additionalLayers must not be negative, got %d", s.AdditionalLayers))
	}
	if !slices.Contains(extract.Names(), s.Extractor) {
		err = multierr.Append(err, errors.Wrapf(extract.ErrUnknownExtractor, "%q, valid extractors: %v", s.Extractor, extract.Names()))
	}
	if s.TwoDimensional && s.Extractor != "cartesian" {
		err = multierr.Append(err, fmt.Errorf("twoDimensional meshes need the cartesian extractor, got %q", s.Extractor))
	}
	if s.PlanarTolerance < 0 {
		err = multierr.Append(err, fmt.Errorf("planarTolerance must not be negative, got %g", s.PlanarTolerance))
	}
	for i, src := range s.RefinementSources {
		if src.Radius < 0 || !(src.CellSize > 0) {
			err = multierr.Append(err, fmt.Errorf("refinementSources[%d] needs radius >= 0 and cellSize > 0", i))
		}
	}
	if s.Processors < 1 {
		err = multierr.Append(err, fmt.Errorf("processors must be at least 1, got %d", s.Processors))
	}
	return err
}

func (s Settings) refineSettings() octree.RefineSettings {
	return octree.RefineSettings{
		MaxCellSize:      s.MaxCellSize,
		BoundaryCellSize: s.BoundaryCellSize,
		FeatureCellSize:  s.FeatureCellSize,
		MaxLevel:         s.MaxRefinementLevel,
		AdditionalLayers: s.AdditionalLayers,
		HexRefinement:    s.HexRefinement,
		Sources:          s.RefinementSources,
	}
}

func (s Settings) featureAngle() float64 { return s.FeatureAngle * math.Pi / 180 }
