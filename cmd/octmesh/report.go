package main

import (
	"math"

	"github.com/soypat/octmesh/octree"
	"github.com/soypat/octmesh/polymesh"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// logQuality reports cell volume and face non-orthogonality statistics.
func logQuality(log *zap.Logger, m *polymesh.Mesh) {
	volumes := m.CellVolumes()
	meanVol, stdVol := stat.MeanStdDev(volumes, nil)
	centres := make([]r3.Vec, m.NumCells)
	for c := range centres {
		centres[c], _ = m.CellCentreVolume(c)
	}
	var nonOrtho []float64
	for f, face := range m.Faces {
		if face.IsBoundary() {
			continue
		}
		d := r3.Sub(centres[face.Neighbour], centres[face.Owner])
		n := m.FaceAreaVector(f)
		cos := r3.Dot(d, n) / (r3.Norm(d) * r3.Norm(n))
		nonOrtho = append(nonOrtho, math.Acos(math.Max(-1, math.Min(1, cos)))*180/math.Pi)
	}
	fields := []zap.Field{
		zap.Int("cells", m.NumCells),
		zap.Float64("minVolume", floats.Min(volumes)),
		zap.Float64("maxVolume", floats.Max(volumes)),
		zap.Float64("meanVolume", meanVol),
		zap.Float64("stdVolume", stdVol),
	}
	if len(nonOrtho) > 0 {
		fields = append(fields,
			zap.Float64("maxNonOrthogonality", floats.Max(nonOrtho)),
			zap.Float64("meanNonOrthogonality", stat.Mean(nonOrtho, nil)),
		)
	}
	log.Info("mesh quality", fields...)
}

// plotLevels saves a histogram of the refinement level of the octree leaves.
func plotLevels(path string, o *octree.Octree) error {
	leaves := o.Leaves()
	levels := make(plotter.Values, len(leaves))
	for i, l := range leaves {
		levels[i] = float64(o.Coordinates(l).Level)
	}
	h, err := plotter.NewHist(levels, int(o.MaxLevelUsed())+1)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = "Octree leaves"
	p.X.Label.Text = "Refinement level"
	p.Y.Label.Text = "Leaves"
	p.Add(h)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
