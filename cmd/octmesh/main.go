// Command octmesh meshes the volume enclosed by an STL surface.
//
//	octmesh generate --surface part.stl --config mesh.json5 --out mesh.vtk
package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/soypat/octmesh"
	"github.com/soypat/octmesh/polymesh"
	"github.com/soypat/octmesh/surface"
	"github.com/urfave/cli/v2"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	flagSurface     = "surface"
	flagConfig      = "config"
	flagOut         = "out"
	flagBoundary    = "boundary"
	flagPreview     = "preview"
	flagHistogram   = "histogram"
	flagMaxCellSize = "max-cell-size"
	flagVertexTol   = "vertex-tol"
	flagDebug       = "debug"
)

func main() {
	app := &cli.App{
		Name:  "octmesh",
		Usage: "octree based volume mesh generation",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "log debug messages",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "generate",
				Usage:     "generate a volume mesh from a surface",
				UsageText: "octmesh generate --surface <stl> --out <vtk> [other options]",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagSurface,
						Usage:    "ASCII or binary STL surface enclosing the volume",
						Required: true,
					},
					&cli.PathFlag{
						Name:  flagConfig,
						Usage: "JSON5 mesh settings",
					},
					&cli.PathFlag{
						Name:     flagOut,
						Usage:    "legacy VTK output file",
						Required: true,
					},
					&cli.PathFlag{
						Name:  flagBoundary,
						Usage: "write the mesh boundary as STL",
					},
					&cli.PathFlag{
						Name:  flagPreview,
						Usage: "render the mesh boundary to PNG",
					},
					&cli.PathFlag{
						Name:  flagHistogram,
						Usage: "plot the octree leaf levels to PNG",
					},
					&cli.Float64Flag{
						Name:  flagMaxCellSize,
						Usage: "override maxCellSize from the settings",
					},
					&cli.Float64Flag{
						Name:  flagVertexTol,
						Usage: "distance under which STL vertices are merged, inferred when zero",
					},
				},
				Action: generateAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	if debug {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	return cfg.Build()
}

func loadSettings(path string) (octmesh.Settings, error) {
	if path == "" {
		return octmesh.DefaultSettings(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return octmesh.Settings{}, err
	}
	var raw map[string]any
	if err := json5.Unmarshal(data, &raw); err != nil {
		return octmesh.Settings{}, errors.Wrapf(err, "parsing %s", path)
	}
	return octmesh.DecodeSettings(raw)
}

func generateAction(c *cli.Context) error {
	log, err := newLogger(c.Bool(flagDebug))
	if err != nil {
		return err
	}
	defer log.Sync()

	settings, err := loadSettings(c.Path(flagConfig))
	if err != nil {
		return err
	}
	if c.IsSet(flagMaxCellSize) {
		settings.MaxCellSize = c.Float64(flagMaxCellSize)
	}
	surf, err := surface.LoadSTL(c.Path(flagSurface), c.Float64(flagVertexTol))
	if err != nil {
		return err
	}
	log.Info("surface loaded",
		zap.String("file", c.Path(flagSurface)),
		zap.Int("facets", len(surf.Facets)),
		zap.Int("points", len(surf.Points)),
		zap.Bool("closed", surf.IsClosed()),
	)
	res, err := octmesh.Generate(surf, settings, octmesh.WithLogger(log))
	if err != nil {
		return err
	}
	m := res.Mesh
	if m.NumCells == 0 {
		return errors.New("generated mesh is empty, try a smaller maxCellSize")
	}
	logQuality(log, m)

	if err := writeFile(c.Path(flagOut), func(w io.Writer) error {
		return polymesh.WriteVTK(w, m)
	}); err != nil {
		return err
	}
	if path := c.Path(flagBoundary); path != "" {
		if err := writeFile(path, func(w io.Writer) error {
			return surface.WriteSTL(w, m.BoundaryTriangles())
		}); err != nil {
			return err
		}
	}
	if path := c.Path(flagPreview); path != "" {
		if err := renderPreview(path, m); err != nil {
			return errors.Wrap(err, "rendering preview")
		}
	}
	if path := c.Path(flagHistogram); path != "" {
		if err := plotLevels(path, res.Octree); err != nil {
			return errors.Wrap(err, "plotting levels")
		}
	}
	return nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	if err := write(fp); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return fp.Close()
}
