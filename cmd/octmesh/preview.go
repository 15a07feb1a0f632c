package main

import (
	"errors"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/octmesh/polymesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// renderPreview draws the mesh boundary seen from a corner of its bounding
// box to a PNG file.
func renderPreview(path string, m *polymesh.Mesh) error {
	const (
		width, height = 1280, 960 // output width and height in pixels
		scale         = 2         // supersampling
		fovy          = 30        // vertical field of view in degrees
		near, far     = 1, 10
	)
	tris := m.BoundaryTriangles()
	if len(tris) == 0 {
		return errors.New("mesh has no boundary")
	}
	faux := make([]*fauxgl.Triangle, len(tris))
	for i, t := range tris {
		faux[i] = fauxgl.NewTriangleForPoints(vec(t[0]), vec(t[1]), vec(t[2]))
	}
	mesh := fauxgl.NewTriangleMesh(faux)

	var (
		eye    = fauxgl.V(3, 3, 3)
		center = fauxgl.V(0, 0, 0)
		up     = fauxgl.V(0, 0, 1)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
		color  = fauxgl.HexColor("#468966")
	)
	// fit mesh in a bi-unit cube centered at the origin
	mesh.BiUnitCube()
	context := fauxgl.NewContext(width*scale, height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(width) / float64(height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, near, far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(mesh)
	// downsample image for antialiasing
	image := resize.Resize(width, height, context.Image(), resize.Bilinear)
	return fauxgl.SavePNG(path, image)
}

func vec(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }
