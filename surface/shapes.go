package surface

import (
	"math"

	"github.com/soypat/octmesh/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// CuboidPatchNames are the patch names of a Cuboid surface in facet order.
var CuboidPatchNames = [6]string{"xMin", "xMax", "yMin", "yMax", "zMin", "zMax"}

// Cuboid returns the outward oriented surface of an axis aligned box with
// two triangles and one patch per side.
func Cuboid(b d3.Box) *Surface {
	v := b.Vertices()
	quads := [6][4]int{
		{0, 4, 6, 2}, {1, 3, 7, 5}, // -x, +x
		{0, 1, 5, 4}, {2, 6, 7, 3}, // -y, +y
		{0, 2, 3, 1}, {4, 5, 7, 6}, // -z, +z
	}
	s := &Surface{Points: v[:]}
	for i, q := range quads {
		s.Patches = append(s.Patches, Patch{Name: CuboidPatchNames[i], Type: DefaultPatchType})
		s.Facets = append(s.Facets,
			Facet{V: [3]int{q[0], q[1], q[2]}, Patch: i},
			Facet{V: [3]int{q[0], q[2], q[3]}, Patch: i},
		)
	}
	return s
}

// Sphere returns an outward oriented single patch icosphere. Each subdivision
// splits every triangle into four.
func Sphere(center r3.Vec, radius float64, subdivisions int) *Surface {
	t := (1 + math.Sqrt(5)) / 2
	pts := []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	for i := range pts {
		pts[i] = r3.Unit(pts[i])
	}
	for ; subdivisions > 0; subdivisions-- {
		mid := make(map[Edge]int)
		midpoint := func(a, b int) int {
			e := newEdge(a, b)
			if m, ok := mid[e]; ok {
				return m
			}
			mid[e] = len(pts)
			pts = append(pts, r3.Unit(r3.Add(pts[a], pts[b])))
			return mid[e]
		}
		next := make([][3]int, 0, 4*len(faces))
		for _, f := range faces {
			a, b, c := midpoint(f[0], f[1]), midpoint(f[1], f[2]), midpoint(f[2], f[0])
			next = append(next, [3]int{f[0], a, c}, [3]int{f[1], b, a}, [3]int{f[2], c, b}, [3]int{a, b, c})
		}
		faces = next
	}
	s := &Surface{Patches: []Patch{{Name: "sphere", Type: DefaultPatchType}}}
	for _, p := range pts {
		s.Points = append(s.Points, r3.Add(center, r3.Scale(radius, p)))
	}
	for _, f := range faces {
		s.Facets = append(s.Facets, Facet{V: f})
	}
	return s
}
