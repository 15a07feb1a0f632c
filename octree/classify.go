package octree

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// ClassifyLeaves sets the type of every leaf. Leaves intersecting the surface
// are Data. The remaining leaves are grouped into face connected regions not
// crossed by the surface and each region is tested once for being enclosed.
func (o *Octree) ClassifyLeaves() {
	leaves := o.Leaves()
	for _, l := range leaves {
		if o.HasContainedTriangles(l) {
			o.cubes[l].typ = Data
		} else {
			o.cubes[l].typ = Unknown
		}
	}
	for i := range o.cubes {
		if !o.cubes[i].IsLeaf() {
			o.cubes[i].typ = 0
		}
	}
	var inside, outside, regions int
	var region []int
	for _, start := range leaves {
		if o.cubes[start].typ != Unknown {
			continue
		}
		regions++
		region = append(region[:0], start)
		// Mark visited as Outside temporarily, fixed below if the region is enclosed.
		o.cubes[start].typ = Outside
		for k := 0; k < len(region); k++ {
			for _, d := range FaceDirections {
				for _, n := range o.FindNeighboursInDirection(region[k], d) {
					if o.cubes[n].typ == Unknown {
						o.cubes[n].typ = Outside
						region = append(region, n)
					}
				}
			}
		}
		if !o.isInside(o.CubeBox(start).Center()) {
			outside += len(region)
			continue
		}
		inside += len(region)
		for _, l := range region {
			o.cubes[l].typ = Inside
		}
	}
	o.log.Debug("classified leaves",
		zap.Int("leaves", len(leaves)),
		zap.Int("regions", regions),
		zap.Int("inside", inside),
		zap.Int("outside", outside),
	)
}

func (o *Octree) isInside(p r3.Vec) bool {
	if o.quadtree {
		return o.surf.IsInsideRay(p)
	}
	return o.surf.IsInside(p)
}
