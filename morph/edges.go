package morph

import (
	"math"
	"slices"

	"github.com/soypat/octmesh/internal/d3"
	"github.com/soypat/octmesh/meshsurface"
	"github.com/soypat/octmesh/polymesh"
	"github.com/soypat/octmesh/surface"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// edgeExtractor holds what both surface edge extractors share.
type edgeExtractor struct {
	m    *polymesh.Mesh
	surf *surface.Surface
	cfg  config
	// patchOf maps surface patches to mesh patches.
	patchOf []int
}

func newEdgeExtractor(m *polymesh.Mesh, surf *surface.Surface, opts []Option) edgeExtractor {
	return edgeExtractor{m: m, surf: surf, cfg: newConfig(opts)}
}

// createPatches adds a mesh patch for every surface patch.
func (e *edgeExtractor) createPatches() {
	e.patchOf = make([]int, len(e.surf.Patches))
	for i, p := range e.surf.Patches {
		typ := p.Type
		if typ == "" {
			typ = surface.DefaultPatchType
		}
		e.patchOf[i] = e.m.AddPatch(p.Name, typ)
	}
}

// reorderBoundary groups boundary faces by patch, drops empty patches and
// numbers boundary points after internal ones. Patch types given as options
// are applied last.
func (e *edgeExtractor) reorderBoundary() error {
	e.m.Sort()
	e.m.RemoveEmptyPatches()
	renumberPoints(e.m)
	if e.cfg.patchTypes != nil {
		return SetPatchTypes(e.m, e.cfg.patchTypes)
	}
	return nil
}

// renumberPoints drops unused points and orders the rest so internal points
// come first followed by boundary points in the order boundary faces use
// them.
func renumberPoints(m *polymesh.Mesh) {
	m.RemoveUnusedPoints()
	boundary := make([]bool, len(m.Points))
	for _, f := range m.Faces {
		if f.IsBoundary() {
			for _, p := range f.Points {
				boundary[p] = true
			}
		}
	}
	newPoint := make([]int, len(m.Points))
	n := 0
	for p := range m.Points {
		newPoint[p] = -1
		if !boundary[p] {
			newPoint[p] = n
			n++
		}
	}
	for _, f := range m.Faces {
		if !f.IsBoundary() {
			continue
		}
		for _, p := range f.Points {
			if newPoint[p] < 0 {
				newPoint[p] = n
				n++
			}
		}
	}
	pts := make([]r3.Vec, len(m.Points))
	for p, q := range newPoint {
		pts[q] = m.Points[p]
	}
	m.Points = pts
	for i := range m.Faces {
		for j, p := range m.Faces[i].Points {
			m.Faces[i].Points[j] = newPoint[p]
		}
	}
	m.ClearAddressing()
}

// intersect returns the elements of a also in b.
func intersect(a, b []int) []int {
	var out []int
	for _, v := range a {
		if slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}

func patchPair(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// SurfaceEdgeExtractor fits the boundary of a volume mesh to the surface it
// was generated for. Boundary points are projected onto the nearest surface
// facet and lie on its patch, or on several patches when they land on a
// patch edge or corner. Boundary edges joining points with no patch in
// common get a new point on the surface edge between their patches, and
// boundary faces are cut at those points so every piece lies in one patch.
// Faces spanning three or more patches are fanned around a new point on the
// patch corner. The boundary is then sorted by patch.
type SurfaceEdgeExtractor struct {
	edgeExtractor

	// labels holds the surface patches every boundary point lies on.
	labels     [][]int
	tol        float64
	patchEdges *surface.EdgeIndex
	pairEdges  map[[2]int]*surface.EdgeIndex
	corners    cornerIndex
}

// NewSurfaceEdgeExtractor returns a SurfaceEdgeExtractor fitting the
// boundary of m to surf.
func NewSurfaceEdgeExtractor(m *polymesh.Mesh, surf *surface.Surface, opts ...Option) *SurfaceEdgeExtractor {
	return &SurfaceEdgeExtractor{edgeExtractor: newEdgeExtractor(m, surf, opts)}
}

// ExtractEdges modifies the mesh boundary.
func (e *SurfaceEdgeExtractor) ExtractEdges() error {
	if len(e.m.BoundaryFaces()) == 0 {
		e.cfg.log.Warn("mesh has no boundary faces")
		return nil
	}
	e.createPatches()
	e.indexSurface()
	projected := e.projectBoundaryVertices()
	onEdges := e.insertEdgePoints()
	split, onCorners, unsplit := e.splitBoundaryFaces()
	if err := e.reorderBoundary(); err != nil {
		return err
	}
	if unsplit > 0 {
		e.cfg.log.Warn("faces left across patch edges", zap.Int("faces", unsplit))
	}
	e.cfg.log.Info("surface edges extracted",
		zap.Int("projectedPoints", projected),
		zap.Int("edgePoints", onEdges),
		zap.Int("cornerPoints", onCorners),
		zap.Int("splitFaces", split),
		zap.Strings("patches", e.m.PatchNames()),
	)
	return nil
}

// indexSurface builds the spatial indices of the patch edges, of the edges
// between every pair of patches and of the patch corners.
func (e *SurfaceEdgeExtractor) indexSurface() {
	e.tol = 1e-9 * (d3.Max(e.surf.Bounds().Size()) + 1)
	patchEdges := e.surf.PatchEdges()
	e.patchEdges = e.surf.NewEdgeIndex(patchEdges)
	pairs := make(map[[2]int][]int)
	ef := e.surf.EdgeFacets()
	for _, ei := range patchEdges {
		key := patchPair(e.surf.Facets[ef[ei][0]].Patch, e.surf.Facets[ef[ei][1]].Patch)
		pairs[key] = append(pairs[key], ei)
	}
	e.pairEdges = make(map[[2]int]*surface.EdgeIndex, len(pairs))
	for key, edges := range pairs {
		e.pairEdges[key] = e.surf.NewEdgeIndex(edges)
	}
	e.corners = newCornerIndex(e.surf, e.surf.FeatureCorners(patchEdges))
}

// labelsAt returns the sorted surface patches passing through p: the seed
// patches plus those of a patch edge or corner within tolerance.
func (e *SurfaceEdgeExtractor) labelsAt(p r3.Vec, seed ...int) []int {
	labels := slices.Clone(seed)
	add := func(patch int) {
		if !slices.Contains(labels, patch) {
			labels = append(labels, patch)
		}
	}
	if ei, c := e.patchEdges.Nearest(p); ei >= 0 && r3.Norm(r3.Sub(c, p)) <= e.tol {
		for _, f := range e.surf.EdgeFacets()[ei] {
			add(e.surf.Facets[f].Patch)
		}
	}
	if c, d2 := e.corners.nearest(p); c != nil && d2 <= e.tol*e.tol {
		for _, patch := range c.patches {
			add(patch)
		}
	}
	slices.Sort(labels)
	return labels
}

func (e *SurfaceEdgeExtractor) projectBoundaryVertices() int {
	s := meshsurface.New(e.m)
	e.labels = make([][]int, len(e.m.Points))
	for _, p := range s.Points() {
		facet, c := e.surf.NearestFacet(e.m.Points[p])
		e.m.Points[p] = c
		e.labels[p] = e.labelsAt(c, e.surf.Facets[facet].Patch)
	}
	e.m.ClearAddressing()
	return len(s.Points())
}

// insertEdgePoints adds a point on the surface edge between two patches to
// every boundary edge whose ends have no patch in common, closest to the
// edge midpoint. The point goes into every face using the edge, internal
// faces included. It returns the number of points added.
func (e *SurfaceEdgeExtractor) insertEdgePoints() int {
	s := meshsurface.New(e.m)
	inserted := make(map[[2]int]int)
	for _, edge := range s.Edges() {
		a, b := s.Points()[edge[0]], s.Points()[edge[1]]
		if len(intersect(e.labels[a], e.labels[b])) > 0 {
			continue
		}
		mid := r3.Scale(0.5, r3.Add(e.m.Points[a], e.m.Points[b]))
		var best r3.Vec
		var pair [2]int
		bestD2 := math.Inf(1)
		for _, la := range e.labels[a] {
			for _, lb := range e.labels[b] {
				idx, ok := e.pairEdges[patchPair(la, lb)]
				if !ok {
					continue
				}
				_, c := idx.Nearest(mid)
				if d2 := r3.Norm2(r3.Sub(c, mid)); d2 < bestD2 {
					best, bestD2, pair = c, d2, [2]int{la, lb}
				}
			}
		}
		if math.IsInf(bestD2, 1) {
			continue
		}
		inserted[polymesh.EdgeKey(a, b)] = len(e.m.Points)
		e.m.Points = append(e.m.Points, best)
		e.labels = append(e.labels, e.labelsAt(best, pair[0], pair[1]))
	}
	if len(inserted) == 0 {
		return 0
	}
	for i := range e.m.Faces {
		pts := e.m.Faces[i].Points
		loop := make([]int, 0, len(pts)+2)
		for j, p := range pts {
			loop = append(loop, p)
			if x, ok := inserted[polymesh.EdgeKey(p, pts[(j+1)%len(pts)])]; ok {
				loop = append(loop, x)
			}
		}
		e.m.Faces[i].Points = loop
	}
	e.m.ClearAddressing()
	return len(inserted)
}

// splitBoundaryFaces puts every boundary face in a patch all its points lie
// on, cutting faces without one into pieces that have one. Faces that can
// not be cut go to the patch nearest their centre.
func (e *SurfaceEdgeExtractor) splitBoundaryFaces() (split, onCorners, unsplit int) {
	for _, f := range e.m.BoundaryFaces() {
		loop := e.m.Faces[f].Points
		common := e.labels[loop[0]]
		for _, p := range loop[1:] {
			common = intersect(common, e.labels[p])
		}
		if len(common) > 0 {
			e.m.Faces[f].Patch = e.patchOf[e.preferredPatch(f, common)]
			continue
		}
		pieces, patches, corner := e.cutFace(loop)
		if pieces == nil {
			e.m.Faces[f].Patch = e.patchOf[e.preferredPatch(f, nil)]
			unsplit++
			continue
		}
		if corner {
			onCorners++
		}
		face := e.m.Faces[f]
		for i, piece := range pieces {
			face.Points, face.Patch = piece, e.patchOf[patches[i]]
			if i == 0 {
				e.m.Faces[f] = face
				continue
			}
			e.m.Faces = append(e.m.Faces, face)
		}
		split++
	}
	e.m.ClearAddressing()
	return split, onCorners, unsplit
}

// preferredPatch returns the patch of the surface facet nearest the centre
// of face f if it is a candidate, the lowest candidate otherwise. Nil
// candidates accept any patch.
func (e *SurfaceEdgeExtractor) preferredPatch(f int, candidates []int) int {
	facet, _ := e.surf.NearestFacet(e.m.FaceCentre(f))
	patch := e.surf.Facets[facet].Patch
	if candidates == nil || slices.Contains(candidates, patch) {
		return patch
	}
	return slices.Min(candidates)
}

// segment is the part of a face loop from one point on several patches to
// the next, both included.
type segment struct {
	pts    []int
	common []int
}

// cutFace splits a face loop whose points share no patch. Points on several
// patches cut the loop into segments, each of which must share a patch.
// When one patch is shared by all cut points, segments outside it are cut
// off along chords and the rest of the face is kept whole. Otherwise every
// segment is closed by a new point on a patch corner shared by all of them.
// It returns nil pieces when neither applies.
func (e *SurfaceEdgeExtractor) cutFace(loop []int) (pieces [][]int, patches []int, corner bool) {
	var cuts []int
	for i, p := range loop {
		if len(e.labels[p]) > 1 {
			cuts = append(cuts, i)
		}
	}
	if len(cuts) < 2 {
		return nil, nil, false
	}
	segs := make([]segment, len(cuts))
	for i, c := range cuts {
		next := cuts[(i+1)%len(cuts)]
		var seg segment
		for j := c; ; j = (j + 1) % len(loop) {
			seg.pts = append(seg.pts, loop[j])
			if j == next {
				break
			}
		}
		seg.common = e.labels[seg.pts[0]]
		for _, p := range seg.pts[1:] {
			seg.common = intersect(seg.common, e.labels[p])
		}
		if len(seg.common) == 0 {
			return nil, nil, false
		}
		segs[i] = seg
	}

	// Shared patch of the cut points keeping the most points.
	shared := e.labels[loop[cuts[0]]]
	for _, c := range cuts[1:] {
		shared = intersect(shared, e.labels[loop[c]])
	}
	keep, kept := -1, -1
	for _, patch := range shared {
		n := 0
		for _, seg := range segs {
			if slices.Contains(seg.common, patch) {
				n += len(seg.pts) - 1
			}
		}
		if n > kept {
			keep, kept = patch, n
		}
	}
	if keep >= 0 {
		var rest []int
		for _, seg := range segs {
			if slices.Contains(seg.common, keep) {
				rest = append(rest, seg.pts[:len(seg.pts)-1]...)
				continue
			}
			rest = append(rest, seg.pts[0])
			pieces = append(pieces, seg.pts)
			patches = append(patches, seg.common[0])
		}
		if len(rest) >= 3 {
			pieces = append(pieces, rest)
			patches = append(patches, keep)
		}
		return pieces, patches, false
	}

	var need []int
	for _, seg := range segs {
		if !slices.Contains(need, seg.common[0]) {
			need = append(need, seg.common[0])
		}
	}
	slices.Sort(need)
	pts := make([]r3.Vec, len(loop))
	for i, p := range loop {
		pts[i] = e.m.Points[p]
	}
	c := e.corners.covering(polymesh.PolygonCentre(pts), need)
	if c == nil {
		return nil, nil, false
	}
	k := len(e.m.Points)
	e.m.Points = append(e.m.Points, c.P)
	e.labels = append(e.labels, c.patches)
	for _, seg := range segs {
		pieces = append(pieces, append(seg.pts, k))
		patches = append(patches, seg.common[0])
	}
	return pieces, patches, true
}
