package extract

import (
	"github.com/pkg/errors"
	"github.com/soypat/octmesh/octree"
	"github.com/soypat/octmesh/polymesh"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// tetEdges lists the local edges of a Tet.
var tetEdges = [6][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

// sameOrientation gives for each local edge ij of a positive Tet the vertex
// whose face with ij is met first turning counter-clockwise about i→j.
// oppositeOrientation gives the vertex met first turning clockwise.
var (
	sameOrientation     = [6]int{3, 1, 2, 3, 0, 1}
	oppositeOrientation = [6]int{2, 3, 1, 0, 2, 0}
)

// VoronoiExtractor creates a polyhedral mesh dual to the tetrahedra of
// TetExtractor. Every tet point not on the tet mesh boundary becomes a cell
// and every tet edge with such an endpoint becomes a face whose points are
// the centroids of the tets around the edge.
type VoronoiExtractor struct {
	base
	tc tetCreator

	// Derived from tc.tets, dropped together by clearOut.
	edges         [][2]int
	pointEdges    [][]int
	edgeTets      [][]int
	boundaryPoint []bool
	boundaryEdge  []bool
}

// NewVoronoiExtractor returns a VoronoiExtractor writing to m.
func NewVoronoiExtractor(o *octree.Octree, m *polymesh.Mesh, opts ...Option) *VoronoiExtractor {
	return &VoronoiExtractor{base: newBase(o, m, opts)}
}

func (e *VoronoiExtractor) clearOut() {
	e.edges = nil
	e.pointEdges = nil
	e.edgeTets = nil
	e.boundaryPoint = nil
	e.boundaryEdge = nil
}

func (e *VoronoiExtractor) calcEdges() {
	index := make(map[[2]int]int)
	e.edges = [][2]int{}
	e.edgeTets = [][]int{}
	e.pointEdges = make([][]int, len(e.tc.points))
	for ti, t := range e.tc.tets {
		for _, le := range tetEdges {
			key := polymesh.EdgeKey(t[le[0]], t[le[1]])
			ei, ok := index[key]
			if !ok {
				ei = len(e.edges)
				index[key] = ei
				e.edges = append(e.edges, key)
				e.edgeTets = append(e.edgeTets, nil)
				e.pointEdges[key[0]] = append(e.pointEdges[key[0]], ei)
				e.pointEdges[key[1]] = append(e.pointEdges[key[1]], ei)
			}
			e.edgeTets[ei] = append(e.edgeTets[ei], ti)
		}
	}
}

// Edges returns the tet mesh edges, lower point first.
func (e *VoronoiExtractor) Edges() [][2]int {
	if e.edges == nil {
		e.calcEdges()
	}
	return e.edges
}

// PointEdges returns the edges at every tet point.
func (e *VoronoiExtractor) PointEdges() [][]int {
	if e.edges == nil {
		e.calcEdges()
	}
	return e.pointEdges
}

// EdgeTets returns the tets around every edge.
func (e *VoronoiExtractor) EdgeTets() [][]int {
	if e.edges == nil {
		e.calcEdges()
	}
	return e.edgeTets
}

func (e *VoronoiExtractor) calcBoundary() {
	count := make(map[[3]int]int)
	for _, t := range e.tc.tets {
		for _, f := range t.Faces() {
			count[sortedTriple(f)]++
		}
	}
	e.boundaryPoint = make([]bool, len(e.tc.points))
	onBoundary := make(map[[2]int]bool)
	for key, n := range count {
		if n != 1 {
			continue
		}
		for i := range key {
			e.boundaryPoint[key[i]] = true
			onBoundary[polymesh.EdgeKey(key[i], key[(i+1)%3])] = true
		}
	}
	e.boundaryEdge = make([]bool, len(e.Edges()))
	for ei, edge := range e.Edges() {
		e.boundaryEdge[ei] = onBoundary[edge]
	}
}

// BoundaryEdge reports for every edge whether it lies on the tet mesh
// boundary.
func (e *VoronoiExtractor) BoundaryEdge() []bool {
	if e.boundaryEdge == nil {
		e.calcBoundary()
	}
	return e.boundaryEdge
}

// BoundaryPoint reports for every tet point whether it lies on the tet mesh
// boundary.
func (e *VoronoiExtractor) BoundaryPoint() []bool {
	if e.boundaryPoint == nil {
		e.calcBoundary()
	}
	return e.boundaryPoint
}

func sortedTriple(f []int) [3]int {
	a, b, c := f[0], f[1], f[2]
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]int{a, b, c}
}

// CreateMesh implements Extractor.
func (e *VoronoiExtractor) CreateMesh() error {
	if e.o.IsQuadtree() {
		return ErrQuadtree
	}
	defer e.clearOut()
	e.tc.createPoints(e.o, e.addr)
	if err := e.tc.createTets(); err != nil {
		return err
	}
	if len(e.tc.tets) == 0 {
		e.log.Warn("octree has no mesh cells")
		return nil
	}

	boundary := e.BoundaryPoint()
	cellOf := make([]int, len(e.tc.points))
	nCells := 0
	for p := range cellOf {
		cellOf[p] = -1
		if !boundary[p] {
			cellOf[p] = nCells
			nCells++
		}
	}
	mod := polymesh.NewModifier(e.m)
	centroids := make([]r3.Vec, len(e.tc.tets))
	for i, t := range e.tc.tets {
		var c r3.Vec
		for _, p := range t {
			c = r3.Add(c, e.tc.points[p])
		}
		centroids[i] = r3.Scale(0.25, c)
	}
	offset := mod.AppendPoints(centroids...)

	cells := make([][][]int, 0, nCells)
	for p, cell := range cellOf {
		if cell < 0 {
			continue
		}
		faces := make([][]int, 0, len(e.PointEdges()[p]))
		for _, ei := range e.PointEdges()[p] {
			ring, err := e.edgeRing(ei, p)
			if err != nil {
				return err
			}
			for j := range ring {
				ring[j] += offset
			}
			faces = append(faces, ring)
		}
		cells = append(cells, faces)
	}
	if _, err := mod.AppendCells(cells...); err != nil {
		return errors.Wrap(err, "assembling voronoi cells")
	}
	unused := len(e.m.Points)
	e.m.RemoveUnusedPoints()
	e.log.Info("voronoi mesh created",
		zap.Int("cells", nCells),
		zap.Int("tets", len(e.tc.tets)),
		zap.Int("unusedCentroids", unused-len(e.m.Points)),
	)
	return nil
}

// edgeRing returns the tets around edge ei ordered counter-clockwise about
// the direction from point p to the other end of the edge.
func (e *VoronoiExtractor) edgeRing(ei, p int) ([]int, error) {
	edge := e.Edges()[ei]
	q := edge[0]
	if q == p {
		q = edge[1]
	}
	around := e.EdgeTets()[ei]
	if e.BoundaryEdge()[ei] || len(around) < 3 {
		return nil, errors.Errorf("bug: edge %d-%d with interior point has an open ring of %d tets", p, q, len(around))
	}
	ring := make([]int, 0, len(around))
	start := around[0]
	t := start
	for {
		ring = append(ring, t)
		tet := e.tc.tets[t]
		next := tet[e.nextVertex(tet, p, q)]
		found := -1
		for _, other := range around {
			if other != t && contains(e.tc.tets[other], next) {
				found = other
				break
			}
		}
		if found < 0 {
			return nil, errors.Errorf("bug: ring around edge %d-%d is not closed", p, q)
		}
		if found == start {
			break
		}
		if len(ring) > len(around) {
			return nil, errors.Errorf("bug: ring around edge %d-%d does not return to its start", p, q)
		}
		t = found
	}
	return ring, nil
}

// nextVertex returns the local vertex of tet whose face with edge pq is
// crossed turning counter-clockwise about p→q.
func (e *VoronoiExtractor) nextVertex(tet Tet, p, q int) int {
	i, j := index4(tet, p), index4(tet, q)
	for le, edge := range tetEdges {
		switch {
		case edge[0] == i && edge[1] == j:
			return sameOrientation[le]
		case edge[0] == j && edge[1] == i:
			return oppositeOrientation[le]
		}
	}
	panic("bug: edge not in tet")
}

func index4(t Tet, p int) int {
	for i := range t {
		if t[i] == p {
			return i
		}
	}
	return -1
}

func contains(t Tet, p int) bool { return index4(t, p) >= 0 }
