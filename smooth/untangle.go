// Package smooth moves internal mesh points to repair cells folded over by
// the boundary fitting steps.
package smooth

import (
	"slices"

	"github.com/soypat/octmesh/polymesh"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultSweeps is the default number of untangling sweeps.
const DefaultSweeps = 20

type config struct {
	log    *zap.Logger
	sweeps int
}

// Option configures Untangle.
type Option func(*config)

// WithLogger sets the logger used to report progress.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithSweeps sets the maximum number of passes over the tangled cells.
func WithSweeps(n int) Option {
	return func(c *config) { c.sweeps = n }
}

// Untangle moves the internal points of tangled cells until every cell
// decomposes into tetrahedra of positive volume or the sweeps run out. A
// cell is split into one tetrahedron per face edge, joining the edge to the
// face centre and the cell centre. Boundary points never move. It returns
// the number of cells still tangled.
func Untangle(m *polymesh.Mesh, opts ...Option) int {
	cfg := config{log: zap.NewNop(), sweeps: DefaultSweeps}
	for _, opt := range opts {
		opt(&cfg)
	}
	u := newUntangler(m)
	tangled := u.tangledCells()
	initial := len(tangled)
	sweeps, moved := 0, 0
	for ; sweeps < cfg.sweeps && len(tangled) > 0; sweeps++ {
		pts := u.movablePoints(tangled)
		if len(pts) == 0 {
			break
		}
		n := 0
		for _, p := range pts {
			if u.optimizePoint(p) {
				n++
			}
		}
		moved += n
		if n == 0 {
			break
		}
		tangled = u.tangledCells()
	}
	m.ClearAddressing()
	if initial > 0 {
		cfg.log.Info("mesh untangled",
			zap.Int("tangledCells", initial),
			zap.Int("remainingCells", len(tangled)),
			zap.Int("sweeps", sweeps),
			zap.Int("pointMoves", moved),
		)
	}
	return len(tangled)
}

type untangler struct {
	m         *polymesh.Mesh
	cellFaces [][]int
	cellPts   [][]int
	pointCell [][]int
	boundary  []bool
}

func newUntangler(m *polymesh.Mesh) *untangler {
	u := &untangler{
		m:         m,
		cellFaces: m.CellFaces(),
		cellPts:   m.CellPoints(),
		pointCell: m.PointCells(),
		boundary:  make([]bool, len(m.Points)),
	}
	for _, f := range m.BoundaryFaces() {
		for _, p := range m.Faces[f].Points {
			u.boundary[p] = true
		}
	}
	return u
}

// tet is a tetrahedron of the cell decomposition. Its volume is positive in
// a valid cell.
type tet struct {
	a, b   int // face edge, in the face loop order seen from outside the cell.
	fc, cc r3.Vec
}

func (t tet) volume(pts []r3.Vec) float64 {
	a, b := r3.Sub(pts[t.a], t.fc), r3.Sub(pts[t.b], t.fc)
	return r3.Dot(r3.Cross(a, b), r3.Sub(t.fc, t.cc)) / 6
}

// cellTets decomposes cell c. The face centres are shared with the
// neighbouring cells.
func (u *untangler) cellTets(c int, dst []tet) []tet {
	faces := u.cellFaces[c]
	centres := make([]r3.Vec, len(faces))
	var cc r3.Vec
	for i, f := range faces {
		centres[i] = u.m.FaceCentre(f)
		cc = r3.Add(cc, centres[i])
	}
	cc = r3.Scale(1/float64(len(faces)), cc)
	for i, f := range faces {
		face := u.m.Faces[f]
		pts := face.Points
		for j := range pts {
			a, b := pts[j], pts[(j+1)%len(pts)]
			if face.Owner != c {
				a, b = b, a
			}
			dst = append(dst, tet{a: a, b: b, fc: centres[i], cc: cc})
		}
	}
	return dst
}

func (u *untangler) isTangled(c int) bool {
	for _, t := range u.cellTets(c, nil) {
		if t.volume(u.m.Points) <= 0 {
			return true
		}
	}
	return false
}

func (u *untangler) tangledCells() []int {
	var cells []int
	for c := range u.cellFaces {
		if u.isTangled(c) {
			cells = append(cells, c)
		}
	}
	return cells
}

// movablePoints returns the sorted internal points of the given cells.
func (u *untangler) movablePoints(cells []int) []int {
	var pts []int
	for _, c := range cells {
		for _, p := range u.cellPts[c] {
			if !u.boundary[p] {
				pts = append(pts, p)
			}
		}
	}
	slices.Sort(pts)
	return slices.Compact(pts)
}
