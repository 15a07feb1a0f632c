package smooth

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"
)

// betaFraction scales the volume margin the metric asks of every
// tetrahedron, relative to their mean volume.
const betaFraction = 0.01

// constraint asks n·(x-c) >= beta of the point x being moved. n·(x-c) is six
// times the volume of a tetrahedron holding x.
type constraint struct {
	n, c r3.Vec
}

// knupp is the untangling metric of a single point: the sum over its
// tetrahedra of (|f|-f)² with f = n·(x-c)-beta. It is zero once every
// tetrahedron has volume beta/6 or more.
type knupp struct {
	cons []constraint
	beta float64
}

func (k *knupp) value(x r3.Vec) float64 {
	var sum float64
	for _, c := range k.cons {
		if f := r3.Dot(c.n, r3.Sub(x, c.c)) - k.beta; f < 0 {
			sum += 4 * f * f
		}
	}
	return sum
}

func (k *knupp) problem() optimize.Problem {
	return optimize.Problem{
		Func: func(x []float64) float64 { return k.value(vec(x)) },
		Grad: func(grad, x []float64) {
			var g r3.Vec
			for _, c := range k.cons {
				if f := r3.Dot(c.n, r3.Sub(vec(x), c.c)) - k.beta; f < 0 {
					g = r3.Add(g, r3.Scale(8*f, c.n))
				}
			}
			grad[0], grad[1], grad[2] = g.X, g.Y, g.Z
		},
		Hess: func(hess *mat.SymDense, x []float64) {
			var h [3][3]float64
			for _, c := range k.cons {
				if f := r3.Dot(c.n, r3.Sub(vec(x), c.c)) - k.beta; f < 0 {
					n := [3]float64{c.n.X, c.n.Y, c.n.Z}
					for i := range n {
						for j := i; j < 3; j++ {
							h[i][j] += 8 * n[i] * n[j]
						}
					}
				}
			}
			for i := 0; i < 3; i++ {
				for j := i; j < 3; j++ {
					hess.SetSym(i, j, h[i][j])
				}
			}
		},
	}
}

func vec(x []float64) r3.Vec { return r3.Vec{X: x[0], Y: x[1], Z: x[2]} }

// localTets returns the tetrahedra of every cell around point p.
func (u *untangler) localTets(p int) []tet {
	var tets []tet
	for _, c := range u.pointCell[p] {
		tets = u.cellTets(c, tets)
	}
	return tets
}

// metric builds the Knupp metric of point p over tets.
func (u *untangler) metric(p int, tets []tet) *knupp {
	k := &knupp{}
	var scale float64
	for _, t := range tets {
		a, b := u.m.Points[t.a], u.m.Points[t.b]
		scale += math.Abs(6 * t.volume(u.m.Points))
		switch p {
		case t.a:
			k.cons = append(k.cons, constraint{n: r3.Cross(r3.Sub(b, t.fc), r3.Sub(t.fc, t.cc)), c: t.fc})
		case t.b:
			k.cons = append(k.cons, constraint{n: r3.Cross(r3.Sub(t.fc, t.cc), r3.Sub(a, t.fc)), c: t.fc})
		}
	}
	if len(tets) > 0 {
		k.beta = betaFraction * scale / float64(len(tets))
	}
	return k
}

// folding returns the number of tetrahedra with non-positive volume and
// their summed negative volume.
func (u *untangler) folding(tets []tet) (n int, vol float64) {
	for _, t := range tets {
		if v := t.volume(u.m.Points); v <= 0 {
			n++
			vol -= v
		}
	}
	return n, vol
}

// optimizePoint minimises the Knupp metric of point p with Newton's method,
// keeping face and cell centres fixed. The move is kept if the cells around
// p fold less once their centres are recomputed.
func (u *untangler) optimizePoint(p int) bool {
	tets := u.localTets(p)
	k := u.metric(p, tets)
	x0 := u.m.Points[p]
	f0 := k.value(x0)
	if f0 == 0 {
		return false
	}
	res, _ := optimize.Minimize(k.problem(), []float64{x0.X, x0.Y, x0.Z},
		&optimize.Settings{MajorIterations: 100}, &optimize.Newton{})
	if res == nil || len(res.X) != 3 || !(res.F < f0) {
		return false
	}
	n0, v0 := u.folding(tets)
	u.m.Points[p] = vec(res.X)
	n1, v1 := u.folding(u.localTets(p))
	if n1 < n0 || (n1 == n0 && v1 < v0) || n1 == 0 {
		return true
	}
	u.m.Points[p] = x0
	return false
}
