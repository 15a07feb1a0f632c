package morph

import (
	"slices"

	"github.com/soypat/octmesh/polymesh"
)

// mergeAlongChain joins loops a and b sharing one contiguous chain of edges
// traversed in opposite directions. It returns the merged loop in the
// orientation of a, the chain from a and the chain points that are no
// longer part of the merged loop.
func mergeAlongChain(a, b []int) (merged, chain, dropped []int, ok bool) {
	na, nb := len(a), len(b)
	shared := make([]bool, na)
	n := 0
	for i := range a {
		p, q := a[i], a[(i+1)%na]
		if j := slices.Index(b, q); j >= 0 && b[(j+1)%nb] == p {
			shared[i] = true
			n++
		}
	}
	if n == 0 || n >= na || n >= nb || na+nb-2*n < 3 {
		return nil, nil, nil, false
	}
	start, runs := -1, 0
	for i := range a {
		if shared[i] && !shared[(i+na-1)%na] {
			start = i
			runs++
		}
	}
	if runs != 1 {
		return nil, nil, nil, false
	}
	for k := 0; k <= n; k++ {
		chain = append(chain, a[(start+k)%na])
	}
	dropped = chain[1:n]
	end := (start + n) % na
	merged = make([]int, 0, na+nb-2*n)
	for k := 0; k <= na-n; k++ {
		merged = append(merged, a[(end+k)%na])
	}
	j := slices.Index(b, a[start])
	for k := 1; k < nb-n; k++ {
		merged = append(merged, b[(j+k)%nb])
	}
	sorted := slices.Clone(merged)
	slices.Sort(sorted)
	if len(slices.Compact(sorted)) != len(merged) {
		return nil, nil, nil, false
	}
	return merged, chain, dropped, true
}

// edgeUse counts the faces using every edge of m.
func edgeUse(m *polymesh.Mesh) map[[2]int]int {
	use := make(map[[2]int]int)
	for _, f := range m.Faces {
		for j, p := range f.Points {
			use[polymesh.EdgeKey(p, f.Points[(j+1)%len(f.Points)])]++
		}
	}
	return use
}

// chainFree reports whether no face other than the two merged ones uses the
// chain edges or the dropped points. allowed lists the faces the dropped
// points may belong to.
func chainFree(m *polymesh.Mesh, use map[[2]int]int, chain, dropped, allowed []int) bool {
	for k := 0; k+1 < len(chain); k++ {
		if use[polymesh.EdgeKey(chain[k], chain[k+1])] != 2 {
			return false
		}
	}
	pf := m.PointFaces()
	for _, p := range dropped {
		for _, f := range pf[p] {
			if !slices.Contains(allowed, f) {
				return false
			}
		}
	}
	return true
}
