package octree

import (
	"fmt"
)

// FindNeighboursInDirection returns the leaves touching leaf across its face,
// edge or corner in direction d. A coarser or equal neighbour is returned
// alone; finer neighbours are all returned. The result is empty at the
// boundary of the root box.
func (o *Octree) FindNeighboursInDirection(leaf int, d Direction) []int {
	if o.quadtree && d[2] != 0 {
		return nil
	}
	ni := o.findDeepest(o.cubes[leaf].Offset(d))
	if ni < 0 {
		return nil
	}
	if o.IsLeaf(ni) {
		return []int{ni}
	}
	lb := o.LatticeBox(leaf)
	var found []int
	todo := []int{ni}
	for len(todo) > 0 {
		ci := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		if !o.LatticeBox(ci).Touches(lb) {
			continue
		}
		c := &o.cubes[ci]
		if c.IsLeaf() {
			found = append(found, ci)
			continue
		}
		for j := o.nChildren - 1; j >= 0; j-- {
			todo = append(todo, int(c.children)+j)
		}
	}
	return found
}

// FindAllLeafNeighbours returns the distinct leaves touching leaf in any of
// the 26 directions (8 in quadtree mode).
func (o *Octree) FindAllLeafNeighbours(leaf int) []int {
	var out []int
	seen := make(map[int]struct{})
	for _, d := range AllDirections {
		for _, n := range o.FindNeighboursInDirection(leaf, d) {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// CheckBalance verifies no leaf touches, across a face, edge or corner, a
// leaf more than one level finer.
func (o *Octree) CheckBalance() error {
	for _, leaf := range o.Leaves() {
		if n := o.unbalancedNeighbour(leaf); n >= 0 {
			return fmt.Errorf("leaves %v and %v violate 2:1 balance",
				o.cubes[leaf].Coordinates, o.cubes[n].Coordinates)
		}
	}
	return nil
}

// unbalancedNeighbour returns a leaf more than one level finer than leaf
// touching it in any of the 26 directions, or -1.
func (o *Octree) unbalancedNeighbour(leaf int) int {
	lvl := o.cubes[leaf].Level
	for _, d := range AllDirections {
		for _, n := range o.FindNeighboursInDirection(leaf, d) {
			if o.cubes[n].Level > lvl+1 {
				return n
			}
		}
	}
	return -1
}
