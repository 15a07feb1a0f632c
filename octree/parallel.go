package octree

// Communicator agrees on global decisions between the processors sharing an
// octree. Refinement loops stop only when no processor wants to continue.
type Communicator interface {
	// Rank is the id of the calling processor.
	Rank() int
	// Size is the number of processors.
	Size() int
	// ReduceOr returns true on every processor if any passed true.
	ReduceOr(local bool) bool
	// ReduceSum returns the sum of local over all processors.
	ReduceSum(local int) int
}

// Serial is the single processor Communicator.
type Serial struct{}

func (Serial) Rank() int                { return 0 }
func (Serial) Size() int                { return 1 }
func (Serial) ReduceOr(local bool) bool { return local }
func (Serial) ReduceSum(local int) int  { return local }

// DistributeLeavesToProcessors assigns leaves to n processors in contiguous
// depth first chunks of near equal size. Internal cubes whose leaves belong to
// several processors get AllProcs.
func (o *Octree) DistributeLeavesToProcessors(n int) {
	if n < 1 {
		panic("bug: need at least one processor")
	}
	leaves := o.Leaves()
	for k, l := range leaves {
		o.cubes[l].ProcNo = int16(k * n / len(leaves))
	}
	var assign func(ci int) int16
	assign = func(ci int) int16 {
		c := &o.cubes[ci]
		if c.IsLeaf() {
			return c.ProcNo
		}
		first := int(c.children)
		proc := assign(first)
		for j := 1; j < o.nChildren; j++ {
			if assign(first+j) != proc {
				proc = AllProcs
			}
		}
		o.cubes[ci].ProcNo = proc
		return proc
	}
	assign(0)
}
