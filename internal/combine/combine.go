// Package combine implements the combiner algebra: the Fn and
// Liftable interfaces, and the standard combiners built on
// top of them (Count, Sum, Min, Max, Average, DistinctCount, KMV,
// TopK, TDigest, Reservoir).
package combine

// Fn is the associative, commutative reduction contract every
// combiner satisfies: Create seeds an accumulator, AddInput folds one
// value into it, Merge combines two partial accumulators (from
// different partitions or goroutines), and Finish projects the
// accumulator to the public output type.
//
// Implementations must satisfy the combiner laws: Merge is
// associative and commutative, and running AddInput over a sequence
// one element at a time must equal running it over the sequence in
// any split-and-merged order.
type Fn[V, A, O any] interface {
	Create() A
	AddInput(acc A, v V) A
	Merge(a, b A) A
	Finish(acc A) O
}

// Liftable is satisfied by combiners that can build their
// accumulator directly from an already-grouped []V, skipping the
// per-element AddInput fold. The planner's lift pass uses this to
// drop a GroupByKey barrier immediately followed by CombineValues,
// feeding BuildFromGroup straight from (K, V) pairs bucketed locally
// within a partition.
type Liftable[V, A, O any] interface {
	Fn[V, A, O]
	BuildFromGroup(values []V) A
}

// Global wraps a Fn for use as a CombineGlobally node: Local produces
// one accumulator per partition via a fold (or, when Liftable,
// directly via BuildFromGroup), Merge combines accumulators across
// partitions or fanout rounds, and Finish produces the single output.
type Global[V, A, O any] struct {
	fn Fn[V, A, O]
}

// NewGlobal wraps fn for use with CombineGlobally-shaped nodes.
func NewGlobal[V, A, O any](fn Fn[V, A, O]) Global[V, A, O] {
	return Global[V, A, O]{fn: fn}
}

// Local folds a partition of V into one accumulator, using
// BuildFromGroup when fn is Liftable.
func (g Global[V, A, O]) Local(values []V) A {
	if lift, ok := g.fn.(Liftable[V, A, O]); ok {
		return lift.BuildFromGroup(values)
	}
	acc := g.fn.Create()
	for _, v := range values {
		acc = g.fn.AddInput(acc, v)
	}
	return acc
}

// MergeAll folds a slice of partial accumulators into one, seeding
// with Create when the slice is empty so Finish always has a valid
// zero-group accumulator to work from.
func (g Global[V, A, O]) MergeAll(accs []A) A {
	if len(accs) == 0 {
		return g.fn.Create()
	}
	acc := accs[0]
	for _, other := range accs[1:] {
		acc = g.fn.Merge(acc, other)
	}
	return acc
}

// Finish projects the final accumulator to the output type.
func (g Global[V, A, O]) Finish(acc A) O {
	return g.fn.Finish(acc)
}
