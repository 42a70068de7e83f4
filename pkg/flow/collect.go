package flow

import (
	"context"
	"sort"

	"github.com/beamforge/beamforge/internal/planner"
	"github.com/beamforge/beamforge/internal/runtime"
	"github.com/beamforge/beamforge/internal/types"
)

// Run plans and executes c's pipeline under opts, returning the
// terminal partition's rows decoded as []T. CollectSeq/CollectPar
// below are the common-case wrappers over this.
func Run[T any](ctx context.Context, c PCollection[T], opts runtime.Options) ([]T, error) {
	nodes, edges := c.pipeline.Snapshot()
	plan, err := planner.Build(nodes, edges, c.node)
	if err != nil {
		return nil, err
	}
	result, err := runtime.Execute(ctx, plan, opts)
	if err != nil {
		return nil, err
	}
	return types.AsSlice[T](result)
}

// CollectSeq plans and runs c sequentially, returning the rows in the
// single-partition order the pipeline naturally produces.
func CollectSeq[T any](ctx context.Context, c PCollection[T]) ([]T, error) {
	return Run(ctx, c, runtime.Options{Mode: runtime.Sequential})
}

// CollectPar plans and runs c in parallel across partitions. Row
// order across partitions is unspecified: sequential and parallel
// execution agree up to multiset equality, not row order.
func CollectPar[T any](ctx context.Context, c PCollection[T], partitions int) ([]T, error) {
	return Run(ctx, c, runtime.Options{Mode: runtime.ParallelMode(partitions)})
}

// CollectSeqSorted runs c sequentially and sorts the result with
// less, for deterministic, byte-for-byte-stable output regardless of
// how the pipeline happened to order its rows.
func CollectSeqSorted[T any](ctx context.Context, c PCollection[T], less func(a, b T) bool) ([]T, error) {
	rows, err := CollectSeq(ctx, c)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	return rows, nil
}

// CollectParSorted runs c in parallel and sorts the result with less,
// so parallel execution's unordered output becomes directly comparable
// to CollectSeqSorted's.
func CollectParSorted[T any](ctx context.Context, c PCollection[T], partitions int, less func(a, b T) bool) ([]T, error) {
	rows, err := CollectPar(ctx, c, partitions)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	return rows, nil
}

// CollectParSortedByKey runs a keyed Pair[K,V] collection in parallel
// and sorts the result by Key, using keyLess since Go generics cannot
// order arbitrary comparable types directly.
func CollectParSortedByKey[K comparable, V any](ctx context.Context, c PCollection[Pair[K, V]], partitions int, keyLess func(a, b K) bool) ([]Pair[K, V], error) {
	return CollectParSorted(ctx, c, partitions, func(a, b Pair[K, V]) bool {
		return keyLess(a.Key, b.Key)
	})
}

// Explain plans c without executing it, returning the planner's
// record of every pass applied to the chain.
func Explain[T any](c PCollection[T]) (planner.Explanation, error) {
	nodes, edges := c.pipeline.Snapshot()
	plan, err := planner.Build(nodes, edges, c.node)
	if err != nil {
		return planner.Explanation{}, err
	}
	return plan.Explanation, nil
}
