package flow

import (
	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/internal/types"
)

// Map applies f to every row of an unkeyed collection. Not
// value-only/reorder-safe: it may change the element type, so the
// planner's value-only reordering pass leaves it in place.
func Map[T, O any](in PCollection[T], f func(T) O) PCollection[O] {
	apply := func(p types.Partition) (types.Partition, error) {
		rows, err := types.AsSlice[T](p)
		if err != nil {
			return types.Partition{}, err
		}
		out := make([]O, len(rows))
		for i, r := range rows {
			out[i] = f(r)
		}
		return types.NewPartition(out), nil
	}
	return chain[T, O](in, dag.Node{
		Kind: dag.KindStateless,
		Stateless: []dag.StatelessOp{{
			Name: "Map", Apply: apply, CostHint: 10,
		}},
	})
}

// Filter keeps only rows satisfying pred. Cheap (CostHint 1) and
// reorder-safe when fused alongside other value-only, key-preserving
// operators.
func Filter[T any](in PCollection[T], pred func(T) bool) PCollection[T] {
	apply := func(p types.Partition) (types.Partition, error) {
		rows, err := types.AsSlice[T](p)
		if err != nil {
			return types.Partition{}, err
		}
		out := make([]T, 0, len(rows))
		for _, r := range rows {
			if pred(r) {
				out = append(out, r)
			}
		}
		return types.NewPartition(out), nil
	}
	return chain[T, T](in, dag.Node{
		Kind: dag.KindStateless,
		Stateless: []dag.StatelessOp{{
			Name: "Filter", Apply: apply, ValueOnly: true, KeyPreserving: true,
			ReorderSafeWithValueOnly: true, CostHint: 1,
		}},
	})
}

// FlatMap applies f to every row, producing zero or more outputs per
// input row. Volume-changing, so it must feed directly into another
// stateless operator or a barrier, never into unbounded buffering of
// its own.
func FlatMap[T, O any](in PCollection[T], f func(T) []O) PCollection[O] {
	apply := func(p types.Partition) (types.Partition, error) {
		rows, err := types.AsSlice[T](p)
		if err != nil {
			return types.Partition{}, err
		}
		var out []O
		for _, r := range rows {
			out = append(out, f(r)...)
		}
		return types.NewPartition(out), nil
	}
	return chain[T, O](in, dag.Node{
		Kind: dag.KindStateless,
		Stateless: []dag.StatelessOp{{
			Name: "FlatMap", Apply: apply, CostHint: 20,
		}},
	})
}

// BatchedMap applies f to successive chunks of n rows (the last chunk
// may be shorter), concatenating the results.
func BatchedMap[T, O any](in PCollection[T], n int, f func([]T) []O) PCollection[O] {
	if n <= 0 {
		n = 1
	}
	apply := func(p types.Partition) (types.Partition, error) {
		rows, err := types.AsSlice[T](p)
		if err != nil {
			return types.Partition{}, err
		}
		var out []O
		for start := 0; start < len(rows); start += n {
			end := start + n
			if end > len(rows) {
				end = len(rows)
			}
			out = append(out, f(rows[start:end])...)
		}
		return types.NewPartition(out), nil
	}
	return chain[T, O](in, dag.Node{
		Kind: dag.KindStateless,
		Stateless: []dag.StatelessOp{{
			Name: "BatchedMap", Apply: apply, CostHint: 10,
		}},
	})
}

// MapValues applies f to the Value of every Pair, preserving keys.
// Value-only, key-preserving, and reorder-safe.
func MapValues[K, V, O any](in PCollection[Pair[K, V]], f func(V) O) PCollection[Pair[K, O]] {
	apply := func(p types.Partition) (types.Partition, error) {
		rows, err := types.AsSlice[Pair[K, V]](p)
		if err != nil {
			return types.Partition{}, err
		}
		out := make([]Pair[K, O], len(rows))
		for i, r := range rows {
			out[i] = Pair[K, O]{Key: r.Key, Value: f(r.Value)}
		}
		return types.NewPartition(out), nil
	}
	return chain[Pair[K, V], Pair[K, O]](in, dag.Node{
		Kind: dag.KindStateless,
		Stateless: []dag.StatelessOp{{
			Name: "MapValues", Apply: apply, ValueOnly: true, KeyPreserving: true,
			ReorderSafeWithValueOnly: true, CostHint: 10,
		}},
	})
}

// FilterValues keeps Pairs whose Value satisfies pred. Value-only,
// key-preserving, and reorder-safe.
func FilterValues[K, V any](in PCollection[Pair[K, V]], pred func(V) bool) PCollection[Pair[K, V]] {
	apply := func(p types.Partition) (types.Partition, error) {
		rows, err := types.AsSlice[Pair[K, V]](p)
		if err != nil {
			return types.Partition{}, err
		}
		out := make([]Pair[K, V], 0, len(rows))
		for _, r := range rows {
			if pred(r.Value) {
				out = append(out, r)
			}
		}
		return types.NewPartition(out), nil
	}
	return chain[Pair[K, V], Pair[K, V]](in, dag.Node{
		Kind: dag.KindStateless,
		Stateless: []dag.StatelessOp{{
			Name: "FilterValues", Apply: apply, ValueOnly: true, KeyPreserving: true,
			ReorderSafeWithValueOnly: true, CostHint: 1,
		}},
	})
}

// KeyBy derives a key from every row of an unkeyed collection,
// turning PCollection[T] into PCollection[Pair[K, T]].
func KeyBy[T any, K any](in PCollection[T], keyOf func(T) K) PCollection[Pair[K, T]] {
	apply := func(p types.Partition) (types.Partition, error) {
		rows, err := types.AsSlice[T](p)
		if err != nil {
			return types.Partition{}, err
		}
		out := make([]Pair[K, T], len(rows))
		for i, r := range rows {
			out[i] = Pair[K, T]{Key: keyOf(r), Value: r}
		}
		return types.NewPartition(out), nil
	}
	return chain[T, Pair[K, T]](in, dag.Node{
		Kind: dag.KindStateless,
		Stateless: []dag.StatelessOp{{
			Name: "KeyBy", Apply: apply, CostHint: 10,
		}},
	})
}
