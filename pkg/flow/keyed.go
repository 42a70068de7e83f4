package flow

import (
	"github.com/beamforge/beamforge/internal/combine"
	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/internal/types"
)

// GroupByKey is the engine's barrier reshaping a (K, V) collection
// into (K, []V) groups: per partition, Local buckets rows by key into
// a map; Merge concatenates every partition's map into the final
// grouped slice. In sequential mode the runtime calls Local once and
// Merge with a single-element slice.
func GroupByKey[K comparable, V any](in PCollection[Pair[K, V]]) PCollection[Pair[K, []V]] {
	local := func(p types.Partition) (types.Partition, error) {
		rows, err := types.AsSlice[Pair[K, V]](p)
		if err != nil {
			return types.Partition{}, err
		}
		groups := make(map[K][]V)
		for _, r := range rows {
			groups[r.Key] = append(groups[r.Key], r.Value)
		}
		return types.NewPartition([]map[K][]V{groups}), nil
	}
	merge := func(parts []types.Partition) (types.Partition, error) {
		final := make(map[K][]V)
		for _, p := range parts {
			maps, err := types.AsSlice[map[K][]V](p)
			if err != nil {
				return types.Partition{}, err
			}
			for _, m := range maps {
				for k, vs := range m {
					final[k] = append(final[k], vs...)
				}
			}
		}
		out := make([]Pair[K, []V], 0, len(final))
		for k, vs := range final {
			out = append(out, Pair[K, []V]{Key: k, Value: vs})
		}
		return types.NewPartition(out), nil
	}

	return chain[Pair[K, V], Pair[K, []V]](in, dag.Node{
		Kind:  dag.KindGroupByKey,
		Group: dag.GroupSpec{Local: local, Merge: merge},
	})
}

// CombineValues reduces an already-grouped (K, []V) collection with
// c, one output per key. If the planner's GBK→Combine lift fires
// (c is Liftable and this node immediately follows the GroupByKey
// that produced in), the runtime uses the pairs-local path instead
// and this node's grouped predecessor never materializes.
func CombineValues[K comparable, V, A, O any](in PCollection[Pair[K, []V]], c combine.Fn[V, A, O]) PCollection[Pair[K, O]] {
	localFromGroups := func(p types.Partition) (types.Partition, error) {
		rows, err := types.AsSlice[Pair[K, []V]](p)
		if err != nil {
			return types.Partition{}, err
		}
		out := make([]Pair[K, A], len(rows))
		for i, r := range rows {
			out[i] = Pair[K, A]{Key: r.Key, Value: buildFromGroup(c, r.Value)}
		}
		return types.NewPartition(out), nil
	}

	liftable, isLiftable := c.(combine.Liftable[V, A, O])
	var localFromPairs func(types.Partition) (types.Partition, error)
	if isLiftable {
		localFromPairs = pairsLocalFunc[K, V, A, O](liftable)
	}

	merge := combineMergeFunc[K, V, A, O](c)

	return chain[Pair[K, []V], Pair[K, O]](in, dag.Node{
		Kind: dag.KindCombineValues,
		Combine: dag.CombineSpec{
			LocalFromGroups: localFromGroups,
			LocalFromPairs:  localFromPairs,
			Merge:           merge,
			Liftable:        isLiftable,
		},
	})
}

// CombineValuesOnPairs reduces an ungrouped (K, V) collection with a
// liftable combiner directly, without an explicit GroupByKey node —
// the direct-combine path, which must agree with grouping first and
// calling CombineValues on the result.
func CombineValuesOnPairs[K comparable, V, A, O any](in PCollection[Pair[K, V]], c combine.Liftable[V, A, O]) PCollection[Pair[K, O]] {
	localFromPairs := pairsLocalFunc[K, V, A, O](c)
	merge := combineMergeFunc[K, V, A, O](c)

	return chain[Pair[K, V], Pair[K, O]](in, dag.Node{
		Kind: dag.KindCombineValues,
		Combine: dag.CombineSpec{
			LocalFromPairs: localFromPairs,
			Merge:          merge,
			Liftable:       true,
		},
	})
}

func buildFromGroup[V, A, O any](c combine.Fn[V, A, O], values []V) A {
	if liftable, ok := c.(combine.Liftable[V, A, O]); ok {
		return liftable.BuildFromGroup(values)
	}
	acc := c.Create()
	for _, v := range values {
		acc = c.AddInput(acc, v)
	}
	return acc
}

func pairsLocalFunc[K comparable, V, A, O any](c combine.Liftable[V, A, O]) func(types.Partition) (types.Partition, error) {
	return func(p types.Partition) (types.Partition, error) {
		rows, err := types.AsSlice[Pair[K, V]](p)
		if err != nil {
			return types.Partition{}, err
		}
		groups := make(map[K][]V)
		order := make([]K, 0)
		for _, r := range rows {
			if _, seen := groups[r.Key]; !seen {
				order = append(order, r.Key)
			}
			groups[r.Key] = append(groups[r.Key], r.Value)
		}
		out := make([]Pair[K, A], len(order))
		for i, k := range order {
			out[i] = Pair[K, A]{Key: k, Value: c.BuildFromGroup(groups[k])}
		}
		return types.NewPartition(out), nil
	}
}

func combineMergeFunc[K comparable, V, A, O any](c combine.Fn[V, A, O]) func([]types.Partition) (types.Partition, error) {
	return func(parts []types.Partition) (types.Partition, error) {
		merged := make(map[K]A)
		order := make([]K, 0)
		for _, p := range parts {
			rows, err := types.AsSlice[Pair[K, A]](p)
			if err != nil {
				return types.Partition{}, err
			}
			for _, r := range rows {
				if existing, ok := merged[r.Key]; ok {
					merged[r.Key] = c.Merge(existing, r.Value)
				} else {
					merged[r.Key] = r.Value
					order = append(order, r.Key)
				}
			}
		}
		out := make([]Pair[K, O], len(order))
		for i, k := range order {
			out[i] = Pair[K, O]{Key: k, Value: c.Finish(merged[k])}
		}
		return types.NewPartition(out), nil
	}
}
