package flow

import (
	"github.com/beamforge/beamforge/internal/combine"
	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/internal/types"
)

// CombineGlobally reduces an entire unkeyed collection to a single
// output row with c: one accumulator per partition (built via
// BuildFromGroup when c is Liftable), merged across partitions
// (optionally in bounded fanout rounds via a non-nil fanout), then
// finished once. Empty input still produces exactly one row, seeded
// from c.Create().
func CombineGlobally[V, A, O any](in PCollection[V], c combine.Fn[V, A, O], fanout *int) PCollection[O] {
	g := combine.NewGlobal(c)

	local := func(p types.Partition) (types.Partition, error) {
		values, err := types.AsSlice[V](p)
		if err != nil {
			return types.Partition{}, err
		}
		acc := g.Local(values)
		return types.NewPartition([]A{acc}), nil
	}

	merge := func(parts []types.Partition) (types.Partition, error) {
		accs := make([]A, 0, len(parts))
		for _, p := range parts {
			vs, err := types.AsSlice[A](p)
			if err != nil {
				return types.Partition{}, err
			}
			accs = append(accs, vs...)
		}
		return types.NewPartition([]A{g.MergeAll(accs)}), nil
	}

	finish := func(p types.Partition) (types.Partition, error) {
		accs, err := types.AsSlice[A](p)
		if err != nil {
			return types.Partition{}, err
		}
		var acc A
		if len(accs) > 0 {
			acc = accs[0]
		} else {
			acc = g.MergeAll(nil)
		}
		return types.NewPartition([]O{g.Finish(acc)}), nil
	}

	return chain[V, O](in, dag.Node{
		Kind: dag.KindCombineGlobal,
		Global: dag.GlobalCombineSpec{
			Local:  local,
			Merge:  merge,
			Finish: finish,
			Fanout: fanout,
		},
	})
}
