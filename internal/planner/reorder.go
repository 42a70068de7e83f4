package planner

import (
	"sort"

	"github.com/beamforge/beamforge/internal/dag"
)

// reorderValueOnlyRuns stably partitions a stateless node's fused
// operators so that filters (CostHint 1) run before any other
// value-only, key-preserving, reorder-safe operator, and otherwise
// orders by CostHint. This only applies when every operator in the
// node is value-only, key-preserving, and marked reorder-safe; a node
// containing any operator without all three properties is left
// untouched, since reordering around it could change which rows
// reach a later operator.
func reorderValueOnlyRuns(chain []dag.Node) []dag.Node {
	out := make([]dag.Node, 0, len(chain))
	for _, n := range chain {
		if n.Kind != dag.KindStateless {
			out = append(out, n)
			continue
		}
		if !allValueOnlyReorderable(n.Stateless) {
			out = append(out, n)
			continue
		}
		ops := append([]dag.StatelessOp(nil), n.Stateless...)
		stableSortByFilterThenCost(ops)
		n.Stateless = ops
		out = append(out, n)
	}
	return out
}

func allValueOnlyReorderable(ops []dag.StatelessOp) bool {
	for _, op := range ops {
		if !(op.ValueOnly && op.KeyPreserving && op.ReorderSafeWithValueOnly) {
			return false
		}
	}
	return true
}

const filterCostHint = 1

// stableSortByFilterThenCost orders ops by (is-filter, CostHint),
// preserving relative order within each key, matching the reference
// planner's sort_by_key((is_filter_first, cost_hint)).
func stableSortByFilterThenCost(ops []dag.StatelessOp) {
	rank := func(op dag.StatelessOp) int {
		if op.CostHint == filterCostHint {
			return 0
		}
		return 1
	}
	sort.SliceStable(ops, func(i, j int) bool {
		ri, rj := rank(ops[i]), rank(ops[j])
		if ri != rj {
			return ri < rj
		}
		return ops[i].CostHint < ops[j].CostHint
	})
}
