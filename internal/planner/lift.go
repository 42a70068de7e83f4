package planner

import "github.com/beamforge/beamforge/internal/dag"

// liftGBKThenCombine drops a GroupByKey node immediately followed by
// a liftable CombineValues node, rewiring the combine to consume (K,
// V) pairs directly (Combine.LocalFromPairs) instead of the grouped
// (K, []V) shape (Combine.LocalFromGroups). This avoids materializing
// the intermediate group entirely when the combiner can build its
// accumulator straight from ungrouped pairs.
func liftGBKThenCombine(chain []dag.Node) []dag.Node {
	if len(chain) < 2 {
		return chain
	}
	out := make([]dag.Node, 0, len(chain))
	i := 0
	for i < len(chain) {
		if i+1 < len(chain) &&
			chain[i].Kind == dag.KindGroupByKey &&
			chain[i+1].Kind == dag.KindCombineValues &&
			chain[i+1].Combine.Liftable &&
			chain[i+1].Combine.LocalFromPairs != nil {

			lifted := chain[i+1]
			lifted.Combine.LocalFromGroups = nil
			out = append(out, lifted)
			i += 2
			continue
		}
		out = append(out, chain[i])
		i++
	}
	return out
}
