package planner

import "github.com/beamforge/beamforge/internal/dag"

// dropMidMaterialized removes every KindMaterialized node except one
// at the very end of the chain: materialization barriers are only
// observable at the pipeline's terminal (where the caller actually
// collects output), so an interior one is pure overhead the planner
// trims.
func dropMidMaterialized(chain []dag.Node) []dag.Node {
	if len(chain) <= 1 {
		return chain
	}
	last := len(chain) - 1
	out := make([]dag.Node, 0, len(chain))
	for i, n := range chain {
		if n.Kind == dag.KindMaterialized && i != last {
			continue
		}
		out = append(out, n)
	}
	return out
}
