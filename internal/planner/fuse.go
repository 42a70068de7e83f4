package planner

import "github.com/beamforge/beamforge/internal/dag"

// fuseStateless merges consecutive KindStateless nodes into one,
// concatenating their operator lists in order. The runtime then
// applies the whole operator list to each partition within one chain
// step, operator after operator, instead of one chain step per
// original node.
func fuseStateless(chain []dag.Node) []dag.Node {
	if len(chain) == 0 {
		return chain
	}
	out := make([]dag.Node, 0, len(chain))
	i := 0
	for i < len(chain) {
		if chain[i].Kind != dag.KindStateless {
			out = append(out, chain[i])
			i++
			continue
		}
		fused := append([]dag.StatelessOp(nil), chain[i].Stateless...)
		j := i + 1
		for j < len(chain) && chain[j].Kind == dag.KindStateless {
			fused = append(fused, chain[j].Stateless...)
			j++
		}
		node := chain[i]
		node.Stateless = fused
		out = append(out, node)
		i = j
	}
	return out
}
