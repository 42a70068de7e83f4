package runtime

import (
	"context"

	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/internal/types"
)

// runChain walks chain (which must start with a Source node) under
// mode, returning the surviving working set of partitions without
// concatenating them. Shared by Execute (outer plan) and runCoGroup
// (the two independent subplans captured by a join).
func runChain(ctx context.Context, chain []dag.Node, mode Mode, partitionCount int) ([]types.Partition, error) {
	if len(chain) == 0 || chain[0].Kind != dag.KindSource {
		return nil, errEmptyChain()
	}
	src := chain[0]
	base := types.Partition{Tag: src.Source.Tag, Payload: src.Source.Payload, Ops: src.Source.Ops}

	var partitions []types.Partition
	if mode.Parallel {
		partitions = base.Split(partitionCount)
	} else {
		partitions = []types.Partition{base.Clone()}
	}

	for i := 1; i < len(chain); i++ {
		out, err := runNode(ctx, chain[i], partitions, mode)
		if err != nil {
			return nil, err
		}
		partitions = out
	}
	return partitions, nil
}

// runCoGroup executes both sides of a join independently under the
// outer run's mode: each subplan runs to a single coalesced (K,
// V)/(K, W) buffer, then the variant-specific Exec closure produces
// the joined output.
func runCoGroup(ctx context.Context, node dag.Node, mode Mode) (types.Partition, error) {
	partitionCount := mode.partitionCount(nil)

	leftParts, err := runChain(ctx, node.CoGroup.LeftChain, mode, partitionCount)
	if err != nil {
		return types.Partition{}, err
	}
	rightParts, err := runChain(ctx, node.CoGroup.RightChain, mode, partitionCount)
	if err != nil {
		return types.Partition{}, err
	}

	left := node.CoGroup.CoalesceLeft(leftParts)
	right := node.CoGroup.CoalesceRight(rightParts)

	return recoverCall(node.ID, func() (types.Partition, error) { return node.CoGroup.Exec(left, right) })
}
