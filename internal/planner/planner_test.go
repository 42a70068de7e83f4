package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/internal/types"
)

func identityOp(name string, costHint uint8) dag.StatelessOp {
	return dag.StatelessOp{
		Name:                     name,
		Apply:                    func(p types.Partition) (types.Partition, error) { return p, nil },
		ValueOnly:                true,
		KeyPreserving:            true,
		ReorderSafeWithValueOnly: true,
		CostHint:                 costHint,
	}
}

func sourceNode(rows []int) dag.Node {
	part := types.NewPartition(rows)
	return dag.Node{
		Kind:   dag.KindSource,
		Source: dag.SourceSpec{Payload: part.Payload, Ops: part.Ops, Tag: part.Tag},
	}
}

func TestFuseStatelessMergesConsecutiveNodes(t *testing.T) {
	chain := []dag.Node{
		sourceNode([]int{1, 2, 3}),
		{Kind: dag.KindStateless, Stateless: []dag.StatelessOp{identityOp("a", 2)}},
		{Kind: dag.KindStateless, Stateless: []dag.StatelessOp{identityOp("b", 3)}},
		{Kind: dag.KindGroupByKey},
	}

	out := fuseStateless(chain)

	require.Len(t, out, 3)
	require.Len(t, out[1].Stateless, 2)
	assert.Equal(t, "a", out[1].Stateless[0].Name)
	assert.Equal(t, "b", out[1].Stateless[1].Name)
	assert.Equal(t, dag.KindGroupByKey, out[2].Kind)
}

func TestFuseStatelessLeavesNonStatelessAlone(t *testing.T) {
	chain := []dag.Node{sourceNode(nil), {Kind: dag.KindGroupByKey}, {Kind: dag.KindMaterialized}}
	out := fuseStateless(chain)
	assert.Equal(t, chain, out)
}

func TestFuseStatelessDoesNotMutateInput(t *testing.T) {
	original := []dag.StatelessOp{identityOp("a", 2)}
	chain := []dag.Node{{Kind: dag.KindStateless, Stateless: original}, {Kind: dag.KindStateless, Stateless: []dag.StatelessOp{identityOp("b", 1)}}}

	out := fuseStateless(chain)

	require.Len(t, out, 1)
	require.Len(t, out[0].Stateless, 2)
	// the first node's own slice must be untouched by the merge
	assert.Len(t, original, 1)
}

func TestReorderValueOnlyRunsPutsFiltersFirst(t *testing.T) {
	chain := []dag.Node{
		{
			Kind: dag.KindStateless,
			Stateless: []dag.StatelessOp{
				identityOp("map-a", 5),
				identityOp("filter", filterCostHint),
				identityOp("map-b", 2),
			},
		},
	}

	out := reorderValueOnlyRuns(chain)

	require.Len(t, out, 1)
	names := []string{out[0].Stateless[0].Name, out[0].Stateless[1].Name, out[0].Stateless[2].Name}
	assert.Equal(t, []string{"filter", "map-b", "map-a"}, names)
}

func TestReorderValueOnlyRunsIsStableWithinEqualCost(t *testing.T) {
	chain := []dag.Node{
		{
			Kind: dag.KindStateless,
			Stateless: []dag.StatelessOp{
				identityOp("first", 5),
				identityOp("second", 5),
			},
		},
	}

	out := reorderValueOnlyRuns(chain)

	assert.Equal(t, "first", out[0].Stateless[0].Name)
	assert.Equal(t, "second", out[0].Stateless[1].Name)
}

func TestReorderValueOnlyRunsLeavesUnsafeNodeUntouched(t *testing.T) {
	unsafeOp := dag.StatelessOp{Name: "key-changing", Apply: identityOp("x", 1).Apply, ValueOnly: false, CostHint: 9}
	filter := identityOp("filter", filterCostHint)
	chain := []dag.Node{
		{Kind: dag.KindStateless, Stateless: []dag.StatelessOp{unsafeOp, filter}},
	}

	out := reorderValueOnlyRuns(chain)

	require.Len(t, out[0].Stateless, 2)
	assert.Equal(t, "key-changing", out[0].Stateless[0].Name)
	assert.Equal(t, "filter", out[0].Stateless[1].Name)
}

func liftableCombine() dag.Node {
	return dag.Node{
		Kind: dag.KindCombineValues,
		Combine: dag.CombineSpec{
			LocalFromGroups: func(p types.Partition) (types.Partition, error) { return p, nil },
			LocalFromPairs:  func(p types.Partition) (types.Partition, error) { return p, nil },
			Merge:           func(ps []types.Partition) (types.Partition, error) { return types.Concat(ps), nil },
			Liftable:        true,
		},
	}
}

func TestLiftGBKThenCombineCollapsesPair(t *testing.T) {
	chain := []dag.Node{sourceNode(nil), {Kind: dag.KindGroupByKey}, liftableCombine()}

	out := liftGBKThenCombine(chain)

	require.Len(t, out, 2)
	assert.Equal(t, dag.KindCombineValues, out[1].Kind)
	assert.Nil(t, out[1].Combine.LocalFromGroups)
	assert.NotNil(t, out[1].Combine.LocalFromPairs)
}

func TestLiftGBKThenCombineSkipsNonLiftable(t *testing.T) {
	notLiftable := liftableCombine()
	notLiftable.Combine.Liftable = false
	chain := []dag.Node{{Kind: dag.KindGroupByKey}, notLiftable}

	out := liftGBKThenCombine(chain)

	require.Len(t, out, 2)
	assert.Equal(t, dag.KindGroupByKey, out[0].Kind)
	assert.NotNil(t, out[1].Combine.LocalFromGroups)
}

func TestLiftGBKThenCombineSkipsWhenNotAdjacent(t *testing.T) {
	chain := []dag.Node{{Kind: dag.KindGroupByKey}, {Kind: dag.KindMaterialized}, liftableCombine()}

	out := liftGBKThenCombine(chain)

	require.Len(t, out, 3)
	assert.Equal(t, dag.KindGroupByKey, out[0].Kind)
}

func TestDropMidMaterializedRemovesInteriorBarrier(t *testing.T) {
	chain := []dag.Node{
		sourceNode(nil),
		{Kind: dag.KindMaterialized},
		{Kind: dag.KindGroupByKey},
		{Kind: dag.KindMaterialized},
	}

	out := dropMidMaterialized(chain)

	require.Len(t, out, 3)
	assert.Equal(t, dag.KindSource, out[0].Kind)
	assert.Equal(t, dag.KindGroupByKey, out[1].Kind)
	assert.Equal(t, dag.KindMaterialized, out[2].Kind)
}

func TestDropMidMaterializedKeepsSoleNode(t *testing.T) {
	chain := []dag.Node{{Kind: dag.KindMaterialized}}
	out := dropMidMaterialized(chain)
	assert.Equal(t, chain, out)
}

func TestBackwalkLinearReversesEdgesIntoForwardChain(t *testing.T) {
	p := dag.NewPipeline()
	a := p.InsertNode(sourceNode([]int{1}))
	b := p.InsertNode(dag.Node{Kind: dag.KindStateless, Stateless: []dag.StatelessOp{identityOp("m", 1)}})
	c := p.InsertNode(dag.Node{Kind: dag.KindGroupByKey})
	p.Connect(a, b)
	p.Connect(b, c)

	nodes, edges := p.Snapshot()
	chain, err := backwalkLinear(nodes, edges, c)
	require.NoError(t, err)

	require.Len(t, chain, 3)
	assert.Equal(t, dag.KindSource, chain[0].Kind)
	assert.Equal(t, dag.KindStateless, chain[1].Kind)
	assert.Equal(t, dag.KindGroupByKey, chain[2].Kind)
}

func TestBackwalkLinearRejectsUnknownTerminal(t *testing.T) {
	nodes := map[dag.NodeID]dag.Node{}
	_, err := backwalkLinear(nodes, nil, dag.NodeID(42))
	assert.Error(t, err)
}

func TestBuildIsIdempotentOnceFullyPlanned(t *testing.T) {
	p := dag.NewPipeline()
	a := p.InsertNode(sourceNode([]int{1, 2, 3, 4}))
	b := p.InsertNode(dag.Node{Kind: dag.KindStateless, Stateless: []dag.StatelessOp{identityOp("m1", 3), identityOp("filter", filterCostHint)}})
	c := p.InsertNode(dag.Node{Kind: dag.KindGroupByKey})
	d := p.InsertNode(liftableCombine())
	p.Connect(a, b)
	p.Connect(b, c)
	p.Connect(c, d)

	nodes, edges := p.Snapshot()
	plan, err := Build(nodes, edges, d)
	require.NoError(t, err)

	// The Source stays first, GroupByKey+liftable Combine collapses,
	// stateless ops stay fused and filter-first ordered.
	require.Len(t, plan.Chain, 3)
	assert.Equal(t, dag.KindStateless, plan.Chain[1].Kind)
	assert.Equal(t, "filter", plan.Chain[1].Stateless[0].Name)
	assert.Equal(t, dag.KindCombineValues, plan.Chain[2].Kind)
	assert.Nil(t, plan.Chain[2].Combine.LocalFromGroups)

	require.NotNil(t, plan.SuggestedPartitions)

	// Re-running the same passes over the already-planned chain must
	// be a no-op: nothing left to fuse, reorder, lift, or drop.
	rebuilt := fuseStateless(plan.Chain)
	rebuilt = reorderValueOnlyRuns(rebuilt)
	rebuilt = liftGBKThenCombine(rebuilt)
	rebuilt = dropMidMaterialized(rebuilt)
	assert.Len(t, rebuilt, len(plan.Chain))
	assert.Equal(t, plan.Chain[0].Kind, rebuilt[0].Kind)
	assert.Equal(t, plan.Chain[1].Kind, rebuilt[1].Kind)
}

func TestSuggestPartitionsFloorsSmallSourceAndSkipsNilHint(t *testing.T) {
	small := 10
	out := suggestPartitions(&small)
	require.NotNil(t, out)
	assert.GreaterOrEqual(t, *out, 2)

	assert.Nil(t, suggestPartitions(nil))
}
