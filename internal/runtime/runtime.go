// Package runtime executes a planner.Plan either sequentially or in
// parallel across partitions: stateless blocks transform each
// partition independently, barriers (GroupByKey, CombineValues,
// CombineGlobal, CoGroup) gather every partition before producing
// output, and the terminal node's partitions are concatenated into
// the final result.
package runtime

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/beamforge/beamforge/internal/checkpoint"
	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/internal/logging"
	"github.com/beamforge/beamforge/internal/planner"
	"github.com/beamforge/beamforge/internal/types"
	beamerrors "github.com/beamforge/beamforge/pkg/errors"
)

// Mode selects sequential or parallel execution.
type Mode struct {
	Parallel   bool
	Partitions int
}

// Sequential is the single-partition, calling-thread execution mode.
var Sequential = Mode{Parallel: false}

// ParallelMode returns a parallel mode with the given partition count.
// A non-positive count leaves the choice to Execute, which uses the
// planner's suggested count when there is one and hardware
// concurrency otherwise (caller choice beats the planner's own
// suggestion, which beats this default).
func ParallelMode(partitions int) Mode {
	return Mode{Parallel: true, Partitions: partitions}
}

// Options configures one Execute call.
type Options struct {
	Mode       Mode
	PipelineID string
	Checkpoint *checkpoint.Manager
	Logger     logging.Logger

	// Progress, when set, is called after each chain node finishes
	// executing, for callers (e.g. a TUI dashboard) that want to
	// render live per-node progress without instrumenting the chain
	// itself.
	Progress func(completedIndex, total int, kind dag.Kind)
}

func (o Options) logger() logging.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.NoOp{}
}

func isBarrier(k dag.Kind) bool {
	switch k {
	case dag.KindGroupByKey, dag.KindCombineValues, dag.KindCombineGlobal, dag.KindCoGroup:
		return true
	default:
		return false
	}
}

func defaultHardwareConcurrency() int {
	n := runtime.NumCPU()
	if n < 2 {
		return 2
	}
	return n
}

func (m Mode) partitionCount(suggested *int) int {
	if !m.Parallel {
		return 1
	}
	if m.Partitions > 0 {
		return m.Partitions
	}
	if suggested != nil && *suggested > 0 {
		return *suggested
	}
	return defaultHardwareConcurrency()
}

// Execute runs plan to completion and returns the single, terminal
// Partition produced by concatenating (parallel) or passing through
// (sequential) the last node's output partitions.
func Execute(ctx context.Context, plan *planner.Plan, opts Options) (types.Partition, error) {
	if plan == nil || len(plan.Chain) == 0 {
		return types.Partition{}, beamerrors.NewPlannerError("execute", "empty plan", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if plan.Chain[0].Kind != dag.KindSource {
		return types.Partition{}, beamerrors.NewPlannerError("execute", "chain does not start with a Source node", nil)
	}
	n := opts.Mode.partitionCount(plan.SuggestedPartitions)
	src := plan.Chain[0]
	base := types.Partition{Tag: src.Source.Tag, Payload: src.Source.Payload, Ops: src.Source.Ops}

	var partitions []types.Partition
	if opts.Mode.Parallel {
		partitions = base.Split(n)
	} else {
		partitions = []types.Partition{base.Clone()}
	}

	total := len(plan.Chain)

	for i := 1; i < total; i++ {
		node := plan.Chain[i]

		out, err := runNode(ctx, node, partitions, opts.Mode)
		if err != nil {
			return types.Partition{}, err
		}
		partitions = out

		if opts.Progress != nil {
			opts.Progress(i, total-1, node.Kind)
		}

		if opts.Checkpoint != nil {
			now := time.Now()
			barrier := isBarrier(node.Kind)
			if opts.Checkpoint.ShouldCheckpoint(i, total, barrier, now) {
				state := checkpoint.State{
					PipelineID:     opts.PipelineID,
					CompletedNode:  i,
					TotalNodes:     total,
					PartitionCount: len(partitions),
					ExecutionMode:  modeName(opts.Mode),
				}
				if _, err := opts.Checkpoint.Save(state, now); err != nil {
					opts.logger().Warn(ctx, "checkpoint save failed", "err", err, "node_index", i)
				}
			}
		}
	}

	return concat(partitions), nil
}

func errEmptyChain() error {
	return beamerrors.NewPlannerError("execute", "chain does not start with a Source node", nil)
}

func modeName(m Mode) string {
	if m.Parallel {
		return "parallel"
	}
	return "sequential"
}

// runNode dispatches one chain node over the current working set of
// partitions, returning the next working set.
func runNode(ctx context.Context, node dag.Node, partitions []types.Partition, mode Mode) ([]types.Partition, error) {
	switch node.Kind {
	case dag.KindStateless:
		return runStateless(ctx, node, partitions)
	case dag.KindGroupByKey:
		return runGroupByKey(node, partitions)
	case dag.KindCombineValues:
		return runCombineValues(node, partitions)
	case dag.KindCombineGlobal:
		return runCombineGlobal(node, partitions)
	case dag.KindCoGroup:
		out, err := runCoGroup(ctx, node, mode)
		if err != nil {
			return nil, err
		}
		return []types.Partition{out}, nil
	case dag.KindMaterialized:
		return runMaterialize(node, partitions)
	default:
		return nil, beamerrors.NewPlannerError("execute", fmt.Sprintf("unknown node kind %v", node.Kind), nil)
	}
}

func runStateless(ctx context.Context, node dag.Node, partitions []types.Partition) ([]types.Partition, error) {
	out := make([]types.Partition, len(partitions))
	apply := func(idx int) error {
		p := partitions[idx]
		result, err := applyOpsRecovered(node.ID, p, node.Stateless)
		if err != nil {
			return err
		}
		out[idx] = result
		return nil
	}

	if len(partitions) <= 1 {
		for i := range partitions {
			if err := apply(i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, _ := errgroup.WithContext(ctx)
	for i := range partitions {
		i := i
		g.Go(func() error { return apply(i) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func applyOpsRecovered(nodeID dag.NodeID, p types.Partition, ops []dag.StatelessOp) (result types.Partition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = beamerrors.NewUserClosurePanic(fmt.Sprintf("%d", nodeID), r, "")
		}
	}()
	cur := p
	for _, op := range ops {
		cur, err = op.Apply(cur)
		if err != nil {
			return types.Partition{}, err
		}
	}
	return cur, nil
}

func runGroupByKey(node dag.Node, partitions []types.Partition) ([]types.Partition, error) {
	locals := make([]types.Partition, len(partitions))
	for i, p := range partitions {
		local, err := recoverCall(node.ID, func() (types.Partition, error) { return node.Group.Local(p) })
		if err != nil {
			return nil, err
		}
		locals[i] = local
	}
	merged, err := recoverCall(node.ID, func() (types.Partition, error) { return node.Group.Merge(locals) })
	if err != nil {
		return nil, err
	}
	return []types.Partition{merged}, nil
}

func runCombineValues(node dag.Node, partitions []types.Partition) ([]types.Partition, error) {
	local := node.Combine.LocalFromGroups
	if local == nil {
		local = node.Combine.LocalFromPairs
	}
	if local == nil {
		return nil, beamerrors.NewPlannerError("execute", "CombineValues node has no local function", nil)
	}

	locals := make([]types.Partition, len(partitions))
	for i, p := range partitions {
		out, err := recoverCall(node.ID, func() (types.Partition, error) { return local(p) })
		if err != nil {
			return nil, err
		}
		locals[i] = out
	}
	merged, err := recoverCall(node.ID, func() (types.Partition, error) { return node.Combine.Merge(locals) })
	if err != nil {
		return nil, err
	}
	return []types.Partition{merged}, nil
}

func runCombineGlobal(node dag.Node, partitions []types.Partition) ([]types.Partition, error) {
	locals := make([]types.Partition, len(partitions))
	for i, p := range partitions {
		out, err := recoverCall(node.ID, func() (types.Partition, error) { return node.Global.Local(p) })
		if err != nil {
			return nil, err
		}
		locals[i] = out
	}

	merged, err := mergeInRounds(node, locals)
	if err != nil {
		return nil, err
	}

	finished, err := recoverCall(node.ID, func() (types.Partition, error) { return node.Global.Finish(merged) })
	if err != nil {
		return nil, err
	}
	return []types.Partition{finished}, nil
}

// mergeInRounds implements a fanout-bounded tree merge: repeatedly
// group the accumulator list into chunks of at most fanout, merge
// each chunk, and recurse until one remains. A nil fanout performs a
// single flat merge over everything.
func mergeInRounds(node dag.Node, accs []types.Partition) (types.Partition, error) {
	if len(accs) == 0 {
		return recoverCall(node.ID, func() (types.Partition, error) { return node.Global.Merge(nil) })
	}
	fanout := node.Global.Fanout
	if fanout == nil || *fanout <= 0 || *fanout >= len(accs) {
		return recoverCall(node.ID, func() (types.Partition, error) { return node.Global.Merge(accs) })
	}

	round := accs
	for len(round) > 1 {
		var next []types.Partition
		for start := 0; start < len(round); start += *fanout {
			end := start + *fanout
			if end > len(round) {
				end = len(round)
			}
			chunk := round[start:end]
			merged, err := recoverCall(node.ID, func() (types.Partition, error) { return node.Global.Merge(chunk) })
			if err != nil {
				return types.Partition{}, err
			}
			next = append(next, merged)
		}
		round = next
	}
	return round[0], nil
}

func runMaterialize(node dag.Node, partitions []types.Partition) ([]types.Partition, error) {
	out := make([]types.Partition, len(partitions))
	for i, p := range partitions {
		m, err := recoverCall(node.ID, func() (types.Partition, error) { return node.Materialize(p) })
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

func recoverCall(nodeID dag.NodeID, fn func() (types.Partition, error)) (result types.Partition, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = beamerrors.NewUserClosurePanic(fmt.Sprintf("%d", nodeID), r, "")
		}
	}()
	return fn()
}

// concat flattens the final working set into one Partition.
// Sequential mode always has exactly one partition already; parallel
// mode concatenates every surviving partition's payload via
// types.Concat. Cross-partition order is unspecified.
func concat(partitions []types.Partition) types.Partition {
	if len(partitions) == 0 {
		return types.Partition{}
	}
	if len(partitions) == 1 {
		return partitions[0]
	}
	return types.Concat(partitions)
}
