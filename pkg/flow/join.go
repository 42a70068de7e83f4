package flow

import (
	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/internal/planner"
	"github.com/beamforge/beamforge/internal/types"
)

// joined is the per-key output row of a join: at most one of Left,
// Right is absent (HasLeft/HasRight false) for an outer join side
// (Inner, Left, Right, Full).
type joined[K comparable, V, W any] struct {
	Key      K
	Left     V
	HasLeft  bool
	Right    W
	HasRight bool
}

func coalesce[K comparable, V any](parts []types.Partition) types.Partition {
	return types.Concat(parts)
}

func buildCoGroupNode[K comparable, V, W, O any](
	left PCollection[Pair[K, V]],
	right PCollection[Pair[K, W]],
	exec func(left, right types.Partition) (types.Partition, error),
) PCollection[O] {
	leftNodes, leftEdges := left.pipeline.Snapshot()
	leftPlan, err := planner.Build(leftNodes, leftEdges, left.node)
	if err != nil {
		panic("flow: failed to plan join's left side: " + err.Error())
	}
	rightNodes, rightEdges := right.pipeline.Snapshot()
	rightPlan, err := planner.Build(rightNodes, rightEdges, right.node)
	if err != nil {
		panic("flow: failed to plan join's right side: " + err.Error())
	}

	// A one-byte anchoring Source keeps the outer plan starting with a
	// Source node, as the runtime requires.
	out := dag.NewPipeline()
	anchor := types.NewPartition([]byte{0})
	src := out.InsertNode(dag.Node{
		Kind:   dag.KindSource,
		Source: dag.SourceSpec{Payload: anchor.Payload, Ops: anchor.Ops, Tag: anchor.Tag},
	})
	id := out.InsertNode(dag.Node{
		Kind: dag.KindCoGroup,
		CoGroup: dag.CoGroupSpec{
			LeftChain:     leftPlan.Chain,
			RightChain:    rightPlan.Chain,
			CoalesceLeft:  coalesce[K, V],
			CoalesceRight: coalesce[K, W],
			Exec:          exec,
		},
	})
	out.Connect(src, id)
	return PCollection[O]{pipeline: out, node: id, tag: types.TagOf[O]()}
}

func indexByKey[K comparable, V any](p types.Partition) (map[K][]V, []K, error) {
	rows, err := types.AsSlice[Pair[K, V]](p)
	if err != nil {
		return nil, nil, err
	}
	index := make(map[K][]V)
	order := make([]K, 0)
	for _, r := range rows {
		if _, seen := index[r.Key]; !seen {
			order = append(order, r.Key)
		}
		index[r.Key] = append(index[r.Key], r.Value)
	}
	return index, order, nil
}

// InnerJoin emits one joined row per (left, right) pair sharing a key;
// keys present on only one side produce no output. Output order
// within a key is unspecified.
func InnerJoin[K comparable, V, W any](left PCollection[Pair[K, V]], right PCollection[Pair[K, W]]) PCollection[joined[K, V, W]] {
	exec := func(l, r types.Partition) (types.Partition, error) {
		leftIdx, leftOrder, err := indexByKey[K, V](l)
		if err != nil {
			return types.Partition{}, err
		}
		rightIdx, _, err := indexByKey[K, W](r)
		if err != nil {
			return types.Partition{}, err
		}
		var out []joined[K, V, W]
		for _, k := range leftOrder {
			rvs, ok := rightIdx[k]
			if !ok {
				continue
			}
			for _, lv := range leftIdx[k] {
				for _, rv := range rvs {
					out = append(out, joined[K, V, W]{Key: k, Left: lv, HasLeft: true, Right: rv, HasRight: true})
				}
			}
		}
		return types.NewPartition(out), nil
	}
	return buildCoGroupNode[K, V, W, joined[K, V, W]](left, right, exec)
}

// LeftJoin emits one row per left row: joined with every matching
// right row, or with HasRight false when the key has no right match.
func LeftJoin[K comparable, V, W any](left PCollection[Pair[K, V]], right PCollection[Pair[K, W]]) PCollection[joined[K, V, W]] {
	exec := func(l, r types.Partition) (types.Partition, error) {
		leftIdx, leftOrder, err := indexByKey[K, V](l)
		if err != nil {
			return types.Partition{}, err
		}
		rightIdx, _, err := indexByKey[K, W](r)
		if err != nil {
			return types.Partition{}, err
		}
		var out []joined[K, V, W]
		for _, k := range leftOrder {
			rvs, ok := rightIdx[k]
			if !ok {
				for _, lv := range leftIdx[k] {
					out = append(out, joined[K, V, W]{Key: k, Left: lv, HasLeft: true})
				}
				continue
			}
			for _, lv := range leftIdx[k] {
				for _, rv := range rvs {
					out = append(out, joined[K, V, W]{Key: k, Left: lv, HasLeft: true, Right: rv, HasRight: true})
				}
			}
		}
		return types.NewPartition(out), nil
	}
	return buildCoGroupNode[K, V, W, joined[K, V, W]](left, right, exec)
}

// RightJoin mirrors LeftJoin with sides swapped.
func RightJoin[K comparable, V, W any](left PCollection[Pair[K, V]], right PCollection[Pair[K, W]]) PCollection[joined[K, V, W]] {
	exec := func(l, r types.Partition) (types.Partition, error) {
		leftIdx, _, err := indexByKey[K, V](l)
		if err != nil {
			return types.Partition{}, err
		}
		rightIdx, rightOrder, err := indexByKey[K, W](r)
		if err != nil {
			return types.Partition{}, err
		}
		var out []joined[K, V, W]
		for _, k := range rightOrder {
			lvs, ok := leftIdx[k]
			if !ok {
				for _, rv := range rightIdx[k] {
					out = append(out, joined[K, V, W]{Key: k, Right: rv, HasRight: true})
				}
				continue
			}
			for _, rv := range rightIdx[k] {
				for _, lv := range lvs {
					out = append(out, joined[K, V, W]{Key: k, Left: lv, HasLeft: true, Right: rv, HasRight: true})
				}
			}
		}
		return types.NewPartition(out), nil
	}
	return buildCoGroupNode[K, V, W, joined[K, V, W]](left, right, exec)
}

// FullJoin emits every left row (matched or not) and every
// right-only row for keys absent on the left.
func FullJoin[K comparable, V, W any](left PCollection[Pair[K, V]], right PCollection[Pair[K, W]]) PCollection[joined[K, V, W]] {
	exec := func(l, r types.Partition) (types.Partition, error) {
		leftIdx, leftOrder, err := indexByKey[K, V](l)
		if err != nil {
			return types.Partition{}, err
		}
		rightIdx, rightOrder, err := indexByKey[K, W](r)
		if err != nil {
			return types.Partition{}, err
		}
		var out []joined[K, V, W]
		for _, k := range leftOrder {
			rvs, ok := rightIdx[k]
			if !ok {
				for _, lv := range leftIdx[k] {
					out = append(out, joined[K, V, W]{Key: k, Left: lv, HasLeft: true})
				}
				continue
			}
			for _, lv := range leftIdx[k] {
				for _, rv := range rvs {
					out = append(out, joined[K, V, W]{Key: k, Left: lv, HasLeft: true, Right: rv, HasRight: true})
				}
			}
		}
		for _, k := range rightOrder {
			if _, ok := leftIdx[k]; ok {
				continue
			}
			for _, rv := range rightIdx[k] {
				out = append(out, joined[K, V, W]{Key: k, Right: rv, HasRight: true})
			}
		}
		return types.NewPartition(out), nil
	}
	return buildCoGroupNode[K, V, W, joined[K, V, W]](left, right, exec)
}
