// Package dag implements the engine's closed node algebra and the
// Pipeline graph builder: the mutable side of the DAG (NodeID
// allocation, edge bookkeeping) kept separate from the immutable
// snapshot the planner consumes.
package dag

import "github.com/beamforge/beamforge/internal/types"

// NodeID identifies a node within a single Pipeline. IDs are
// allocated in insertion order and are never reused.
type NodeID uint64

// Kind enumerates the engine's closed set of node shapes. Every
// switch over Kind in the planner and runtime is expected to be
// exhaustive; adding a new Kind means touching both.
type Kind int

const (
	// KindSource reads an initial Partition from a Source adapter.
	KindSource Kind = iota
	// KindStateless applies one or more fused, row-independent
	// operators (Map/Filter/FlatMap/...) to a Partition.
	KindStateless
	// KindGroupByKey reshapes a (K, V) Partition into (K, []V) groups.
	KindGroupByKey
	// KindCombineValues reduces each group's values with a CombineFn,
	// optionally using a lifted per-partition pre-aggregation.
	KindCombineValues
	// KindCombineGlobal reduces an entire Partition to a single
	// output with a CombineFn, optionally in bounded fanout rounds.
	KindCombineGlobal
	// KindCoGroup joins two independent chains by key.
	KindCoGroup
	// KindMaterialized forces evaluation and snapshots the result,
	// trimmed by the planner except at the terminal position.
	KindMaterialized
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "Source"
	case KindStateless:
		return "Stateless"
	case KindGroupByKey:
		return "GroupByKey"
	case KindCombineValues:
		return "CombineValues"
	case KindCombineGlobal:
		return "CombineGlobal"
	case KindCoGroup:
		return "CoGroup"
	case KindMaterialized:
		return "Materialized"
	default:
		return "Unknown"
	}
}

// StatelessOp is one row-independent operator fused into a
// KindStateless node. CostHint is an opaque, relative ordering signal
// used by the planner's reorder pass (lower runs first); by
// convention filters use CostHint 1.
type StatelessOp struct {
	Name                     string
	Apply                    func(types.Partition) (types.Partition, error)
	KeyPreserving            bool
	ValueOnly                bool
	ReorderSafeWithValueOnly bool
	CostHint                 uint8
}

// GroupSpec carries the two closures a GroupByKey barrier needs: a
// per-partition local grouping pass (consuming a (K, V) Partition and
// producing a single-partition, erased map[K][]V) and a merge pass
// combining one such map per partition into the final (K, []V)
// Partition. Sequential execution calls Local once and Merge with a
// single-element slice.
type GroupSpec struct {
	Local func(types.Partition) (types.Partition, error)
	Merge func([]types.Partition) (types.Partition, error)
}

// CombineSpec carries the closures a CombineValues node needs: a
// per-partition local aggregation, and a merge of local aggregates
// that also finishes each key's accumulator into the output
// Partition. LocalFromGroups consumes (K, []V) groups; LocalFromPairs
// consumes (K, V) pairs directly and is set only for liftable
// combiners. The planner's GBK lift clears LocalFromGroups; the
// runtime uses LocalFromGroups while it is set and LocalFromPairs
// otherwise.
type CombineSpec struct {
	LocalFromGroups func(types.Partition) (types.Partition, error)
	LocalFromPairs  func(types.Partition) (types.Partition, error)
	Merge           func([]types.Partition) (types.Partition, error)
	Liftable        bool
}

// GlobalCombineSpec mirrors CombineSpec for CombineGlobal nodes: no
// key, a single accumulator per round, an optional fanout bounding
// how many partitions are merged directly before a further round.
type GlobalCombineSpec struct {
	Local  func(types.Partition) (types.Partition, error)
	Merge  func([]types.Partition) (types.Partition, error)
	Finish func(types.Partition) (types.Partition, error)
	Fanout *int
}

// CoGroupSpec carries the two independent chains a join reads from,
// and the closures that coalesce each side's chain output and emit
// the joined rows.
type CoGroupSpec struct {
	LeftChain     []Node
	RightChain    []Node
	CoalesceLeft  func([]types.Partition) types.Partition
	CoalesceRight func([]types.Partition) types.Partition
	Exec          func(left, right types.Partition) (types.Partition, error)
}

// SourceSpec describes how to materialize the first Partition of a
// chain.
type SourceSpec struct {
	Payload any
	Ops     types.VecOps
	Tag     types.TypeTag
}

// Node is the engine's single, tagged-struct realization of the
// closed node set described in node.go's Kind comment. Only the
// fields matching Kind are populated; the planner and runtime both
// switch exhaustively on Kind rather than type-asserting an
// interface.
type Node struct {
	ID   NodeID
	Kind Kind

	Source    SourceSpec
	Stateless []StatelessOp
	Combine   CombineSpec
	Global    GlobalCombineSpec
	CoGroup   CoGroupSpec

	// Group holds the local/merge closures for KindGroupByKey.
	Group GroupSpec

	// Materialize snapshots a Partition's current content, forcing
	// any lazily-built payload to become concrete.
	Materialize func(types.Partition) (types.Partition, error)
}

// Clone returns a copy of n with its own Stateless, LeftChain and
// RightChain slices, so edits to a snapshot's operator lists never
// reach the builder's nodes. Closures are shared: they are immutable
// once built.
func (n Node) Clone() Node {
	clone := n
	if n.Stateless != nil {
		clone.Stateless = append([]StatelessOp(nil), n.Stateless...)
	}
	if n.CoGroup.LeftChain != nil {
		clone.CoGroup.LeftChain = append([]Node(nil), n.CoGroup.LeftChain...)
	}
	if n.CoGroup.RightChain != nil {
		clone.CoGroup.RightChain = append([]Node(nil), n.CoGroup.RightChain...)
	}
	return clone
}
