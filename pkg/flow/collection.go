// Package flow is the engine's typed, public builder surface:
// PCollection[T] handles, the combinator functions that grow a
// Pipeline graph (Map, Filter, FlatMap, KeyBy, GroupByKey,
// CombineValues, CombineGlobally, the join family, windowing), and
// the collectors that plan and execute a terminal PCollection. Go
// methods cannot introduce new type parameters, so the combinators
// here are package-level generic functions rather than methods on
// PCollection.
package flow

import (
	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/internal/types"
)

// PCollection[T] is a typed handle to one node in a Pipeline's graph:
// the node id plus the element type's TypeTag, carried alongside the
// Go type parameter so downstream combinators can be compiled against
// the right T without consulting the erased graph.
type PCollection[T any] struct {
	pipeline *dag.Pipeline
	node     dag.NodeID
	tag      types.TypeTag
}

// Pipeline returns the owning graph builder, for combinators that need
// to insert further nodes.
func (c PCollection[T]) Pipeline() *dag.Pipeline { return c.pipeline }

// NodeID returns the handle's underlying node, for collectors and
// Explain.
func (c PCollection[T]) NodeID() dag.NodeID { return c.node }

// Pair is the engine's (K, V) row shape, used for every keyed
// PCollection (KeyBy's output, join inputs/outputs, windowed-keyed
// groups).
type Pair[K, V any] struct {
	Key   K
	Value V
}

// FromSlice starts a new Pipeline from an in-memory, owned slice: the
// canonical Source realization, using types.NewSliceOps[T] as the
// VecOps adapter.
func FromSlice[T any](p *dag.Pipeline, rows []T) PCollection[T] {
	tag := types.TagOf[T]()
	id := p.InsertNode(dag.Node{
		Kind: dag.KindSource,
		Source: dag.SourceSpec{
			Payload: rows,
			Ops:     types.NewSliceOps[T](),
			Tag:     tag,
		},
	})
	return PCollection[T]{pipeline: p, node: id, tag: tag}
}

// chain inserts node into c's pipeline, connects it after c, and
// returns the new handle typed as O.
func chain[T, O any](c PCollection[T], node dag.Node) PCollection[O] {
	id := c.pipeline.InsertNode(node)
	c.pipeline.Connect(c.node, id)
	return PCollection[O]{pipeline: c.pipeline, node: id, tag: types.TagOf[O]()}
}
