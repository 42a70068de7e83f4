package types

import "reflect"

// Partition is the type-erased unit of data the runtime moves
// between nodes. Payload is always a `[]T` for some concrete T (or,
// for shard-backed sources, a small shard-descriptor struct); Tag and
// Ops together let the runtime split, measure, and clone it without
// importing T.
type Partition struct {
	Tag     TypeTag
	Payload any
	Ops     VecOps
}

// Len reports the number of logical rows in the partition.
func (p Partition) Len() int {
	if p.Ops == nil {
		return 0
	}
	return p.Ops.Len(p.Payload)
}

// Split divides the partition into n roughly equal, order-preserving
// shares. Concatenating the shares in order reproduces the original
// row order.
func (p Partition) Split(n int) []Partition {
	if p.Ops == nil || n <= 1 {
		return []Partition{p}
	}
	payloads := p.Ops.Split(p.Payload, n)
	out := make([]Partition, 0, len(payloads))
	for _, payload := range payloads {
		out = append(out, Partition{Tag: p.Tag, Payload: payload, Ops: p.Ops})
	}
	return out
}

// Clone returns a partition sharing no mutable backing storage with
// p. Used when a fan-out needs to hand the same logical rows to more
// than one downstream consumer.
func (p Partition) Clone() Partition {
	if p.Ops == nil {
		return p
	}
	return Partition{Tag: p.Tag, Payload: p.Ops.CloneAny(p.Payload), Ops: p.Ops}
}

// VecOps is the minimal set of operations the runtime needs to treat
// an arbitrary payload as a sequence of rows without knowing its
// element type. NewSliceOps supplies the standard, in-memory `[]T`
// realization; shard-backed sources supply their own implementation
// over a shard-descriptor payload.
type VecOps interface {
	Len(payload any) int
	Split(payload any, n int) []any
	CloneAny(payload any) any
}

// SliceOps is the generic VecOps adapter over an in-memory []T.
type SliceOps[T any] struct{}

// NewSliceOps returns the VecOps adapter for []T payloads.
func NewSliceOps[T any]() VecOps {
	return SliceOps[T]{}
}

func (SliceOps[T]) Len(payload any) int {
	s, ok := payload.([]T)
	if !ok {
		return 0
	}
	return len(s)
}

func (SliceOps[T]) Split(payload any, n int) []any {
	s, ok := payload.([]T)
	if !ok || n <= 1 || len(s) <= 1 {
		return []any{payload}
	}
	if n > len(s) {
		n = len(s)
	}
	out := make([]any, 0, n)
	base := len(s) / n
	rem := len(s) % n
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		end := start + size
		share := make([]T, end-start)
		copy(share, s[start:end])
		out = append(out, share)
		start = end
	}
	return out
}

func (SliceOps[T]) CloneAny(payload any) any {
	s, ok := payload.([]T)
	if !ok {
		return payload
	}
	clone := make([]T, len(s))
	copy(clone, s)
	return clone
}

// AsSlice downcasts a Partition's payload to []T, returning an
// InternalTypeMismatch-shaped error on a tag/type disagreement
// instead of panicking the caller's goroutine.
func AsSlice[T any](p Partition) ([]T, error) {
	s, ok := p.Payload.([]T)
	if !ok {
		return nil, CheckAssignable(p.Tag, p.Payload)
	}
	return s, nil
}

// NewPartition builds a Partition wrapping an in-memory []T.
func NewPartition[T any](rows []T) Partition {
	return Partition{Tag: TagOf[T](), Payload: rows, Ops: NewSliceOps[T]()}
}

// Concat flattens the payloads of several same-tagged partitions into
// one, using reflect.AppendSlice since the runtime holds Partition's
// element type erased as `any`. Used by the runtime's terminal
// materialization step to join a parallel run's surviving partitions
// into one result; cross-partition order is unspecified.
func Concat(partitions []Partition) Partition {
	if len(partitions) == 0 {
		return Partition{}
	}
	first := partitions[0]
	acc := reflect.ValueOf(first.Payload)
	for _, p := range partitions[1:] {
		acc = reflect.AppendSlice(acc, reflect.ValueOf(p.Payload))
	}
	return Partition{Tag: first.Tag, Payload: acc.Interface(), Ops: first.Ops}
}
