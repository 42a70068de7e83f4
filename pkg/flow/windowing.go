package flow

import (
	"github.com/beamforge/beamforge/internal/window"
)

// GroupByWindow assigns each row to a tumbling window via timestampOf
// and groups rows sharing a window together, producing one
// (Window, []T) pair per populated window. Built on top of KeyBy and
// GroupByKey rather than a dedicated node kind, since window
// assignment is itself a pure, stateless per-row function.
func GroupByWindow[T any](in PCollection[T], timestampOf func(T) uint64, size, offset uint64) PCollection[Pair[window.Window, []T]] {
	keyed := KeyBy(in, func(row T) window.Window {
		return window.Assign(timestampOf(row), size, offset)
	})
	return GroupByKey(keyed)
}

// GroupByKeyAndWindow assigns each (K, V) row to a tumbling window via
// timestampOf, then groups rows sharing the same (Key, Window) pair,
// producing one (KeyedWindow[K], []V) group per populated
// key/window combination.
func GroupByKeyAndWindow[K comparable, V any](in PCollection[Pair[K, V]], timestampOf func(Pair[K, V]) uint64, size, offset uint64) PCollection[Pair[window.KeyedWindow[K], []V]] {
	rekeyed := KeyBy(in, func(row Pair[K, V]) window.KeyedWindow[K] {
		return window.KeyedWindow[K]{
			Key:    row.Key,
			Window: window.Assign(timestampOf(row), size, offset),
		}
	})
	values := MapValues(rekeyed, func(row Pair[K, V]) V { return row.Value })
	return GroupByKey(values)
}
