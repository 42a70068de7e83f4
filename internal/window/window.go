// Package window implements deterministic tumbling-window assignment
// for timestamped elements: windows are half-open [start, end)
// intervals of fixed size, and every timestamp maps to exactly one
// window.
package window

// Window is a half-open time interval [Start, End).
type Window struct {
	Start uint64
	End   uint64
}

// Less totally orders windows by Start, then End, so sorted collectors
// produce deterministic output over windowed results.
func (w Window) Less(other Window) bool {
	if w.Start != other.Start {
		return w.Start < other.Start
	}
	return w.End < other.End
}

// Assign computes the tumbling window containing ts, for windows of
// the given size starting at offset. Exactly one window is returned
// for any (ts, size, offset); identical timestamps always map to
// identical windows.
func Assign(ts, size, offset uint64) Window {
	if size == 0 {
		size = 1
	}
	shifted := ts - offset
	// ts is unsigned and may be smaller than offset; floor-divide on
	// the signed distance so windows before offset still tile evenly
	// backward instead of wrapping around uint64's range.
	var bucket int64
	if ts >= offset {
		bucket = int64(shifted / size)
	} else {
		behind := offset - ts
		steps := int64((behind + size - 1) / size)
		bucket = -steps
	}
	start := int64(offset) + bucket*int64(size)
	var startU uint64
	if start < 0 {
		startU = 0
	} else {
		startU = uint64(start)
	}
	return Window{Start: startU, End: startU + size}
}

// KeyedWindow pairs a user key with the window an element in that
// key's stream was assigned to, forming the group-by key for
// GroupByKeyAndWindow.
type KeyedWindow[K comparable] struct {
	Key    K
	Window Window
}

// Less totally orders KeyedWindow values by Key (via the caller's
// keyLess since Go generics cannot compare arbitrary comparable types
// for ordering), then by Window.
func (kw KeyedWindow[K]) Less(other KeyedWindow[K], keyLess func(a, b K) bool) bool {
	if !keysEqual(kw.Key, other.Key) {
		return keyLess(kw.Key, other.Key)
	}
	return kw.Window.Less(other.Window)
}

func keysEqual[K comparable](a, b K) bool {
	return a == b
}
