// Package source defines the minimal protocol a PCollection's initial
// Partition is built from, and two concrete adapters exercising it:
// an in-memory SliceSource and a line-oriented JSONL source/sink
// pair. File-format codecs are a peripheral, external-collaborator
// concern, not part of the engine's core algebra, so this package
// stays small and stdlib-only by design.
package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/beamforge/beamforge/internal/types"
)

// Source describes how to materialize a Pipeline's first Partition:
// the payload, the VecOps adapter that makes it splittable, and the
// TypeTag identifying its element type.
type Source interface {
	VecOps() types.VecOps
	Payload() any
	ElemTag() types.TypeTag
}

// Sink writes a finished collection's rows somewhere durable.
type Sink[T any] interface {
	WriteVec(path string, rows []T) (int, error)
}

// SliceSource wraps an already-owned, in-memory []T as a Source.
// FromSlice in pkg/flow builds its Source node directly and does not
// use this type.
type SliceSource[T any] struct {
	Rows []T
}

func (s SliceSource[T]) VecOps() types.VecOps   { return types.NewSliceOps[T]() }
func (s SliceSource[T]) Payload() any           { return s.Rows }
func (s SliceSource[T]) ElemTag() types.TypeTag { return types.TagOf[T]() }

// JSONLSource reads one JSON value per line from path, eagerly
// decoding the whole file into memory — matching the engine's
// in-process, no-streaming execution model.
type JSONLSource[T any] struct {
	rows []T
}

// LoadJSONLSource reads and decodes path into a JSONLSource.
func LoadJSONLSource[T any](path string) (JSONLSource[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return JSONLSource[T]{}, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()

	var rows []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return JSONLSource[T]{}, fmt.Errorf("source: %s:%d: %w", path, lineNum, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return JSONLSource[T]{}, fmt.Errorf("source: read %s: %w", path, err)
	}
	return JSONLSource[T]{rows: rows}, nil
}

func (s JSONLSource[T]) VecOps() types.VecOps   { return types.NewSliceOps[T]() }
func (s JSONLSource[T]) Payload() any           { return s.rows }
func (s JSONLSource[T]) ElemTag() types.TypeTag { return types.TagOf[T]() }

// JSONLSink writes one JSON value per line.
type JSONLSink[T any] struct{}

// WriteVec writes rows to path, one JSON-encoded row per line,
// returning the number of rows written.
func (JSONLSink[T]) WriteVec(path string, rows []T) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("sink: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return i, fmt.Errorf("sink: encode row %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		return len(rows), fmt.Errorf("sink: flush %s: %w", path, err)
	}
	return len(rows), nil
}
