// Package checkpoint implements the runtime's checkpoint hook: a
// progress-marker struct (pipeline identity, completed-node index,
// partition count, execution mode, timestamp) persisted to disk with
// a checksum, plus a policy deciding when the runtime should invoke
// it. It does not serialize in-flight partitions: checkpointing
// records progress markers and allows restart from the last
// completed barrier, not a snapshot of data in motion.
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	beamerrors "github.com/beamforge/beamforge/pkg/errors"
)

// Policy decides when the runtime should invoke the checkpoint hook.
type Policy struct {
	// AfterEveryBarrier checkpoints whenever a GroupByKey, CombineValues,
	// CombineGlobal, or CoGroup node finishes.
	AfterEveryBarrier bool
	// EveryNNodes checkpoints after every N completed chain nodes; zero
	// disables this trigger.
	EveryNNodes int
	// Interval checkpoints after at least this much wall-clock time has
	// elapsed since the last checkpoint; zero disables this trigger.
	Interval time.Duration
}

// ShouldCheckpoint reports whether a checkpoint should be taken after
// completing the node at completedIndex (0-based) out of totalNodes,
// given whether that node was a barrier and when the last checkpoint
// happened.
func (p Policy) ShouldCheckpoint(completedIndex, totalNodes int, isBarrier bool, last time.Time, now time.Time) bool {
	if p.AfterEveryBarrier && isBarrier {
		return true
	}
	if p.EveryNNodes > 0 && completedIndex > 0 && completedIndex%p.EveryNNodes == 0 {
		return true
	}
	if p.Interval > 0 {
		if last.IsZero() || now.Sub(last) >= p.Interval {
			return true
		}
	}
	return false
}

// State is the serializable progress marker the hook persists.
type State struct {
	PipelineID       string `json:"pipeline_id"`
	CompletedNode    int    `json:"completed_node_index"`
	TotalNodes       int    `json:"total_nodes"`
	PartitionCount   int    `json:"partition_count"`
	ExecutionMode    string `json:"execution_mode"`
	TimestampMillis  int64  `json:"timestamp_ms"`
	Checksum         string `json:"checksum"`
}

func (s State) metadataString() string {
	return fmt.Sprintf("%s:%d:%d:%d", s.PipelineID, s.CompletedNode, s.TimestampMillis, s.PartitionCount)
}

func computeChecksum(s State) string {
	sum := sha256.Sum256([]byte(s.metadataString()))
	return hex.EncodeToString(sum[:])
}

// Config configures a Manager.
type Config struct {
	Enabled        bool   `yaml:"enabled" validate:"-"`
	Directory      string `yaml:"directory" validate:"required_if=Enabled true"`
	MaxCheckpoints int    `yaml:"max_checkpoints" validate:"gte=0"`
	Policy         Policy `yaml:"-"`
}

// Manager owns checkpoint persistence, retention, and lookup for one
// run. It is safe for concurrent use by the runtime's barrier
// completions.
type Manager struct {
	mu   sync.Mutex
	cfg  Config
	last time.Time
}

// NewManager constructs a Manager, creating the checkpoint directory
// when enabled.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Enabled {
		if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
			return nil, beamerrors.NewCheckpointError("init", cfg.Directory, err)
		}
	}
	return &Manager{cfg: cfg}, nil
}

// ShouldCheckpoint delegates to the configured Policy, tracking the
// timestamp of the last successful save.
func (m *Manager) ShouldCheckpoint(completedIndex, totalNodes int, isBarrier bool, now time.Time) bool {
	if !m.cfg.Enabled {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Policy.ShouldCheckpoint(completedIndex, totalNodes, isBarrier, m.last, now)
}

// Save persists state to disk and prunes old checkpoints for the same
// pipeline beyond MaxCheckpoints. A failed save is reported as a
// CheckpointError but must never abort the run; callers log it and
// continue.
func (m *Manager) Save(state State, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Enabled {
		return "", nil
	}

	state.TimestampMillis = now.UnixMilli()
	state.Checksum = computeChecksum(state)

	name := fmt.Sprintf("checkpoint_%s_%d.bin", state.PipelineID, state.TimestampMillis)
	path := filepath.Join(m.cfg.Directory, name)

	encoded, err := json.Marshal(state)
	if err != nil {
		return "", beamerrors.NewCheckpointError("save", path, err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return "", beamerrors.NewCheckpointError("save", path, err)
	}

	m.last = now
	m.cleanup(state.PipelineID)
	return path, nil
}

// FindLatest returns the path of the newest checkpoint file for
// pipelineID, or "" if none exist.
func (m *Manager) FindLatest(pipelineID string) (string, error) {
	if !m.cfg.Enabled {
		return "", nil
	}
	entries, err := os.ReadDir(m.cfg.Directory)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", beamerrors.NewCheckpointError("find-latest", m.cfg.Directory, err)
	}

	paths := matchingCheckpoints(entries, pipelineID)
	if len(paths) == 0 {
		return "", nil
	}
	return filepath.Join(m.cfg.Directory, paths[len(paths)-1]), nil
}

// Load reads and checksum-verifies a checkpoint file. A checksum
// mismatch or corrupt file is rejected with a CheckpointError; the
// caller is expected to continue without that checkpoint rather than
// treat the error as fatal.
func (m *Manager) Load(path string) (State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return State{}, beamerrors.NewCheckpointError("load", path, err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, beamerrors.NewCheckpointError("load", path, err)
	}

	want := state.Checksum
	state.Checksum = ""
	got := computeChecksum(state)
	state.Checksum = want
	if got != want {
		return State{}, beamerrors.NewCheckpointError("load", path, fmt.Errorf("checksum mismatch"))
	}
	return state, nil
}

func (m *Manager) cleanup(pipelineID string) {
	if m.cfg.MaxCheckpoints <= 0 {
		return
	}
	entries, err := os.ReadDir(m.cfg.Directory)
	if err != nil {
		return
	}
	names := matchingCheckpoints(entries, pipelineID)
	if len(names) <= m.cfg.MaxCheckpoints {
		return
	}
	toDelete := names[:len(names)-m.cfg.MaxCheckpoints]
	for _, name := range toDelete {
		_ = os.Remove(filepath.Join(m.cfg.Directory, name))
	}
}

// matchingCheckpoints returns the checkpoint file names for
// pipelineID, sorted ascending by the trailing timestamp.
func matchingCheckpoints(entries []os.DirEntry, pipelineID string) []string {
	prefix := fmt.Sprintf("checkpoint_%s_", pipelineID)
	type named struct {
		name string
		ts   int64
	}
	var found []named
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".bin") {
			continue
		}
		tsStr := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".bin")
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		found = append(found, named{name: name, ts: ts})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ts < found[j].ts })
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.name
	}
	return out
}
