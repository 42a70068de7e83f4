package checkpoint

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(Config{Enabled: true, Directory: dir, MaxCheckpoints: 5})
	require.NoError(t, err)

	state := State{PipelineID: "abc123", CompletedNode: 2, TotalNodes: 5, PartitionCount: 4, ExecutionMode: "parallel"}
	path, err := mgr.Save(state, time.Unix(1000, 0))
	require.NoError(t, err)
	require.NotEmpty(t, path)

	loaded, err := mgr.Load(path)
	require.NoError(t, err)
	assert.Equal(t, state.PipelineID, loaded.PipelineID)
	assert.Equal(t, state.CompletedNode, loaded.CompletedNode)
}

func TestLoadRejectsCorruptedChecksum(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(Config{Enabled: true, Directory: dir, MaxCheckpoints: 5})
	require.NoError(t, err)

	path, err := mgr.Save(State{PipelineID: "p", CompletedNode: 1, PartitionCount: 1}, time.Unix(2000, 0))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var state State
	require.NoError(t, json.Unmarshal(raw, &state))
	state.CompletedNode = 99 // mutate a checksummed field without recomputing the checksum
	corrupted, err := json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, corrupted, 0o644))

	_, err = mgr.Load(path)
	assert.Error(t, err)
}

func TestFindLatestReturnsNewestByTimestamp(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(Config{Enabled: true, Directory: dir, MaxCheckpoints: 10})
	require.NoError(t, err)

	_, err = mgr.Save(State{PipelineID: "p", CompletedNode: 1}, time.Unix(1000, 0))
	require.NoError(t, err)
	_, err = mgr.Save(State{PipelineID: "p", CompletedNode: 2}, time.Unix(2000, 0))
	require.NoError(t, err)

	latest, err := mgr.FindLatest("p")
	require.NoError(t, err)
	loaded, err := mgr.Load(latest)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.CompletedNode)
}

func TestCleanupRetainsOnlyMaxCheckpoints(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(Config{Enabled: true, Directory: dir, MaxCheckpoints: 2})
	require.NoError(t, err)

	for i := int64(1); i <= 4; i++ {
		_, err := mgr.Save(State{PipelineID: "p", CompletedNode: int(i)}, time.Unix(i*1000, 0))
		require.NoError(t, err)
	}

	latest, err := mgr.FindLatest("p")
	require.NoError(t, err)
	loaded, err := mgr.Load(latest)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.CompletedNode)
}

func TestPolicyAfterEveryBarrier(t *testing.T) {
	p := Policy{AfterEveryBarrier: true}
	assert.True(t, p.ShouldCheckpoint(3, 10, true, time.Time{}, time.Now()))
	assert.False(t, p.ShouldCheckpoint(3, 10, false, time.Time{}, time.Now()))
}

func TestPolicyEveryNNodes(t *testing.T) {
	p := Policy{EveryNNodes: 3}
	assert.True(t, p.ShouldCheckpoint(3, 10, false, time.Time{}, time.Now()))
	assert.False(t, p.ShouldCheckpoint(2, 10, false, time.Time{}, time.Now()))
}
