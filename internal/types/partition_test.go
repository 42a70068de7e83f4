package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagOfEquality(t *testing.T) {
	a := TagOf[int]()
	b := TagOf[int]()
	c := TagOf[string]()

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "int", a.String())
}

func TestPartitionSplitPreservesOrder(t *testing.T) {
	p := NewPartition([]int{1, 2, 3, 4, 5, 6, 7})
	parts := p.Split(3)
	require.Len(t, parts, 3)

	var merged []int
	for _, part := range parts {
		rows, err := AsSlice[int](part)
		require.NoError(t, err)
		merged = append(merged, rows...)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, merged)
}

func TestPartitionCloneIsIndependent(t *testing.T) {
	original := []int{1, 2, 3}
	p := NewPartition(original)
	clone := p.Clone()

	rows, err := AsSlice[int](clone)
	require.NoError(t, err)
	rows[0] = 99

	originalRows, err := AsSlice[int](p)
	require.NoError(t, err)
	assert.Equal(t, 1, originalRows[0])
}

func TestAsSliceTypeMismatch(t *testing.T) {
	p := NewPartition([]int{1, 2, 3})
	_, err := AsSlice[string](p)
	assert.Error(t, err)
}

func TestPartitionLenWithNilOps(t *testing.T) {
	var p Partition
	assert.Equal(t, 0, p.Len())
}
