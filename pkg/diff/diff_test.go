package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnified_IdenticalContent(t *testing.T) {
	baseline := []byte("line1\nline2\nline3\n")
	current := []byte("line1\nline2\nline3\n")

	assert.Empty(t, Unified(baseline, current, "baseline", "current"))
}

func TestUnified_SingleLineChange(t *testing.T) {
	baseline := []byte("line1\nline2\nline3\n")
	current := []byte("line1\nmodified\nline3\n")

	result := Unified(baseline, current, "baseline", "current")
	require.NotEmpty(t, result)

	assert.Contains(t, result, "--- baseline")
	assert.Contains(t, result, "+++ current")
	assert.Contains(t, result, "-line2")
	assert.Contains(t, result, "+modified")
}

func TestUnified_OnlyTouchesChangedHunks(t *testing.T) {
	lines := make([]string, 0, 40)
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("line%d", i))
	}
	baseline := []byte(strings.Join(lines, "\n") + "\n")
	lines[10] = "changed"
	current := []byte(strings.Join(lines, "\n") + "\n")

	result := Unified(baseline, current, "baseline", "current")
	require.NotEmpty(t, result)

	// far-away unchanged lines fall outside the hunk's context window
	assert.NotContains(t, result, " line0\n")
	assert.Contains(t, result, "-line10")
	assert.Contains(t, result, "+changed")
	// nearby lines stay in as context
	assert.Contains(t, result, " line9")
	assert.Contains(t, result, " line11")
}

func TestUnified_MultipleHunks(t *testing.T) {
	lines := make([]string, 0, 40)
	for i := 0; i < 30; i++ {
		lines = append(lines, fmt.Sprintf("line%d", i))
	}
	baseline := []byte(strings.Join(lines, "\n") + "\n")
	lines[2] = "changed-near-top"
	lines[27] = "changed-near-bottom"
	current := []byte(strings.Join(lines, "\n") + "\n")

	result := Unified(baseline, current, "baseline", "current")

	assert.Equal(t, 2, strings.Count(result, "@@ -"), "two separated changes should render as two hunks")
}

func TestUnified_Truncation(t *testing.T) {
	var baselineLines, currentLines []string
	for i := 0; i < 11000; i++ {
		baselineLines = append(baselineLines, "baseline line")
		if i%2 == 0 {
			currentLines = append(currentLines, "current line")
		} else {
			currentLines = append(currentLines, "baseline line")
		}
	}

	result := Unified([]byte(strings.Join(baselineLines, "\n")), []byte(strings.Join(currentLines, "\n")), "baseline", "current")

	require.NotEmpty(t, result)
	assert.Contains(t, result, "truncated")
	assert.LessOrEqual(t, strings.Count(result, "\n"), maxOutputLines+10)
}

func TestUnified_EmptyBaseline(t *testing.T) {
	result := Unified([]byte(""), []byte("new content\n"), "baseline", "current")

	require.NotEmpty(t, result)
	assert.Contains(t, result, "+new content")
}

func TestUnified_Labels(t *testing.T) {
	result := Unified([]byte("old"), []byte("new"), "file1.jsonl", "file2.jsonl")

	assert.Contains(t, result, "--- file1.jsonl")
	assert.Contains(t, result, "+++ file2.jsonl")
}
