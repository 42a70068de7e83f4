// Package diff renders a unified diff between two pipeline outputs,
// used by flowctl's run command to show how a run's result drifted
// from a previously saved baseline.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxOutputLines  = 10000
	contextLines    = 3
	truncateMessage = "... (diff truncated, exceeds 10,000 lines) ..."
)

// Unified compares baseline against current line by line and renders
// the differences in unified-diff form, grouped into hunks with a
// few lines of surrounding context rather than one hunk covering the
// whole file. Returns "" when the two are identical.
func Unified(baseline, current []byte, baselineLabel, currentLabel string) string {
	if string(baseline) == string(current) {
		return ""
	}

	hunks := buildHunks(lineOps(string(baseline), string(current)), contextLines)

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n", baselineLabel)
	fmt.Fprintf(&out, "+++ %s\n", currentLabel)

	lineCount := 2
	for _, h := range hunks {
		rendered := h.render()
		if n := strings.Count(rendered, "\n"); lineCount+n > maxOutputLines {
			out.WriteString(truncateMessage + "\n")
			return out.String()
		} else {
			out.WriteString(rendered)
			lineCount += n
		}
	}
	return out.String()
}

type lineOp struct {
	kind diffmatchpatch.Operation
	text string
}

// lineOps runs word-level diffing between baseline and current, then
// flattens the result onto line boundaries so hunks can be built one
// line at a time.
func lineOps(baseline, current string) []lineOp {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(baseline, current, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var ops []lineOp
	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			ops = append(ops, lineOp{kind: d.Type, text: line})
		}
	}
	return ops
}

// hunk is one contiguous block of context and changed lines, along
// with the baseline/current line ranges it spans.
type hunk struct {
	baselineStart, baselineCount int
	currentStart, currentCount   int
	lines                        []lineOp
}

func (h hunk) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.baselineStart, h.baselineCount, h.currentStart, h.currentCount)
	for _, op := range h.lines {
		switch op.kind {
		case diffmatchpatch.DiffEqual:
			b.WriteString(" " + op.text + "\n")
		case diffmatchpatch.DiffDelete:
			b.WriteString("-" + op.text + "\n")
		case diffmatchpatch.DiffInsert:
			b.WriteString("+" + op.text + "\n")
		}
	}
	return b.String()
}

// buildHunks groups a flat line-op sequence into hunks, carrying at
// most context lines of unchanged text on either side of a change and
// closing a hunk once a run of unchanged lines exceeds 2*context.
func buildHunks(ops []lineOp, context int) []hunk {
	var hunks []hunk
	var cur hunk
	open := false
	trailingEqual := 0
	baselineLine, currentLine := 1, 1

	closeHunk := func() {
		if open {
			hunks = append(hunks, cur)
			cur = hunk{}
			open = false
		}
	}

	for i, op := range ops {
		switch op.kind {
		case diffmatchpatch.DiffEqual:
			if open {
				cur.lines = append(cur.lines, op)
				cur.baselineCount++
				cur.currentCount++
				trailingEqual++
				if trailingEqual > 2*context {
					drop := trailingEqual - context
					cur.lines = cur.lines[:len(cur.lines)-drop]
					cur.baselineCount -= drop
					cur.currentCount -= drop
					closeHunk()
					trailingEqual = 0
				}
			}
			baselineLine++
			currentLine++
		case diffmatchpatch.DiffDelete:
			if !open {
				openHunk(&cur, ops, i, context, baselineLine, currentLine)
				open = true
			}
			cur.lines = append(cur.lines, op)
			cur.baselineCount++
			baselineLine++
			trailingEqual = 0
		case diffmatchpatch.DiffInsert:
			if !open {
				openHunk(&cur, ops, i, context, baselineLine, currentLine)
				open = true
			}
			cur.lines = append(cur.lines, op)
			cur.currentCount++
			currentLine++
			trailingEqual = 0
		}
	}
	if open && trailingEqual > context {
		drop := trailingEqual - context
		cur.lines = cur.lines[:len(cur.lines)-drop]
		cur.baselineCount -= drop
		cur.currentCount -= drop
	}
	closeHunk()
	return hunks
}

// openHunk seeds a new hunk with up to context lines of equal text
// immediately preceding index i in ops.
func openHunk(h *hunk, ops []lineOp, i, context, baselineLine, currentLine int) {
	start := i - context
	if start < 0 {
		start = 0
	}
	lead := ops[start:i]
	h.lines = append(h.lines, lead...)
	h.baselineStart = baselineLine - len(lead)
	h.currentStart = currentLine - len(lead)
	h.baselineCount = len(lead)
	h.currentCount = len(lead)
}
