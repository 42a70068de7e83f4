package flow

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamforge/beamforge/internal/checkpoint"
	"github.com/beamforge/beamforge/internal/combine"
	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/internal/runtime"
)

func intLess(a, b int) bool { return a < b }
func stringLess(a, b string) bool { return a < b }

// S1 — map/filter/flat-map chain.
func TestMapFilterFlatMapChainKeepsLongWords(t *testing.T) {
	p := dag.NewPipeline()
	src := FromSlice(p, []string{"The quick brown fox", "jumps over the lazy dog"})
	words := FlatMap(src, func(s string) []string { return strings.Fields(strings.ToLower(s)) })
	long := Filter(words, func(w string) bool { return len(w) >= 4 })

	out, err := CollectSeqSorted(context.Background(), long, stringLess)
	require.NoError(t, err)
	assert.Equal(t, []string{"brown", "jumps", "lazy", "over", "quick"}, out)
}

// S2 — group-by-key counts.
func TestGroupByKeyCounts(t *testing.T) {
	p := dag.NewPipeline()
	src := FromSlice(p, []string{"a", "b", "a", "c", "b"})
	keyed := KeyBy(src, func(s string) string { return s })
	grouped := GroupByKey(keyed)
	counted := MapValues(grouped, func(vs []string) int { return len(vs) })

	rows, err := CollectParSortedByKey(context.Background(), counted, 4, stringLess)
	require.NoError(t, err)

	got := map[string]int{}
	for _, r := range rows {
		got[r.Key] = r.Value
	}
	assert.Equal(t, map[string]int{"a": 2, "b": 2, "c": 1}, got)
}

// S3 — lifted ≡ direct Count.
func TestLiftedCombineAgreesWithDirectCombine(t *testing.T) {
	var rows []Pair[int, int]
	for n := 0; n < 100; n++ {
		rows = append(rows, Pair[int, int]{Key: n % 5, Value: 1})
	}

	p1 := dag.NewPipeline()
	direct := CombineValuesOnPairs[int, int, uint64, uint64](FromSlice(p1, rows), combine.Count[int]{})
	directOut, err := CollectParSortedByKey(context.Background(), direct, 3, intLess)
	require.NoError(t, err)

	p2 := dag.NewPipeline()
	grouped := GroupByKey(FromSlice(p2, rows))
	lifted := CombineValues[int, int, uint64, uint64](grouped, combine.Count[int]{})
	liftedOut, err := CollectParSortedByKey(context.Background(), lifted, 3, intLess)
	require.NoError(t, err)

	want := []Pair[int, uint64]{{0, 20}, {1, 20}, {2, 20}, {3, 20}, {4, 20}}
	assert.Equal(t, want, directOut)
	assert.Equal(t, want, liftedOut)
}

// S4 — global sum with fanout.
func TestCombineGloballySumWithFanout(t *testing.T) {
	rows := make([]int, 10_000)
	for i := range rows {
		rows[i] = i
	}
	p := dag.NewPipeline()
	fanout := 3
	sum := CombineGlobally[int, int, int](FromSlice(p, rows), combine.NewSum(0, func(a, b int) int { return a + b }), &fanout)

	out, err := CollectPar(context.Background(), sum, 4)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 49_995_000, out[0])
}

// S5 — joins.
func TestJoinFamily(t *testing.T) {
	left := []Pair[string, int]{{"a", 1}, {"a", 2}, {"b", 3}}
	right := []Pair[string, string]{{"a", "x"}, {"c", "y"}, {"a", "z"}, {"b", "w"}}

	less := func(a, b joined[string, int, string]) bool {
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if a.Left != b.Left {
			return a.Left < b.Left
		}
		return a.Right < b.Right
	}

	pInner := dag.NewPipeline()
	inner := InnerJoin(FromSlice(pInner, left), FromSlice(dag.NewPipeline(), right))
	innerOut, err := CollectSeqSorted(context.Background(), inner, less)
	require.NoError(t, err)
	assert.Equal(t, []joined[string, int, string]{
		{Key: "a", Left: 1, HasLeft: true, Right: "x", HasRight: true},
		{Key: "a", Left: 1, HasLeft: true, Right: "z", HasRight: true},
		{Key: "a", Left: 2, HasLeft: true, Right: "x", HasRight: true},
		{Key: "a", Left: 2, HasLeft: true, Right: "z", HasRight: true},
		{Key: "b", Left: 3, HasLeft: true, Right: "w", HasRight: true},
	}, innerOut)

	pLeft := dag.NewPipeline()
	leftJoin := LeftJoin(FromSlice(pLeft, left), FromSlice(dag.NewPipeline(), right))
	leftOut, err := CollectSeqSorted(context.Background(), leftJoin, less)
	require.NoError(t, err)
	for _, row := range leftOut {
		assert.True(t, row.HasLeft)
	}
	assert.Len(t, leftOut, 5) // no left-only keys in this fixture

	pRight := dag.NewPipeline()
	rightJoin := RightJoin(FromSlice(pRight, left), FromSlice(dag.NewPipeline(), right))
	rightOut, err := CollectSeqSorted(context.Background(), rightJoin, less)
	require.NoError(t, err)
	assert.Contains(t, rightOut, joined[string, int, string]{Key: "c", Right: "y", HasRight: true})

	pFull := dag.NewPipeline()
	fullJoin := FullJoin(FromSlice(pFull, left), FromSlice(dag.NewPipeline(), right))
	fullOut, err := CollectSeqSorted(context.Background(), fullJoin, less)
	require.NoError(t, err)
	assert.Equal(t, rightOut, fullOut) // no left-only keys, so full == right in this fixture
}

// Invariant 1 — sequential and parallel agree up to multiset equality.
func TestSequentialAndParallelAgreeAsMultisets(t *testing.T) {
	p := dag.NewPipeline()
	src := FromSlice(p, []int{5, 3, 8, 1, 9, 2, 7, 4, 6, 0})
	doubled := Map(src, func(n int) int { return n * 2 })

	seqOut, err := CollectSeq(context.Background(), doubled)
	require.NoError(t, err)
	parOut, err := CollectPar(context.Background(), doubled, 4)
	require.NoError(t, err)

	sort.Ints(seqOut)
	sort.Ints(parOut)
	assert.Equal(t, seqOut, parOut)
}

// Invariant 2 — sorted collection is byte-for-byte stable regardless
// of sequential or parallel execution.
func TestSortedCollectionIsStableAcrossModes(t *testing.T) {
	p := dag.NewPipeline()
	src := FromSlice(p, []int{5, 3, 8, 1, 9, 2, 7, 4, 6, 0})

	seqOut, err := CollectSeqSorted(context.Background(), src, intLess)
	require.NoError(t, err)
	parOut, err := CollectParSorted(context.Background(), src, 4, intLess)
	require.NoError(t, err)

	assert.Equal(t, seqOut, parOut)
}

// Invariant 3 — fusion preserves semantics: the planner fuses the
// adjacent Filter and Map into one node, and the fused chain still
// produces the rows of the two operators applied in order.
func TestFusionPreservesSemantics(t *testing.T) {
	p := dag.NewPipeline()
	src := FromSlice(p, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	filtered := Filter(src, func(n int) bool { return n%2 == 0 })
	mapped := Map(filtered, func(n int) int { return n * 10 })

	explanation, err := Explain(mapped)
	require.NoError(t, err)
	fused := false
	for _, step := range explanation.Steps {
		if step.Pass == "fuse_stateless" {
			fused = step.NodesBefore > step.NodesAfter
		}
	}
	assert.True(t, fused, "adjacent stateless ops should fuse into one node")

	out, err := CollectSeqSorted(context.Background(), mapped, intLess)
	require.NoError(t, err)
	assert.Equal(t, []int{20, 40, 60, 80, 100}, out)
}

// Invariant 5 — combiner associativity/commutativity under random
// partitioning: merge's result must not depend on how the input was
// split, for a fixed input multiset.
func TestCombinerMergeIsAssociativeUnderRandomPartitioning(t *testing.T) {
	values := make([]int, 97)
	for i := range values {
		values[i] = i + 1
	}
	want := 0
	for _, v := range values {
		want += v
	}

	g := combine.NewGlobal[int, int, int](combine.NewSum(0, func(a, b int) int { return a + b }))
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		shuffled := append([]int(nil), values...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		numParts := 1 + rng.Intn(5)
		var accs []int
		start := 0
		for part := 0; part < numParts; part++ {
			size := len(shuffled) / numParts
			if part == numParts-1 {
				size = len(shuffled) - start
			}
			accs = append(accs, g.Local(shuffled[start:start+size]))
			start += size
		}
		got := g.Finish(g.MergeAll(accs))
		assert.Equal(t, want, got)
	}
}

// Invariant 6 — global combiner emits exactly one element on empty
// input.
func TestCombineGloballyEmitsOneElementOnEmptyInput(t *testing.T) {
	p := dag.NewPipeline()
	empty := FromSlice(p, []int{})
	sum := CombineGlobally[int, int, int](empty, combine.NewSum(0, func(a, b int) int { return a + b }), nil)

	out, err := CollectSeq(context.Background(), sum)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0])
}

// Invariant 9 — checkpoint round-trip exercised through a real
// runtime.Execute run: after executing with checkpointing enabled, a
// saved checkpoint must load back to the recorded progress.
func TestCheckpointRoundTripsThroughExecute(t *testing.T) {
	dir := t.TempDir()
	mgr, err := checkpoint.NewManager(checkpoint.Config{
		Enabled:        true,
		Directory:      dir,
		MaxCheckpoints: 10,
		Policy:         checkpoint.Policy{AfterEveryBarrier: true},
	})
	require.NoError(t, err)

	p := dag.NewPipeline()
	src := FromSlice(p, []string{"a", "b", "a", "c"})
	keyed := KeyBy(src, func(s string) string { return s })
	grouped := GroupByKey(keyed)

	_, err = Run(context.Background(), grouped, runtime.Options{
		Mode:       runtime.Sequential,
		PipelineID: "checkpoint-roundtrip",
		Checkpoint: mgr,
	})
	require.NoError(t, err)

	latest, err := mgr.FindLatest("checkpoint-roundtrip")
	require.NoError(t, err)
	require.NotEmpty(t, latest)

	loaded, err := mgr.Load(latest)
	require.NoError(t, err)
	assert.Equal(t, "checkpoint-roundtrip", loaded.PipelineID)
}

// Invariant 10 — reservoir sampling is deterministic for a fixed
// (k, seed, input multiset) across sequential and parallel runs.
func TestReservoirSamplingIsDeterministicAcrossModes(t *testing.T) {
	values := make([]int, 500)
	for i := range values {
		values[i] = i
	}
	hash := func(v int) uint64 { return uint64(v)*2654435761 + 1 }
	sampler := combine.NewReservoir(5, 42, hash)

	p1 := dag.NewPipeline()
	seqSample := CombineGlobally[int, combine.ReservoirAcc[int], []int](FromSlice(p1, values), sampler, nil)
	seqOut, err := CollectSeq(context.Background(), seqSample)
	require.NoError(t, err)

	p2 := dag.NewPipeline()
	parSample := CombineGlobally[int, combine.ReservoirAcc[int], []int](FromSlice(p2, values), sampler, nil)
	parOut, err := CollectPar(context.Background(), parSample, 4)
	require.NoError(t, err)

	require.Len(t, seqOut, 1)
	require.Len(t, parOut, 1)
	assert.ElementsMatch(t, seqOut[0], parOut[0])
}

func TestFromSliceAndCollectSeqUnderDeadlineContext(t *testing.T) {
	p := dag.NewPipeline()
	src := FromSlice(p, []int{1, 2, 3})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := CollectSeq(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
}
