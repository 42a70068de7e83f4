package main

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/beamforge/beamforge/internal/combine"
	"github.com/beamforge/beamforge/internal/dag"
	"github.com/beamforge/beamforge/pkg/flow"
)

// FileStat describes one file in a git worktree at HEAD, as walked by
// loadCorpus: the analysis surface for the sample pipelines below.
type FileStat struct {
	Path  string
	Ext   string
	Size  int64
	Lines int
}

// loadCorpus opens the git repository at repoPath and walks its
// working tree at HEAD, building a FileStat for every regular,
// non-binary blob. go-git here plays the role of a Source adapter:
// the engine only ever sees the resulting []FileStat, never go-git's
// own types.
func loadCorpus(repoPath string) ([]FileStat, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", repoPath, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("load HEAD commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load HEAD tree: %w", err)
	}

	var stats []FileStat
	err = tree.Files().ForEach(func(f *object.File) error {
		isBinary, err := f.IsBinary()
		if err != nil || isBinary {
			return nil
		}
		lines, err := countLines(f)
		if err != nil {
			return nil
		}
		stats = append(stats, FileStat{
			Path:  f.Name,
			Ext:   strings.TrimPrefix(filepath.Ext(f.Name), "."),
			Size:  f.Size,
			Lines: lines,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk worktree: %w", err)
	}
	return stats, nil
}

func countLines(f *object.File) (int, error) {
	r, err := f.Reader()
	if err != nil {
		return 0, err
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return n, err
	}
	return n, nil
}

// analyzeCorpus builds the sample pipeline: lines per extension, a
// Sum combined directly on (extension, lines) pairs via
// CombineValuesOnPairs (no GroupByKey node, so the planner's lift pass
// leaves it as is), alongside a CombineGlobally TopK over file size,
// both reading the same []FileStat source.
func analyzeCorpus(stats []FileStat, topK int) (flow.PCollection[flow.Pair[string, int]], flow.PCollection[[]FileStat], error) {
	pipeline := dag.NewPipeline()
	src := flow.FromSlice(pipeline, stats)

	byExt := flow.KeyBy(src, func(f FileStat) string { return f.Ext })
	lines := flow.MapValues(byExt, func(f FileStat) int { return f.Lines })
	linesByExt := flow.CombineValuesOnPairs[string, int, int, int](lines, combine.NewSum(0, func(a, b int) int { return a + b }))

	top := flow.CombineGlobally[FileStat, combine.TopKAcc[FileStat], []FileStat](src, combine.NewTopK(topK, func(a, b FileStat) bool {
		return a.Size < b.Size
	}), nil)

	return linesByExt, top, nil
}

func printCorpusResult(out io.Writer, linesByExt []flow.Pair[string, int], largest []FileStat) {
	fmt.Fprintln(out, "lines by extension:")
	for _, row := range linesByExt {
		ext := row.Key
		if ext == "" {
			ext = "(none)"
		}
		fmt.Fprintf(out, "  .%-12s %8d\n", ext, row.Value)
	}
	fmt.Fprintln(out, "largest files:")
	for _, f := range largest {
		fmt.Fprintf(out, "  %10d bytes  %s\n", f.Size, f.Path)
	}
}
