package dag

import (
	"strconv"
	"sync"

	beamerrors "github.com/beamforge/beamforge/pkg/errors"
)

// Edge is a directed dependency between two nodes: From must be
// evaluated to produce Tos's input.
type Edge struct {
	From NodeID
	To   NodeID
}

// Pipeline is the mutable builder side of the DAG: the typed
// collection handles in pkg/flow insert nodes and connect edges here
// as a pipeline is constructed. Once built, Snapshot hands the
// planner an immutable copy so concurrent builder use (e.g. building
// two branches before a join) never races the planner's read.
//
// Grounded in the level-vs-builder split of the graph/planner pair in
// the upstream workflow engine this project borrows its DAG shape
// from: mutation lives behind a mutex, derived structure is computed
// once and handed out as a value.
type Pipeline struct {
	mu     sync.Mutex
	nodes  map[NodeID]Node
	edges  []Edge
	nextID NodeID
}

// NewPipeline returns an empty builder.
func NewPipeline() *Pipeline {
	return &Pipeline{nodes: make(map[NodeID]Node)}
}

// InsertNode adds n to the graph, assigning it a fresh NodeID, and
// returns that ID. Callers that already set n.ID are overridden: ID
// allocation is exclusively the Pipeline's responsibility.
func (p *Pipeline) InsertNode(n Node) NodeID {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	n.ID = id
	p.nodes[id] = n
	return id
}

// Connect records that from must be evaluated before to.
func (p *Pipeline) Connect(from, to NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edges = append(p.edges, Edge{From: from, To: to})
}

// Node returns the node registered under id.
func (p *Pipeline) Node(id NodeID) (Node, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.nodes[id]
	return n, ok
}

// Snapshot returns a point-in-time copy of the graph's nodes and
// edges, safe for the planner to walk without holding the builder's
// lock.
func (p *Pipeline) Snapshot() (map[NodeID]Node, []Edge) {
	p.mu.Lock()
	defer p.mu.Unlock()

	nodes := make(map[NodeID]Node, len(p.nodes))
	for id, n := range p.nodes {
		nodes[id] = n.Clone()
	}
	edges := append([]Edge(nil), p.edges...)
	return nodes, edges
}

// ValidateTerminal checks that terminal names a node this pipeline
// actually holds, returning a ConstructionError otherwise.
func (p *Pipeline) ValidateTerminal(terminal NodeID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.nodes[terminal]; !ok {
		return beamerrors.NewConstructionError(strconv.FormatUint(uint64(terminal), 10), "terminal node not found in pipeline", nil)
	}
	return nil
}
