// Package planner computes the minimum cost of reconstructing a byte range
// from overlapping, variable-cost chunks. It sweeps a sorted chunk sequence
// left to right, maintaining the frontier: the Pareto-optimal set of
// reachable endpoints and the minimal cost of reaching each one.
package planner

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spanplan/spanplan/pkg/chunk"
)

// Engine merges chunks into the frontier one at a time. It owns all live
// path nodes exclusively; the sweep is single-threaded and synchronous.
//
// Chunks must arrive in ascending (start, end) order with duplicates
// removed - the chunk package's Normalize produces exactly that. Feeding an
// out-of-order or malformed chunk is a precondition failure and panics.
type Engine struct {
	frontier  Store
	cost      chunk.CostFunc
	log       *slog.Logger
	lastStart uint32
	swept     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore selects the frontier backing store. The default is the
// tree-backed store.
func WithStore(store Store) Option {
	return func(engine *Engine) {
		engine.frontier = store
	}
}

// WithLogger attaches a structured logger for debug-level sweep reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(engine *Engine) {
		engine.log = logger
	}
}

// NewEngine creates an engine around the given cost function.
func NewEngine(cost chunk.CostFunc, opts ...Option) *Engine {
	engine := &Engine{
		frontier:  NewTreeStore(),
		cost:      cost,
		log:       slog.New(slog.DiscardHandler),
		lastStart: 0,
		swept:     0,
	}

	for _, opt := range opts {
		opt(engine)
	}

	// The empty path: offset 0 is reachable at zero cost. Chunks with
	// start == 0 extend this node and become the classic frontier seeds;
	// the first chunk with start > 0 prunes it.
	engine.frontier.Upsert(0, 0)

	return engine
}

// Frontier exposes the live frontier for inspection and rendering.
func (engine *Engine) Frontier() Store {
	return engine.frontier
}

// Swept returns the number of chunks merged so far.
func (engine *Engine) Swept() int {
	return engine.swept
}

// Feed merges one chunk into the frontier.
//
// The frontier partitions against the chunk by endpoint: nodes below the
// chunk's start are dead and dropped; nodes inside [start, end) are
// extendable; a node exactly at end competes with the cheapest extension;
// nodes beyond end are untouched. Extendable nodes stay live - a later
// chunk may start below their endpoint and still use them - so the merge
// only ever adds or lowers the single node at the chunk's end.
func (engine *Engine) Feed(c chunk.Chunk) {
	if c.End <= c.Start {
		panic(fmt.Sprintf("planner: malformed chunk %s reached the engine", c))
	}

	if c.Start < engine.lastStart {
		panic(fmt.Sprintf("planner: chunk %s arrived out of order", c))
	}

	engine.lastStart = c.Start
	engine.swept++

	engine.frontier.PruneBelow(c.Start)

	cheapest, reachable := engine.frontier.MinCostInRange(c.Start, c.End)
	if !reachable {
		// No live path reaches into [start, end); the chunk contributes
		// nothing beyond the pruning above.
		return
	}

	engine.frontier.Upsert(c.End, cheapest+engine.cost(c.Size()))
}

// Best returns the minimal cost of a path that ends exactly at total, or
// false when the frontier never reached it.
func (engine *Engine) Best(total uint32) (float64, bool) {
	return engine.frontier.Get(total)
}

// Dump formats the live frontier in descending endpoint order. Useful for
// error messages and debugging.
func (engine *Engine) Dump() string {
	var builder strings.Builder

	engine.frontier.Descending(func(node PathNode) bool {
		fmt.Fprintf(&builder, "%d %g\n", node.Endpoint, node.Cost)

		return true
	})

	return builder.String()
}

// Validate checks the frontier invariants: strictly descending endpoints
// (uniqueness) and no node below the most recently swept chunk's start.
func (engine *Engine) Validate() {
	prev := int64(-1)

	engine.frontier.Descending(func(node PathNode) bool {
		if prev >= 0 && int64(node.Endpoint) >= prev {
			panic(fmt.Sprintf("planner: duplicate or misordered frontier endpoint %d", node.Endpoint))
		}

		if node.Endpoint < engine.lastStart {
			panic(fmt.Sprintf("planner: dead frontier endpoint %d survived pruning below %d",
				node.Endpoint, engine.lastStart))
		}

		prev = int64(node.Endpoint)

		return true
	})
}

// Solve computes the minimum total cost of any gapless chunk sequence
// covering exactly [0, total). The chunks must already be normalized
// (ascending by (start, end), de-duplicated); the cost function prices one
// chunk by its size. The second return value is false when no cover exists -
// infeasibility is a result, not an error.
func Solve(total uint32, cost chunk.CostFunc, chunks []chunk.Chunk, opts ...Option) (float64, bool) {
	engine := NewEngine(cost, opts...)

	for _, c := range chunks {
		engine.Feed(c)
	}

	best, feasible := engine.Best(total)

	engine.log.Debug("sweep finished",
		slog.Uint64("total", uint64(total)),
		slog.Int("chunks", engine.swept),
		slog.Int("frontier", engine.frontier.Len()),
		slog.Bool("feasible", feasible),
	)

	return best, feasible
}
