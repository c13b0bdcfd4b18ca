package planner_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanplan/spanplan/pkg/chunk"
	"github.com/spanplan/spanplan/pkg/planner"
)

// flatCost prices every chunk the same regardless of size.
func flatCost(cost float64) chunk.CostFunc {
	return func(uint32) float64 {
		return cost
	}
}

func TestFeedExtendsCheapestReachableNode(t *testing.T) {
	t.Parallel()

	store := planner.NewTreeStore()
	store.Upsert(200, 2.0)
	store.Upsert(100, 1.0)

	engine := planner.NewEngine(flatCost(3.0), planner.WithStore(store))
	engine.Feed(chunk.Chunk{Start: 50, End: 300})
	engine.Validate()

	// Both live nodes fall inside [50, 300); the cheapest one wins and both
	// stay live for later chunks.
	assert.Equal(t, []planner.PathNode{
		{Endpoint: 300, Cost: 4.0},
		{Endpoint: 200, Cost: 2.0},
		{Endpoint: 100, Cost: 1.0},
	}, collect(engine.Frontier()))
}

func TestFeedDropsDeadNodes(t *testing.T) {
	t.Parallel()

	store := planner.NewTreeStore()
	store.Upsert(200, 2.0)
	store.Upsert(100, 1.0)

	engine := planner.NewEngine(flatCost(3.0), planner.WithStore(store))
	engine.Feed(chunk.Chunk{Start: 300, End: 500})
	engine.Validate()

	// Every node sits below the chunk's start: all dead, nothing reachable,
	// the chunk contributes nothing.
	assert.Equal(t, 0, engine.Frontier().Len())
}

func TestFeedMergesEqualEndpoint(t *testing.T) {
	t.Parallel()

	store := planner.NewTreeStore()
	store.Upsert(200, 2.0)
	store.Upsert(100, 1.0)

	engine := planner.NewEngine(flatCost(0.5), planner.WithStore(store))
	engine.Feed(chunk.Chunk{Start: 100, End: 200})
	engine.Validate()

	// The extension 1.0+0.5 beats the node already sitting at 200.
	assert.Equal(t, []planner.PathNode{
		{Endpoint: 200, Cost: 1.5},
		{Endpoint: 100, Cost: 1.0},
	}, collect(engine.Frontier()))
}

func TestFeedKeepsCheaperExactNode(t *testing.T) {
	t.Parallel()

	store := planner.NewTreeStore()
	store.Upsert(200, 1.0)
	store.Upsert(100, 1.0)

	engine := planner.NewEngine(flatCost(0.5), planner.WithStore(store))
	engine.Feed(chunk.Chunk{Start: 100, End: 200})
	engine.Validate()

	// The extension 1.0+0.5 loses to the existing node at 200.
	cost, ok := engine.Best(200)
	require.True(t, ok)
	assert.InDelta(t, 1.0, cost, storeCostDelta)
}

func TestFeedPanicsOnMalformedChunk(t *testing.T) {
	t.Parallel()

	engine := planner.NewEngine(flatCost(1.0))

	assert.Panics(t, func() { engine.Feed(chunk.Chunk{Start: 5, End: 5}) })
	assert.Panics(t, func() { engine.Feed(chunk.Chunk{Start: 9, End: 2}) })
}

func TestFeedPanicsOnOutOfOrderChunk(t *testing.T) {
	t.Parallel()

	engine := planner.NewEngine(flatCost(1.0))
	engine.Feed(chunk.Chunk{Start: 10, End: 20})

	assert.Panics(t, func() { engine.Feed(chunk.Chunk{Start: 5, End: 30}) })
}

func TestSolveSingleChunk(t *testing.T) {
	t.Parallel()

	cost, feasible := planner.Solve(10, flatCost(5.0), []chunk.Chunk{{Start: 0, End: 10}})
	require.True(t, feasible)
	assert.InDelta(t, 5.0, cost, storeCostDelta)
}

func TestSolveInfeasibleGap(t *testing.T) {
	t.Parallel()

	// No chunk crosses offset 5..6, so no gapless cover exists.
	_, feasible := planner.Solve(10, flatCost(1.0), []chunk.Chunk{
		{Start: 0, End: 5},
		{Start: 6, End: 10},
	})
	assert.False(t, feasible)
}

func TestSolveEmptyChunks(t *testing.T) {
	t.Parallel()

	_, feasible := planner.Solve(10, flatCost(1.0), nil)
	assert.False(t, feasible)
}

func TestSolveZeroTotal(t *testing.T) {
	t.Parallel()

	// Covering nothing costs nothing, even with no chunks at all.
	cost, feasible := planner.Solve(0, flatCost(1.0), nil)
	require.True(t, feasible)
	assert.InDelta(t, 0.0, cost, storeCostDelta)
}

func TestSolvePrefersFewerRoundTrips(t *testing.T) {
	t.Parallel()

	cost, err := chunk.NewCostFunc(0.1, 1000)
	require.NoError(t, err)

	chunks, err := chunk.Normalize([]chunk.Chunk{
		{Start: 0, End: 50},
		{Start: 50, End: 100},
		{Start: 0, End: 100},
	})
	require.NoError(t, err)

	// One whole-range chunk: 0.2 + 0.1 = 0.3. Two halves: 0.4 + 0.1 = 0.5.
	best, feasible := planner.Solve(100, cost, chunks)
	require.True(t, feasible)
	assert.InDelta(t, 0.3, best, storeCostDelta)
}

func TestSolveOverlapBeatsExactCover(t *testing.T) {
	t.Parallel()

	cost, err := chunk.NewCostFunc(1.0, 1000)
	require.NoError(t, err)

	chunks, err := chunk.Normalize([]chunk.Chunk{
		{Start: 0, End: 10},
		{Start: 10, End: 20},
		{Start: 20, End: 30},
		{Start: 5, End: 30},
	})
	require.NoError(t, err)

	// Three exact tiles pay three round trips (6.03); the big overlapping
	// chunk on top of the first tile pays two (4.035).
	best, feasible := planner.Solve(30, cost, chunks)
	require.True(t, feasible)
	assert.InDelta(t, 4.035, best, storeCostDelta)
}

func TestSolveOverrunNeverEndsAtTotal(t *testing.T) {
	t.Parallel()

	// The only cover overshoots total; a path ending beyond total is not a
	// cover of [0, total).
	_, feasible := planner.Solve(10, flatCost(1.0), []chunk.Chunk{{Start: 0, End: 15}})
	assert.False(t, feasible)
}

func TestSolveListAndTreeAgree(t *testing.T) {
	t.Parallel()

	const (
		rounds    = 200
		maxChunks = 40
		maxTotal  = 120
	)

	rng := rand.New(rand.NewSource(7))

	cost, err := chunk.NewCostFunc(0.05, 512)
	require.NoError(t, err)

	for range rounds {
		total := uint32(rng.Int31n(maxTotal) + 1)
		raw := make([]chunk.Chunk, 0, maxChunks)

		for range rng.Int31n(maxChunks) {
			start := uint32(rng.Int31n(maxTotal))
			end := start + uint32(rng.Int31n(maxTotal/2)+1)
			raw = append(raw, chunk.Chunk{Start: start, End: end})
		}

		chunks, normErr := chunk.Normalize(raw)
		require.NoError(t, normErr)

		listBest, listOK := planner.Solve(total, cost, chunks,
			planner.WithStore(planner.NewListStore()))
		treeBest, treeOK := planner.Solve(total, cost, chunks,
			planner.WithStore(planner.NewTreeStore()))

		require.Equal(t, listOK, treeOK)

		if listOK {
			require.InDelta(t, listBest, treeBest, storeCostDelta)
		}
	}
}

func TestDump(t *testing.T) {
	t.Parallel()

	engine := planner.NewEngine(flatCost(1.5))
	engine.Feed(chunk.Chunk{Start: 0, End: 10})

	assert.Equal(t, "10 1.5\n0 0\n", engine.Dump())
}

func TestSwept(t *testing.T) {
	t.Parallel()

	engine := planner.NewEngine(flatCost(1.0))
	assert.Equal(t, 0, engine.Swept())

	engine.Feed(chunk.Chunk{Start: 0, End: 5})
	engine.Feed(chunk.Chunk{Start: 0, End: 10})
	assert.Equal(t, 2, engine.Swept())
}

func BenchmarkSolve(b *testing.B) {
	const (
		total     = 1 << 20
		tileSize  = 256
		overlap   = 4096
		benchSeed = 3
	)

	cost, err := chunk.NewCostFunc(0.01, 1<<20)
	if err != nil {
		b.Fatal(err)
	}

	rng := rand.New(rand.NewSource(benchSeed))
	raw := make([]chunk.Chunk, 0, total/tileSize+total/overlap)

	for start := uint32(0); start < total; start += tileSize {
		raw = append(raw, chunk.Chunk{Start: start, End: start + tileSize})
	}

	for start := uint32(0); start < total-overlap; start += overlap {
		jitter := uint32(rng.Int31n(overlap))
		raw = append(raw, chunk.Chunk{Start: start, End: start + overlap + jitter})
	}

	chunks, err := chunk.Normalize(raw)
	if err != nil {
		b.Fatal(err)
	}

	for _, bench := range []struct {
		name    string
		factory func() planner.Store
	}{
		{"list", planner.NewListStore},
		{"tree", planner.NewTreeStore},
	} {
		b.Run(bench.name, func(b *testing.B) {
			for range b.N {
				planner.Solve(total, cost, chunks, planner.WithStore(bench.factory()))
			}
		})
	}
}
