package planner

import "slices"

// PathNode is one frontier entry: the rightmost byte offset reachable from
// offset 0 with no gaps, and the minimal cumulative cost of reaching it.
type PathNode struct {
	Endpoint uint32
	Cost     float64
}

// Store is the frontier's ordered-collection contract. An implementation
// keeps at most one node per endpoint, never raises a stored cost, and
// supports the lookups the merge step needs. The backing structure - sorted
// sequence or balanced tree - is a pluggable strategy, not a rewrite.
type Store interface {
	// Len returns the number of live nodes.
	Len() int

	// Upsert records a path reaching endpoint. When a node for the endpoint
	// already exists its cost is lowered if cost is smaller, and left alone
	// otherwise.
	Upsert(endpoint uint32, cost float64)

	// PruneBelow drops every node with endpoint < limit. Such nodes can
	// never be extended again once chunks with start >= limit are the only
	// ones left.
	PruneBelow(limit uint32)

	// Get returns the cost stored for an exact endpoint.
	Get(endpoint uint32) (float64, bool)

	// NearestAtOrBelow returns the node with the largest endpoint <= key.
	NearestAtOrBelow(key uint32) (PathNode, bool)

	// MinCostInRange returns the smallest cost among nodes whose endpoint
	// lies in [lo, hi), if any.
	MinCostInRange(lo, hi uint32) (float64, bool)

	// Descending visits live nodes in decreasing endpoint order until the
	// callback returns false.
	Descending(visit func(PathNode) bool)
}

// listStore keeps the frontier as a plain slice sorted by descending
// endpoint. Every operation is a binary search plus a linear scan, which is
// fine for small frontiers and doubles as the reference implementation the
// tree-backed store is tested against.
type listStore struct {
	nodes []PathNode
}

// NewListStore creates the sorted-sequence frontier store.
func NewListStore() Store {
	return &listStore{nodes: []PathNode{}}
}

// find locates the endpoint in the descending-ordered slice. When not found,
// the returned index is where a node with that endpoint would be inserted.
func (store *listStore) find(endpoint uint32) (int, bool) {
	return slices.BinarySearchFunc(store.nodes, endpoint, func(n PathNode, target uint32) int {
		switch {
		case n.Endpoint > target:
			return -1
		case n.Endpoint < target:
			return 1
		default:
			return 0
		}
	})
}

func (store *listStore) Len() int {
	return len(store.nodes)
}

func (store *listStore) Upsert(endpoint uint32, cost float64) {
	idx, found := store.find(endpoint)
	if found {
		if cost < store.nodes[idx].Cost {
			store.nodes[idx].Cost = cost
		}

		return
	}

	store.nodes = slices.Insert(store.nodes, idx, PathNode{Endpoint: endpoint, Cost: cost})
}

func (store *listStore) PruneBelow(limit uint32) {
	// Dead nodes occupy the tail of the descending order.
	idx, _ := store.find(limit)

	for idx < len(store.nodes) && store.nodes[idx].Endpoint >= limit {
		idx++
	}

	store.nodes = store.nodes[:idx]
}

func (store *listStore) Get(endpoint uint32) (float64, bool) {
	idx, found := store.find(endpoint)
	if !found {
		return 0, false
	}

	return store.nodes[idx].Cost, true
}

func (store *listStore) NearestAtOrBelow(key uint32) (PathNode, bool) {
	idx, found := store.find(key)
	if found {
		return store.nodes[idx], true
	}

	if idx == len(store.nodes) {
		return PathNode{}, false
	}

	return store.nodes[idx], true
}

func (store *listStore) MinCostInRange(lo, hi uint32) (float64, bool) {
	idx, found := store.find(hi)
	if found {
		idx++
	}

	best := 0.0
	exists := false

	for ; idx < len(store.nodes) && store.nodes[idx].Endpoint >= lo; idx++ {
		if !exists || store.nodes[idx].Cost < best {
			best = store.nodes[idx].Cost
			exists = true
		}
	}

	return best, exists
}

func (store *listStore) Descending(visit func(PathNode) bool) {
	for _, node := range store.nodes {
		if !visit(node) {
			return
		}
	}
}
