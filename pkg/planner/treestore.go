package planner

import "github.com/spanplan/spanplan/pkg/avltree"

// treeStore backs the frontier with the AVL-balanced ordered index, giving
// logarithmic insert and lookup as the frontier grows. Range scans walk
// iterators from the nearest bound instead of rescanning the whole set.
type treeStore struct {
	tree *avltree.Tree
}

// NewTreeStore creates the tree-backed frontier store.
func NewTreeStore() Store {
	return NewTreeStoreWithAllocator(avltree.NewAllocator())
}

// NewTreeStoreWithAllocator creates the tree-backed frontier store on an
// existing node allocator, so callers can tune or reuse it.
func NewTreeStoreWithAllocator(alloc *avltree.Allocator) Store {
	return &treeStore{tree: avltree.NewTree(alloc)}
}

func (store *treeStore) Len() int {
	return store.tree.Len()
}

func (store *treeStore) Upsert(endpoint uint32, cost float64) {
	if stored := store.tree.Get(endpoint); stored != nil {
		// Duplicate endpoints are updated in place, never re-inserted, and
		// a stored cost only ever goes down.
		if cost < *stored {
			*stored = cost
		}

		return
	}

	inserted, _ := store.tree.Insert(avltree.Item{Key: endpoint, Cost: cost})
	if !inserted {
		panic("planner: frontier endpoint vanished during upsert")
	}
}

func (store *treeStore) PruneBelow(limit uint32) {
	for iter := store.tree.Min(); !iter.Limit() && iter.Item().Key < limit; iter = store.tree.Min() {
		store.tree.DeleteWithIterator(iter)
	}
}

func (store *treeStore) Get(endpoint uint32) (float64, bool) {
	stored := store.tree.Get(endpoint)
	if stored == nil {
		return 0, false
	}

	return *stored, true
}

func (store *treeStore) NearestAtOrBelow(key uint32) (PathNode, bool) {
	iter := store.tree.FindLE(key)
	if iter.NegativeLimit() || iter.Limit() {
		return PathNode{}, false
	}

	item := iter.Item()

	return PathNode{Endpoint: item.Key, Cost: item.Cost}, true
}

func (store *treeStore) MinCostInRange(lo, hi uint32) (float64, bool) {
	best := 0.0
	exists := false

	for iter := store.tree.FindGE(lo); !iter.Limit(); iter = iter.Next() {
		item := iter.Item()
		if item.Key >= hi {
			break
		}

		if !exists || item.Cost < best {
			best = item.Cost
			exists = true
		}
	}

	return best, exists
}

func (store *treeStore) Descending(visit func(PathNode) bool) {
	for iter := store.tree.Max(); !iter.NegativeLimit(); iter = iter.Prev() {
		item := iter.Item()
		if !visit(PathNode{Endpoint: item.Key, Cost: item.Cost}) {
			return
		}
	}
}
