package avltree

import (
	"maps"
	"math"

	"github.com/spanplan/spanplan/pkg/safeconv"
)

// growCapacityNumerator and growCapacityDenominator define the 3/2 growth factor for storage.
const (
	growCapacityNumerator   = 3
	growCapacityDenominator = 2
)

// Public definitions.

// Item is the record stored in each tree node: a path endpoint and the
// minimal cost known to reach it.
type Item struct {
	Key  uint32
	Cost float64
}

// Allocator is the allocator for nodes in a Tree.
type Allocator struct {
	storage              []node
	gaps                 map[uint32]bool
	hibernatedData       [hibernatedBuffers][]byte
	HibernationThreshold int
	hibernatedStorageLen int
	hibernatedGapsLen    int
}

// NewAllocator creates a new allocator for Tree nodes.
func NewAllocator() *Allocator {
	return &Allocator{
		storage:              []node{},
		gaps:                 map[uint32]bool{},
		hibernatedData:       [hibernatedBuffers][]byte{},
		HibernationThreshold: 0,
		hibernatedStorageLen: 0,
		hibernatedGapsLen:    0,
	}
}

// Size returns the currently allocated size.
func (allocator *Allocator) Size() int {
	return len(allocator.storage)
}

// Used returns the number of nodes contained in the allocator.
func (allocator *Allocator) Used() int {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	return len(allocator.storage) - len(allocator.gaps)
}

// Clone copies an existing Tree allocator.
func (allocator *Allocator) Clone() *Allocator {
	if allocator.storage == nil {
		panic("cannot clone a hibernated allocator")
	}

	newAllocator := &Allocator{
		HibernationThreshold: allocator.HibernationThreshold,
		storage:              make([]node, len(allocator.storage), cap(allocator.storage)),
		gaps:                 map[uint32]bool{},
		hibernatedData:       [hibernatedBuffers][]byte{},
		hibernatedStorageLen: 0,
		hibernatedGapsLen:    0,
	}
	copy(newAllocator.storage, allocator.storage)
	maps.Copy(newAllocator.gaps, allocator.gaps)

	return newAllocator
}

func (allocator *Allocator) malloc() uint32 {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	if len(allocator.gaps) > 0 {
		var key uint32

		for key = range allocator.gaps {
			break
		}

		delete(allocator.gaps, key)

		return key
	}

	nodeLen := len(allocator.storage)
	if nodeLen == 0 {
		// Zero is reserved: it doubles as the "no child" and "no parent" link.
		allocator.storage = append(allocator.storage, node{})
		nodeLen = 1
	}

	if nodeLen == negativeLimitNode-1 {
		// [math.MaxUint32] is reserved.
		panic("the size of the avltree allocator has reached the maximum value for uint32")
	}

	doAssert(nodeLen < negativeLimitNode)

	allocator.storage = append(allocator.storage, node{})

	return safeconv.MustIntToUint32(nodeLen)
}

func (allocator *Allocator) free(nodeIdx uint32) {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}

	if nodeIdx == 0 {
		panic("node #0 is special and cannot be deallocated")
	}

	_, exists := allocator.gaps[nodeIdx]
	doAssert(!exists)

	allocator.storage[nodeIdx] = node{}

	allocator.gaps[nodeIdx] = true
}

// Tree is an AVL-balanced binary search tree keyed by path endpoint.
//
// Every node carries a balance factor - the height difference between its
// left and right subtrees - which is kept within {-1, 0, 1} by single and
// double rotations on insert and delete. Links are allocator indices rather
// than pointers; index 0 means "no node". Traversal and rebalancing are
// iterative, walking parent links, so the tree never recurses.
type Tree struct {
	// Nodes allocator.
	allocator *Allocator

	// Root of the tree.
	root uint32

	// The minimum and maximum nodes under the tree.
	minNode, maxNode uint32

	// Number of nodes under root, including the root.
	count int32
}

// NewTree creates a new AVL binary tree.
func NewTree(allocator *Allocator) *Tree {
	return &Tree{allocator: allocator, root: 0, minNode: 0, maxNode: 0, count: 0}
}

func (tree *Tree) storage() []node {
	return tree.allocator.storage
}

// Allocator returns the bound nodes allocator.
func (tree *Tree) Allocator() *Allocator {
	return tree.allocator
}

// Len returns the number of elements in the tree.
func (tree *Tree) Len() int {
	return int(tree.count)
}

// Erase removes all the nodes from the tree.
func (tree *Tree) Erase() {
	nodes := make([]uint32, 0, tree.count)

	for iter := tree.Min(); !iter.Limit(); iter = iter.Next() {
		nodes = append(nodes, iter.node)
	}

	for _, nd := range nodes {
		tree.allocator.free(nd)
	}

	tree.root = 0
	tree.minNode = 0
	tree.maxNode = 0
	tree.count = 0
}

// Get is a convenience function for finding an element equal to Key. Returns
// a mutable pointer to the stored cost, or nil if not found.
func (tree *Tree) Get(key uint32) *float64 {
	nodeIdx, exact := tree.findGE(key)
	if exact {
		return &tree.storage()[nodeIdx].item.Cost
	}

	return nil
}

// Min creates an iterator that points to the minimum item in the tree.
// If the tree is empty, returns Limit().
func (tree *Tree) Min() Iterator {
	return Iterator{tree, tree.minNode}
}

// Max creates an iterator that points at the maximum item in the tree.
//
// If the tree is empty, returns NegativeLimit().
func (tree *Tree) Max() Iterator {
	if tree.maxNode == 0 {
		return Iterator{tree, negativeLimitNode}
	}

	return Iterator{tree, tree.maxNode}
}

// Limit creates an iterator that points beyond the maximum item in the tree.
func (tree *Tree) Limit() Iterator {
	return Iterator{tree, 0}
}

// NegativeLimit creates an iterator that points before the minimum item in the tree.
func (tree *Tree) NegativeLimit() Iterator {
	return Iterator{tree, negativeLimitNode}
}

// FindGE finds the smallest element N such that N >= Key, and returns the
// iterator pointing to the element. If no such element is found,
// returns tree.Limit().
func (tree *Tree) FindGE(key uint32) Iterator {
	nodeIdx, _ := tree.findGE(key)

	return Iterator{tree, nodeIdx}
}

// FindLE finds the largest element N such that N <= Key, and returns the
// iterator pointing to the element. If no such element is found,
// returns iter.NegativeLimit().
func (tree *Tree) FindLE(key uint32) Iterator {
	nodeIdx, exact := tree.findGE(key)
	if exact {
		return Iterator{tree, nodeIdx}
	}

	if nodeIdx != 0 {
		return Iterator{tree, doPrev(nodeIdx, tree.storage())}
	}

	if tree.maxNode == 0 {
		return Iterator{tree, negativeLimitNode}
	}

	return Iterator{tree, tree.maxNode}
}

// Insert an item. If an item with the same key is already in the tree, do
// nothing and return false: duplicate keys must be updated in place through
// Get() or an iterator, never re-inserted.
func (tree *Tree) Insert(item Item) (bool, Iterator) {
	nodeIdx := tree.doInsert(item)
	if nodeIdx == 0 {
		return false, Iterator{}
	}

	tree.retraceInsert(nodeIdx)

	return true, Iterator{tree, nodeIdx}
}

// DeleteWithKey deletes an item with the given Key. Returns true iff the item
// was found.
func (tree *Tree) DeleteWithKey(key uint32) bool {
	nodeIdx, exact := tree.findGE(key)
	if exact {
		tree.doDelete(nodeIdx)

		return true
	}

	return false
}

// DeleteWithIterator deletes the current item.
//
// REQUIRES: !iter.Limit() && !iter.NegativeLimit().
func (tree *Tree) DeleteWithIterator(iter Iterator) {
	doAssert(!iter.Limit() && !iter.NegativeLimit())
	tree.doDelete(iter.node)
}

// Iterator allows scanning tree elements in sort order.
//
// Iterator invalidation rule is the same as C++ std::map<>'s. That
// is, if you delete the element that an iterator points to, the
// iterator becomes invalid. For other operation types, the iterator
// remains valid.
type Iterator struct {
	tree *Tree
	node uint32
}

// Equal checks for the underlying nodes equality.
func (iter Iterator) Equal(other Iterator) bool {
	return iter.node == other.node
}

// Limit checks if the iterator points beyond the max element in the tree.
func (iter Iterator) Limit() bool {
	return iter.node == 0
}

// Min checks if the iterator points to the minimum element in the tree.
func (iter Iterator) Min() bool {
	return iter.node == iter.tree.minNode
}

// Max checks if the iterator points to the maximum element in the tree.
func (iter Iterator) Max() bool {
	return iter.node == iter.tree.maxNode
}

// NegativeLimit checks if the iterator points before the minimum element in the tree.
func (iter Iterator) NegativeLimit() bool {
	return iter.node == negativeLimitNode
}

// Item returns the current element. Allows mutating the node's cost; the key
// must never be changed in place.
//
// The result is nil if iter.Limit() || iter.NegativeLimit().
func (iter Iterator) Item() *Item {
	if iter.Limit() || iter.NegativeLimit() {
		return nil
	}

	return &iter.tree.storage()[iter.node].item
}

// Next creates a new iterator that points to the successor of the current
// element. Together with the starting lookup this enumerates a contiguous key
// range in ascending order without rescanning the tree.
//
// REQUIRES: !iter.Limit().
func (iter Iterator) Next() Iterator {
	doAssert(!iter.Limit())

	if iter.NegativeLimit() {
		return Iterator{iter.tree, iter.tree.minNode}
	}

	return Iterator{iter.tree, doNext(iter.node, iter.tree.storage())}
}

// Prev creates a new iterator that points to the predecessor of the current
// node. The descending counterpart of Next().
//
// REQUIRES: !iter.NegativeLimit().
func (iter Iterator) Prev() Iterator {
	doAssert(!iter.NegativeLimit())

	if !iter.Limit() {
		return Iterator{iter.tree, doPrev(iter.node, iter.tree.storage())}
	}

	if iter.tree.maxNode == 0 {
		return Iterator{iter.tree, negativeLimitNode}
	}

	return Iterator{iter.tree, iter.tree.maxNode}
}

func doAssert(condition bool) {
	if !condition {
		panic("avltree internal assertion failed")
	}
}

const negativeLimitNode = math.MaxUint32

type node struct {
	item                Item
	parent, left, right uint32
	balance             int8 // height(left) - height(right), in {-1, 0, 1} at rest
}

// Internal node attribute accessors.
func isLeftChild(nodeIdx uint32, allocator []node) bool {
	return nodeIdx == allocator[allocator[nodeIdx].parent].left
}

func isRightChild(nodeIdx uint32, allocator []node) bool {
	return nodeIdx == allocator[allocator[nodeIdx].parent].right
}

// Return the minimum node that's larger than N. Return 0 if no such
// node is found.
func doNext(nodeIdx uint32, allocator []node) uint32 {
	if allocator[nodeIdx].right != 0 {
		cursor := allocator[nodeIdx].right

		for allocator[cursor].left != 0 {
			cursor = allocator[cursor].left
		}

		return cursor
	}

	for nodeIdx != 0 {
		parentIdx := allocator[nodeIdx].parent
		if parentIdx == 0 {
			return 0
		}

		if isLeftChild(nodeIdx, allocator) {
			return parentIdx
		}

		nodeIdx = parentIdx
	}

	return 0
}

// Return the maximum node that's smaller than N. Return negativeLimitNode if
// no such node is found.
func doPrev(nodeIdx uint32, allocator []node) uint32 {
	if allocator[nodeIdx].left != 0 {
		return maxPredecessor(nodeIdx, allocator)
	}

	for nodeIdx != 0 {
		parentIdx := allocator[nodeIdx].parent
		if parentIdx == 0 {
			break
		}

		if isRightChild(nodeIdx, allocator) {
			return parentIdx
		}

		nodeIdx = parentIdx
	}

	return negativeLimitNode
}

// Return the predecessor of "n".
func maxPredecessor(nodeIdx uint32, allocator []node) uint32 {
	doAssert(allocator[nodeIdx].left != 0)

	cursor := allocator[nodeIdx].left

	for allocator[cursor].right != 0 {
		cursor = allocator[cursor].right
	}

	return cursor
}

// Tree methods.

// Private methods.

func (tree *Tree) recomputeMinNode() {
	alloc := tree.storage()
	tree.minNode = tree.root

	if tree.minNode != 0 {
		for alloc[tree.minNode].left != 0 {
			tree.minNode = alloc[tree.minNode].left
		}
	}
}

func (tree *Tree) recomputeMaxNode() {
	alloc := tree.storage()
	tree.maxNode = tree.root

	if tree.maxNode != 0 {
		for alloc[tree.maxNode].right != 0 {
			tree.maxNode = alloc[tree.maxNode].right
		}
	}
}

func (tree *Tree) maybeSetMinNode(nodeIdx uint32) {
	alloc := tree.storage()

	if tree.minNode == 0 {
		tree.minNode = nodeIdx
		tree.maxNode = nodeIdx
	} else if alloc[nodeIdx].item.Key < alloc[tree.minNode].item.Key {
		tree.minNode = nodeIdx
	}
}

func (tree *Tree) maybeSetMaxNode(nodeIdx uint32) {
	alloc := tree.storage()

	if tree.maxNode == 0 {
		tree.minNode = nodeIdx
		tree.maxNode = nodeIdx
	} else if alloc[nodeIdx].item.Key > alloc[tree.maxNode].item.Key {
		tree.maxNode = nodeIdx
	}
}

// Try inserting "item" into the tree. Return 0 if an item with the same key
// is already in the tree. Otherwise return a new (leaf) node.
func (tree *Tree) doInsert(item Item) uint32 {
	if tree.root == 0 {
		nodeIdx := tree.allocator.malloc()
		tree.storage()[nodeIdx].item = item
		tree.root = nodeIdx
		tree.minNode = nodeIdx
		tree.maxNode = nodeIdx
		tree.count++

		return nodeIdx
	}

	parent := tree.root
	storageSlice := tree.storage()

	for {
		parentNode := storageSlice[parent]
		comp := int64(item.Key) - int64(parentNode.item.Key)

		switch {
		case comp == 0:
			return 0
		case comp < 0:
			if parentNode.left == 0 {
				nodeIdx := tree.allocator.malloc()
				storageSlice = tree.storage()
				newNode := &storageSlice[nodeIdx]
				newNode.item = item
				newNode.parent = parent
				storageSlice[parent].left = nodeIdx
				tree.count++
				tree.maybeSetMinNode(nodeIdx)

				return nodeIdx
			}

			parent = parentNode.left
		default:
			if parentNode.right == 0 {
				nodeIdx := tree.allocator.malloc()
				storageSlice = tree.storage()
				newNode := &storageSlice[nodeIdx]
				newNode.item = item
				newNode.parent = parent
				storageSlice[parent].right = nodeIdx
				tree.count++
				tree.maybeSetMaxNode(nodeIdx)

				return nodeIdx
			}

			parent = parentNode.right
		}
	}
}

// Find a node whose item >= Key. The 2nd return Value is true iff the
// node.item==Key. Returns (0, false) if all nodes in the tree are < Key.
func (tree *Tree) findGE(key uint32) (uint32, bool) { //nolint:revive // intentional private/public pair
	alloc := tree.storage()
	nodeIdx := tree.root

	for {
		if nodeIdx == 0 {
			return 0, false
		}

		comp := int64(key) - int64(alloc[nodeIdx].item.Key)

		switch {
		case comp == 0:
			return nodeIdx, true
		case comp < 0:
			if alloc[nodeIdx].left == 0 {
				return nodeIdx, false
			}

			nodeIdx = alloc[nodeIdx].left
		default:
			if alloc[nodeIdx].right == 0 {
				succ := doNext(nodeIdx, alloc)
				if succ == 0 {
					return 0, false
				}

				return succ, key == alloc[succ].item.Key
			}

			nodeIdx = alloc[nodeIdx].right
		}
	}
}

// Walk from a freshly inserted leaf toward the root, updating balance
// factors. The first ancestor pushed out of {-1, 0, 1} is rotated back into
// shape; a single (possibly double) rotation restores the pre-insert height,
// so the walk stops there.
func (tree *Tree) retraceInsert(nodeIdx uint32) {
	alloc := tree.storage()

	for {
		parent := alloc[nodeIdx].parent
		if parent == 0 {
			return
		}

		if nodeIdx == alloc[parent].left {
			alloc[parent].balance++
		} else {
			alloc[parent].balance--
		}

		switch alloc[parent].balance {
		case 0:
			// The shorter subtree caught up; heights above are unchanged.
			return
		case 1, -1:
			nodeIdx = parent
		default:
			tree.rebalance(parent)

			return
		}
	}
}

// Delete N from the tree.
func (tree *Tree) doDelete(nodeIdx uint32) {
	alloc := tree.storage()

	if alloc[nodeIdx].left != 0 && alloc[nodeIdx].right != 0 {
		// Two children: take over the in-order predecessor's item and
		// physically remove that node instead. The predecessor has no right
		// child, so it always falls into the simple cases below.
		pred := maxPredecessor(nodeIdx, alloc)
		alloc[nodeIdx].item = alloc[pred].item
		nodeIdx = pred
	}

	doAssert(alloc[nodeIdx].left == 0 || alloc[nodeIdx].right == 0)

	child := alloc[nodeIdx].right
	if child == 0 {
		child = alloc[nodeIdx].left
	}

	parent := alloc[nodeIdx].parent
	removedLeft := parent != 0 && nodeIdx == alloc[parent].left

	tree.replaceNode(nodeIdx, child)
	tree.retraceDelete(parent, removedLeft)

	tree.allocator.free(nodeIdx)
	tree.count--

	if tree.count == 0 {
		tree.minNode = 0
		tree.maxNode = 0
	} else {
		if tree.minNode == nodeIdx {
			tree.recomputeMinNode()
		}

		if tree.maxNode == nodeIdx {
			tree.recomputeMaxNode()
		}
	}
}

// Walk from the parent of a removed node toward the root. Unlike insertion,
// a rotation does not necessarily stop the walk: when the rebalanced subtree
// ends up with balance 0 it lost a level, and the shrink propagates upward.
func (tree *Tree) retraceDelete(parent uint32, removedLeft bool) {
	alloc := tree.storage()

	for parent != 0 {
		if removedLeft {
			alloc[parent].balance--
		} else {
			alloc[parent].balance++
		}

		switch alloc[parent].balance {
		case 1, -1:
			// Height unchanged.
			return
		case 0:
			// The subtree shrank by one level; keep walking.
			grand := alloc[parent].parent
			removedLeft = grand != 0 && parent == alloc[grand].left
			parent = grand
		default:
			tree.rebalance(parent)

			newRoot := alloc[parent].parent
			if alloc[newRoot].balance != 0 {
				return
			}

			grand := alloc[newRoot].parent
			removedLeft = grand != 0 && newRoot == alloc[grand].left
			parent = grand
		}
	}
}

// Restore the balance invariant at a node whose factor left {-1, 0, 1}.
// A left-heavy node with a right-heavy left child (and symmetrically) needs
// the double rotation; otherwise a single rotation suffices.
func (tree *Tree) rebalance(nodeIdx uint32) {
	alloc := tree.storage()

	for alloc[nodeIdx].balance > 1 {
		if alloc[alloc[nodeIdx].left].balance < 0 {
			tree.rotateLeft(alloc[nodeIdx].left)
		}

		tree.rotateRight(nodeIdx)
	}

	for alloc[nodeIdx].balance < -1 {
		if alloc[alloc[nodeIdx].right].balance > 0 {
			tree.rotateRight(alloc[nodeIdx].right)
		}

		tree.rotateLeft(nodeIdx)
	}
}

// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// The balance updates are order-sensitive: the pivot is adjusted first and
// the child's update reads the pivot's new factor.
//
//nolint:dupword // ASCII art diagrams contain intentional repeated letters.
func (tree *Tree) rotateLeft(pivot uint32) {
	alloc := tree.storage()

	child := alloc[pivot].right
	if child == 0 {
		panic("avltree: cannot rotate any further left")
	}

	alloc[pivot].right = alloc[child].left
	if alloc[pivot].right != 0 {
		alloc[alloc[pivot].right].parent = pivot
	}

	alloc[child].parent = alloc[pivot].parent

	if alloc[child].parent == 0 {
		tree.root = child
	} else if isLeftChild(pivot, alloc) {
		alloc[alloc[child].parent].left = child
	} else {
		alloc[alloc[child].parent].right = child
	}

	alloc[child].left = pivot
	alloc[pivot].parent = child

	alloc[pivot].balance += 1 - min(alloc[child].balance, 0)
	alloc[child].balance += 1 + max(alloc[pivot].balance, 0)
}

// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
//
//nolint:dupword // ASCII art diagrams contain intentional repeated letters.
func (tree *Tree) rotateRight(pivot uint32) {
	alloc := tree.storage()

	child := alloc[pivot].left
	if child == 0 {
		panic("avltree: cannot rotate any further right")
	}

	alloc[pivot].left = alloc[child].right
	if alloc[pivot].left != 0 {
		alloc[alloc[pivot].left].parent = pivot
	}

	alloc[child].parent = alloc[pivot].parent

	if alloc[child].parent == 0 {
		tree.root = child
	} else if isLeftChild(pivot, alloc) {
		alloc[alloc[child].parent].left = child
	} else {
		alloc[alloc[child].parent].right = child
	}

	alloc[child].right = pivot
	alloc[pivot].parent = child

	alloc[pivot].balance -= 1 + max(alloc[child].balance, 0)
	alloc[child].balance -= 1 - min(alloc[pivot].balance, 0)
}

func (tree *Tree) replaceNode(oldn, newn uint32) {
	alloc := tree.storage()

	if alloc[oldn].parent == 0 {
		tree.root = newn
	} else {
		if oldn == alloc[alloc[oldn].parent].left {
			alloc[alloc[oldn].parent].left = newn
		} else {
			alloc[alloc[oldn].parent].right = newn
		}
	}

	if newn != 0 {
		alloc[newn].parent = alloc[oldn].parent
	}
}
