package avltree

import (
	"math"
	"slices"
	"sync"
)

// hibernatedBuffers is the number of compressed byte buffers a hibernated
// allocator holds: seven deinterleaved node fields plus the gaps set.
const hibernatedBuffers = 8

// Indices of the deinterleaved node field buffers.
const (
	bufKey = iota
	bufCostLo
	bufCostHi
	bufLeft
	bufParent
	bufRight
	bufBalance
	nodeFieldBuffers
)

// Hibernate compresses the allocated memory. A hibernated allocator cannot
// serve a tree until Boot() is called.
func (allocator *Allocator) Hibernate() {
	if allocator.hibernatedStorageLen > 0 {
		panic("cannot hibernate an already hibernated Allocator")
	}

	if len(allocator.storage) < allocator.HibernationThreshold {
		return
	}

	allocator.hibernatedStorageLen = len(allocator.storage)
	if allocator.hibernatedStorageLen == 0 {
		allocator.storage = nil

		return
	}

	buffers := [nodeFieldBuffers][]uint32{}

	for idx := range buffers {
		buffers[idx] = make([]uint32, len(allocator.storage))
	}

	// We deinterleave to achieve a better compression ratio. Costs are split
	// into the low and high halves of their IEEE 754 bits.
	for idx, nd := range allocator.storage {
		costBits := math.Float64bits(nd.item.Cost)
		buffers[bufKey][idx] = nd.item.Key
		buffers[bufCostLo][idx] = uint32(costBits)
		buffers[bufCostHi][idx] = uint32(costBits >> 32)
		buffers[bufLeft][idx] = nd.left
		buffers[bufParent][idx] = nd.parent
		buffers[bufRight][idx] = nd.right
		buffers[bufBalance][idx] = uint32(uint8(nd.balance))
	}

	allocator.storage = nil

	wg := &sync.WaitGroup{}
	wg.Add(len(buffers) + 1)

	for idx, buffer := range buffers {
		go func(bufIdx int, buf []uint32) {
			allocator.hibernatedData[bufIdx] = CompressUInt32Slice(buf)
			buffers[bufIdx] = nil

			wg.Done()
		}(idx, buffer)
	}

	// Compress gaps. Sorting first makes the delta encoding shrink them to
	// near-constant values.
	go func() {
		if len(allocator.gaps) > 0 {
			allocator.hibernatedGapsLen = len(allocator.gaps)

			gapsBuffer := make([]uint32, 0, len(allocator.gaps))

			for key := range allocator.gaps {
				gapsBuffer = append(gapsBuffer, key)
			}

			slices.Sort(gapsBuffer)
			DeltaEncodeUInt32Slice(gapsBuffer)

			allocator.hibernatedData[nodeFieldBuffers] = CompressUInt32Slice(gapsBuffer)
		}

		allocator.gaps = nil

		wg.Done()
	}()

	wg.Wait()
}

// Boot performs the opposite of Hibernate() - decompresses and restores the
// allocated memory.
func (allocator *Allocator) Boot() {
	if allocator.storage == nil && allocator.hibernatedStorageLen == 0 {
		allocator.storage = []node{}
		allocator.gaps = map[uint32]bool{}

		return
	}

	if allocator.hibernatedStorageLen == 0 {
		// Not hibernated.
		return
	}

	if allocator.hibernatedData[bufKey] == nil {
		panic("cannot boot a serialized Allocator")
	}

	allocator.gaps = map[uint32]bool{}
	buffers := [nodeFieldBuffers][]uint32{}

	wg := &sync.WaitGroup{}
	wg.Add(len(buffers) + 1)

	for idx := range buffers {
		go func(bufIdx int) {
			buffers[bufIdx] = make([]uint32, allocator.hibernatedStorageLen)
			DecompressUInt32Slice(allocator.hibernatedData[bufIdx], buffers[bufIdx])
			allocator.hibernatedData[bufIdx] = nil

			wg.Done()
		}(idx)
	}

	go func() {
		if allocator.hibernatedGapsLen > 0 {
			gapData := allocator.hibernatedData[nodeFieldBuffers]
			buffer := make([]uint32, allocator.hibernatedGapsLen)
			DecompressUInt32Slice(gapData, buffer)
			DeltaDecodeUInt32Slice(buffer)

			for _, key := range buffer {
				allocator.gaps[key] = true
			}

			allocator.hibernatedData[nodeFieldBuffers] = nil
			allocator.hibernatedGapsLen = 0
		}

		wg.Done()
	}()

	wg.Wait()

	capSize := (allocator.hibernatedStorageLen * growCapacityNumerator) / growCapacityDenominator
	allocator.storage = make([]node, allocator.hibernatedStorageLen, capSize)

	for idx := range allocator.storage {
		nd := &allocator.storage[idx]
		costBits := uint64(buffers[bufCostHi][idx])<<32 | uint64(buffers[bufCostLo][idx])
		nd.item.Key = buffers[bufKey][idx]
		nd.item.Cost = math.Float64frombits(costBits)
		nd.left = buffers[bufLeft][idx]
		nd.parent = buffers[bufParent][idx]
		nd.right = buffers[bufRight][idx]
		nd.balance = int8(uint8(buffers[bufBalance][idx]))
	}

	allocator.hibernatedStorageLen = 0
}
