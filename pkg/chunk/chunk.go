// Package chunk defines the retrievable byte-range value type, the input
// normalizer, and the latency/bandwidth cost model consumed by the planner.
package chunk

import (
	"errors"
	"fmt"
	"slices"
)

// Sentinel validation errors.
var (
	// ErrMalformedChunk is returned when a chunk's end does not exceed its start.
	ErrMalformedChunk = errors.New("malformed chunk: end must exceed start")
)

// Chunk is one retrievable unit covering byte offsets [Start, End).
// Chunks are immutable values: created once from external input, never mutated.
type Chunk struct {
	Start uint32
	End   uint32
}

// Size returns the number of bytes the chunk covers.
func (c Chunk) Size() uint32 {
	return c.End - c.Start
}

func (c Chunk) String() string {
	return fmt.Sprintf("[%d, %d)", c.Start, c.End)
}

// Compare orders chunks ascending by (start, end).
func Compare(a, b Chunk) int {
	if a.Start != b.Start {
		if a.Start < b.Start {
			return -1
		}

		return 1
	}

	switch {
	case a.End < b.End:
		return -1
	case a.End > b.End:
		return 1
	default:
		return 0
	}
}

// Normalize validates, sorts, and de-duplicates raw chunk records into the
// sequence the planner requires: ascending by (start, end), no duplicates,
// no malformed entries. Malformed chunks are rejected here so the core can
// treat their presence downstream as a precondition failure.
//
// The input slice is not modified.
func Normalize(chunks []Chunk) ([]Chunk, error) {
	for idx, c := range chunks {
		if c.End <= c.Start {
			return nil, fmt.Errorf("%w: record %d is [%d, %d)", ErrMalformedChunk, idx, c.Start, c.End)
		}
	}

	normalized := make([]Chunk, len(chunks))
	copy(normalized, chunks)

	slices.SortFunc(normalized, Compare)

	return slices.Compact(normalized), nil
}
