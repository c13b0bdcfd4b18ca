package chunk

import "errors"

// Sentinel cost-model errors.
var (
	// ErrNonPositiveBandwidth is returned for a bandwidth of zero or less.
	ErrNonPositiveBandwidth = errors.New("bandwidth must be positive")
	// ErrNegativeLatency is returned for a negative latency.
	ErrNegativeLatency = errors.New("latency may not be negative")
)

// CostFunc maps a chunk size in bytes to its retrieval cost.
type CostFunc func(size uint32) float64

// NewCostFunc builds the retrieval cost model for a link with the given
// one-way latency (seconds) and bandwidth (bytes per second):
//
//	cost(size) = 2*latency + size/bandwidth
//
// that is, a round trip plus transmission time. The planner assumes exactly
// this formula when comparing chunk costs.
func NewCostFunc(latency, bandwidth float64) (CostFunc, error) {
	if bandwidth <= 0 {
		return nil, ErrNonPositiveBandwidth
	}

	if latency < 0 {
		return nil, ErrNegativeLatency
	}

	return func(size uint32) float64 {
		return 2*latency + float64(size)/bandwidth
	}, nil
}
