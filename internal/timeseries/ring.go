// Package timeseries provides a fixed-capacity, thread-safe circular buffer
// for time-stamped numeric samples. It backs the per-target response-time
// history: recent-history only, nothing is persisted across restarts.
package timeseries

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Sample is one time-stamped measurement. Immutable once appended.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Success   bool      `json:"success"`
}

// RingBuffer retains the most recent samples up to a capacity fixed at
// construction, evicting the oldest on overflow.
type RingBuffer struct {
	mu      sync.RWMutex
	samples []Sample
	head    int
	size    int
}

// NewRingBuffer creates a ring buffer holding at most capacity samples.
// A non-positive capacity is treated as 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{
		samples: make([]Sample, capacity),
	}
}

// Append adds a sample, evicting the oldest one once capacity is exceeded.
func (r *RingBuffer) Append(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples[r.head] = s
	r.head = (r.head + 1) % len(r.samples)
	if r.size < len(r.samples) {
		r.size++
	}
}

// ReadAll returns the retained samples in chronological order.
func (r *RingBuffer) ReadAll() []Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Sample, 0, r.size)
	start := r.head - r.size
	if start < 0 {
		start += len(r.samples)
	}
	for i := 0; i < r.size; i++ {
		out = append(out, r.samples[(start+i)%len(r.samples)])
	}
	return out
}

// Len returns the number of samples currently retained.
func (r *RingBuffer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the fixed capacity of the buffer.
func (r *RingBuffer) Capacity() int {
	return len(r.samples)
}

// Percentile returns the value at rank ceil(p/100*n)-1 (1-indexed percentile,
// clamped to the valid range) over the currently retained samples sorted
// ascending. It returns 0 when the buffer is empty or p is out of (0, 100].
func (r *RingBuffer) Percentile(p float64) float64 {
	if p <= 0 || p > 100 {
		return 0
	}

	r.mu.RLock()
	values := make([]float64, 0, r.size)
	start := r.head - r.size
	if start < 0 {
		start += len(r.samples)
	}
	for i := 0; i < r.size; i++ {
		values = append(values, r.samples[(start+i)%len(r.samples)].Value)
	}
	r.mu.RUnlock()

	if len(values) == 0 {
		return 0
	}

	sort.Float64s(values)
	rank := int(math.Ceil(p/100*float64(len(values)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(values) {
		rank = len(values) - 1
	}
	return values[rank]
}
