package utils

import (
	"sync"

	"price-stream/src/models"
)

// DefaultSeriesCapacity is the number of ticks kept when no capacity is configured.
const DefaultSeriesCapacity = 200

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of ticks in arrival order.
// The capacity never changes after construction; once full, each Append evicts
// the oldest tick. Append and Clear are atomic with respect to readers.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	mu       sync.RWMutex
	data     []models.MTick
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}

	return &RingBuffer{
		data:     make([]models.MTick, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append stores tick as the newest entry, evicting the oldest one when full,
// and returns the series as it stands after the append.
func (rb *RingBuffer) Append(tick models.MTick) []models.MTick {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data[rb.index] = tick
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}

	return rb.snapshotLocked()
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of all retained ticks, oldest to newest.
func (rb *RingBuffer) Snapshot() []models.MTick {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return rb.snapshotLocked()
}

func (rb *RingBuffer) snapshotLocked() []models.MTick {
	result := make([]models.MTick, rb.size)
	if rb.size == 0 {
		return result
	}

	// Buffer is full: oldest is at the write position (wrap-around)
	startIdx := 0
	if rb.size == rb.capacity {
		startIdx = rb.index
	}

	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// Latest returns the newest tick, if any.
func (rb *RingBuffer) Latest() (models.MTick, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 {
		return models.MTick{}, false
	}
	return rb.data[(rb.index-1+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

// Len returns current number of elements
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer to zero entries
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for i := range rb.data {
		rb.data[i] = models.MTick{}
	}
	rb.index = 0
	rb.size = 0
}
