package mocks

import (
	"sync"

	"github.com/mcoot/qhunt/internal/dependencies/random"
)

// MockRandom returns queued values from Intn
type MockRandom struct {
	mu      sync.Mutex
	results []int
	next    int

	// Calls records the n passed to each Intn call
	Calls []int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued result clamped into [0, n), or 0 if the queue is empty
func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, n)
	if r.next >= len(r.results) || n <= 0 {
		return 0
	}
	v := r.results[r.next]
	r.next++
	return v % n
}

// QueueIntn adds values to the result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, values...)
}

// Reset clears queued results and recorded calls
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = nil
	r.next = 0
	r.Calls = nil
}
