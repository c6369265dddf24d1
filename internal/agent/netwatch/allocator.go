package netwatch

import (
	"sync"
	"time"
)

// Allocator mints temporary identifiers for records created offline.
// IDs are the negated wall-clock timestamp in milliseconds, so they can never
// collide with server-assigned positive IDs. Two allocations inside the same
// millisecond would collide, so the allocator keeps the last value and steps
// past it; temporary IDs handed out by one allocator are therefore distinct.
type Allocator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewAllocator() *Allocator {
	return &Allocator{now: time.Now}
}

// Next returns a fresh, strictly negative identifier.
func (a *Allocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := -a.now().UnixMilli()
	if a.last != 0 && id >= a.last {
		id = a.last - 1
	}
	a.last = id
	return id
}
