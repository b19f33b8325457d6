package store

// ring is a bounded FIFO that drops the oldest item when full. Storage grows
// on demand up to capacity and is then reused in place.
type ring[T any] struct {
	items    []T
	capacity int
	head     int // index of the oldest item once the ring is full
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring[T]{capacity: capacity}
}

// push appends item and reports whether the oldest item was evicted.
func (r *ring[T]) push(item T) bool {
	if len(r.items) < r.capacity {
		r.items = append(r.items, item)
		return false
	}
	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	return true
}

func (r *ring[T]) len() int {
	return len(r.items)
}

// at returns the i-th item in insertion order (0 is the oldest).
func (r *ring[T]) at(i int) T {
	return r.items[(r.head+i)%len(r.items)]
}

func (r *ring[T]) last() (T, bool) {
	var zero T
	if len(r.items) == 0 {
		return zero, false
	}
	return r.at(len(r.items) - 1), true
}

// tail returns a copy of the newest n items in insertion order.
func (r *ring[T]) tail(n int) []T {
	size := len(r.items)
	if n <= 0 || n > size {
		n = size
	}
	out := make([]T, 0, n)
	for i := size - n; i < size; i++ {
		out = append(out, r.at(i))
	}
	return out
}
