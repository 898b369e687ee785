package service

import "sync"

// Mailbox is an unbounded ordered FIFO handoff between subscriber goroutines
// and the single consumer loop. Push never blocks and preserves receipt
// order; TryPop never blocks so the consumer can drain once per frame tick
// without stalling rendering. An optional notify callback fires after each
// push, used as the "please redraw" wake signal.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	notify func()
}

func NewMailbox[T any](notify func()) *Mailbox[T] {
	return &Mailbox[T]{notify: notify}
}

// Push appends an item and fires the notify callback.
func (m *Mailbox[T]) Push(item T) {
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()

	if m.notify != nil {
		m.notify()
	}
}

// TryPop removes and returns the oldest item, or reports false when the
// mailbox is empty.
func (m *Mailbox[T]) TryPop() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if len(m.items) == 0 {
		return zero, false
	}
	item := m.items[0]
	m.items[0] = zero
	m.items = m.items[1:]
	return item, true
}

func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
