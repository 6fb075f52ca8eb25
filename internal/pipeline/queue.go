package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// Policy decides what a full queue does with a new item
type Policy string

// Overflow policies
const (
	DropOldest Policy = "drop_oldest" // Evict the oldest queued item
	DropNewest Policy = "drop_newest" // Discard the incoming item
	Block      Policy = "block"       // Wait for space
)

// ParsePolicy converts a configuration value into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case DropOldest, DropNewest, Block:
		return p, nil
	case "":
		return DropOldest, nil
	default:
		return "", fmt.Errorf("unknown overflow policy: %s", s)
	}
}

// Queue is a FIFO hand-off queue between pipeline stages. A capacity of 0
// makes it unbounded. It is safe for concurrent use.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	policy   Policy
	dropped  int
	onDrop   func(item T)

	readable chan struct{}
	writable chan struct{}
}

// NewQueue creates and returns a new Queue
func NewQueue[T any](capacity int, policy Policy) *Queue[T] {
	if policy == "" {
		policy = DropOldest
	}
	return &Queue[T]{
		items:    []T{},
		capacity: capacity,
		policy:   policy,
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

// OnDrop registers fn to be called with every item discarded by the overflow policy
func (q *Queue[T]) OnDrop(fn func(item T)) {
	q.mu.Lock()
	q.onDrop = fn
	q.mu.Unlock()
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Push adds an item to the end of the queue. Only the Block policy ever waits,
// and it returns ctx.Err() if ctx ends first.
func (q *Queue[T]) Push(ctx context.Context, item T) error {
	for {
		q.mu.Lock()
		if q.capacity <= 0 || len(q.items) < q.capacity {
			q.items = append(q.items, item)
			spare := q.capacity <= 0 || len(q.items) < q.capacity
			q.mu.Unlock()
			signal(q.readable)
			if spare {
				signal(q.writable)
			}
			return nil
		}

		switch q.policy {
		case DropOldest:
			evicted := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = append(q.items[1:], item)
			q.dropped++
			onDrop := q.onDrop
			q.mu.Unlock()
			signal(q.readable)
			if onDrop != nil {
				onDrop(evicted)
			}
			return nil
		case DropNewest:
			q.dropped++
			onDrop := q.onDrop
			q.mu.Unlock()
			if onDrop != nil {
				onDrop(item)
			}
			return nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.writable:
		}
	}
}

// Pop removes and returns the front item, blocking until one is available or ctx ends
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			signal(q.writable)
			if more {
				signal(q.readable)
			}
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.readable:
		}
	}
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many items the overflow policy has discarded
func (q *Queue[T]) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
