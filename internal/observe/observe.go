// Package observe provides the version counter and observer list shared by the session state containers.
package observe

import (
	"sync"
)

// Notifier counts mutations and notifies subscribers after each one.
//
// Subscribers run synchronously on the goroutine that reported the change, so a mutation is visible to every current
// observer before the mutating call returns. The zero value is ready to use.
type Notifier struct {
	mu          sync.Mutex
	version     uint64
	nextID      int
	subscribers map[int]func(version uint64)
}

// Version returns the number of changes reported so far.
func (n *Notifier) Version() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.version
}

// Subscribe registers fn to be called with the new version after every change. Calling cancel removes it again.
func (n *Notifier) Subscribe(fn func(version uint64)) (cancel func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subscribers == nil {
		n.subscribers = make(map[int]func(uint64))
	}
	id := n.nextID
	n.nextID++
	n.subscribers[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subscribers, id)
		})
	}
}

// Changed increments the version and notifies the subscribers.
func (n *Notifier) Changed() uint64 {
	n.mu.Lock()
	n.version++
	version := n.version
	subscribers := make([]func(uint64), 0, len(n.subscribers))
	for _, fn := range n.subscribers {
		subscribers = append(subscribers, fn)
	}
	n.mu.Unlock()

	for _, fn := range subscribers {
		fn(version)
	}
	return version
}
