// Package notify fans observable event changes out to live subscribers and
// an optional message queue. The scheduling core only reports that a change
// happened; everything about delivery lives here.
package notify

import (
	"sync"

	"github.com/example/lab-booking/internal/application"
)

// Registry tracks the live subscriber channels of connected clients, keyed
// by user id. It is injected into the dispatcher and scoped to the process
// lifetime; nothing here survives a restart and nothing is global.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string][]chan application.EventChange
	buffer      int
}

// NewRegistry creates an empty registry. buffer sets the channel capacity
// handed to each subscriber; zero falls back to a small default.
func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = 16
	}
	return &Registry{
		subscribers: make(map[string][]chan application.EventChange),
		buffer:      buffer,
	}
}

// Subscribe registers a channel for the user and returns it together with
// an unsubscribe function. The caller owns draining; the returned channel
// is closed by the unsubscribe call.
func (r *Registry) Subscribe(userID string) (<-chan application.EventChange, func()) {
	ch := make(chan application.EventChange, r.buffer)

	r.mu.Lock()
	r.subscribers[userID] = append(r.subscribers[userID], ch)
	r.mu.Unlock()

	once := sync.Once{}
	unsubscribe := func() {
		once.Do(func() {
			r.mu.Lock()
			channels := r.subscribers[userID]
			for i, candidate := range channels {
				if candidate == ch {
					r.subscribers[userID] = append(channels[:i], channels[i+1:]...)
					break
				}
			}
			if len(r.subscribers[userID]) == 0 {
				delete(r.subscribers, userID)
			}
			r.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Broadcast delivers the change to every subscriber. Slow subscribers whose
// buffers are full are skipped rather than blocking the caller.
func (r *Registry) Broadcast(change application.EventChange) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, channels := range r.subscribers {
		for _, ch := range channels {
			select {
			case ch <- change:
			default:
			}
		}
	}
}

// SubscriberCount reports the number of registered channels across users.
func (r *Registry) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, channels := range r.subscribers {
		count += len(channels)
	}
	return count
}
