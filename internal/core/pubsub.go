package core

import "sync"

// Topic is a synchronous in-process publish/subscribe channel for one
// event type. Delivery happens on the publisher's goroutine, in
// subscription order; there is no queueing, so a subscriber that needs
// asynchrony must provide its own.
type Topic[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id      int
	handler func(T)
}

// NewTopic returns an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{}
}

// Subscribe registers handler and returns a function that removes it.
// Unsubscribing twice is harmless.
func (t *Topic[T]) Subscribe(handler func(T)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs = append(t.subs, subscriber[T]{id: id, handler: handler})
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				break
			}
		}
		t.mu.Unlock()
	}
}

// Publish delivers event to every current subscriber.
func (t *Topic[T]) Publish(event T) {
	t.mu.RLock()
	handlers := make([]func(T), len(t.subs))
	for i, s := range t.subs {
		handlers[i] = s.handler
	}
	t.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}
