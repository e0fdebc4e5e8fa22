// Package pubsub provides a minimal typed publish/subscribe broker used to
// notify hosts about session lifecycle changes.
package pubsub

import (
	"context"
	"sync"
)

type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"
)

// Event represents an event in the lifecycle of a resource.
type Event[T any] struct {
	Type    EventType `json:"type"`
	Payload T         `json:"payload"`
}

type Subscriber[T any] interface {
	Subscribe(context.Context) <-chan Event[T]
}

type Publisher[T any] interface {
	Publish(EventType, T)
}

const bufferSize = 64

type Broker[T any] struct {
	mu   sync.RWMutex
	subs map[chan Event[T]]struct{}
	done bool
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{subs: make(map[chan Event[T]]struct{})}
}

// Subscribe returns a channel of events that is closed when ctx is done or
// the broker shuts down.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event[T], bufferSize)
	if b.done {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}()

	return ch
}

// Publish delivers the event to every subscriber. Slow subscribers whose
// buffer is full drop the event rather than block the publisher.
func (b *Broker[T]) Publish(t EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- Event[T]{Type: t, Payload: payload}:
		default:
		}
	}
}

func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.done = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
