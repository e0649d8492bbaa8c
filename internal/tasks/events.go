package tasks

import (
	"sync"
	"time"
)

// Broker fans task lifecycle events out to subscribers. Delivery is
// best-effort: a subscriber whose channel is full misses the event rather
// than blocking the publisher.
type Broker struct {
	mu          sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[int]chan Event)}
}

func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.nextSubID++
	id := b.nextSubID
	b.subscribers[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(c)
		}
	}
}

// Publish is a no-op on a nil broker, mirroring the metrics helpers.
func (b *Broker) Publish(evt Event) {
	if b == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
