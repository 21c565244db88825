package chat

import "sync"

// EventType names what changed.
type EventType string

const (
	EventMessages EventType = "messages"
	EventContext  EventType = "context"
	EventMap      EventType = "map"
	EventSession  EventType = "session"
)

// Event tells front ends to redraw part of the screen. It carries no data;
// subscribers read the current state from the Client.
type Event struct {
	Type EventType
}

const subscriberBuffer = 64

type broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan Event)}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// publish never blocks. A subscriber whose buffer is full misses the event.
func (b *broker) publish(t EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- Event{Type: t}:
		default:
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
