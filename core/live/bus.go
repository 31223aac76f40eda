package live

import (
	"sync"
)

// EventKind enumerates the fixed set of upstream feed events.
type EventKind string

const (
	EventStatus       EventKind = "status"
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
	EventError        EventKind = "error"
	EventGiftFinal    EventKind = "giftFinal"
	EventChat         EventKind = "chat"
	EventMember       EventKind = "member"
	EventRoomStats    EventKind = "roomStats"
)

// Handler consumes one published event payload.
type Handler func(payload interface{})

// Bus is a typed publish/subscribe fan-out for feed events. Handlers run
// synchronously on the publisher's goroutine, so all pipeline state driven
// from the feed is mutated from that one logical thread.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventKind][]*subscription
}

type subscription struct {
	handler Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventKind][]*subscription)}
}

// Subscribe registers a handler for one event kind and returns an
// unsubscribe function.
func (b *Bus) Subscribe(kind EventKind, h Handler) func() {
	sub := &subscription{handler: h}

	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[kind]
		for i, s := range list {
			if s == sub {
				b.subs[kind] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers payload to every subscriber of kind.
func (b *Bus) Publish(kind EventKind, payload interface{}) {
	b.mu.RLock()
	list := make([]*subscription, len(b.subs[kind]))
	copy(list, b.subs[kind])
	b.mu.RUnlock()

	for _, s := range list {
		s.handler(payload)
	}
}
