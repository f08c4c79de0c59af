package events

import (
	"sync"
	"time"
)

// Bus delivers events to subscribers synchronously, on the emitting
// goroutine. Subscribers must not block.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]func(Event)),
	}
}

func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return sync.OnceFunc(func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	})
}

func (b *Bus) Emit(name Name, payload any) {
	ev := Event{
		Name:    name,
		Time:    time.Now(),
		Payload: payload,
	}
	b.mu.RLock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
