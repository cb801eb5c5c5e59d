package events

import "sync"

// Handler receives events published on a Bus.
type Handler func(Event)

// Bus is an in-process broadcast. Publish hands the event to every current subscriber;
// there is no acknowledgement, no ordering guarantee across subscribers and no backpressure.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	if b == nil || h == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// SubscribeChan delivers events to ch without blocking; events are dropped when ch is full.
func (b *Bus) SubscribeChan(ch chan<- Event) (unsubscribe func()) {
	return b.Subscribe(func(evt Event) {
		select {
		case ch <- evt:
		default:
		}
	})
}

// Publish calls every subscriber with evt.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
