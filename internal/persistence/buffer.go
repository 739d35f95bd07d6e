package persistence

import (
	"sync"

	"github.com/talgya/valley-farm/internal/farm"
)

// maxBuffered bounds events held between saves; the oldest are dropped.
const maxBuffered = 1000

// EventBuffer collects farm events between autosaves.
type EventBuffer struct {
	mu     sync.Mutex
	events []farm.Event
}

// Add queues an event. Safe to use as a farm OnEvent hook.
func (b *EventBuffer) Add(ev farm.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	if over := len(b.events) - maxBuffered; over > 0 {
		b.events = append([]farm.Event(nil), b.events[over:]...)
	}
}

// Drain returns and clears the queued events.
func (b *EventBuffer) Drain() []farm.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}
