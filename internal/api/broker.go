package api

import (
	"sync"
)

// Event is one run status update pushed to stream subscribers.
type Event struct {
	Type string
	Data map[string]any
}

// EventBroker fans run events out to stream subscribers. The in-memory
// Broker covers single-node deployments; RedisBroker covers fleets.
type EventBroker interface {
	Subscribe(runID string) chan Event
	Unsubscribe(runID string, ch chan Event)
	Publish(runID string, evt Event)
}

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // runId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(runID string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = map[chan Event]struct{}{}
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan Event) {
	b.mu.Lock()
	if m := b.subs[runID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, runID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(runID string, evt Event) {
	b.mu.Lock()
	m := b.subs[runID]
	for ch := range m {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
