package journal

import (
	"sync"

	"github.com/peertrade/tradecore/pkg/engine/model"
)

// Journal is the in-memory event history of the engine's orders. It also
// tracks applied settlement payments, backing the replay protection of the
// finalize callback. A buffered feed hands events to the persistence worker.
type Journal struct {
	mu      sync.RWMutex
	events  map[model.OrderKey][]*model.OrderEvent
	settled map[string]struct{}
	feed    chan *model.OrderEvent
}

func New(feedSize int) *Journal {
	if feedSize <= 0 {
		feedSize = 1024
	}
	return &Journal{
		events:  make(map[model.OrderKey][]*model.OrderEvent),
		settled: make(map[string]struct{}),
		feed:    make(chan *model.OrderEvent, feedSize),
	}
}

// Append records one event and offers it to the feed. A full feed drops the
// persistence copy rather than stalling the matching path.
func (j *Journal) Append(ev *model.OrderEvent) {
	j.mu.Lock()
	key := ev.OrderKey()
	j.events[key] = append(j.events[key], ev)
	j.mu.Unlock()

	select {
	case j.feed <- ev:
	default:
	}
}

// Events returns the recorded history of one order.
func (j *Journal) Events(key model.OrderKey) []*model.OrderEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]*model.OrderEvent(nil), j.events[key]...)
}

// MarkSettled records a payment fingerprint as applied. Returns false if it
// was already present.
func (j *Journal) MarkSettled(fingerprint string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.settled[fingerprint]; ok {
		return false
	}
	j.settled[fingerprint] = struct{}{}
	return true
}

// Settled reports whether a payment fingerprint has been applied.
func (j *Journal) Settled(fingerprint string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, ok := j.settled[fingerprint]
	return ok
}

// Feed is the channel the persistence worker drains.
func (j *Journal) Feed() <-chan *model.OrderEvent {
	return j.feed
}
