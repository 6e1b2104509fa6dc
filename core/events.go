package core

import (
	"sync"
	"time"
)

// EventType enumerates module lifecycle notifications.
type EventType int

const (
	EventLoading EventType = iota
	EventLoaded
	EventUnloaded
	EventFailed
)

func (t EventType) String() string {
	switch t {
	case EventLoading:
		return "loading"
	case EventLoaded:
		return "loaded"
	case EventUnloaded:
		return "unloaded"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a module lifecycle notification. Loaded events carry the elapsed
// load time; Failed events carry the error.
type Event struct {
	Type     EventType
	ModuleID string
	Elapsed  time.Duration
	Err      error
	At       time.Time
}

// eventDispatcher fans events out to subscriber channels. Delivery is
// non-blocking: a subscriber with a full buffer misses the event rather than
// stalling a load.
type eventDispatcher struct {
	mu   sync.RWMutex
	subs []chan Event
}

func (d *eventDispatcher) subscribe(ch chan Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, ch)
}

func (d *eventDispatcher) publish(evt Event) {
	d.mu.RLock()
	subs := append([]chan Event(nil), d.subs...)
	d.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
