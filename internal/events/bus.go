// Package events is the in-process bus that fans pipeline activity out to
// the hook server's SSE stream and to tests. Publishing never blocks: a
// subscriber that falls behind loses its oldest buffered events.
package events

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Event is anything published on the bus.
type Event interface {
	EventType() string
	Timestamp() time.Time
	SessionID() string
}

// BaseEvent carries the fields every event shares.
type BaseEvent struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"timestamp"`
	Session string    `json:"session_id,omitempty"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) SessionID() string    { return e.Session }

// NewBaseEvent stamps an event of eventType with the current UTC time.
func NewBaseEvent(eventType, sessionID string) BaseEvent {
	return BaseEvent{Type: eventType, Time: time.Now().UTC(), Session: sessionID}
}

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(event Event)
}

const defaultBufferSize = 100

type subscription struct {
	ch      chan Event
	types   map[string]bool // empty: every type
	session string          // empty: every session
}

func (s *subscription) wants(e Event) bool {
	if len(s.types) > 0 && !s.types[e.EventType()] {
		return false
	}
	return s.session == "" || s.session == e.SessionID()
}

// offer delivers e, evicting the oldest buffered event when the buffer is
// full. It returns how many events were lost.
func (s *subscription) offer(e Event) int64 {
	select {
	case s.ch <- e:
		return 0
	default:
	}
	var lost int64
	select {
	case <-s.ch:
		lost++
	default:
	}
	select {
	case s.ch <- e:
	default:
		lost++
	}
	return lost
}

// EventBus is a fan-out bus with per-subscriber ring buffers.
type EventBus struct {
	mu         sync.RWMutex
	subs       []*subscription
	bufferSize int
	closed     bool
	dropped    atomic.Int64
}

// New returns a bus whose subscribers buffer bufferSize events. A
// non-positive size uses 100.
func New(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &EventBus{bufferSize: bufferSize}
}

// Subscribe receives events of the given types, or of every type when none
// are given.
func (eb *EventBus) Subscribe(types ...string) <-chan Event {
	return eb.SubscribeForSession("", types...)
}

// SubscribeForSession is Subscribe restricted to one host session. An empty
// sessionID receives every session. On a closed bus the channel is already
// closed.
func (eb *EventBus) SubscribeForSession(sessionID string, types ...string) <-chan Event {
	sub := &subscription{
		ch:      make(chan Event, eb.bufferSize),
		types:   make(map[string]bool, len(types)),
		session: sessionID,
	}
	for _, t := range types {
		sub.types[t] = true
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		close(sub.ch)
	} else {
		eb.subs = append(eb.subs, sub)
	}
	return sub.ch
}

// Unsubscribe closes ch and stops delivering to it. Unknown channels are
// ignored.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subs = slices.DeleteFunc(eb.subs, func(s *subscription) bool {
		if s.ch != ch {
			return false
		}
		close(s.ch)
		return true
	})
}

// Publish delivers event to every matching subscriber without blocking.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return
	}
	for _, s := range eb.subs {
		if s.wants(event) {
			if lost := s.offer(event); lost > 0 {
				eb.dropped.Add(lost)
			}
		}
	}
}

// DroppedCount returns how many events slow subscribers have lost.
func (eb *EventBus) DroppedCount() int64 {
	return eb.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	for _, s := range eb.subs {
		close(s.ch)
	}
	eb.subs = nil
}
