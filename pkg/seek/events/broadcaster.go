// Package events distributes session progress and completion events to
// subscribers.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/seek/pkg/seek/types"
)

// EventType represents the type of session event.
type EventType int

const (
	EventProgress EventType = iota
	EventCompleted
)

// String returns the event type name.
func (t EventType) String() string {
	if t == EventCompleted {
		return "completed"
	}
	return "progress"
}

// Event is a progress report or the terminal outcome of a session.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	Time      time.Time       `json:"time"`
	Progress  *types.Progress `json:"progress,omitempty"`
	Outcome   *types.Outcome  `json:"outcome,omitempty"`
}

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 100

// Subscriber receives events. SessionID filters to one session when set.
type Subscriber struct {
	ID        string
	SessionID string
	Events    chan *Event
}

// Broadcaster manages subscribers and distributes session events.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// New creates a new Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe creates a subscription. An empty sessionID receives every session.
func (b *Broadcaster) Subscribe(sessionID string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Events:    make(chan *Event, DefaultBufferSize),
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Progress publishes a progress event. Slow subscribers miss it.
func (b *Broadcaster) Progress(sessionID string, p types.Progress) {
	ev := &Event{Type: EventProgress, SessionID: sessionID, Time: time.Now(), Progress: &p}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.subscribers {
		if !sub.matches(sessionID) {
			continue
		}
		select {
		case sub.Events <- ev:
		default:
			// Channel full, event dropped
		}
	}
}

// Completed publishes the terminal event of a session. It is never dropped:
// when a subscriber's buffer is full, its oldest queued events are
// discarded to make room.
func (b *Broadcaster) Completed(o types.Outcome) {
	ev := &Event{Type: EventCompleted, SessionID: o.SessionID, Time: time.Now(), Outcome: &o}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.subscribers {
		if !sub.matches(o.SessionID) {
			continue
		}
		for delivered := false; !delivered; {
			select {
			case sub.Events <- ev:
				delivered = true
			default:
				select {
				case <-sub.Events:
				default:
				}
			}
		}
	}
}

func (s *Subscriber) matches(sessionID string) bool {
	return s.SessionID == "" || s.SessionID == sessionID
}

// Close closes the broadcaster and all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
