package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies what changed.
type Type string

const (
	// TypeStoreReset means the image list was fully replaced.
	TypeStoreReset Type = "store_reset"
	// TypeStoreRemove means a single image left the list.
	TypeStoreRemove Type = "store_remove"
	// TypeScanStarted means a scan session became live.
	TypeScanStarted Type = "scan_started"
	// TypeScanFinished means the live scan session ended (any outcome).
	TypeScanFinished Type = "scan_finished"
)

// Event is one change notification delivered to subscribers.
type Event struct {
	Type      Type      `json:"type"`
	Path      string    `json:"path,omitempty"`
	Total     int       `json:"total"`
	SessionID string    `json:"session_id,omitempty"`
	Busy      bool      `json:"busy"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster fans events out to SSE subscribers. Slow subscribers are
// skipped, never blocked on.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	closed      bool
	log         *slog.Logger
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]chan Event),
		log:         slog.Default().With("component", "event-broadcaster"),
	}
}

// Subscribe registers a new subscriber and returns its ID and a buffered
// channel of events. Callers must Unsubscribe when done, normally in a defer.
func (b *Broadcaster) Subscribe() (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subID := uuid.NewString()
	ch := make(chan Event, 16)
	if b.closed {
		close(ch)
		return subID, ch
	}
	b.subscribers[subID] = ch
	return subID, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[subID]; ok {
		close(ch)
		delete(b.subscribers, subID)
	}
}

// Publish delivers ev to every subscriber. Subscribers with a full buffer are
// skipped so one stalled client cannot hold up the rest.
func (b *Broadcaster) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for subID, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.log.Warn("Subscriber channel full, dropping event",
				"subscriber_id", subID, "type", ev.Type)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close drops all subscribers and rejects future events.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[string]chan Event)
	return nil
}
