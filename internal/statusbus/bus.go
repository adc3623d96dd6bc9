// Package statusbus keeps the status messages of concurrent operations
// (search, barcode lookup, vitrin ranking) and decides which one is shown.
package statusbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/findalleasy/vitrin/internal/domain"
	"github.com/google/uuid"
)

// subscriberBuffer is the channel size of each subscriber. A full channel drops events.
const subscriberBuffer = 32

// Bus is an in-process publish/subscribe hub for status updates.
// It is safe for concurrent use.
type Bus struct {
	mu          sync.RWMutex
	latest      map[string]domain.Status
	subscribers map[string]chan domain.Status
	closed      bool

	sequence atomic.Uint64
	now      func() time.Time
}

// New creates an empty bus
func New() *Bus {
	return &Bus{
		latest:      make(map[string]domain.Status),
		subscribers: make(map[string]chan domain.Status),
		now:         time.Now,
	}
}

// Publish records status as the latest one of its source and fans it out.
// The stamped status is returned.
func (b *Bus) Publish(status domain.Status) domain.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return status
	}

	// stamped under the lock so the stored latest status always has the highest seq
	status.Seq = b.sequence.Add(1)
	status.UpdatedAt = b.now()

	b.latest[status.Source] = status
	for _, ch := range b.subscribers {
		select {
		case ch <- status:
		default: // subscriber is behind
		}
	}
	return status
}

// Clear forgets the latest status of a source
func (b *Bus) Clear(source string) {
	b.mu.Lock()
	delete(b.latest, source)
	b.mu.Unlock()
}

// Current returns the status to display: highest priority first, then the
// most recently published.
func (b *Bus) Current() (domain.Status, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var best domain.Status
	found := false
	for _, s := range b.latest {
		if !found || s.Priority > best.Priority || (s.Priority == best.Priority && s.Seq > best.Seq) {
			best = s
			found = true
		}
	}
	return best, found
}

// Snapshot returns the latest status of every source
func (b *Bus) Snapshot() []domain.Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Status, 0, len(b.latest))
	for _, s := range b.latest {
		out = append(out, s)
	}
	return out
}

// Subscribe returns a subscription id and a channel receiving every later status.
// On a closed bus the channel is already closed.
func (b *Bus) Subscribe() (string, <-chan domain.Status) {
	id := uuid.NewString()
	ch := make(chan domain.Status, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe closes and removes a subscription. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Close closes every subscription; later publishes are dropped
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Stats returns current bus statistics
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Sources:        len(b.latest),
		Subscribers:    len(b.subscribers),
		TotalPublished: b.sequence.Load(),
		Closed:         b.closed,
	}
}

// Stats holds bus statistics
type Stats struct {
	Sources        int    `json:"sources"`
	Subscribers    int    `json:"subscribers"`
	TotalPublished uint64 `json:"totalPublished"`
	Closed         bool   `json:"closed"`
}
