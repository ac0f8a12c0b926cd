package stream

import (
	"context"
	"sync"
	"time"
)

// Event kinds published on the platform feed.
const (
	KindPaperCreated     = "paper.created"
	KindPaperUpdated     = "paper.updated"
	KindPaperDeactivated = "paper.deactivated"
	KindPaperExtended    = "paper.extended"
	KindPaperValidated   = "paper.validated"
	KindPaperSuperseded  = "paper.superseded"
	KindRolesRecomputed  = "roles.recomputed"
)

// Event describes a paper mutation or a role recomputation for live
// dashboard consumers (SSE clients).
type Event struct {
	Kind              string    `json:"kind"`
	IdentityID        string    `json:"identity_id"`
	PaperID           string    `json:"paper_id,omitempty"`
	BusinessContextID string    `json:"business_context_id,omitempty"`
	Roles             []string  `json:"roles,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Stream fan-outs events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt Event) {
	if s == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
