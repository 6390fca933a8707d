package feed

import (
	"sync"

	"github.com/ballparklive/ballpark/internal/game"
)

// Subscription is one live-feed listener. Events arrive on Events until the
// channel closes; after that Err reports whether the stream ended because of
// a failure. A subscriber whose stream errored must resubscribe to recover.
type Subscription struct {
	id     string
	agg    *Aggregator
	events chan game.Event

	mu     sync.Mutex
	err    error
	closed bool
	once   sync.Once
}

// ID returns the unique identifier of this subscription.
func (s *Subscription) ID() string {
	return s.id
}

// Events is the stream of enriched game events.
func (s *Subscription) Events() <-chan game.Event {
	return s.events
}

// Err returns the terminal error, if any, once Events has closed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close deregisters the subscription. Safe to call more than once; connect,
// disconnect, and error completion paths all funnel through the same
// one-shot teardown.
func (s *Subscription) Close() {
	s.agg.remove(s, nil)
}

// trySend queues an event unless the subscription is already closed or its
// buffer is full. It holds the same lock finish closes the channel under, so
// a disconnect can never race a send onto a closed channel. full is true
// when the event was dropped because the buffer overflowed.
func (s *Subscription) trySend(event game.Event) (full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.events <- event:
		return false
	default:
		return true
	}
}

// finish records the terminal error and closes the event channel exactly once.
func (s *Subscription) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.closed = true
		close(s.events)
		s.mu.Unlock()
	})
}
