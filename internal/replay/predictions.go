package replay

import (
	"context"
	"sync"
	"time"
)

// Prediction is one user's free-text call on a game, recorded against the
// play index it was made at. The next save for the same (user, game) pair
// supersedes it.
type Prediction struct {
	Text      string    `json:"prediction"`
	CreatedAt time.Time `json:"predictionTime"`
	PlayIndex int       `json:"playIndex"`
}

// Store holds the most recent prediction per (user, game) pair and lets a
// replay flow wait for the next one with a bounded timeout. Safe for
// concurrent use.
type Store struct {
	mu          sync.Mutex
	predictions map[string]Prediction
	pending     map[string]chan Prediction
}

func NewStore() *Store {
	return &Store{
		predictions: make(map[string]Prediction),
		pending:     make(map[string]chan Prediction),
	}
}

func storeKey(userID, gameID string) string {
	return userID + "-" + gameID
}

// Save records a prediction, overwriting any prior value, and resolves a
// pending wait for the same key. Back-to-back saves before the waiter runs
// leave only the newest value observable.
func (s *Store) Save(userID, gameID, text string, playIndex int) Prediction {
	prediction := Prediction{
		Text:      text,
		CreatedAt: time.Now(),
		PlayIndex: playIndex,
	}

	key := storeKey(userID, gameID)

	s.mu.Lock()
	s.predictions[key] = prediction
	if ch, ok := s.pending[key]; ok {
		// Replace any unobserved value so the waiter sees the latest.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- prediction:
		default:
		}
	}
	s.mu.Unlock()

	return prediction
}

// Get returns the stored prediction for the key, if any.
func (s *Store) Get(userID, gameID string) (Prediction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prediction, ok := s.predictions[storeKey(userID, gameID)]
	return prediction, ok
}

// WaitFor returns the stored prediction immediately when one exists;
// otherwise it blocks until Save resolves it or the timeout elapses. A
// timeout is a normal outcome (ok=false, nil error), and the pending-wait
// registration is removed regardless of how the wait ends.
func (s *Store) WaitFor(ctx context.Context, userID, gameID string, timeout time.Duration) (Prediction, bool, error) {
	key := storeKey(userID, gameID)

	s.mu.Lock()
	if prediction, ok := s.predictions[key]; ok {
		s.mu.Unlock()
		return prediction, true, nil
	}
	ch := make(chan Prediction, 1)
	s.pending[key] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.pending[key] == ch {
			delete(s.pending, key)
		}
		s.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case prediction := <-ch:
		return prediction, true, nil
	case <-timer.C:
		return Prediction{}, false, nil
	case <-ctx.Done():
		return Prediction{}, false, ctx.Err()
	}
}

// Reset drops all predictions and pending waits.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions = make(map[string]Prediction)
	s.pending = make(map[string]chan Prediction)
}
