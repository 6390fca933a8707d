package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ballparklive/ballpark/internal/commentary"
	"github.com/ballparklive/ballpark/internal/game"
	"github.com/ballparklive/ballpark/internal/mlb"
	"github.com/ballparklive/ballpark/internal/notify"
)

// ErrSlowSubscriber terminates a subscription whose event buffer overflowed.
var ErrSlowSubscriber = errors.New("subscriber too slow, event buffer overflow")

// Aggregator runs the polling loop for one game: it consults the registry,
// the cursor, and the event queue each tick, fetches snapshots when needed,
// extracts and enriches events, and fans them out to every subscriber.
//
// The cursor, the queue, and lastConsumed are mutated only from the polling
// goroutine. The reset demanded by the last subscriber leaving is therefore
// also executed there, on the next wake-up after the registry goes idle.
type Aggregator struct {
	gameID      string
	client      mlb.Client
	commentator commentary.Commentator
	notifier    notify.Notifier
	interval    time.Duration
	buffer      int
	logger      *zap.Logger

	registry *Registry
	cursor   *Cursor
	queue    eventQueue

	lastConsumed string

	mu   sync.Mutex
	subs map[*Subscription]struct{}

	wake      chan struct{}
	needReset atomic.Bool
}

func NewAggregator(gameID string, client mlb.Client, commentator commentary.Commentator, notifier notify.Notifier, interval time.Duration, buffer int, logger *zap.Logger) *Aggregator {
	if notifier == nil {
		notifier = &notify.NoopNotifier{}
	}

	a := &Aggregator{
		gameID:      gameID,
		client:      client,
		commentator: commentator,
		notifier:    notifier,
		interval:    interval,
		buffer:      buffer,
		logger:      logger,
		cursor:      NewCursor(gameID, client, logger),
		subs:        make(map[*Subscription]struct{}),
		wake:        make(chan struct{}, 1),
	}
	a.registry = NewRegistry(a.idle)
	return a
}

// idle marks the polling state for reset and wakes the loop. The reset runs
// even when a new subscriber arrives before the loop gets there: whoever
// triggered the zero-subscriber transition gets a clean slate behind them.
func (a *Aggregator) idle() {
	a.needReset.Store(true)
	a.poke()
}

// Registry exposes the subscriber registry, mainly for tests and metrics.
func (a *Aggregator) Registry() *Registry {
	return a.registry
}

// Subscribe registers a new live-feed listener and pokes the polling loop so
// the first tick happens immediately rather than one interval later.
func (a *Aggregator) Subscribe() *Subscription {
	sub := &Subscription{
		id:     uuid.New().String(),
		agg:    a,
		events: make(chan game.Event, a.buffer),
	}

	a.mu.Lock()
	a.subs[sub] = struct{}{}
	a.mu.Unlock()

	count := a.registry.Register()
	a.logger.Info("subscriber connected",
		zap.String("gameID", a.gameID),
		zap.String("subscription", sub.id),
		zap.Int("subscribers", count),
	)

	a.poke()
	return sub
}

// remove tears down one subscription with the given terminal error.
func (a *Aggregator) remove(sub *Subscription, err error) {
	a.mu.Lock()
	_, ok := a.subs[sub]
	if ok {
		delete(a.subs, sub)
	}
	a.mu.Unlock()

	if !ok {
		return
	}

	sub.finish(err)
	count := a.registry.Deregister()
	a.logger.Info("subscriber disconnected",
		zap.String("gameID", a.gameID),
		zap.String("subscription", sub.id),
		zap.Int("subscribers", count),
	)
}

// poke wakes the polling loop outside its regular tick schedule.
func (a *Aggregator) poke() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Run processes ticks until the context is cancelled. Call in a goroutine.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("aggregator started",
		zap.String("gameID", a.gameID),
		zap.Duration("interval", a.interval),
	)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("aggregator stopping", zap.String("gameID", a.gameID))
			a.failAll(ctx, nil)
			a.reset()
			return
		case <-a.wake:
		case <-ticker.C:
		}
		a.tick(ctx)
	}
}

// tick is one pass of the polling state machine.
func (a *Aggregator) tick(ctx context.Context) {
	if a.needReset.CompareAndSwap(true, false) {
		a.reset()
	}
	if !a.registry.Active() {
		a.reset()
		return
	}

	// Drain queued events before issuing a new upstream fetch: at most one
	// outstanding fetch per tick.
	if event, ok := a.queue.dequeue(); ok {
		a.deliver(event)
		return
	}

	timestamp, ok, err := a.cursor.Next(ctx, a.lastConsumed)
	if err != nil {
		a.logger.Error("failed to advance timestamp cursor",
			zap.String("gameID", a.gameID),
			zap.Error(err),
		)
		a.failAll(ctx, err)
		return
	}
	if !ok {
		return
	}

	// Defensive dedup: never process the same timestamp twice.
	if timestamp == a.lastConsumed {
		return
	}

	events, aborted, err := a.collectEvents(ctx, timestamp)
	if err != nil {
		a.logger.Error("failed to process snapshot",
			zap.String("gameID", a.gameID),
			zap.String("timestamp", timestamp),
			zap.Error(err),
		)
		a.failAll(ctx, err)
		return
	}
	if aborted {
		// Subscribers left mid-tick; partial work is discarded and the idle
		// reset wipes the rest.
		return
	}

	a.lastConsumed = timestamp

	if len(events) == 0 {
		return
	}
	a.deliver(events[0])
	a.queue.enqueue(events[1:]...)
}

// collectEvents fetches the snapshot for one timestamp and turns its plays
// into enriched events. It rechecks the active flag before every upstream or
// enrichment call so no commentary is generated for an audience that already
// left; aborted is true when that happened.
func (a *Aggregator) collectEvents(ctx context.Context, timestamp string) (events []game.Event, aborted bool, err error) {
	if !a.registry.Active() {
		return nil, true, nil
	}

	feed, err := a.client.GetFeedAt(ctx, a.gameID, timestamp)
	if err != nil {
		return nil, false, fmt.Errorf("fetching snapshot: %w", err)
	}

	for _, play := range feed.LiveData.Plays.AllPlays {
		if !a.registry.Active() {
			return nil, true, nil
		}

		event := game.EventFromPlay(play)
		if !game.Valid(event) {
			continue
		}

		contextJSON, err := json.Marshal(game.LiveContext(feed, play))
		if err != nil {
			a.logger.Error("failed to build commentary context", zap.Error(err))
			continue
		}

		text, err := a.commentator.Generate(ctx, "live-"+a.gameID, contextJSON)
		if err != nil {
			return nil, false, fmt.Errorf("enriching event: %w", err)
		}

		event.Description = text
		event.Timestamp = timestamp
		events = append(events, event)

		a.logger.Info("extracted game event",
			zap.String("gameID", a.gameID),
			zap.String("type", event.Type),
			zap.String("timestamp", timestamp),
		)
	}

	return events, false, nil
}

// deliver broadcasts one event to every registered subscription. A listener
// whose buffer is full is dropped rather than allowed to stall the feed.
func (a *Aggregator) deliver(event game.Event) {
	a.mu.Lock()
	subs := make([]*Subscription, 0, len(a.subs))
	for sub := range a.subs {
		subs = append(subs, sub)
	}
	a.mu.Unlock()

	for _, sub := range subs {
		if sub.trySend(event) {
			a.logger.Warn("subscriber buffer full, dropping",
				zap.String("gameID", a.gameID),
				zap.String("subscription", sub.id),
			)
			a.remove(sub, ErrSlowSubscriber)
		}
	}
}

// failAll terminates every subscription with err (nil for a clean shutdown).
func (a *Aggregator) failAll(ctx context.Context, err error) {
	a.mu.Lock()
	subs := make([]*Subscription, 0, len(a.subs))
	for sub := range a.subs {
		subs = append(subs, sub)
	}
	a.mu.Unlock()

	for _, sub := range subs {
		a.remove(sub, err)
	}

	if err != nil && len(subs) > 0 {
		if nerr := a.notifier.StreamFailed(ctx, a.gameID, err); nerr != nil {
			a.logger.Warn("failed to send stream-failure notification", zap.Error(nerr))
		}
	}
}

// reset clears cursor, queue, and last-consumed so a future first subscriber
// starts from "everything is new". Idempotent.
func (a *Aggregator) reset() {
	if a.cursor.empty() && a.queue.len() == 0 && a.lastConsumed == "" {
		return
	}
	a.cursor.Reset()
	a.queue.reset()
	a.lastConsumed = ""
	a.logger.Info("all subscribers gone, polling state reset", zap.String("gameID", a.gameID))
}
