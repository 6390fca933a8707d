package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ballparklive/ballpark/internal/commentary"
	"github.com/ballparklive/ballpark/internal/game"
	"github.com/ballparklive/ballpark/internal/mlb"
	"github.com/ballparklive/ballpark/internal/notify"
)

// ErrNoCurrentPlay means the feed document had no current play to derive a
// live status from.
var ErrNoCurrentPlay = errors.New("no current play data available")

// Arena holds one aggregator per game, created lazily on first subscription.
// All polling state is keyed by game ID; nothing is process-wide.
type Arena struct {
	ctx         context.Context
	client      mlb.Client
	commentator commentary.Commentator
	notifier    notify.Notifier
	interval    time.Duration
	buffer      int
	logger      *zap.Logger

	mu   sync.Mutex
	aggs map[string]*Aggregator
}

// NewArena creates the arena. ctx bounds the lifetime of every aggregator
// started from it.
func NewArena(ctx context.Context, client mlb.Client, commentator commentary.Commentator, notifier notify.Notifier, interval time.Duration, buffer int, logger *zap.Logger) *Arena {
	return &Arena{
		ctx:         ctx,
		client:      client,
		commentator: commentator,
		notifier:    notifier,
		interval:    interval,
		buffer:      buffer,
		logger:      logger,
		aggs:        make(map[string]*Aggregator),
	}
}

// Aggregator returns the aggregator for a game, starting its polling loop on
// first use.
func (a *Arena) Aggregator(gameID string) *Aggregator {
	a.mu.Lock()
	defer a.mu.Unlock()

	agg, ok := a.aggs[gameID]
	if !ok {
		agg = NewAggregator(gameID, a.client, a.commentator, a.notifier, a.interval, a.buffer, a.logger)
		a.aggs[gameID] = agg
		go agg.Run(a.ctx)
	}
	return agg
}

// Subscribe attaches a new live-feed listener to a game.
func (a *Arena) Subscribe(gameID string) *Subscription {
	return a.Aggregator(gameID).Subscribe()
}

// LiveStatus is the point-in-time scoreboard query. It fetches the current
// feed document once and derives everything from it.
func (a *Arena) LiveStatus(ctx context.Context, gameID string) (game.LiveStatus, error) {
	feed, err := a.client.GetFeed(ctx, gameID)
	if err != nil {
		return game.LiveStatus{}, err
	}

	currentPlay := feed.LiveData.Plays.CurrentPlay
	if currentPlay == nil {
		return game.LiveStatus{}, ErrNoCurrentPlay
	}

	linescore := feed.LiveData.Linescore
	return game.BuildLiveStatus(feed, currentPlay, linescore.Teams.Away.Runs, linescore.Teams.Home.Runs), nil
}
