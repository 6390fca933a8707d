// Package replay re-delivers a completed game's play history at a fixed
// cadence, gated on an initial per-user prediction with a bounded wait.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ballparklive/ballpark/internal/commentary"
	"github.com/ballparklive/ballpark/internal/game"
	"github.com/ballparklive/ballpark/internal/mlb"
	"github.com/ballparklive/ballpark/internal/notify"
)

// Frame event names emitted on a replay stream.
const (
	EventRequestPrediction = "request_prediction"
	EventMetadata          = "metadata"
	EventPlay              = "play"
	EventComplete          = "complete"
)

// Sink receives the frames of one replay stream, in order.
type Sink interface {
	Send(event string, data any) error
}

// Metadata is the first frame of a replay.
type Metadata struct {
	HomeTeam       string `json:"homeTeam"`
	AwayTeam       string `json:"awayTeam"`
	GameDate       string `json:"gameDate"`
	UserPrediction string `json:"userPrediction,omitempty"`
}

// PlayFrame packages one enriched event with the scoreboard derived for that
// play and the prediction active at emission time.
type PlayFrame struct {
	Event          game.Event      `json:"event"`
	Status         game.LiveStatus `json:"status"`
	UserPrediction *Prediction     `json:"userPrediction,omitempty"`
}

// Service drives replay streams and owns the prediction store.
type Service struct {
	client        mlb.Client
	commentator   commentary.Commentator
	store         *Store
	notifier      notify.Notifier
	promptTimeout time.Duration
	cadence       time.Duration
	logger        *zap.Logger
}

func NewService(client mlb.Client, commentator commentary.Commentator, store *Store, notifier notify.Notifier, promptTimeout, cadence time.Duration, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = &notify.NoopNotifier{}
	}
	return &Service{
		client:        client,
		commentator:   commentator,
		store:         store,
		notifier:      notifier,
		promptTimeout: promptTimeout,
		cadence:       cadence,
		logger:        logger,
	}
}

// Store exposes the prediction store.
func (s *Service) Store() *Store {
	return s.store
}

// SavePrediction records a prediction against the game's current play index,
// fetched from upstream at save time.
func (s *Service) SavePrediction(ctx context.Context, userID, gameID, text string) Prediction {
	index := s.currentPlayIndex(ctx, gameID)
	prediction := s.store.Save(userID, gameID, text, index)

	s.logger.Info("prediction saved",
		zap.String("userID", userID),
		zap.String("gameID", gameID),
		zap.Int("playIndex", index),
	)
	return prediction
}

func (s *Service) currentPlayIndex(ctx context.Context, gameID string) int {
	feed, err := s.client.GetFeed(ctx, gameID)
	if err != nil {
		s.logger.Error("failed to get current play index", zap.String("gameID", gameID), zap.Error(err))
		return 0
	}
	plays := feed.LiveData.Plays.AllPlays
	if len(plays) == 0 {
		return 0
	}
	return len(plays) - 1
}

// Stream runs one replay for (userID, gameID) into sink: it prompts for a
// prediction when none exists, waits up to the prompt timeout (a timeout is
// not an error), then walks the full play history at the configured cadence.
// The caller is responsible for turning a non-nil return into a terminal
// error frame.
func (s *Service) Stream(ctx context.Context, gameID, userID string, sink Sink) error {
	start := time.Now()

	prediction, havePrediction := s.store.Get(userID, gameID)
	if !havePrediction {
		if err := sink.Send(EventRequestPrediction, "Please make your prediction for the game"); err != nil {
			return fmt.Errorf("sending prediction prompt: %w", err)
		}

		var err error
		prediction, havePrediction, err = s.store.WaitFor(ctx, userID, gameID, s.promptTimeout)
		if err != nil {
			return fmt.Errorf("waiting for prediction: %w", err)
		}
		if !havePrediction {
			s.logger.Warn("no prediction received within timeout",
				zap.String("userID", userID),
				zap.String("gameID", gameID),
			)
		}
	}

	feed, err := s.client.GetFeed(ctx, gameID)
	if err != nil {
		return fmt.Errorf("fetching game data: %w", err)
	}

	metadata := Metadata{
		HomeTeam: feed.GameData.Teams.Home.Name,
		AwayTeam: feed.GameData.Teams.Away.Name,
		GameDate: feed.GameData.Game.GameDate,
	}
	if havePrediction {
		metadata.UserPrediction = prediction.Text
	}
	if err := sink.Send(EventMetadata, metadata); err != nil {
		return fmt.Errorf("sending metadata: %w", err)
	}

	// Scores only move forward: a play without score fields leaves the
	// running totals unchanged.
	var awayScore, homeScore int
	plays := feed.LiveData.Plays.AllPlays

	for i := range plays {
		play := plays[i]
		if play.Result.AwayScore != nil {
			awayScore = *play.Result.AwayScore
		}
		if play.Result.HomeScore != nil {
			homeScore = *play.Result.HomeScore
		}

		if err := s.emitPlay(ctx, sink, feed, play, userID, gameID, awayScore, homeScore); err != nil {
			return err
		}

		if i < len(plays)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cadence):
			}
		}
	}

	if err := sink.Send(EventComplete, "Game replay completed"); err != nil {
		return fmt.Errorf("sending completion: %w", err)
	}

	if err := s.notifier.ReplayCompleted(ctx, userID, gameID, len(plays), time.Since(start)); err != nil {
		s.logger.Warn("failed to send replay notification", zap.Error(err))
	}
	return nil
}

// emitPlay enriches and delivers a single play. Enrichment failures skip the
// play; only delivery failures abort the replay.
func (s *Service) emitPlay(ctx context.Context, sink Sink, feed *mlb.GameFeed, play mlb.Play, userID, gameID string, awayScore, homeScore int) error {
	// Re-read so a prediction submitted mid-replay shows up on later plays.
	var active *Prediction
	predictionText := ""
	if current, ok := s.store.Get(userID, gameID); ok {
		active = &current
		predictionText = current.Text
	}

	contextJSON, err := json.Marshal(game.ReplayContext(feed, play, predictionText, awayScore, homeScore))
	if err != nil {
		s.logger.Error("failed to build commentary context", zap.Error(err))
		return nil
	}

	text, err := s.commentator.Generate(ctx, storeKey(userID, gameID), contextJSON)
	if err != nil {
		s.logger.Error("failed to enrich play, skipping",
			zap.String("gameID", gameID),
			zap.Error(err),
		)
		return nil
	}

	event := game.EventFromPlay(play)
	event.Description = text
	event.AwayScore = awayScore
	event.HomeScore = homeScore

	frame := PlayFrame{
		Event:          event,
		Status:         game.BuildLiveStatus(feed, &play, awayScore, homeScore),
		UserPrediction: active,
	}

	if err := sink.Send(EventPlay, frame); err != nil {
		return fmt.Errorf("sending play frame: %w", err)
	}
	return nil
}
