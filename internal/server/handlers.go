package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ballparklive/ballpark/internal/feed"
	"github.com/ballparklive/ballpark/internal/mlb"
)

// HandleLiveFeed streams enriched live events over SSE. Registering the
// subscription starts upstream polling when this is the first listener;
// disconnecting (or a stream error) deregisters it exactly once.
func (s *Server) HandleLiveFeed(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	stream, ok := newSSEStream(w)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	sub := s.arena.Subscribe(gameID)
	defer sub.Close()

	s.logger.Info("live feed client connected",
		zap.String("gameID", gameID),
		zap.String("subscription", sub.ID()),
		zap.String("remoteAddr", r.RemoteAddr),
	)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("live feed client disconnected",
				zap.String("gameID", gameID),
				zap.String("subscription", sub.ID()),
			)
			return
		case event, open := <-sub.Events():
			if !open {
				if err := sub.Err(); err != nil {
					// Terminal error frame, not a silent hang. The client
					// must resubscribe to recover.
					_ = stream.Send("error", map[string]string{"error": err.Error()})
				}
				return
			}
			if err := stream.Send("mlb-update", event); err != nil {
				s.logger.Debug("failed to write to live feed client", zap.Error(err))
				return
			}
		}
	}
}

// HandleReplay streams a completed game's play history over SSE, gated on a
// prediction prompt.
func (s *Server) HandleReplay(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing required 'userId' query parameter", http.StatusBadRequest)
		return
	}

	stream, ok := newSSEStream(w)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	s.logger.Info("replay client connected",
		zap.String("gameID", gameID),
		zap.String("userID", userID),
		zap.String("remoteAddr", r.RemoteAddr),
	)

	if err := s.replay.Stream(r.Context(), gameID, userID, stream); err != nil {
		s.logger.Error("replay stream failed",
			zap.String("gameID", gameID),
			zap.String("userID", userID),
			zap.Error(err),
		)
		_ = stream.Send("error", map[string]string{"error": err.Error()})
	}
}

// HandlePredict records a user's prediction for a game.
func (s *Server) HandlePredict(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing required 'userId' query parameter", http.StatusBadRequest)
		return
	}

	var body struct {
		Prediction string `json:"prediction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	prediction := strings.TrimSpace(body.Prediction)
	if prediction == "" {
		http.Error(w, "prediction must not be empty", http.StatusBadRequest)
		return
	}

	saved := s.replay.SavePrediction(r.Context(), userID, gameID, prediction)
	writeJSON(w, http.StatusOK, saved)
}

// HandleLiveStatus serves the point-in-time scoreboard for a game.
func (s *Server) HandleLiveStatus(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	status, err := s.arena.LiveStatus(r.Context(), gameID)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrNoCurrentPlay):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, mlb.ErrNotFound):
			http.Error(w, "game not found", http.StatusNotFound)
		default:
			s.logger.Error("live status query failed", zap.String("gameID", gameID), zap.Error(err))
			http.Error(w, "failed to fetch game data", http.StatusBadGateway)
		}
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// HandleSchedule proxies the schedule query for a date range.
func (s *Server) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	startDate := r.URL.Query().Get("startDate")
	endDate := r.URL.Query().Get("endDate")
	if startDate == "" || endDate == "" {
		http.Error(w, "missing required 'startDate'/'endDate' query parameters", http.StatusBadRequest)
		return
	}

	schedule, err := s.client.GetSchedule(r.Context(), startDate, endDate)
	if err != nil {
		s.logger.Error("schedule query failed", zap.Error(err))
		http.Error(w, "failed to fetch schedule", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
