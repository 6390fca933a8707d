package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ballparklive/ballpark/internal/feed"
	"github.com/ballparklive/ballpark/internal/mlb"
	"github.com/ballparklive/ballpark/internal/replay"
	"github.com/ballparklive/ballpark/internal/ws"
)

// Server wires the HTTP surface to the feed arena and the replay service.
type Server struct {
	arena  *feed.Arena
	replay *replay.Service
	client mlb.Client
	logger *zap.Logger
}

func NewServer(arena *feed.Arena, replaySvc *replay.Service, client mlb.Client, logger *zap.Logger) *Server {
	return &Server{
		arena:  arena,
		replay: replaySvc,
		client: client,
		logger: logger,
	}
}

func NewRouter(server *Server, hub *ws.Hub, negotiate *ws.NegotiateHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)
	r.Use(zapLoggerMiddleware(logger))

	r.Route("/games", func(r chi.Router) {
		r.Get("/all", server.HandleSchedule)
		r.Get("/{gameID}/live-feed", server.HandleLiveFeed)
		r.Get("/{gameID}/live/status", server.HandleLiveStatus)
		r.Get("/{gameID}/stream", server.HandleReplay)
		r.Post("/{gameID}/predict", server.HandlePredict)
	})

	if hub != nil && negotiate != nil {
		r.Get("/negotiate", negotiate.HandleNegotiate)
		r.Get("/ws/live-feed", hub.HandleLiveFeedWS)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
			)
			next.ServeHTTP(w, r)
		})
	}
}
