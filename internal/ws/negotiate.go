package ws

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NegotiateResponse carries the WebSocket endpoint for a new connection.
type NegotiateResponse struct {
	WebsocketURLs map[string]string `json:"websocket_urls"`
}

// NegotiateHandler handles the /negotiate endpoint.
type NegotiateHandler struct {
	logger *zap.Logger
}

// NewNegotiateHandler creates a new NegotiateHandler.
func NewNegotiateHandler(logger *zap.Logger) *NegotiateHandler {
	return &NegotiateHandler{logger: logger}
}

// HandleNegotiate handles GET /negotiate.
// Returns a WebSocket URL with a fresh access token for the live feed hub.
func (h *NegotiateHandler) HandleNegotiate(w http.ResponseWriter, r *http.Request) {
	connID := uuid.New().String()

	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	baseURL := fmt.Sprintf("%s://%s/ws", scheme, r.Host)

	response := NegotiateResponse{
		WebsocketURLs: map[string]string{
			"live-feed": fmt.Sprintf("%s/live-feed?access_token=%s", baseURL, connID),
		},
	}

	h.logger.Debug("negotiate successful", zap.String("connID", connID))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode negotiate response", zap.Error(err))
	}
}
