package ws

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// Negotiated subprotocols. Plain JSON clients receive text frames;
// zstd clients receive the same JSON frames compressed, as binary.
const (
	protocolJSON     = "mlb.live.v1.json"
	protocolJSONZstd = "mlb.live.v1.json+zstd"
)

const (
	textFrame   = websocket.TextMessage
	binaryFrame = websocket.BinaryMessage
)

// Server frame types.
const (
	frameTypeConnected = "connected"
	frameTypeAck       = "ack"
	frameTypePong      = "pong"
	frameTypeEvent     = "event"
	frameTypeError     = "error"
)

// eventFrame wraps a game event for delivery to a group.
type eventFrame struct {
	Type string `json:"type"`
	Game string `json:"game"`
	Data any    `json:"data"`
}

// clientMessage is a request from a connected client.
// Supported types: join, leave, ping.
type clientMessage struct {
	Type  string  `json:"type"`
	Game  string  `json:"game,omitempty"`
	AckID *uint64 `json:"ackId,omitempty"`
}

func parseClientMessage(data []byte) (*clientMessage, error) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse client message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("client message missing type")
	}
	return &msg, nil
}

func buildConnectedFrame(connID string) []byte {
	frame, _ := json.Marshal(struct {
		Type         string `json:"type"`
		ConnectionID string `json:"connectionId"`
	}{frameTypeConnected, connID})
	return frame
}

func buildAckFrame(ackID uint64, success bool) []byte {
	frame, _ := json.Marshal(struct {
		Type    string `json:"type"`
		AckID   uint64 `json:"ackId"`
		Success bool   `json:"success"`
	}{frameTypeAck, ackID, success})
	return frame
}

func buildPongFrame() []byte {
	frame, _ := json.Marshal(struct {
		Type string `json:"type"`
	}{frameTypePong})
	return frame
}

func buildErrorFrame(gameID, message string) []byte {
	frame, _ := json.Marshal(struct {
		Type  string `json:"type"`
		Game  string `json:"game"`
		Error string `json:"error"`
	}{frameTypeError, gameID, message})
	return frame
}
