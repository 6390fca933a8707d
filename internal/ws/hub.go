package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/ballparklive/ballpark/internal/feed"
	"github.com/ballparklive/ballpark/internal/game"
)

// Hub manages WebSocket connections and per-game group subscriptions.
// All clients watching the same game share a single upstream feed
// subscription; the subscription is opened when the first client joins
// the group and released when the last one leaves.
type Hub struct {
	arena      *feed.Arena
	encoder    *Encoder
	clients    map[*Client]bool
	groups     map[string]map[*Client]bool // gameID -> clients
	streams    map[string]*groupStream     // gameID -> shared feed pump
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *zap.Logger
}

// groupStream pumps one feed subscription into a game group.
type groupStream struct {
	sub  *feed.Subscription
	done chan struct{}
}

// NewHub creates a new Hub backed by the given arena.
func NewHub(arena *feed.Arena, encoder *Encoder, logger *zap.Logger) *Hub {
	return &Hub{
		arena:      arena,
		encoder:    encoder,
		clients:    make(map[*Client]bool),
		groups:     make(map[string]map[*Client]bool),
		streams:    make(map[string]*groupStream),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes hub registration events. Call this in a goroutine.
// Returns when context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down")
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered",
				zap.String("connID", client.connID),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for gameID := range client.games {
					h.removeFromGroupLocked(client, gameID)
				}
				client.closeSend()
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered",
				zap.String("connID", client.connID),
			)
		}
	}
}

// shutdown gracefully closes all client connections and feed streams.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for gameID, stream := range h.streams {
		stream.sub.Close()
		delete(h.streams, gameID)
	}
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}
	h.groups = make(map[string]map[*Client]bool)
}

// JoinGroup adds a client to a game group, opening the shared feed
// subscription if this is the first member.
func (h *Hub) JoinGroup(client *Client, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.groups[gameID] == nil {
		h.groups[gameID] = make(map[*Client]bool)
	}
	h.groups[gameID][client] = true
	client.games[gameID] = true

	if _, ok := h.streams[gameID]; !ok {
		stream := &groupStream{
			sub:  h.arena.Subscribe(gameID),
			done: make(chan struct{}),
		}
		h.streams[gameID] = stream
		go h.pumpGroup(gameID, stream)
	}

	h.logger.Debug("client joined game group",
		zap.String("connID", client.connID),
		zap.String("gameID", gameID),
	)
}

// LeaveGroup removes a client from a game group.
func (h *Hub) LeaveGroup(client *Client, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromGroupLocked(client, gameID)

	h.logger.Debug("client left game group",
		zap.String("connID", client.connID),
		zap.String("gameID", gameID),
	)
}

// removeFromGroupLocked removes a client from a group and releases the
// shared subscription when the group empties. Caller holds h.mu.
func (h *Hub) removeFromGroupLocked(client *Client, gameID string) {
	delete(client.games, gameID)
	clients, ok := h.groups[gameID]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) > 0 {
		return
	}
	delete(h.groups, gameID)
	if stream, ok := h.streams[gameID]; ok {
		delete(h.streams, gameID)
		stream.sub.Close()
	}
}

// pumpGroup forwards feed events to every client in the group until the
// subscription ends. On a feed failure the members are ejected from the
// group so a rejoin starts a fresh subscription.
func (h *Hub) pumpGroup(gameID string, stream *groupStream) {
	defer close(stream.done)

	for event := range stream.sub.Events() {
		h.broadcastEvent(gameID, event)
	}

	err := stream.sub.Err()
	if err == nil {
		return
	}
	h.logger.Warn("game feed stream failed",
		zap.String("gameID", gameID),
		zap.Error(err),
	)

	h.mu.Lock()
	if h.streams[gameID] == stream {
		delete(h.streams, gameID)
	}
	clients := h.groups[gameID]
	delete(h.groups, gameID)
	members := make([]*Client, 0, len(clients))
	for client := range clients {
		delete(client.games, gameID)
		members = append(members, client)
	}
	h.mu.Unlock()

	frame := buildErrorFrame(gameID, err.Error())
	for _, client := range members {
		client.enqueue(&outMessage{kind: textFrame, data: frame})
	}
}

// broadcastEvent fans a game event out to the group. JSON clients get
// the frame as text; zstd clients get the same frame compressed, as a
// binary message. Compression happens at most once per broadcast.
func (h *Hub) broadcastEvent(gameID string, event game.Event) {
	h.mu.RLock()
	clients, ok := h.groups[gameID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	members := make([]*Client, 0, len(clients))
	for client := range clients {
		members = append(members, client)
	}
	h.mu.RUnlock()

	frame, err := json.Marshal(eventFrame{
		Type: frameTypeEvent,
		Game: gameID,
		Data: event,
	})
	if err != nil {
		h.logger.Error("failed to encode event frame",
			zap.String("gameID", gameID),
			zap.Error(err),
		)
		return
	}

	var compressed []byte
	for _, client := range members {
		msg := &outMessage{kind: textFrame, data: frame}
		if client.protocol == protocolJSONZstd {
			if compressed == nil {
				compressed = h.encoder.Compress(frame)
			}
			msg = &outMessage{kind: binaryFrame, data: compressed}
		}
		client.enqueue(msg)
	}
}
