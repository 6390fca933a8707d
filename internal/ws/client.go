package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024

	// Send buffer size per client.
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
	Subprotocols: []string{
		protocolJSONZstd,
		protocolJSON,
	},
}

// outMessage is a prepared frame queued for a client. Control frames
// are always text; event frames are binary for zstd clients.
type outMessage struct {
	kind int
	data []byte
}

// Client represents a WebSocket client connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan *outMessage
	connID   string
	games    map[string]bool
	logger   *zap.Logger
	protocol string

	mu     sync.Mutex
	closed bool
}

// HandleLiveFeedWS handles WebSocket upgrade for the live feed hub.
func (h *Hub) HandleLiveFeedWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("access_token")
	if token == "" {
		http.Error(w, "missing access_token", http.StatusUnauthorized)
		return
	}
	connID := uuid.New().String()

	protocol := protocolJSON
	var responseHeader http.Header
	for _, proto := range websocket.Subprotocols(r) {
		switch proto {
		case protocolJSONZstd, protocolJSON:
			protocol = proto
			responseHeader = http.Header{"Sec-WebSocket-Protocol": {proto}}
		}
		if responseHeader != nil {
			break
		}
	}

	h.logger.Debug("websocket subprotocol negotiated",
		zap.String("protocol", protocol),
		zap.Strings("requested", websocket.Subprotocols(r)),
	)

	conn, err := upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan *outMessage, sendBufferSize),
		connID:   connID,
		games:    make(map[string]bool),
		logger:   h.logger,
		protocol: protocol,
	}

	h.register <- client
	client.send <- &outMessage{kind: textFrame, data: buildConnectedFrame(connID)}

	go client.writePump()
	go client.readPump()
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed, send close message
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(message.kind, message.data); err != nil {
				c.logger.Debug("websocket write error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues a frame for delivery, scheduling a disconnect when the
// client cannot keep up. It holds the same lock closeSend closes the send
// channel under, so a broadcast racing an unregister drops the frame
// instead of panicking on a closed channel.
func (c *Client) enqueue(msg *outMessage) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- msg:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		go func() {
			c.hub.unregister <- c
		}()
	}
}

// closeSend closes the send channel exactly once. Only the hub calls this,
// after the client has been removed from every group.
func (c *Client) closeSend() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// handleMessage processes an incoming client message.
func (c *Client) handleMessage(data []byte) {
	msg, err := parseClientMessage(data)
	if err != nil {
		c.logger.Debug("failed to parse client message",
			zap.String("connID", c.connID),
			zap.Error(err),
		)
		return
	}

	switch msg.Type {
	case "join":
		if isValidGameID(msg.Game) {
			c.hub.JoinGroup(c, msg.Game)
			if msg.AckID != nil {
				c.enqueue(&outMessage{kind: textFrame, data: buildAckFrame(*msg.AckID, true)})
			}
		} else {
			c.logger.Debug("invalid game id",
				zap.String("connID", c.connID),
				zap.String("gameID", msg.Game),
			)
			if msg.AckID != nil {
				c.enqueue(&outMessage{kind: textFrame, data: buildAckFrame(*msg.AckID, false)})
			}
		}

	case "leave":
		c.hub.LeaveGroup(c, msg.Game)
		if msg.AckID != nil {
			c.enqueue(&outMessage{kind: textFrame, data: buildAckFrame(*msg.AckID, true)})
		}

	case "ping":
		c.enqueue(&outMessage{kind: textFrame, data: buildPongFrame()})
	}
}

// isValidGameID validates a StatsAPI game identifier (numeric gamePk).
func isValidGameID(gameID string) bool {
	if gameID == "" {
		return false
	}
	for _, r := range gameID {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
