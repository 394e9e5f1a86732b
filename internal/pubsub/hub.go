package pubsub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Message is the envelope written to subscribers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Hub keeps the websocket subscribers of every user and fans published
// messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[string]*client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[uint]map[string]*client),
		logger:  logger,
	}
}

// Register adds conn as a subscriber of userID and returns its id.
func (h *Hub) Register(userID uint, conn *websocket.Conn) string {
	c := &client{id: uuid.NewString(), conn: conn}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[string]*client)
	}
	h.clients[userID][c.id] = c
	h.mu.Unlock()

	return c.id
}

func (h *Hub) Unregister(userID uint, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[userID]
	if !ok {
		return
	}

	delete(clients, id)
	if len(clients) == 0 {
		delete(h.clients, userID)
	}
}

// Subscribers returns the number of open connections of userID.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[userID])
}

// Publish writes a message on topic to every subscriber of userID. Broken
// connections are dropped.
func (h *Hub) Publish(topic string, userID uint, payload interface{}) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients[userID]))
	for _, c := range h.clients[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	msg := Message{Type: topic, Data: payload}

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			h.logger.Warn("failed to publish to subscriber",
				zap.String("topic", topic),
				zap.Uint("user_id", userID),
				zap.String("subscriber", c.id),
				zap.Error(err),
			)
			h.Unregister(userID, c.id)
			c.conn.Close()
		}
	}
}

// Serve registers conn for userID and blocks until the connection closes,
// answering pongs and sending pings in the meantime.
func (h *Hub) Serve(userID uint, conn *websocket.Conn) {
	id := h.Register(userID, conn)

	h.mu.RLock()
	c := h.clients[userID][id]
	h.mu.RUnlock()

	logger := h.logger.With(zap.Uint("user_id", userID), zap.String("subscriber", id))

	defer func() {
		h.Unregister(userID, id)
		conn.Close()
		logger.Debug("websocket connection closed")
	}()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Warn("failed to set initial read deadline", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if err := c.write(Message{Type: "connected", Data: map[string]string{"id": id}}); err != nil {
		logger.Warn("failed to send welcome message", zap.Error(err))
		return
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					logger.Debug("ping failed", zap.Error(err))
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket error", zap.Error(err))
			}
			return
		}
	}
}
