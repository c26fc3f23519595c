package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType identifies a feed message.
type MessageType string

const (
	PredictionEvent MessageType = "prediction"
	SystemStatus    MessageType = "system_status"
)

// Message is what feed clients receive.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	ID        string          `json:"id"`
}

type client struct {
	conn     *websocket.Conn
	send     chan []byte
	clientID string
}

// FeedHub fans prediction events out to websocket subscribers.
type FeedHub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewFeedHub(logger *zap.Logger) *FeedHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FeedHub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run services registrations and broadcasts until Stop.
func (h *FeedHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			feedClients.Set(float64(total))
			h.logger.Debug("feed client connected", zap.String("client", c.clientID), zap.Int("total", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			feedClients.Set(float64(total))
			h.logger.Debug("feed client disconnected", zap.String("client", c.clientID), zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			feedClients.Set(0)
			return
		}
	}
}

func (h *FeedHub) Stop() {
	h.cancel()
}

// ClientCount reports connected subscribers.
func (h *FeedHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues a message; it is dropped when the queue is full so the
// prediction path never blocks on slow subscribers.
func (h *FeedHub) Publish(kind MessageType, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Warn("feed payload encode failed", zap.Error(err))
		return
	}
	message, err := json.Marshal(Message{
		Type:      kind,
		Timestamp: time.Now().UTC(),
		Data:      payload,
		ID:        uuid.NewString(),
	})
	if err != nil {
		h.logger.Warn("feed message encode failed", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("feed broadcast queue full, dropping message")
	}
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *FeedHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		conn:     conn,
		send:     make(chan []byte, 64),
		clientID: uuid.NewString(),
	}
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	go c.writePump(h.logger)
	go c.readPump(h)
}

func (c *client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("websocket write failed", zap.String("client", c.clientID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; the feed is one-way.
func (c *client) readPump(h *FeedHub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", zap.String("client", c.clientID), zap.Error(err))
			}
			return
		}
	}
}
