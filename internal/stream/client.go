package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is one WebSocket connection subscribed to zero or more
// symbol:timeframe analysis feeds.
type Client struct {
	ID            string
	conn          *websocket.Conn
	hub           *Hub
	send          chan []byte
	subscriptions map[string]bool
	logger        zerolog.Logger
	mu            sync.RWMutex
}

// ClientMessage is a message received from a client.
type ClientMessage struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
	Action    string `json:"action,omitempty"`
}

// ServerMessage is a message sent to a client.
type ServerMessage struct {
	Type      string                  `json:"type"`
	Symbol    string                  `json:"symbol,omitempty"`
	Timeframe string                  `json:"timeframe,omitempty"`
	Data      *models.AnalysisResult `json:"data,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// NewClient wraps an upgraded WebSocket connection.
func NewClient(conn *websocket.Conn, hub *Hub, logger zerolog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		ID:            id,
		conn:          conn,
		hub:           hub,
		send:          make(chan []byte, 256),
		subscriptions: make(map[string]bool),
		logger:        logger.With().Str("component", "websocket_client").Str("client_id", id).Logger(),
	}
}

// Start launches the client's read and write pumps.
func (c *Client) Start(ctx context.Context) {
	c.logger.Info().Msg("client connection started")
	go c.writePump(ctx)
	go c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.logger.Info().Msg("client read pump closed")
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg ClientMessage
			if err := c.conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.logger.Error().Err(err).Msg("websocket read error")
				}
				return
			}
			c.handleMessage(msg)
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.Info().Msg("client write pump closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.logger.Error().Err(err).Msg("failed to get websocket writer")
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				c.logger.Error().Err(err).Msg("failed to close websocket writer")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg ClientMessage) {
	switch msg.Type {
	case "subscription":
		c.handleSubscription(msg)
	case "ping":
		c.sendMessage(ServerMessage{Type: "pong", Timestamp: time.Now()})
	default:
		c.sendError(fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (c *Client) handleSubscription(msg ClientMessage) {
	if msg.Symbol == "" || msg.Timeframe == "" {
		c.sendError("symbol and timeframe are required for subscriptions")
		return
	}

	key := subscriptionKey(msg.Symbol, msg.Timeframe)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		c.subscriptions[key] = true
		c.hub.subscribe <- SubscriptionEvent{Client: c, Symbol: msg.Symbol, Timeframe: msg.Timeframe, Action: "subscribe"}
	case "unsubscribe":
		delete(c.subscriptions, key)
		c.hub.subscribe <- SubscriptionEvent{Client: c, Symbol: msg.Symbol, Timeframe: msg.Timeframe, Action: "unsubscribe"}
	default:
		c.sendError(fmt.Sprintf("unknown subscription action: %s", msg.Action))
	}
}

func (c *Client) sendMessage(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to marshal message")
		return
	}

	select {
	case c.send <- data:
	default:
		close(c.send)
		c.logger.Warn().Msg("client send buffer full, closing connection")
	}
}

func (c *Client) sendError(errMsg string) {
	c.sendMessage(ServerMessage{Type: "error", Error: errMsg, Timestamp: time.Now()})
}

// IsSubscribed reports whether the client is subscribed to symbol:timeframe.
func (c *Client) IsSubscribed(symbol, timeframe string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[subscriptionKey(symbol, timeframe)]
}
