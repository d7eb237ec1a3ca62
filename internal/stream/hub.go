// Package stream broadcasts completed AnalysisResults to subscribed
// WebSocket clients, grounded on the internal/stream package's shape
// (register/unregister channels, a buffered broadcast channel, and a
// subscription map keyed by "symbol:timeframe"), generalized from raw
// candle ticks to finished pattern-analysis results.
package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

// Hub maintains the set of connected clients and fans out AnalysisResults
// to whoever is subscribed to that result's symbol:timeframe key.
type Hub struct {
	clients       map[*Client]bool
	subscriptions map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	subscribe  chan SubscriptionEvent
	broadcast  chan ResultBroadcast

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.RWMutex
	clientCount  int
	messageCount int64
	logger       zerolog.Logger
}

// SubscriptionEvent records a client's subscribe/unsubscribe request.
type SubscriptionEvent struct {
	Client    *Client
	Symbol    string
	Timeframe string
	Action    string
}

// ResultBroadcast is one AnalysisResult queued for delivery to subscribers.
type ResultBroadcast struct {
	Symbol    string
	Timeframe string
	Result    *models.AnalysisResult
}

// NewHub builds a Hub; call Start to begin its run loop.
func NewHub(logger zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client, 100),
		unregister:    make(chan *Client, 100),
		subscribe:     make(chan SubscriptionEvent, 1000),
		broadcast:     make(chan ResultBroadcast, 1000),
		ctx:           ctx,
		cancel:        cancel,
		logger:        logger.With().Str("component", "websocket_hub").Logger(),
	}
}

// Start begins the hub's run loop in a goroutine.
func (h *Hub) Start() {
	h.logger.Info().Msg("websocket hub started")
	go h.run()
}

// Stop cancels the run loop and closes every connected client's send
// channel.
func (h *Hub) Stop() {
	h.logger.Info().Msg("stopping websocket hub")
	h.cancel()

	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
	}
	h.mu.Unlock()
}

func (h *Hub) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info().Msg("websocket hub shutting down")
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case event := <-h.subscribe:
			h.handleSubscription(event)
		case broadcast := <-h.broadcast:
			h.broadcastResult(broadcast)
		case <-ticker.C:
			h.logMetrics()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.clientCount++

	h.logger.Info().Str("client_id", client.ID).Int("total_clients", h.clientCount).Msg("client registered")
	client.sendMessage(ServerMessage{Type: "connected", Timestamp: time.Now()})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	h.clientCount--

	for key, clients := range h.subscriptions {
		if _, subscribed := clients[client]; subscribed {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.subscriptions, key)
			}
		}
	}
	close(client.send)

	h.logger.Info().Str("client_id", client.ID).Int("total_clients", h.clientCount).Msg("client unregistered")
}

func (h *Hub) handleSubscription(event SubscriptionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := subscriptionKey(event.Symbol, event.Timeframe)

	switch event.Action {
	case "subscribe":
		if h.subscriptions[key] == nil {
			h.subscriptions[key] = make(map[*Client]bool)
		}
		h.subscriptions[key][event.Client] = true
	case "unsubscribe":
		if clients, exists := h.subscriptions[key]; exists {
			delete(clients, event.Client)
			if len(clients) == 0 {
				delete(h.subscriptions, key)
			}
		}
	}
}

func (h *Hub) broadcastResult(broadcast ResultBroadcast) {
	key := subscriptionKey(broadcast.Symbol, broadcast.Timeframe)

	h.mu.RLock()
	clients, exists := h.subscriptions[key]
	h.mu.RUnlock()
	if !exists || len(clients) == 0 {
		return
	}

	h.mu.Lock()
	h.messageCount++
	h.mu.Unlock()

	message := ServerMessage{
		Type:      "analysis_result",
		Symbol:    broadcast.Symbol,
		Timeframe: broadcast.Timeframe,
		Data:      broadcast.Result,
		Timestamp: time.Now(),
	}

	sent := 0
	for client := range clients {
		select {
		case <-h.ctx.Done():
			return
		default:
			client.sendMessage(message)
			sent++
		}
	}

	h.logger.Debug().Str("symbol", broadcast.Symbol).Str("timeframe", broadcast.Timeframe).Int("clients", sent).Msg("broadcast analysis result")
}

// BroadcastResult queues result for delivery, dropping it if the broadcast
// buffer is full rather than blocking the caller.
func (h *Hub) BroadcastResult(result *models.AnalysisResult) {
	select {
	case h.broadcast <- ResultBroadcast{Symbol: result.Symbol, Timeframe: result.Timeframe, Result: result}:
	default:
		h.logger.Warn().Str("symbol", result.Symbol).Msg("broadcast buffer full, dropping analysis result")
	}
}

// RegisterClient enqueues client for registration.
func (h *Hub) RegisterClient(client *Client) { h.register <- client }

// UnregisterClient enqueues client for removal.
func (h *Hub) UnregisterClient(client *Client) { h.unregister <- client }

// GetMetrics reports the hub's current connection/traffic counters.
func (h *Hub) GetMetrics() (clientCount int, messageCount int64, subscriptionCount int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clientCount, h.messageCount, len(h.subscriptions)
}

func (h *Hub) logMetrics() {
	clients, messages, subs := h.GetMetrics()
	h.logger.Info().Int("clients", clients).Int64("messages_sent", messages).Int("active_subscriptions", subs).Msg("hub metrics")
}

func subscriptionKey(symbol, timeframe string) string {
	return fmt.Sprintf("%s:%s", symbol, timeframe)
}
