package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"insightcli/internal/config"
	"insightcli/internal/infrastructure"
	"insightcli/pkg/contracts/events"
)

// Hub maintains the set of active clients and broadcasts session events
// to them. Clients whose send buffer fills up are disconnected rather
// than allowed to stall the broadcast loop.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	sendBufferSize int
	pingPeriod     time.Duration
	pongWait       time.Duration

	totalConnections int64
	messagesSent     int64
	droppedClients   int64

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub with the given WebSocket settings.
func NewHub(cfg config.WebSocketConfig, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	sendBufferSize := cfg.SendBufferSize
	if sendBufferSize <= 0 {
		sendBufferSize = 256
	}
	pongWait := cfg.PongWait
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	pingPeriod := cfg.PingPeriod
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = (pongWait * 9) / 10
	}

	return &Hub{
		broadcast:      make(chan []byte, 64),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		clients:        make(map[*Client]bool),
		logger:         logger,
		sendBufferSize: sendBufferSize,
		pingPeriod:     pingPeriod,
		pongWait:       pongWait,
		quit:           make(chan struct{}),
	}
}

// Start starts the hub's main loop
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run processes register, unregister and broadcast requests until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.mu.Unlock()

			ctx := h.clientContext(client)
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			// Welcome message so the UI knows the channel is live
			welcome := events.WebSocketMessage{
				BaseMessage: events.BaseMessage{
					ID:        uuid.New().String(),
					Type:      events.MessageTypeConnect,
					Timestamp: time.Now(),
					TraceID:   client.traceID,
				},
				Data: map[string]interface{}{
					"status":    "connected",
					"client_id": client.id,
				},
			}
			if data, err := json.Marshal(welcome); err == nil {
				select {
				case client.send <- data:
				default:
					h.logger.WarnContext(ctx, "Failed to send welcome message - client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()

				h.logger.InfoContext(h.clientContext(client), "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			failCount := 0
			for _, client := range clients {
				select {
				case client.send <- message:
					h.mu.Lock()
					h.messagesSent++
					h.mu.Unlock()
				default:
					// Slow consumer, cut it loose
					failCount++
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.droppedClients++
					h.mu.Unlock()

					h.logger.WarnContext(h.clientContext(client), "Client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			if failCount > 0 {
				h.logger.Warn("Some clients failed to receive broadcast",
					slog.Int("fail_count", failCount),
					slog.Int("client_count", len(clients)))
			}
		}
	}
}

// Publish broadcasts an event of the given type to all connected clients.
func (h *Hub) Publish(msgType events.MessageType, sessionID string, data interface{}, traceID string) {
	msg := events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      msgType,
			Timestamp: time.Now(),
			TraceID:   traceID,
		},
		SessionID: sessionID,
		Data:      data,
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling event",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msgType)))
		return
	}

	select {
	case h.broadcast <- jsonData:
	case <-h.quit:
	}
}

// PublishError broadcasts an error event to all connected clients.
func (h *Hub) PublishError(code, message string, retry bool) {
	h.Publish(events.MessageTypeError, "", events.ErrorEvent{
		Code:    code,
		Message: message,
		Retry:   retry,
	}, "")
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns current hub counters
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"dropped_clients":   h.droppedClients,
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Stop gracefully stops the hub and closes all client connections
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) clientContext(client *Client) context.Context {
	ctx := context.Background()
	if client.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, client.traceID)
	}
	return ctx
}
