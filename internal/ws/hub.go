package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dm-service/internal/models"
	"dm-service/internal/observability"
)

const (
	routingKeyWS = "ws_events.conversations"
	writeTimeout = 5 * time.Second
	sendBuffer   = 32
)

// EventPublisher ships operational websocket events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// client owns one connection. Only its writePump writes to conn.
type client struct {
	conn           Conn
	info           ConnInfo
	conversationID string
	send           chan []byte
}

// Hub maintains one room of live connections per conversation.
type Hub struct {
	rooms     map[string]map[Conn]*client
	mu        sync.RWMutex
	publisher EventPublisher
	log       *zap.Logger
}

// NewHub creates an empty hub. publisher may be nil.
func NewHub(publisher EventPublisher, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms:     make(map[string]map[Conn]*client),
		publisher: publisher,
		log:       log,
	}
}

// AddClient registers a connection to a conversation room and starts its writer.
func (h *Hub) AddClient(conversationID string, conn Conn, info ConnInfo) {
	c := &client{
		conn:           conn,
		info:           info,
		conversationID: conversationID,
		send:           make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[Conn]*client)
		h.rooms[conversationID] = room
	}
	if old, ok := room[conn]; ok {
		close(old.send)
	}
	room[conn] = c
	h.mu.Unlock()

	go h.writePump(c)
}

// RemoveClient removes a connection from a conversation room and stops its writer.
func (h *Hub) RemoveClient(conversationID string, conn Conn) {
	h.mu.RLock()
	c := h.rooms[conversationID][conn]
	h.mu.RUnlock()
	if c != nil {
		h.detach(c)
	}
}

// detach reports whether c was still registered. Its send channel is closed under
// the write lock so BroadcastChange never sends on a closed channel.
func (h *Hub) detach(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[c.conversationID]
	if room[c.conn] != c {
		return false
	}
	delete(room, c.conn)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.conversationID)
	}
	return true
}

// RoomSize returns the number of live connections watching a conversation.
func (h *Hub) RoomSize(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// BroadcastChange queues the event for every connection in the conversation's room.
// It never waits on a socket: a client whose queue is full is dropped.
func (h *Hub) BroadcastChange(event models.ChatEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("marshal chat event", zap.Error(err))
		return
	}

	var lagging []*client
	h.mu.RLock()
	for _, c := range h.rooms[event.ConversationID] {
		select {
		case c.send <- payload:
		default:
			lagging = append(lagging, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range lagging {
		h.drop(c, "send buffer full")
	}
}

func (h *Hub) writePump(c *client) {
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c, err.Error())
			return
		}
	}
}

func (h *Hub) drop(c *client, reason string) {
	if !h.detach(c) {
		return
	}
	h.log.Warn("dropping websocket client", zap.String("conn_id", c.info.ConnID), zap.String("reason", reason))
	_ = c.conn.Close()
	h.publishWSEvent(context.Background(), "ws_error", c.info, reason)
}

func (h *Hub) publishWSEvent(ctx context.Context, name string, info ConnInfo, reason string) {
	observability.IncWSEvent(name)
	if h.publisher == nil {
		return
	}
	envelope := observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Headers:   observability.BuildHeaders(info.RequestID, info.TraceID),
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"conversation_id": info.ConversationID,
				"event":           name,
				"conn_id":         info.ConnID,
				"duration_ms":     time.Since(info.ConnectedAt).Milliseconds(),
				"reason":          reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}
	if err := h.publisher.Publish(ctx, routingKeyWS, envelope); err != nil {
		observability.IncAMQPPublishError()
		h.log.Warn("publish ws event failed", zap.String("event", name), zap.Error(err))
	}
}
