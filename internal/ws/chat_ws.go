package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"dm-service/internal/models"
	"dm-service/internal/observability"
)

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// ConversationLookup loads a conversation for the participant check.
type ConversationLookup interface {
	GetConversation(ctx context.Context, conversationID string) (models.Conversation, error)
}

// ChatWebSocketHandler streams change events of one conversation to a participant.
type ChatWebSocketHandler struct {
	hub           *Hub
	conversations ConversationLookup
	tokens        TokenValidator
	log           *zap.Logger
}

func NewChatWebSocketHandler(hub *Hub, conversations ConversationLookup, tokens TokenValidator, log *zap.Logger) *ChatWebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatWebSocketHandler{hub: hub, conversations: conversations, tokens: tokens, log: log}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, checks membership, upgrades and registers the client.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	conversationID := c.Param("id")

	ctx, span := otel.Tracer("dm-service/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("conversation.id", conversationID)),
	)
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}
	userID, err := h.tokens.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conv, err := h.conversations.GetConversation(ctx, conversationID)
	if err != nil || !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for conversation"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	info := ConnInfo{
		ConnID:         newConnID(),
		UserID:         userID,
		ConversationID: conversationID,
		DeviceID:       observability.DeviceIDFromRequest(c.Request),
		IP:             observability.IPFromRequest(c.Request),
		RequestID:      observability.RequestIDFromRequest(c.Request),
		TraceID:        span.SpanContext().TraceID().String(),
		ConnectedAt:    time.Now(),
	}
	h.hub.AddClient(conversationID, conn, info)
	observability.IncWSActive()
	h.hub.publishWSEvent(ctx, "ws_connect", info, "")

	// reads only detect the close; clients never send data
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(conversationID, conn)
			observability.DecWSActive()
			h.hub.publishWSEvent(context.Background(), "ws_disconnect", info, closeReason)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.hub.publishWSEvent(context.Background(), "ws_error", info, closeReason)
				}
				return
			}
		}
	}()
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
