package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dm-service/internal/models"
	"dm-service/internal/services"
)

// ChatHandler serves the direct-messaging endpoints.
type ChatHandler struct {
	svc services.Chat
	log *zap.Logger
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(svc services.Chat, log *zap.Logger) *ChatHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatHandler{svc: svc, log: log}
}

// Register mounts the authenticated routes on group.
func (h *ChatHandler) Register(group gin.IRoutes) {
	group.POST("/conversations", h.StartConversation)
	group.GET("/conversations", h.ListConversations)
	group.GET("/conversations/recent", h.RecentConversations)
	group.GET("/conversations/:id/messages", h.ListMessages)
	group.POST("/conversations/:id/messages", h.PostConversationMessage)
	group.POST("/conversations/:id/read", h.MarkRead)
	group.GET("/conversations/:id/unread", h.ConversationUnread)
	group.POST("/messages", h.SendMessage)
	group.DELETE("/messages/:id/media", h.DeleteMedia)
	group.GET("/unread/count", h.GlobalUnread)
	group.GET("/unread/users", h.UnreadUsers)
	group.POST("/media", h.UploadMedia)
	group.POST("/snaps/:id/open", h.OpenSnap)
	group.POST("/snaps/:id/close", h.CloseSnap)
	group.GET("/snaps/:id", h.SnapStatus)
}

type messageRequest struct {
	Format   models.Format       `json:"format"`
	Content  string              `json:"content"`
	BlobRef  *string             `json:"blob_ref"`
	ViewMode models.ViewMode     `json:"view_mode"`
	Duration int                 `json:"duration_seconds"`
	Expires  int                 `json:"expires_in_seconds"`
	Snap     *models.SnapOptions `json:"snap"`
}

func (r messageRequest) input() services.MessageInput {
	in := services.MessageInput{Format: r.Format, Content: r.Content, BlobRef: r.BlobRef, Snap: r.Snap}
	if in.Format == "" {
		in.Format = models.FormatText
	}
	if in.Snap == nil && r.ViewMode != "" {
		in.Snap = &models.SnapOptions{ViewMode: r.ViewMode, DurationSeconds: r.Duration, ExpiresIn: r.Expires}
	}
	return in
}

// StartConversation creates or returns the conversation with another user.
func (h *ChatHandler) StartConversation(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_ARGUMENT"})
		return
	}

	conv, other, err := h.svc.StartConversation(c.Request.Context(), userIDFromContext(c), req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv, "other": other})
}

// ListConversations returns the caller's conversations, most recent activity first.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	cursor, limit := pageParams(c)
	page, err := h.svc.ListConversations(c.Request.Context(), userIDFromContext(c), cursor, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// RecentConversations returns the first page only, for widgets that never paginate.
func (h *ChatHandler) RecentConversations(c *gin.Context) {
	_, limit := pageParams(c)
	page, err := h.svc.ListConversations(c.Request.Context(), userIDFromContext(c), "", limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": page.Conversations})
}

// ListMessages returns one page of a conversation, newest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	cursor, limit := pageParams(c)
	page, err := h.svc.ListMessages(c.Request.Context(), c.Param("id"), userIDFromContext(c), cursor, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PostConversationMessage appends to an existing conversation.
func (h *ChatHandler) PostConversationMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_ARGUMENT"})
		return
	}

	msg, err := h.svc.SendMessageToConversation(c.Request.Context(), c.Param("id"), userIDFromContext(c), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// SendMessage messages a user directly, creating the conversation on first contact.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		messageRequest
		ReceiverID string `json:"receiver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_ARGUMENT"})
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), userIDFromContext(c), req.ReceiverID, req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead marks the conversation read for the caller.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	marked, err := h.svc.MarkMessagesRead(c.Request.Context(), c.Param("id"), userIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

func (h *ChatHandler) ConversationUnread(c *gin.Context) {
	n, err := h.svc.UnreadCountForConversation(c.Request.Context(), c.Param("id"), userIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (h *ChatHandler) GlobalUnread(c *gin.Context) {
	n, err := h.svc.UnreadCountGlobal(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (h *ChatHandler) UnreadUsers(c *gin.Context) {
	ids, err := h.svc.UsersWithUnreadMessages(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": ids})
}

// DeleteMedia removes one of the caller's own image or video messages.
func (h *ChatHandler) DeleteMedia(c *gin.Context) {
	if err := h.svc.DeleteUserSentMedia(c.Request.Context(), userIDFromContext(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
