package repositories

import (
	"context"
	"errors"
	"time"

	"dm-service/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	// GetOrCreateConversation inserts candidate unless a conversation with the same
	// canonical pair exists, in which case the existing one is returned.
	GetOrCreateConversation(ctx context.Context, candidate models.Conversation) (models.Conversation, bool, error)
	GetConversation(ctx context.Context, conversationID string) (models.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string, cursor *models.Cursor, limit int) ([]models.Conversation, error)
}

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	// AppendMessage stores msg and moves the conversation's last-message pointer in one step.
	// The stored CreatedAt may be bumped so it sorts after the conversation's previous message.
	AppendMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	// ListMessages returns visible messages newest first, strictly after cursor.
	ListMessages(ctx context.Context, conversationID string, cursor *models.Cursor, limit int) ([]models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	SetMessageHidden(ctx context.Context, messageID string, hidden bool) error
}

// ReceiptRepository tracks read receipts and derives unread state from them.
type ReceiptRepository interface {
	MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int, error)
	CountUnreadInConversation(ctx context.Context, conversationID, userID string) (int, error)
	CountUnreadConversations(ctx context.Context, userID string) (int, error)
	ListUnreadSenders(ctx context.Context, userID string) ([]string, error)
}

// SnapViewRepository records at-most-once snap views.
type SnapViewRepository interface {
	MarkSnapViewed(ctx context.Context, messageID, viewerID string, at time.Time) (bool, error)
	HasViewedSnap(ctx context.Context, messageID, viewerID string) (bool, error)
}

// ProfileRepository reads user presentation data owned by the profile subsystem.
type ProfileRepository interface {
	BulkProfiles(ctx context.Context, userIDs []string) (map[string]models.Profile, error)
}

// NextTimestamp returns the creation time for a message appended after last.
// Timestamps are kept at microsecond precision and strictly increase per conversation.
func NextTimestamp(now, last time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !now.After(last) {
		return last.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return now
}
