package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"dm-service/internal/models"
)

const conversationColumns = `id, participant_a, participant_b, user_low, user_high, last_message_id, last_message_time, created_at`

// ChatRepo is a sqlx implementation of ConversationRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// GetOrCreateConversation relies on UNIQUE(user_low, user_high): concurrent inserts for
// the same pair collapse to one row and the loser reads the winner's row.
func (r *ChatRepo) GetOrCreateConversation(ctx context.Context, candidate models.Conversation) (models.Conversation, bool, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `INSERT INTO conversations (id, participant_a, participant_b, user_low, user_high, last_message_time, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (user_low, user_high) DO NOTHING
        RETURNING `+conversationColumns,
		candidate.ID, candidate.ParticipantA, candidate.ParticipantB, candidate.UserLow, candidate.UserHigh,
		candidate.LastMessageTime, candidate.CreatedAt)
	if err == nil {
		return conv, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, false, err
	}

	err = r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE user_low=$1 AND user_high=$2`,
		candidate.UserLow, candidate.UserHigh)
	return conv, false, err
}

// GetConversation fetches a conversation by id.
func (r *ChatRepo) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListConversationsForUser pages through the user's conversations by last activity.
// Both canonical columns are indexed with last_message_time, so this never scans other users' rows.
func (r *ChatRepo) ListConversationsForUser(ctx context.Context, userID string, cursor *models.Cursor, limit int) ([]models.Conversation, error) {
	var convs []models.Conversation
	if cursor == nil {
		err := r.db.SelectContext(ctx, &convs, `SELECT `+conversationColumns+` FROM conversations
            WHERE (user_low=$1 OR user_high=$1)
            ORDER BY last_message_time DESC, id DESC
            LIMIT $2`, userID, limit)
		return convs, err
	}
	err := r.db.SelectContext(ctx, &convs, `SELECT `+conversationColumns+` FROM conversations
        WHERE (user_low=$1 OR user_high=$1)
        AND (last_message_time, id) < ($2, $3)
        ORDER BY last_message_time DESC, id DESC
        LIMIT $4`, userID, cursor.Time, cursor.ID, limit)
	return convs, err
}
