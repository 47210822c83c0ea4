package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"dm-service/internal/models"
)

const messageColumns = `id, conversation_id, sender_id, format, content, blob_ref, hidden, view_mode, duration_seconds, expires_at, created_at`

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendMessage locks the conversation row, so appends to one conversation are serialized
// while different conversations proceed in parallel.
func (r *MessageRepo) AppendMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var last time.Time
	err = tx.GetContext(ctx, &last, `SELECT last_message_time FROM conversations WHERE id=$1 FOR UPDATE`, msg.ConversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Message{}, err
	}

	msg.CreatedAt = NextTimestamp(msg.CreatedAt, last)
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO messages (`+messageColumns+`)
        VALUES (:id, :conversation_id, :sender_id, :format, :content, :blob_ref, :hidden, :view_mode, :duration_seconds, :expires_at, :created_at)`, msg); err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET last_message_id=$2, last_message_time=$3 WHERE id=$1`,
		msg.ConversationID, msg.ID, msg.CreatedAt); err != nil {
		return models.Message{}, fmt.Errorf("update conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	msg.ReadBy = models.ReadReceipts{}
	return msg, nil
}

// GetMessage retrieves a single message with its receipts.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	receipts, err := loadReceipts(ctx, r.db, []string{messageID})
	if err != nil {
		return models.Message{}, err
	}
	msg.ReadBy = receipts[messageID]
	if msg.ReadBy == nil {
		msg.ReadBy = models.ReadReceipts{}
	}
	return msg, nil
}

// ListMessages returns ordered, non-hidden messages for a conversation.
func (r *MessageRepo) ListMessages(ctx context.Context, conversationID string, cursor *models.Cursor, limit int) ([]models.Message, error) {
	var msgs []models.Message
	var err error
	if cursor == nil {
		err = r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
            WHERE conversation_id=$1 AND hidden = FALSE
            ORDER BY created_at DESC, id DESC
            LIMIT $2`, conversationID, limit)
	} else {
		err = r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
            WHERE conversation_id=$1 AND hidden = FALSE
            AND (created_at, id) < ($2, $3)
            ORDER BY created_at DESC, id DESC
            LIMIT $4`, conversationID, cursor.Time, cursor.ID, limit)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	receipts, err := loadReceipts(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].ReadBy = receipts[msgs[i].ID]
		if msgs[i].ReadBy == nil {
			msgs[i].ReadBy = models.ReadReceipts{}
		}
	}
	return msgs, nil
}

// DeleteMessage removes a message and repoints the conversation if it was the latest.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var conversationID string
	err = tx.GetContext(ctx, &conversationID, `SELECT conversation_id FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}

	var lastID sql.NullString
	if err := tx.GetContext(ctx, &lastID, `SELECT last_message_id FROM conversations WHERE id=$1 FOR UPDATE`, conversationID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID); err != nil {
		return err
	}

	if lastID.Valid && lastID.String == messageID {
		var prev struct {
			ID        string    `db:"id"`
			CreatedAt time.Time `db:"created_at"`
		}
		err := tx.GetContext(ctx, &prev, `SELECT id, created_at FROM messages WHERE conversation_id=$1
            ORDER BY created_at DESC, id DESC LIMIT 1`, conversationID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `UPDATE conversations SET last_message_id=NULL WHERE id=$1`, conversationID)
		case err == nil:
			_, err = tx.ExecContext(ctx, `UPDATE conversations SET last_message_id=$2, last_message_time=$3 WHERE id=$1`,
				conversationID, prev.ID, prev.CreatedAt)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetMessageHidden toggles moderation visibility.
func (r *MessageRepo) SetMessageHidden(ctx context.Context, messageID string, hidden bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET hidden=$2 WHERE id=$1`, messageID, hidden)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
