package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"dm-service/internal/models"
)

// ReceiptRepo stores read receipts in message_reads. The (message_id, reader_id)
// primary key makes every mark write-once.
type ReceiptRepo struct {
	db *sqlx.DB
}

func NewReceiptRepo(db *sqlx.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// MarkConversationRead records readerID on every message they did not author and have not read yet.
func (r *ReceiptRepo) MarkConversationRead(ctx context.Context, conversationID, readerID string, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO message_reads (message_id, reader_id, read_at)
        SELECT id, $2, $3 FROM messages WHERE conversation_id=$1 AND sender_id <> $2
        ON CONFLICT (message_id, reader_id) DO NOTHING`, conversationID, readerID, at)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}

func (r *ReceiptRepo) CountUnreadInConversation(ctx context.Context, conversationID, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages m
        WHERE m.conversation_id=$1 AND m.sender_id <> $2
        AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id=m.id AND r.reader_id=$2)`, conversationID, userID)
	return count, err
}

// CountUnreadConversations counts conversations whose latest message is unread by userID.
func (r *ReceiptRepo) CountUnreadConversations(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM conversations c
        JOIN messages m ON m.id = c.last_message_id
        WHERE (c.user_low=$1 OR c.user_high=$1) AND m.sender_id <> $1
        AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id=m.id AND r.reader_id=$1)`, userID)
	return count, err
}

func (r *ReceiptRepo) ListUnreadSenders(ctx context.Context, userID string) ([]string, error) {
	var senders []string
	err := r.db.SelectContext(ctx, &senders, `SELECT DISTINCT m.sender_id FROM conversations c
        JOIN messages m ON m.conversation_id = c.id
        WHERE (c.user_low=$1 OR c.user_high=$1) AND m.sender_id <> $1
        AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id=m.id AND r.reader_id=$1)
        ORDER BY m.sender_id`, userID)
	return senders, err
}

func loadReceipts(ctx context.Context, q sqlx.QueryerContext, messageIDs []string) (map[string]models.ReadReceipts, error) {
	out := make(map[string]models.ReadReceipts, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}
	rows, err := q.QueryxContext(ctx, `SELECT message_id, reader_id, read_at FROM message_reads WHERE message_id = ANY($1)`, pq.Array(messageIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var messageID, readerID string
		var readAt time.Time
		if err := rows.Scan(&messageID, &readerID, &readAt); err != nil {
			return nil, err
		}
		if out[messageID] == nil {
			out[messageID] = models.ReadReceipts{}
		}
		out[messageID][readerID] = readAt
	}
	return out, rows.Err()
}
