package services

import (
	"context"

	"dm-service/internal/models"
)

// ReceiptTracker records which participant has read which message.
type ReceiptTracker struct {
	*core
}

// MarkRead marks every message in the conversation not sent by userID as read by
// userID. Receipts are write-once, so repeating the call returns 0.
func (t *ReceiptTracker) MarkRead(ctx context.Context, conversationID, userID string) (int, error) {
	if _, err := t.participantConversation(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	marked, err := t.Receipts.MarkConversationRead(ctx, conversationID, userID, t.now().UTC())
	if err != nil {
		return 0, translate(err)
	}
	if marked > 0 {
		t.broadcast(models.ChatEvent{Type: models.EventRead, ConversationID: conversationID, UserID: userID})
	}
	return marked, nil
}

// UnreadAggregator derives unread counts from receipts.
type UnreadAggregator struct {
	*core
}

// ForConversation counts messages in the conversation that userID did not send and has not read.
func (u *UnreadAggregator) ForConversation(ctx context.Context, conversationID, userID string) (int, error) {
	if _, err := u.participantConversation(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	n, err := u.Receipts.CountUnreadInConversation(ctx, conversationID, userID)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// Global counts conversations whose latest message is unread by userID.
func (u *UnreadAggregator) Global(ctx context.Context, userID string) (int, error) {
	n, err := u.Receipts.CountUnreadConversations(ctx, userID)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// UsersWithUnreadMessagesTo lists the distinct senders of messages userID has not read.
func (u *UnreadAggregator) UsersWithUnreadMessagesTo(ctx context.Context, userID string) ([]string, error) {
	senders, err := u.Receipts.ListUnreadSenders(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	if senders == nil {
		senders = []string{}
	}
	return senders, nil
}
