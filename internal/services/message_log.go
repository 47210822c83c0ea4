package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"dm-service/internal/apperrors"
	"dm-service/internal/models"
	"dm-service/internal/observability"
	"dm-service/internal/telemetry"
)

// MessageInput is the caller-supplied part of a new message.
type MessageInput struct {
	Format  models.Format
	Content string
	BlobRef *string
	Snap    *models.SnapOptions
}

// validate checks the input. maxTTL bounds both snap durations so they stay
// representable as a time.Duration.
func (in MessageInput) validate(maxTTL time.Duration) error {
	if !in.Format.Valid() {
		return apperrors.ErrInvalidFormat
	}
	hasBlob := in.BlobRef != nil && *in.BlobRef != ""
	if strings.TrimSpace(in.Content) == "" && !hasBlob {
		return apperrors.ErrEmptyContent
	}
	if in.Format == models.FormatText && strings.TrimSpace(in.Content) == "" {
		return apperrors.ErrEmptyContent
	}
	if in.Format != models.FormatSnap {
		if in.Snap != nil {
			return apperrors.InvalidArg("snap options require format snap")
		}
		return nil
	}
	if in.Snap == nil || !in.Snap.ViewMode.Valid() {
		return apperrors.InvalidArg("snap requires view_mode view_once or timed")
	}
	if in.Snap.ViewMode == models.Timed && in.Snap.DurationSeconds <= 0 {
		return apperrors.InvalidArg("timed snap requires a positive duration_seconds")
	}
	if in.Snap.ExpiresIn < 0 {
		return apperrors.InvalidArg("expires_in_seconds must not be negative")
	}
	maxSecs := int64(maxTTL / time.Second)
	if int64(in.Snap.ExpiresIn) > maxSecs {
		return apperrors.InvalidArg(fmt.Sprintf("expires_in_seconds must not exceed %d", maxSecs))
	}
	if int64(in.Snap.DurationSeconds) > maxSecs {
		return apperrors.InvalidArg(fmt.Sprintf("duration_seconds must not exceed %d", maxSecs))
	}
	return nil
}

// MessageLog is the append-only, time-ordered message store per conversation.
type MessageLog struct {
	*core
	directory *Directory
}

// SendMessage delivers a message to receiverID, creating the conversation on first contact.
func (l *MessageLog) SendMessage(ctx context.Context, senderID, receiverID string, in MessageInput) (models.Message, error) {
	if senderID == receiverID {
		return models.Message{}, apperrors.ErrSelfConversation
	}
	if err := in.validate(l.opts.SnapMaxTTL); err != nil {
		return models.Message{}, err
	}
	if err := l.checkModeration(ctx, senderID); err != nil {
		return models.Message{}, err
	}
	conv, err := l.directory.GetOrCreate(ctx, senderID, receiverID)
	if err != nil {
		return models.Message{}, err
	}
	return l.append(ctx, conv, senderID, in)
}

// SendMessageToConversation appends to an existing conversation the sender belongs to.
func (l *MessageLog) SendMessageToConversation(ctx context.Context, conversationID, senderID string, in MessageInput) (models.Message, error) {
	if err := in.validate(l.opts.SnapMaxTTL); err != nil {
		return models.Message{}, err
	}
	if err := l.checkModeration(ctx, senderID); err != nil {
		return models.Message{}, err
	}
	conv, err := l.participantConversation(ctx, conversationID, senderID)
	if err != nil {
		return models.Message{}, err
	}
	return l.append(ctx, conv, senderID, in)
}

func (l *MessageLog) append(ctx context.Context, conv models.Conversation, senderID string, in MessageInput) (models.Message, error) {
	now := l.now().UTC()
	msg := models.Message{
		ID:             l.newID(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Format:         in.Format,
		Content:        in.Content,
		BlobRef:        in.BlobRef,
		CreatedAt:      now,
	}
	if in.Format == models.FormatSnap {
		mode := in.Snap.ViewMode
		msg.ViewMode = &mode
		if mode == models.Timed {
			secs := in.Snap.DurationSeconds
			msg.DurationSecs = &secs
		}
		ttl := l.opts.SnapDefaultTTL
		if in.Snap.ExpiresIn > 0 {
			ttl = time.Duration(in.Snap.ExpiresIn) * time.Second
		}
		expiresAt := now.Add(ttl).Truncate(time.Microsecond)
		msg.ExpiresAt = &expiresAt
	}

	stored, err := l.Messages.AppendMessage(ctx, msg)
	if err != nil {
		return models.Message{}, translate(err)
	}
	observability.IncMessageAppended(string(stored.Format))

	l.notify(ctx, stored, conv.OtherParticipant(senderID))
	l.broadcast(models.ChatEvent{Type: models.EventMessage, ConversationID: conv.ID, MessageID: stored.ID, UserID: senderID})
	return stored, nil
}

// notify hands the alert to the dispatcher. Nothing here can fail the append.
func (l *MessageLog) notify(ctx context.Context, msg models.Message, recipientID string) {
	if l.Notifier == nil {
		return
	}
	title := "New message"
	if p, ok := l.profiles(ctx, []string{msg.SenderID})[msg.SenderID]; ok && p.DisplayName != "" {
		title = p.DisplayName
	}
	l.Notifier.Notify(models.Notification{
		RecipientID: recipientID,
		Title:       title,
		Body:        models.Summary(msg.Format, msg.Content),
		RoutingTag:  models.RoutingDirectMessage,
		Payload: map[string]string{
			"conversation_id": msg.ConversationID,
			"message_id":      msg.ID,
			"sender_id":       msg.SenderID,
		},
	})
}

// ListPage returns a page of visible messages, newest first, with sender profiles attached.
func (l *MessageLog) ListPage(ctx context.Context, conversationID, userID, rawCursor string, limit int) (models.MessagePage, error) {
	cursor, err := parseCursor(rawCursor)
	if err != nil {
		return models.MessagePage{}, err
	}
	limit = l.clampLimit(limit)
	if _, err := l.participantConversation(ctx, conversationID, userID); err != nil {
		return models.MessagePage{}, err
	}

	msgs, err := l.Messages.ListMessages(ctx, conversationID, cursor, limit+1)
	if err != nil {
		return models.MessagePage{}, translate(err)
	}
	page := models.MessagePage{Done: len(msgs) <= limit}
	if !page.Done {
		msgs = msgs[:limit]
		last := msgs[len(msgs)-1]
		page.NextCursor = models.Cursor{Time: last.CreatedAt, ID: last.ID}.Encode()
	}

	senderIDs := make([]string, 0, 2)
	seen := map[string]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}
	profiles := l.profiles(ctx, senderIDs)

	page.Messages = make([]models.EnrichedMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Format == models.FormatSnap {
			// snap media is only reachable through OpenSnap
			m.Content = ""
			m.BlobRef = nil
		}
		p := profiles[m.SenderID]
		page.Messages = append(page.Messages, models.EnrichedMessage{Message: m, SenderName: p.DisplayName, SenderAvatar: p.AvatarURL})
	}
	return page, nil
}

// ListConversationsForUser returns the user's conversations by last activity, newest first.
func (l *MessageLog) ListConversationsForUser(ctx context.Context, userID, rawCursor string, limit int, unread *UnreadAggregator) (models.ConversationPage, error) {
	cursor, err := parseCursor(rawCursor)
	if err != nil {
		return models.ConversationPage{}, err
	}
	limit = l.clampLimit(limit)

	convs, err := l.Conversations.ListConversationsForUser(ctx, userID, cursor, limit+1)
	if err != nil {
		return models.ConversationPage{}, translate(err)
	}
	page := models.ConversationPage{Done: len(convs) <= limit}
	if !page.Done {
		convs = convs[:limit]
		last := convs[len(convs)-1]
		page.NextCursor = models.Cursor{Time: last.LastMessageTime, ID: last.ID}.Encode()
	}

	otherIDs := make([]string, 0, len(convs))
	for _, conv := range convs {
		otherIDs = append(otherIDs, conv.OtherParticipant(userID))
	}
	profiles := l.profiles(ctx, otherIDs)

	page.Conversations = make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		otherID := conv.OtherParticipant(userID)
		other, ok := profiles[otherID]
		if !ok {
			other = models.Profile{UserID: otherID}
		}
		summary := models.ConversationSummary{
			ConversationID:  conv.ID,
			Other:           other,
			LastMessageID:   conv.LastMessageID,
			LastMessageTime: conv.LastMessageTime,
		}
		if conv.LastMessageID != nil {
			last, err := l.Messages.GetMessage(ctx, *conv.LastMessageID)
			if err != nil {
				return models.ConversationPage{}, translate(err)
			}
			summary.LastSenderID = last.SenderID
			if !last.Hidden {
				summary.LastMessage = models.Summary(last.Format, last.Content)
			}
		}
		if summary.UnreadCount, err = unread.ForConversation(ctx, conv.ID, userID); err != nil {
			return models.ConversationPage{}, err
		}
		page.Conversations = append(page.Conversations, summary)
	}
	return page, nil
}

// DeleteOwnMedia removes a sender's own image or video and releases its blob.
func (l *MessageLog) DeleteOwnMedia(ctx context.Context, userID, messageID string) error {
	msg, err := l.Messages.GetMessage(ctx, messageID)
	if err != nil {
		return translate(err)
	}
	if msg.SenderID != userID {
		return apperrors.ErrNotSender
	}
	if !msg.Format.DeletableMedia() {
		return apperrors.ErrNotDeletable
	}
	if err := l.Messages.DeleteMessage(ctx, messageID); err != nil {
		return translate(err)
	}

	if msg.BlobRef != nil && l.Blobs != nil {
		if err := l.Blobs.Delete(ctx, *msg.BlobRef); err != nil {
			l.Log.Warn("blob delete failed", zap.String("message_id", messageID), zap.String("blob_ref", *msg.BlobRef), zap.Error(err))
		}
	}
	l.audit(ctx, userID, telemetry.AuditPayload{Action: telemetry.AuditMediaDeleted, MessageID: messageID, ConversationID: msg.ConversationID})
	l.broadcast(models.ChatEvent{Type: models.EventDeleted, ConversationID: msg.ConversationID, MessageID: messageID, UserID: userID})
	return nil
}

// Hide sets the moderation hidden flag. Hidden messages stay stored for audit.
func (l *MessageLog) Hide(ctx context.Context, actorID, messageID string, hidden bool) error {
	msg, err := l.Messages.GetMessage(ctx, messageID)
	if err != nil {
		return translate(err)
	}
	if err := l.Messages.SetMessageHidden(ctx, messageID, hidden); err != nil {
		return translate(err)
	}
	action := telemetry.AuditMessageHidden
	if !hidden {
		action = telemetry.AuditMessageUnhidden
	}
	l.audit(ctx, actorID, telemetry.AuditPayload{Action: action, MessageID: messageID, ConversationID: msg.ConversationID})
	l.broadcast(models.ChatEvent{Type: models.EventHidden, ConversationID: msg.ConversationID, MessageID: messageID})
	return nil
}

// UploadMedia stores a blob for a later send and returns its reference.
func (l *MessageLog) UploadMedia(ctx context.Context, userID, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.InvalidArg("empty upload")
	}
	if l.Blobs == nil {
		return "", apperrors.Internal("media storage not configured", nil)
	}
	if err := l.checkModeration(ctx, userID); err != nil {
		return "", err
	}
	ref, err := l.Blobs.Put(ctx, "media/"+userID+"/"+l.newID(), contentType, data)
	if err != nil {
		return "", apperrors.Internal("upload failed", err)
	}
	return ref, nil
}

func (l *MessageLog) audit(ctx context.Context, actorID string, payload telemetry.AuditPayload) {
	if l.Audit == nil {
		return
	}
	l.Audit.Emit(ctx, telemetry.RequestIDFromContext(ctx), actorID, payload)
}
