// Package services implements the direct-messaging core: conversation identity,
// the message log, read receipts, unread aggregation and snap viewing.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dm-service/internal/apperrors"
	"dm-service/internal/ephemeral"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
	"dm-service/internal/telemetry"
)

// ModerationGate answers whether a user may currently write.
type ModerationGate interface {
	IsAllowed(ctx context.Context, userID string) (models.ModerationDecision, error)
}

// BlobStore holds message media.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	URL(ctx context.Context, ref string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Notifier accepts fire-and-forget alerts. Notify must not block.
type Notifier interface {
	Notify(n models.Notification)
}

// Broadcaster tells live clients that a conversation changed.
type Broadcaster interface {
	BroadcastChange(event models.ChatEvent)
}

// Auditor records moderation and deletion actions.
type Auditor interface {
	Emit(ctx context.Context, requestID, actorID string, payload telemetry.AuditPayload)
}

// Chat is the operation surface exposed to transports.
type Chat interface {
	StartConversation(ctx context.Context, senderID, otherID string) (models.Conversation, models.Profile, error)
	SendMessage(ctx context.Context, senderID, receiverID string, in MessageInput) (models.Message, error)
	SendMessageToConversation(ctx context.Context, conversationID, senderID string, in MessageInput) (models.Message, error)
	ListMessages(ctx context.Context, conversationID, userID, cursor string, limit int) (models.MessagePage, error)
	ListConversations(ctx context.Context, userID, cursor string, limit int) (models.ConversationPage, error)
	MarkMessagesRead(ctx context.Context, conversationID, userID string) (int, error)
	UnreadCountForConversation(ctx context.Context, conversationID, userID string) (int, error)
	UnreadCountGlobal(ctx context.Context, userID string) (int, error)
	UsersWithUnreadMessages(ctx context.Context, userID string) ([]string, error)
	DeleteUserSentMedia(ctx context.Context, userID, messageID string) error
	HideMessage(ctx context.Context, actorID, messageID string, hidden bool) error
	UploadMedia(ctx context.Context, userID, contentType string, data []byte) (string, error)
	OpenSnap(ctx context.Context, messageID, viewerID string) (models.SnapAccess, error)
	CloseSnap(ctx context.Context, messageID, viewerID string) (bool, error)
	SnapStatus(ctx context.Context, messageID, viewerID string) (models.SnapStatus, error)
}

// Deps are the stores and collaborators the service is built from.
type Deps struct {
	Conversations repositories.ConversationRepository
	Messages      repositories.MessageRepository
	Receipts      repositories.ReceiptRepository
	SnapViews     repositories.SnapViewRepository
	Profiles      repositories.ProfileRepository
	Gate          ModerationGate
	Blobs         BlobStore
	Notifier      Notifier
	Broadcaster   Broadcaster
	Audit         Auditor
	Log           *zap.Logger
}

type Options struct {
	PageSizeDefault int
	PageSizeMax     int
	SnapDefaultTTL  time.Duration
	// SnapMaxTTL caps expires_in_seconds and duration_seconds.
	SnapMaxTTL    time.Duration
	ViewOnceDwell time.Duration
	// AfterFunc and Now override the clock, for tests.
	AfterFunc ephemeral.AfterFunc
	Now       func() time.Time
}

// core is the state shared by every component.
type core struct {
	Deps
	opts  Options
	now   func() time.Time
	newID func() string
}

// Service wires the components into the Chat surface.
type Service struct {
	directory *Directory
	log       *MessageLog
	receipts  *ReceiptTracker
	unread    *UnreadAggregator
	snaps     *SnapViewer
}

var _ Chat = (*Service)(nil)

func New(deps Deps, opts Options) *Service {
	if opts.PageSizeDefault <= 0 {
		opts.PageSizeDefault = 30
	}
	if opts.PageSizeMax < opts.PageSizeDefault {
		opts.PageSizeMax = opts.PageSizeDefault
	}
	if opts.SnapDefaultTTL <= 0 {
		opts.SnapDefaultTTL = 24 * time.Hour
	}
	if opts.SnapMaxTTL < opts.SnapDefaultTTL {
		opts.SnapMaxTTL = max(7*24*time.Hour, opts.SnapDefaultTTL)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = nopBroadcaster{}
	}
	c := &core{Deps: deps, opts: opts, now: opts.Now, newID: uuid.NewString}

	directory := &Directory{core: c}
	return &Service{
		directory: directory,
		log:       &MessageLog{core: c, directory: directory},
		receipts:  &ReceiptTracker{core: c},
		unread:    &UnreadAggregator{core: c},
		snaps:     newSnapViewer(c),
	}
}

// Shutdown cancels pending snap timers.
func (s *Service) Shutdown() {
	s.snaps.controller.Shutdown()
}

func (s *Service) StartConversation(ctx context.Context, senderID, otherID string) (models.Conversation, models.Profile, error) {
	return s.directory.StartConversation(ctx, senderID, otherID)
}

func (s *Service) SendMessage(ctx context.Context, senderID, receiverID string, in MessageInput) (models.Message, error) {
	return s.log.SendMessage(ctx, senderID, receiverID, in)
}

func (s *Service) SendMessageToConversation(ctx context.Context, conversationID, senderID string, in MessageInput) (models.Message, error) {
	return s.log.SendMessageToConversation(ctx, conversationID, senderID, in)
}

func (s *Service) ListMessages(ctx context.Context, conversationID, userID, cursor string, limit int) (models.MessagePage, error) {
	return s.log.ListPage(ctx, conversationID, userID, cursor, limit)
}

func (s *Service) ListConversations(ctx context.Context, userID, cursor string, limit int) (models.ConversationPage, error) {
	return s.log.ListConversationsForUser(ctx, userID, cursor, limit, s.unread)
}

func (s *Service) MarkMessagesRead(ctx context.Context, conversationID, userID string) (int, error) {
	return s.receipts.MarkRead(ctx, conversationID, userID)
}

func (s *Service) UnreadCountForConversation(ctx context.Context, conversationID, userID string) (int, error) {
	return s.unread.ForConversation(ctx, conversationID, userID)
}

func (s *Service) UnreadCountGlobal(ctx context.Context, userID string) (int, error) {
	return s.unread.Global(ctx, userID)
}

func (s *Service) UsersWithUnreadMessages(ctx context.Context, userID string) ([]string, error) {
	return s.unread.UsersWithUnreadMessagesTo(ctx, userID)
}

func (s *Service) DeleteUserSentMedia(ctx context.Context, userID, messageID string) error {
	return s.log.DeleteOwnMedia(ctx, userID, messageID)
}

func (s *Service) HideMessage(ctx context.Context, actorID, messageID string, hidden bool) error {
	return s.log.Hide(ctx, actorID, messageID, hidden)
}

func (s *Service) UploadMedia(ctx context.Context, userID, contentType string, data []byte) (string, error) {
	return s.log.UploadMedia(ctx, userID, contentType, data)
}

func (s *Service) OpenSnap(ctx context.Context, messageID, viewerID string) (models.SnapAccess, error) {
	return s.snaps.Open(ctx, messageID, viewerID)
}

func (s *Service) CloseSnap(ctx context.Context, messageID, viewerID string) (bool, error) {
	return s.snaps.Close(ctx, messageID, viewerID)
}

func (s *Service) SnapStatus(ctx context.Context, messageID, viewerID string) (models.SnapStatus, error) {
	return s.snaps.Status(ctx, messageID, viewerID)
}

// checkModeration returns a Moderated error when userID may not write.
func (c *core) checkModeration(ctx context.Context, userID string) error {
	if c.Gate == nil {
		return nil
	}
	decision, err := c.Gate.IsAllowed(ctx, userID)
	if err != nil {
		return apperrors.Internal("moderation check failed", err)
	}
	if !decision.Allowed {
		return apperrors.Moderated(decision.Reason, decision.Until)
	}
	return nil
}

// participantConversation loads a conversation and checks userID belongs to it.
func (c *core) participantConversation(ctx context.Context, conversationID, userID string) (models.Conversation, error) {
	conv, err := c.Conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return models.Conversation{}, translate(err)
	}
	if !conv.HasParticipant(userID) {
		return models.Conversation{}, apperrors.ErrNotParticipant
	}
	return conv, nil
}

func (c *core) profiles(ctx context.Context, ids []string) map[string]models.Profile {
	if c.Profiles == nil || len(ids) == 0 {
		return map[string]models.Profile{}
	}
	profiles, err := c.Profiles.BulkProfiles(ctx, ids)
	if err != nil {
		c.Log.Warn("profile lookup failed", zap.Int("count", len(ids)), zap.Error(err))
		return map[string]models.Profile{}
	}
	return profiles
}

func (c *core) broadcast(event models.ChatEvent) {
	c.Broadcaster.BroadcastChange(event)
}

func (c *core) clampLimit(limit int) int {
	if limit <= 0 {
		return c.opts.PageSizeDefault
	}
	if limit > c.opts.PageSizeMax {
		return c.opts.PageSizeMax
	}
	return limit
}

// translate maps repository errors onto user-presentable ones.
func translate(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrConversationNotFound):
		return apperrors.ErrConversationAbsent
	case errors.Is(err, repositories.ErrMessageNotFound):
		return apperrors.ErrMessageAbsent
	}
	return apperrors.Internal("storage failure", err)
}

func parseCursor(raw string) (*models.Cursor, error) {
	cursor, err := models.ParseCursor(raw)
	if err != nil {
		return nil, apperrors.ErrInvalidCursor
	}
	return cursor, nil
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastChange(models.ChatEvent) {}
