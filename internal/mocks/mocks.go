package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dm-service/internal/models"
	"dm-service/internal/services"
)

type ChatServiceMock struct {
	mock.Mock
}

var _ services.Chat = (*ChatServiceMock)(nil)

func (m *ChatServiceMock) StartConversation(ctx context.Context, senderID, otherID string) (models.Conversation, models.Profile, error) {
	args := m.Called(ctx, senderID, otherID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	var profile models.Profile
	if val := args.Get(1); val != nil {
		profile = val.(models.Profile)
	}
	return conv, profile, args.Error(2)
}

func (m *ChatServiceMock) SendMessage(ctx context.Context, senderID, receiverID string, in services.MessageInput) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, in)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ChatServiceMock) SendMessageToConversation(ctx context.Context, conversationID, senderID string, in services.MessageInput) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, in)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ChatServiceMock) ListMessages(ctx context.Context, conversationID, userID, cursor string, limit int) (models.MessagePage, error) {
	args := m.Called(ctx, conversationID, userID, cursor, limit)
	var page models.MessagePage
	if val := args.Get(0); val != nil {
		page = val.(models.MessagePage)
	}
	return page, args.Error(1)
}

func (m *ChatServiceMock) ListConversations(ctx context.Context, userID, cursor string, limit int) (models.ConversationPage, error) {
	args := m.Called(ctx, userID, cursor, limit)
	var page models.ConversationPage
	if val := args.Get(0); val != nil {
		page = val.(models.ConversationPage)
	}
	return page, args.Error(1)
}

func (m *ChatServiceMock) MarkMessagesRead(ctx context.Context, conversationID, userID string) (int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Int(0), args.Error(1)
}

func (m *ChatServiceMock) UnreadCountForConversation(ctx context.Context, conversationID, userID string) (int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Int(0), args.Error(1)
}

func (m *ChatServiceMock) UnreadCountGlobal(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *ChatServiceMock) UsersWithUnreadMessages(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

func (m *ChatServiceMock) DeleteUserSentMedia(ctx context.Context, userID, messageID string) error {
	args := m.Called(ctx, userID, messageID)
	return args.Error(0)
}

func (m *ChatServiceMock) HideMessage(ctx context.Context, actorID, messageID string, hidden bool) error {
	args := m.Called(ctx, actorID, messageID, hidden)
	return args.Error(0)
}

func (m *ChatServiceMock) UploadMedia(ctx context.Context, userID, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, userID, contentType, data)
	return args.String(0), args.Error(1)
}

func (m *ChatServiceMock) OpenSnap(ctx context.Context, messageID, viewerID string) (models.SnapAccess, error) {
	args := m.Called(ctx, messageID, viewerID)
	var access models.SnapAccess
	if val := args.Get(0); val != nil {
		access = val.(models.SnapAccess)
	}
	return access, args.Error(1)
}

func (m *ChatServiceMock) CloseSnap(ctx context.Context, messageID, viewerID string) (bool, error) {
	args := m.Called(ctx, messageID, viewerID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatServiceMock) SnapStatus(ctx context.Context, messageID, viewerID string) (models.SnapStatus, error) {
	args := m.Called(ctx, messageID, viewerID)
	var status models.SnapStatus
	if val := args.Get(0); val != nil {
		status = val.(models.SnapStatus)
	}
	return status, args.Error(1)
}
