package models

import "time"

// Conversation is a private conversation between exactly two users.
// ParticipantA/B keep the order in which the conversation was first requested;
// UserLow/UserHigh hold the canonical sorted pair used for deduplication.
type Conversation struct {
	ID              string    `db:"id" json:"id"`
	ParticipantA    string    `db:"participant_a" json:"participant_a"`
	ParticipantB    string    `db:"participant_b" json:"participant_b"`
	UserLow         string    `db:"user_low" json:"-"`
	UserHigh        string    `db:"user_high" json:"-"`
	LastMessageID   *string   `db:"last_message_id" json:"last_message_id,omitempty"`
	LastMessageTime time.Time `db:"last_message_time" json:"last_message_time"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// CanonicalPair returns the two identifiers in sorted order.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether userID is one of the two participants.
func (c Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// OtherParticipant returns the participant that is not userID.
func (c Conversation) OtherParticipant(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// ConversationSummary provides API-friendly view of a conversation for a user.
type ConversationSummary struct {
	ConversationID  string    `json:"conversation_id"`
	Other           Profile   `json:"other"`
	LastMessageID   *string   `json:"last_message_id,omitempty"`
	LastMessageTime time.Time `json:"last_message_time"`
	LastMessage     string    `json:"last_message,omitempty"`
	LastSenderID    string    `json:"last_sender_id,omitempty"`
	UnreadCount     int       `json:"unread_count"`
}

// ConversationPage is one page of a user's conversation list.
type ConversationPage struct {
	Conversations []ConversationSummary `json:"conversations"`
	NextCursor    string                `json:"next_cursor,omitempty"`
	Done          bool                  `json:"done"`
}

// Profile is the subset of a user record needed to render messages and conversation lists.
type Profile struct {
	UserID      string `db:"user_id" json:"user_id"`
	DisplayName string `db:"display_name" json:"display_name"`
	AvatarURL   string `db:"avatar_url" json:"avatar_url,omitempty"`
	Online      bool   `db:"online" json:"online"`
}
