package models

import "time"

// Format tags the kind of content a message carries.
type Format string

const (
	FormatText       Format = "text"
	FormatImage      Format = "image"
	FormatVideo      Format = "video"
	FormatGIF        Format = "gif"
	FormatLocation   Format = "location"
	FormatAlbumShare Format = "album_share"
	FormatSnap       Format = "snap"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	switch f {
	case FormatText, FormatImage, FormatVideo, FormatGIF, FormatLocation, FormatAlbumShare, FormatSnap:
		return true
	}
	return false
}

// DeletableMedia reports whether a sender may delete a message of this format.
func (f Format) DeletableMedia() bool {
	return f == FormatImage || f == FormatVideo
}

// Message represents a direct message.
type Message struct {
	ID             string       `db:"id" json:"id"`
	ConversationID string       `db:"conversation_id" json:"conversation_id"`
	SenderID       string       `db:"sender_id" json:"sender_id"`
	Format         Format       `db:"format" json:"format"`
	Content        string       `db:"content" json:"content"`
	BlobRef        *string      `db:"blob_ref" json:"blob_ref,omitempty"`
	Hidden         bool         `db:"hidden" json:"-"`
	ViewMode       *ViewMode    `db:"view_mode" json:"view_mode,omitempty"`
	DurationSecs   *int         `db:"duration_seconds" json:"duration_seconds,omitempty"`
	ExpiresAt      *time.Time   `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	ReadBy         ReadReceipts `db:"-" json:"read_by"`
}

// MarkRead records the first read of the message by readerID.
// It returns false when readerID is the sender or has already read it.
func (m *Message) MarkRead(readerID string, at time.Time) bool {
	if m.ReadBy == nil {
		m.ReadBy = ReadReceipts{}
	}
	return m.ReadBy.Mark(m.SenderID, readerID, at)
}

// UnreadBy reports whether the message counts as unread for userID.
func (m Message) UnreadBy(userID string) bool {
	return m.SenderID != userID && !m.ReadBy.Has(userID)
}

// Clone returns a copy that does not share the receipt map.
func (m Message) Clone() Message {
	out := m
	out.ReadBy = m.ReadBy.Clone()
	return out
}

// EnrichedMessage is a message decorated with sender presentation data.
type EnrichedMessage struct {
	Message
	SenderName   string `json:"sender_name,omitempty"`
	SenderAvatar string `json:"sender_avatar,omitempty"`
}

// MessagePage is one page of a conversation, newest first.
type MessagePage struct {
	Messages   []EnrichedMessage `json:"messages"`
	NextCursor string            `json:"next_cursor,omitempty"`
	Done       bool              `json:"done"`
}

// ChatEvent is broadcast through websockets after a change. Clients re-read on receipt.
type ChatEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

const (
	EventMessage      = "message"
	EventRead         = "read"
	EventDeleted      = "deleted"
	EventHidden       = "hidden"
	EventSnapConsumed = "snap_consumed"
)
