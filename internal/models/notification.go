package models

import (
	"time"
	"unicode/utf8"
)

const (
	RoutingDirectMessage = "direct_message"
	summaryMaxRunes      = 100
)

// Notification is a fire-and-forget alert for a message recipient.
type Notification struct {
	RecipientID string            `json:"recipient_id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	RoutingTag  string            `json:"routing_tag"`
	Payload     map[string]string `json:"payload"`
}

// Summary renders the human-readable preview for a message.
func Summary(format Format, content string) string {
	switch format {
	case FormatText:
		if utf8.RuneCountInString(content) <= summaryMaxRunes {
			return content
		}
		runes := []rune(content)
		return string(runes[:summaryMaxRunes]) + "..."
	case FormatImage:
		return "Sent you a photo"
	case FormatVideo:
		return "Sent you a video"
	case FormatGIF:
		return "Sent you a GIF"
	case FormatLocation:
		return "Shared a location"
	case FormatAlbumShare:
		return "Shared an album with you"
	case FormatSnap:
		return "Sent you a snap"
	}
	return "Sent you a message"
}

// ModerationDecision is the moderation collaborator's answer for a user.
type ModerationDecision struct {
	Allowed bool
	Reason  string
	Until   *time.Time
}
