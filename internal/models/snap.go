package models

import "time"

// ViewMode controls how a snap may be viewed.
type ViewMode string

const (
	ViewOnce ViewMode = "view_once"
	Timed    ViewMode = "timed"
)

func (v ViewMode) Valid() bool {
	return v == ViewOnce || v == Timed
}

// SnapOptions carries the snap-specific fields supplied at send time.
type SnapOptions struct {
	ViewMode        ViewMode `json:"view_mode"`
	DurationSeconds int      `json:"duration_seconds,omitempty"`
	ExpiresIn       int      `json:"expires_in_seconds,omitempty"`
}

// SnapState is the per-viewer state of a snap.
type SnapState string

const (
	SnapUnopened SnapState = "unopened"
	SnapViewing  SnapState = "viewing"
	SnapConsumed SnapState = "consumed"
	SnapExpired  SnapState = "expired"
)

// SnapAccess is returned when a viewer opens a snap.
type SnapAccess struct {
	MessageID        string    `json:"message_id"`
	URL              string    `json:"url"`
	ViewMode         ViewMode  `json:"view_mode"`
	RemainingSeconds float64   `json:"remaining_seconds"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// SnapStatus reports a viewer's state for a snap.
type SnapStatus struct {
	MessageID string    `json:"message_id"`
	State     SnapState `json:"state"`
	ViewMode  ViewMode  `json:"view_mode"`
	ExpiresAt time.Time `json:"expires_at"`
}
