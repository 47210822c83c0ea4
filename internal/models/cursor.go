package models

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is a keyset position in a (time, id) descending listing.
type Cursor struct {
	Time time.Time
	ID   string
}

// Before reports whether (t, id) sorts strictly after the cursor in descending order.
func (c Cursor) Before(t time.Time, id string) bool {
	if t.Equal(c.Time) {
		return id < c.ID
	}
	return t.Before(c.Time)
}

func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.Time.UnixMicro(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes an opaque cursor. An empty string yields nil.
func ParseCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	micros, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	usec, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{Time: time.UnixMicro(usec).UTC(), ID: id}, nil
}
