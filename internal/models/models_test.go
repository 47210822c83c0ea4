package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPairIsOrderIndependent(t *testing.T) {
	a1, b1 := CanonicalPair("bob", "alice")
	a2, b2 := CanonicalPair("alice", "bob")
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
	assert.Equal(t, "alice", a1)
}

func TestReadReceiptsMarkIsWriteOnce(t *testing.T) {
	msg := Message{SenderID: "alice"}
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, msg.MarkRead("alice", first), "sender must never be recorded")
	assert.True(t, msg.MarkRead("bob", first))
	assert.False(t, msg.MarkRead("bob", first.Add(time.Hour)))
	assert.Equal(t, first, msg.ReadBy["bob"])
	assert.False(t, msg.UnreadBy("bob"))
	assert.False(t, msg.UnreadBy("alice"))
}

func TestCloneDoesNotShareReceipts(t *testing.T) {
	msg := Message{SenderID: "alice"}
	msg.MarkRead("bob", time.Now())
	clone := msg.Clone()
	clone.MarkRead("carol", time.Now())
	assert.False(t, msg.ReadBy.Has("carol"))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "hi", Summary(FormatText, "hi"))
	assert.Equal(t, "Sent you a photo", Summary(FormatImage, "s3://x"))
	assert.Equal(t, "Sent you a snap", Summary(FormatSnap, ""))

	long := strings.Repeat("é", 150)
	got := Summary(FormatText, long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, 103, len([]rune(got)))
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{Time: time.UnixMicro(1700000000123456).UTC(), ID: "m-1"}
	parsed, err := ParseCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, parsed.Time.Equal(c.Time))
	assert.Equal(t, "m-1", parsed.ID)

	empty, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseCursor("!!!")
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCursorBefore(t *testing.T) {
	ts := time.Unix(100, 0)
	c := Cursor{Time: ts, ID: "m"}
	assert.True(t, c.Before(ts.Add(-time.Second), "z"))
	assert.True(t, c.Before(ts, "a"))
	assert.False(t, c.Before(ts, "m"))
	assert.False(t, c.Before(ts.Add(time.Second), "a"))
}
