package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, decide(false, false, 0, now).Allowed)

	banned := decide(true, true, time.Hour, now)
	assert.False(t, banned.Allowed)
	assert.Equal(t, ReasonBanned, banned.Reason)
	assert.Nil(t, banned.Until)

	suspended := decide(false, true, time.Hour, now)
	assert.False(t, suspended.Allowed)
	assert.Equal(t, ReasonSuspended, suspended.Reason)
	require.NotNil(t, suspended.Until)
	assert.Equal(t, now.Add(time.Hour), *suspended.Until)
}

func TestFromReplies(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	missing := func() *redis.StringCmd { return redis.NewStringResult("", redis.Nil) }
	set := func() *redis.StringCmd { return redis.NewStringResult("1", nil) }
	noTTL := redis.NewDurationResult(-2*time.Millisecond, nil)

	d, err := fromReplies(missing(), missing(), noTTL, now)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = fromReplies(missing(), set(), redis.NewDurationResult(time.Hour, nil), now)
	require.NoError(t, err)
	assert.Equal(t, ReasonSuspended, d.Reason)
	require.NotNil(t, d.Until)
	assert.Equal(t, now.Add(time.Hour), *d.Until)

	// a missing ban key must not hide a failed suspension read
	timeout := errors.New("i/o timeout")
	_, err = fromReplies(missing(), redis.NewStringResult("", timeout), noTTL, now)
	assert.ErrorIs(t, err, timeout)

	_, err = fromReplies(missing(), set(), redis.NewDurationResult(0, timeout), now)
	assert.ErrorIs(t, err, timeout)
}

func TestMemoryGateSuspensionLapses(t *testing.T) {
	gate := NewMemoryGate()
	now := time.Now()
	gate.now = func() time.Time { return now }
	gate.Suspend("bob", now.Add(time.Minute))

	d, err := gate.IsAllowed(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	gate.now = func() time.Time { return now.Add(2 * time.Minute) }
	d, err = gate.IsAllowed(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryGateBan(t *testing.T) {
	gate := NewMemoryGate()
	gate.Ban("mallory")
	d, _ := gate.IsAllowed(context.Background(), "mallory")
	assert.Equal(t, ReasonBanned, d.Reason)
}
