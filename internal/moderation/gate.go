// Package moderation answers whether a user may currently write. Ban and suspension
// flags are owned by the moderation tooling; this package only reads them.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"dm-service/internal/models"
)

const (
	ReasonBanned    = "banned"
	ReasonSuspended = "suspended"
)

func bannedKey(userID string) string    { return "moderation:banned:" + userID }
func suspendedKey(userID string) string { return "moderation:suspended:" + userID }

// RedisGate reads moderation flags written to Redis by the moderation tooling.
// A suspension key carries a TTL equal to the remaining suspension.
type RedisGate struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisGate(rdb *redis.Client) *RedisGate {
	return &RedisGate{rdb: rdb, now: time.Now}
}

// IsAllowed fetches both flags in one round trip.
func (g *RedisGate) IsAllowed(ctx context.Context, userID string) (models.ModerationDecision, error) {
	var banned, suspended *redis.StringCmd
	var ttl *redis.DurationCmd
	_, err := g.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		banned = p.Get(ctx, bannedKey(userID))
		suspended = p.Get(ctx, suspendedKey(userID))
		ttl = p.PTTL(ctx, suspendedKey(userID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.ModerationDecision{}, err
	}
	return fromReplies(banned, suspended, ttl, g.now())
}

// fromReplies treats redis.Nil as an absent flag. Any other reply error fails the check.
func fromReplies(banned, suspended *redis.StringCmd, ttl *redis.DurationCmd, now time.Time) (models.ModerationDecision, error) {
	isBanned, err := flagSet(banned)
	if err != nil {
		return models.ModerationDecision{}, err
	}
	isSuspended, err := flagSet(suspended)
	if err != nil {
		return models.ModerationDecision{}, err
	}
	if err := ttl.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return models.ModerationDecision{}, fmt.Errorf("moderation: suspension ttl: %w", err)
	}
	return decide(isBanned, isSuspended, ttl.Val(), now), nil
}

func flagSet(cmd *redis.StringCmd) (bool, error) {
	err := cmd.Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("moderation: read flag: %w", err)
	}
}

func decide(banned, suspended bool, ttl time.Duration, now time.Time) models.ModerationDecision {
	if banned {
		return models.ModerationDecision{Reason: ReasonBanned}
	}
	if suspended {
		d := models.ModerationDecision{Reason: ReasonSuspended}
		if ttl > 0 {
			until := now.Add(ttl).UTC()
			d.Until = &until
		}
		return d
	}
	return models.ModerationDecision{Allowed: true}
}

// MemoryGate keeps moderation flags in process. Used with store=memory and in tests.
type MemoryGate struct {
	mu        sync.RWMutex
	banned    map[string]bool
	suspended map[string]time.Time
	now       func() time.Time
}

func NewMemoryGate() *MemoryGate {
	return &MemoryGate{banned: map[string]bool{}, suspended: map[string]time.Time{}, now: time.Now}
}

func (g *MemoryGate) Ban(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.banned[userID] = true
}

func (g *MemoryGate) Suspend(userID string, until time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.suspended[userID] = until
}

func (g *MemoryGate) IsAllowed(_ context.Context, userID string) (models.ModerationDecision, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	now := g.now()
	until, suspended := g.suspended[userID]
	if suspended && !until.After(now) {
		suspended = false
	}
	return decide(g.banned[userID], suspended, until.Sub(now), now), nil
}
