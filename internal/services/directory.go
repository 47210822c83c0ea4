package services

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"dm-service/internal/apperrors"
	"dm-service/internal/models"
)

// Directory canonicalizes user pairs into conversations.
type Directory struct {
	*core
	// pairLocks serializes creation per canonical pair inside this process (striped
	// by hash); the store's uniqueness on the pair covers other replicas.
	pairLocks [64]sync.Mutex
}

// GetOrCreate returns the conversation between userA and userB, creating it on first contact.
func (d *Directory) GetOrCreate(ctx context.Context, userA, userB string) (models.Conversation, error) {
	if userA == userB {
		return models.Conversation{}, apperrors.ErrSelfConversation
	}
	low, high := models.CanonicalPair(userA, userB)

	lock := d.pairLock(low + "\x00" + high)
	lock.Lock()
	defer lock.Unlock()

	now := d.now().UTC().Truncate(time.Microsecond)
	conv, created, err := d.Conversations.GetOrCreateConversation(ctx, models.Conversation{
		ID:              d.newID(),
		ParticipantA:    userA,
		ParticipantB:    userB,
		UserLow:         low,
		UserHigh:        high,
		LastMessageTime: now,
		CreatedAt:       now,
	})
	if err != nil {
		return models.Conversation{}, translate(err)
	}
	if created {
		d.Log.Info("conversation created", zap.String("conversation_id", conv.ID))
	}
	return conv, nil
}

// StartConversation wraps GetOrCreate and returns the other participant's profile.
// A moderated sender may not open conversations.
func (d *Directory) StartConversation(ctx context.Context, senderID, otherID string) (models.Conversation, models.Profile, error) {
	if senderID == otherID {
		return models.Conversation{}, models.Profile{}, apperrors.ErrSelfConversation
	}
	if err := d.checkModeration(ctx, senderID); err != nil {
		return models.Conversation{}, models.Profile{}, err
	}
	conv, err := d.GetOrCreate(ctx, senderID, otherID)
	if err != nil {
		return models.Conversation{}, models.Profile{}, err
	}
	profile, ok := d.profiles(ctx, []string{otherID})[otherID]
	if !ok {
		profile = models.Profile{UserID: otherID}
	}
	return conv, profile, nil
}

func (d *Directory) pairLock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &d.pairLocks[h.Sum32()%uint32(len(d.pairLocks))]
}
