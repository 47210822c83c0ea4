// Package memory is an in-process implementation of every repository interface.
// It backs the test suites and the store=memory mode used for local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

type pairKey struct{ low, high string }

// Store keeps all state behind one RWMutex. Reads copy out of the maps, so every
// read observes a consistent snapshot.
type Store struct {
	mu sync.RWMutex

	conversations map[string]*models.Conversation
	byPair        map[pairKey]string
	byUser        map[string]map[string]struct{}

	messages map[string]*models.Message
	// per-conversation message ids in ascending (created_at, id) order
	timeline map[string][]string

	snapViews map[string]map[string]time.Time
	profiles  map[string]models.Profile
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[string]*models.Conversation),
		byPair:        make(map[pairKey]string),
		byUser:        make(map[string]map[string]struct{}),
		messages:      make(map[string]*models.Message),
		timeline:      make(map[string][]string),
		snapViews:     make(map[string]map[string]time.Time),
		profiles:      make(map[string]models.Profile),
	}
}

var (
	_ repositories.ConversationRepository = (*Store)(nil)
	_ repositories.MessageRepository      = (*Store)(nil)
	_ repositories.ReceiptRepository      = (*Store)(nil)
	_ repositories.SnapViewRepository     = (*Store)(nil)
	_ repositories.ProfileRepository      = (*Store)(nil)
)

// PutProfile seeds presentation data for a user.
func (s *Store) PutProfile(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

func (s *Store) GetOrCreateConversation(_ context.Context, candidate models.Conversation) (models.Conversation, bool, error) {
	key := pairKey{candidate.UserLow, candidate.UserHigh}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byPair[key]; ok {
		return *s.conversations[id], false, nil
	}

	conv := candidate
	s.conversations[conv.ID] = &conv
	s.byPair[key] = conv.ID
	for _, u := range []string{conv.UserLow, conv.UserHigh} {
		if s.byUser[u] == nil {
			s.byUser[u] = make(map[string]struct{})
		}
		s.byUser[u][conv.ID] = struct{}{}
	}
	return conv, true, nil
}

func (s *Store) GetConversation(_ context.Context, conversationID string) (models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return models.Conversation{}, repositories.ErrConversationNotFound
	}
	return *conv, nil
}

func (s *Store) ListConversationsForUser(_ context.Context, userID string, cursor *models.Cursor, limit int) ([]models.Conversation, error) {
	s.mu.RLock()
	convs := make([]models.Conversation, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		conv := *s.conversations[id]
		if cursor == nil || cursor.Before(conv.LastMessageTime, conv.ID) {
			convs = append(convs, conv)
		}
	}
	s.mu.RUnlock()

	sort.Slice(convs, func(i, j int) bool {
		if convs[i].LastMessageTime.Equal(convs[j].LastMessageTime) {
			return convs[i].ID > convs[j].ID
		}
		return convs[i].LastMessageTime.After(convs[j].LastMessageTime)
	})
	if len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

func (s *Store) AppendMessage(_ context.Context, msg models.Message) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return models.Message{}, repositories.ErrConversationNotFound
	}
	msg.CreatedAt = repositories.NextTimestamp(msg.CreatedAt, conv.LastMessageTime)
	msg.ReadBy = models.ReadReceipts{}

	stored := msg.Clone()
	s.messages[msg.ID] = &stored
	s.timeline[msg.ConversationID] = append(s.timeline[msg.ConversationID], msg.ID)

	id := msg.ID
	conv.LastMessageID = &id
	conv.LastMessageTime = msg.CreatedAt
	return msg, nil
}

func (s *Store) GetMessage(_ context.Context, messageID string) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return models.Message{}, repositories.ErrMessageNotFound
	}
	return msg.Clone(), nil
}

func (s *Store) ListMessages(_ context.Context, conversationID string, cursor *models.Cursor, limit int) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.timeline[conversationID]
	out := make([]models.Message, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		msg := s.messages[ids[i]]
		if msg.Hidden {
			continue
		}
		if cursor != nil && !cursor.Before(msg.CreatedAt, msg.ID) {
			continue
		}
		out = append(out, msg.Clone())
	}
	return out, nil
}

func (s *Store) DeleteMessage(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok {
		return repositories.ErrMessageNotFound
	}
	delete(s.messages, messageID)
	delete(s.snapViews, messageID)

	ids := s.timeline[msg.ConversationID]
	for i, id := range ids {
		if id == messageID {
			s.timeline[msg.ConversationID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}

	conv := s.conversations[msg.ConversationID]
	if conv.LastMessageID != nil && *conv.LastMessageID == messageID {
		remaining := s.timeline[msg.ConversationID]
		if len(remaining) == 0 {
			conv.LastMessageID = nil
		} else {
			prev := s.messages[remaining[len(remaining)-1]]
			id := prev.ID
			conv.LastMessageID = &id
			conv.LastMessageTime = prev.CreatedAt
		}
	}
	return nil
}

func (s *Store) SetMessageHidden(_ context.Context, messageID string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return repositories.ErrMessageNotFound
	}
	msg.Hidden = hidden
	return nil
}

func (s *Store) MarkConversationRead(_ context.Context, conversationID, readerID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for _, id := range s.timeline[conversationID] {
		if s.messages[id].MarkRead(readerID, at) {
			updated++
		}
	}
	return updated, nil
}

func (s *Store) CountUnreadInConversation(_ context.Context, conversationID, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, id := range s.timeline[conversationID] {
		if s.messages[id].UnreadBy(userID) {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountUnreadConversations(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for id := range s.byUser[userID] {
		conv := s.conversations[id]
		if conv.LastMessageID == nil {
			continue
		}
		if last, ok := s.messages[*conv.LastMessageID]; ok && last.UnreadBy(userID) {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListUnreadSenders(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	senders := []string{}
	for convID := range s.byUser[userID] {
		for _, id := range s.timeline[convID] {
			if s.messages[id].UnreadBy(userID) {
				senders = append(senders, s.messages[id].SenderID)
				break
			}
		}
	}
	sort.Strings(senders)
	return senders, nil
}

func (s *Store) MarkSnapViewed(_ context.Context, messageID, viewerID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[messageID]; !ok {
		return false, repositories.ErrMessageNotFound
	}
	views := s.snapViews[messageID]
	if views == nil {
		views = make(map[string]time.Time)
		s.snapViews[messageID] = views
	}
	if _, seen := views[viewerID]; seen {
		return false, nil
	}
	views[viewerID] = at
	return true, nil
}

func (s *Store) HasViewedSnap(_ context.Context, messageID, viewerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.snapViews[messageID][viewerID]
	return ok, nil
}

func (s *Store) BulkProfiles(_ context.Context, userIDs []string) (map[string]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
