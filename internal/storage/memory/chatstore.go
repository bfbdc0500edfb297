package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// ChatStore keeps counselor transcripts in per-user slices, append order.
type ChatStore struct {
	mu       sync.RWMutex
	messages map[string][]models.ChatMessage
}

func NewChatStore() *ChatStore {
	return &ChatStore{messages: make(map[string][]models.ChatMessage)}
}

func (s *ChatStore) Append(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = "msg_" + uuid.New().String()[:8]
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.UserID] = append(s.messages[msg.UserID], *msg)
	return nil
}

// History returns the most recent messages in chronological order.
func (s *ChatStore) History(ctx context.Context, userID string, limit int) ([]*models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[userID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]*models.ChatMessage, len(msgs))
	for i := range msgs {
		m := msgs[i]
		out[i] = &m
	}
	return out, nil
}

func (s *ChatStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, userID)
	return nil
}

// Compile-time check
var _ interfaces.ChatStore = (*ChatStore)(nil)
