package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

const chatSelectFields = `message_id as id, user_id, author, text, created_at`

// ChatStore implements interfaces.ChatStore using SurrealDB.
type ChatStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewChatStore(db *surrealdb.DB, logger *common.Logger) *ChatStore {
	return &ChatStore{db: db, logger: logger}
}

func (s *ChatStore) Append(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg_%s", uuid.New().String()[:8])
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	sql := `UPSERT $rid SET
		message_id = $message_id, user_id = $user_id, author = $author,
		text = $text, created_at = $created_at`
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID("chat_message", msg.ID),
		"message_id": msg.ID,
		"user_id":    msg.UserID,
		"author":     msg.Author,
		"text":       msg.Text,
		"created_at": msg.CreatedAt,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

// History returns the most recent messages in chronological order.
func (s *ChatStore) History(ctx context.Context, userID string, limit int) ([]*models.ChatMessage, error) {
	if limit < 1 {
		limit = 50
	}

	// Newest first in the query, then reversed so callers get oldest first.
	sql := "SELECT " + chatSelectFields + " FROM chat_message WHERE user_id = $user_id" +
		" ORDER BY created_at DESC, message_id DESC LIMIT $limit"
	vars := map[string]any{"user_id": userID, "limit": limit}

	results, err := surrealdb.Query[[]models.ChatMessage](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	var out []*models.ChatMessage
	if results != nil && len(*results) > 0 {
		rows := (*results)[0].Result
		for i := len(rows) - 1; i >= 0; i-- {
			out = append(out, &rows[i])
		}
	}
	return out, nil
}

func (s *ChatStore) Clear(ctx context.Context, userID string) error {
	sql := "DELETE chat_message WHERE user_id = $user_id"
	vars := map[string]any{"user_id": userID}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}

// Compile-time check
var _ interfaces.ChatStore = (*ChatStore)(nil)
