// Package counselor runs the financial counselor chat. Every turn is
// grounded in the user's profile snapshot and the transcript survives
// restarts through the chat store.
package counselor

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxMessageLength    = 4000

	fallbackReply = "I couldn't think that through just now. Give me a moment and ask again."
)

// Service implements interfaces.CounselorService.
type Service struct {
	storage interfaces.StorageManager
	gemini  interfaces.GeminiClient
	logger  *common.Logger
}

// NewService creates the counselor service.
func NewService(storage interfaces.StorageManager, gemini interfaces.GeminiClient, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		gemini:  gemini,
		logger:  logger,
	}
}

var _ interfaces.CounselorService = (*Service)(nil)

// Chat records the user's message, asks the model for the next turn and
// records the reply. A provider failure still produces an assistant
// message so the transcript never ends on an unanswered question.
func (s *Service) Chat(ctx context.Context, profile *models.Profile, message string) (*models.ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("message is required")
	}
	message = truncateMessage(message, maxMessageLength)

	history, err := s.storage.ChatStore().History(ctx, profile.UID, defaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	userMsg := &models.ChatMessage{
		ID:        fmt.Sprintf("msg_%s", uuid.New().String()[:8]),
		UserID:    profile.UID,
		Author:    models.ChatAuthorUser,
		Text:      message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.ChatStore().Append(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	reply := fallbackReply
	if s.gemini == nil {
		s.logger.Warn().Str("user", profile.UID).Msg("Counselor requested without a model client")
	} else if generated, err := s.gemini.GenerateChat(ctx, buildSystemInstruction(profile), history, message); err != nil {
		s.logger.Error().Err(err).Str("user", profile.UID).Msg("Counselor generation failed")
	} else {
		reply = generated
	}

	assistantMsg := &models.ChatMessage{
		ID:        fmt.Sprintf("msg_%s", uuid.New().String()[:8]),
		UserID:    profile.UID,
		Author:    models.ChatAuthorAssistant,
		Text:      reply,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.storage.ChatStore().Append(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("store reply: %w", err)
	}

	return assistantMsg, nil
}

// History returns the transcript for userID, oldest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.storage.ChatStore().History(ctx, userID, limit)
}

// truncateMessage caps s at limit bytes, backing up to a rune boundary
// so the stored transcript stays valid UTF-8.
func truncateMessage(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// buildSystemInstruction grounds the model in the user's numbers. Only
// fields with a value make it into the prompt.
func buildSystemInstruction(profile *models.Profile) string {
	var sb strings.Builder
	sb.WriteString("You are a pragmatic personal finance counselor inside a behavioral spending guardian app. ")
	sb.WriteString("Answer briefly and concretely, always in terms of the user's own numbers when they are available. ")
	sb.WriteString("Never give regulated investment advice.\n\nUser context:\n")

	name := profile.DisplayName
	if name == "" {
		name = profile.Email
	}
	sb.WriteString(fmt.Sprintf("- Name: %s\n", name))
	sb.WriteString(fmt.Sprintf("- Plan: %s\n", profile.Plan))

	fin := profile.Financial
	if fin.Balance != 0 {
		sb.WriteString(fmt.Sprintf("- Current balance: %.2f\n", fin.Balance))
	}
	if fin.TotalInvested != 0 {
		sb.WriteString(fmt.Sprintf("- Total invested: %.2f\n", fin.TotalInvested))
	}
	if fin.HoursSaved != 0 {
		sb.WriteString(fmt.Sprintf("- Work hours saved by avoided purchases: %.1f\n", fin.HoursSaved))
	}
	if fin.SavingsRatio != 0 {
		sb.WriteString(fmt.Sprintf("- Savings ratio: %.2f\n", fin.SavingsRatio))
	}
	if len(profile.Subscriptions) > 0 {
		sb.WriteString("- Tracked subscriptions:\n")
		for _, sub := range profile.Subscriptions {
			sb.WriteString(fmt.Sprintf("  - %s at %.2f per month\n", sub.Name, sub.MonthlyAmount))
		}
	}
	return sb.String()
}
