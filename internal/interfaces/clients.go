package interfaces

import (
	"context"

	"github.com/akumol/guardian/internal/models"
)

// GeminiClient generates counselor replies.
type GeminiClient interface {
	// GenerateContent runs a single-turn prompt.
	GenerateContent(ctx context.Context, prompt string) (string, error)

	// GenerateChat runs a multi-turn conversation with a system instruction.
	// History is ordered oldest first; assistant turns map to the model role.
	GenerateChat(ctx context.Context, systemInstruction string, history []*models.ChatMessage, message string) (string, error)

	Close() error
}
