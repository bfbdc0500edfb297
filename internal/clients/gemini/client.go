// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

const (
	DefaultModel      = "gemini-2.0-flash"
	DefaultMaxHistory = 50
)

// Client implements the GeminiClient interface
type Client struct {
	client     *genai.Client
	model      string
	maxHistory int
	logger     *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxHistory caps how many transcript messages are sent per turn
func WithMaxHistory(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxHistory = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client:     genaiClient,
		model:      DefaultModel,
		maxHistory: DefaultMaxHistory,
		logger:     common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Close closes the client
func (c *Client) Close() error {
	// The genai client doesn't have a Close method
	return nil
}

// GenerateContent generates AI content from a prompt
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug().Str("model", c.model).Msg("Generating content")

	contents := genai.Text(prompt)
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

// GenerateChat generates the next assistant turn of a conversation. The
// transcript is replayed as alternating user and model turns under a
// system instruction, oldest first.
func (c *Client) GenerateChat(ctx context.Context, systemInstruction string, history []*models.ChatMessage, message string) (string, error) {
	c.logger.Debug().Str("model", c.model).Int("history", len(history)).Msg("Generating chat turn")

	if len(history) > c.maxHistory {
		history = history[len(history)-c.maxHistory:]
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		contents = append(contents, genai.NewContentFromText(msg.Text, chatRole(msg.Author)))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	var config *genai.GenerateContentConfig
	if systemInstruction != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate chat turn: %w", err)
	}

	return extractTextFromResponse(result)
}

// chatRole maps a transcript author to the provider's turn role.
func chatRole(author string) genai.Role {
	if author == models.ChatAuthorAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}

// Ensure Client implements GeminiClient
var _ interfaces.GeminiClient = (*Client)(nil)
