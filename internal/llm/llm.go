package llm

import (
	"context"
	"strings"

	"github.com/comigor/support-agent/internal/config"
	"github.com/comigor/support-agent/internal/logger"
	"github.com/sashabaranov/go-openai"
)

// NewOpenAIClient creates a new OpenAI-compatible client for the configured provider.
func NewOpenAIClient(cfg config.LLMConfig) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return openai.NewClientWithConfig(config)
}

// Client turns a prompt into a completion with a single chat round trip.
// It does not retry and does not cache: every call reaches the service.
type Client struct {
	chat  ChatClient
	model string
}

// New wraps a chat client for the given model.
func New(chat ChatClient, model string) *Client {
	return &Client{chat: chat, model: model}
}

// NewClient builds a Client talking to the configured provider.
func NewClient(cfg config.LLMConfig) *Client {
	return New(NewOpenAIClient(cfg), cfg.Model)
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string { return c.model }

// Complete sends prompt as a single user message and returns the completion text.
// Any failure is reported as a *ServiceError.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		logger.L.Error("completion call failed", "model", c.model, "error", err)
		return "", newServiceError(c.model, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		logger.L.Warn("completion call returned no text", "model", c.model, "choices", len(resp.Choices))
		return "", newServiceError(c.model, ErrEmptyCompletion)
	}

	logger.L.Debug("completion received", "model", c.model, "prompt_chars", len(prompt), "usage", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}
