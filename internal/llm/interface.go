package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// ChatClient is the minimal subset of openai.Client used by Client; it is easy to mock in tests.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}
