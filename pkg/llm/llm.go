package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse the model answered without any content
var ErrEmptyResponse = errors.New("llm: empty response")

// Message is one chat turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single non-streaming completion request
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// LLM represents a generic interface for interacting with LLMs
type LLM interface {
	// Chat sends the conversation and returns the assistant's text
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// NewLLMHandler builds the handler for provider: openai (default), lmstudio or ollama
func NewLLMHandler(provider, apiKey, baseURL string, timeout time.Duration, logger *logrus.Logger) (LLM, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	httpClient := &http.Client{Timeout: timeout}
	switch strings.ToLower(provider) {
	case "", "openai":
		return NewOpenAIHandler(apiKey, baseURL, httpClient, logger), nil
	case "lmstudio":
		return NewLMStudioHandler(baseURL, httpClient, logger), nil
	case "ollama":
		return NewOllamaHandler(apiKey, baseURL, httpClient, logger), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
