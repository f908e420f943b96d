package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// OpenAIHandler talks to any OpenAI compatible chat completions endpoint
type OpenAIHandler struct {
	client *openai.Client
	logger *logrus.Logger
}

// NewOpenAIHandler creates a handler; an empty baseURL keeps the official endpoint
func NewOpenAIHandler(apiKey, baseURL string, httpClient *http.Client, logger *logrus.Logger) *OpenAIHandler {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIHandler{
		client: openai.NewClientWithConfig(cfg),
		logger: logger,
	}
}

func (h *OpenAIHandler) Chat(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	h.logger.WithFields(logrus.Fields{
		"model":             resp.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"finish_reason":     resp.Choices[0].FinishReason,
	}).Debug("chat completion finished")

	return resp.Choices[0].Message.Content, nil
}
