package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaHandler implements the LLM interface for Ollama
type OllamaHandler struct {
	apiKey     string
	ollamaURL  string
	httpClient *http.Client
	logger     *logrus.Logger
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error"`
}

// NewOllamaHandler creates a new Ollama handler
func NewOllamaHandler(apiKey, ollamaURL string, httpClient *http.Client, logger *logrus.Logger) *OllamaHandler {
	if ollamaURL == "" {
		ollamaURL = defaultOllamaURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaHandler{
		apiKey:     apiKey,
		ollamaURL:  strings.TrimRight(ollamaURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (h *OllamaHandler) Chat(ctx context.Context, req ChatRequest) (string, error) {
	options := map[string]any{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	body, err := json.Marshal(ollamaChatRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   false,
		Options:  options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.ollamaURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	if out.Message.Content == "" {
		return "", ErrEmptyResponse
	}

	h.logger.WithField("model", out.Model).Debug("ollama chat finished")
	return out.Message.Content, nil
}
