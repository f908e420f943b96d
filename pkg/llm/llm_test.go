package llm_test

import (
	"TinyTales/pkg/llm"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func storyRequest() llm.ChatRequest {
	return llm.ChatRequest{
		Model: "gpt-4",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are a storyteller."},
			{Role: llm.RoleUser, Content: "Language: en\nUser Request: a bunny"},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	}
}

func TestOpenAIHandler_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4","choices":[{"index":0,"message":{"role":"assistant","content":"{\"title\":\"Pip\",\"content\":\"Hop.\"}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	handler := llm.NewOpenAIHandler("sk-test", srv.URL+"/v1", srv.Client(), newLogger())
	out, err := handler.Chat(context.Background(), storyRequest())
	require.NoError(t, err)

	assert.Equal(t, `{"title":"Pip","content":"Hop."}`, out)
	assert.Equal(t, "gpt-4", got["model"])
	assert.EqualValues(t, 500, got["max_tokens"])
	assert.Len(t, got["messages"], 2)
}

func TestOpenAIHandler_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	handler := llm.NewOpenAIHandler("sk-test", srv.URL+"/v1", srv.Client(), newLogger())
	_, err := handler.Chat(context.Background(), storyRequest())
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestOpenAIHandler_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	srv.Close()

	handler := llm.NewOpenAIHandler("sk-test", srv.URL+"/v1", &http.Client{Timeout: time.Second}, newLogger())
	_, err := handler.Chat(context.Background(), storyRequest())
	assert.Error(t, err)
}

func TestOllamaHandler_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, false, body["stream"])
		opts := body["options"].(map[string]any)
		assert.EqualValues(t, 500, opts["num_predict"])
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"once upon a time"},"done":true}`))
	}))
	defer srv.Close()

	handler := llm.NewOllamaHandler("", srv.URL, srv.Client(), newLogger())
	out, err := handler.Chat(context.Background(), storyRequest())
	require.NoError(t, err)
	assert.Equal(t, "once upon a time", out)
}

func TestOllamaHandler_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	handler := llm.NewOllamaHandler("", srv.URL, srv.Client(), newLogger())
	_, err := handler.Chat(context.Background(), storyRequest())
	assert.ErrorContains(t, err, "model not found")
}

func TestNewLLMHandler(t *testing.T) {
	for _, provider := range []string{"", "openai", "lmstudio", "ollama"} {
		h, err := llm.NewLLMHandler(provider, "k", "", time.Second, nil)
		require.NoError(t, err, provider)
		assert.NotNil(t, h)
	}
	_, err := llm.NewLLMHandler("bard", "k", "", time.Second, nil)
	assert.Error(t, err)
}
