package llm

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

const defaultLMStudioURL = "http://localhost:1234/v1"

// NewLMStudioHandler LM Studio exposes the OpenAI wire format and ignores the API key
func NewLMStudioHandler(lmStudioURL string, httpClient *http.Client, logger *logrus.Logger) *OpenAIHandler {
	if lmStudioURL == "" {
		lmStudioURL = defaultLMStudioURL
	}
	return NewOpenAIHandler("lm-studio", lmStudioURL, httpClient, logger)
}
