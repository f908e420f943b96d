// Package elevenlabs is a minimal REST client for the ElevenLabs voice
// cloning and text-to-speech endpoints.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"

	ModelMultilingualV2 = "eleven_multilingual_v2"
	FormatMP3_44100_128 = "mp3_44100_128"
)

// ErrEmptyAudio the provider answered 200 with no audio bytes
var ErrEmptyAudio = errors.New("elevenlabs: empty audio response")

// APIError is a non-2xx answer from the API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs: status %d: %s", e.StatusCode, e.Body)
}

// VoiceSettings tune the rendering of a voice
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// SpeechRequest is the body of a text-to-speech call
type SpeechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
	OutputFormat  string        `json:"-"`
}

// Sample is one audio file used to clone a voice
type Sample struct {
	FileName    string
	ContentType string
	Data        []byte
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddVoice creates an instant voice clone and returns its voice id.
// Cloning finishes asynchronously on the provider side.
func (c *Client) AddVoice(ctx context.Context, name string, labels map[string]string, samples ...Sample) (string, error) {
	if len(samples) == 0 {
		return "", errors.New("elevenlabs: at least one sample is required")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("name", name); err != nil {
		return "", err
	}
	if len(labels) > 0 {
		raw, err := json.Marshal(labels)
		if err != nil {
			return "", err
		}
		if err := mw.WriteField("labels", string(raw)); err != nil {
			return "", err
		}
	}
	for i, s := range samples {
		fileName := s.FileName
		if fileName == "" {
			fileName = fmt.Sprintf("sample_%d", i)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(fileName)))
		if s.ContentType != "" {
			h.Set("Content-Type", s.ContentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			return "", err
		}
		if _, err := part.Write(s.Data); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/voices/add", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("elevenlabs: decode add voice response: %w", err)
	}
	if out.VoiceID == "" {
		return "", errors.New("elevenlabs: add voice response without voice_id")
	}
	return out.VoiceID, nil
}

// DeleteVoice removes a cloned voice
func (c *Client) DeleteVoice(ctx context.Context, voiceID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/v1/voices/"+url.PathEscape(voiceID), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// TextToSpeech renders text with the given voice and returns the encoded audio
func (c *Client) TextToSpeech(ctx context.Context, voiceID string, sr SpeechRequest) ([]byte, error) {
	payload, err := json.Marshal(sr)
	if err != nil {
		return nil, err
	}
	path := "/v1/text-to-speech/" + url.PathEscape(voiceID)
	if sr.OutputFormat != "" {
		path += "?output_format=" + url.QueryEscape(sr.OutputFormat)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	return req, nil
}

// do sends the request and turns any non-2xx answer into an *APIError
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
