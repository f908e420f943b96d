package narration

import (
	"context"
	"math"
	"strings"

	"TinyTales/pkg/elevenlabs"
	apperrors "TinyTales/pkg/errors"
)

// WordsPerMinute is the assumed narration speed
const WordsPerMinute = 120

// SpeechProvider renders text with a cloned voice
type SpeechProvider interface {
	TextToSpeech(ctx context.Context, voiceID string, req elevenlabs.SpeechRequest) ([]byte, error)
}

// Speech is synthesized audio plus its estimated length
type Speech struct {
	Audio           []byte
	DurationSeconds int64
}

type SpeechSynthesizer struct {
	provider SpeechProvider
	modelID  string
	format   string
	settings elevenlabs.VoiceSettings
}

func NewSpeechSynthesizer(provider SpeechProvider) *SpeechSynthesizer {
	return &SpeechSynthesizer{
		provider: provider,
		modelID:  elevenlabs.ModelMultilingualV2,
		format:   elevenlabs.FormatMP3_44100_128,
		settings: elevenlabs.VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	}
}

// Synthesize 用克隆音色朗读文本
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text, voiceRef string) (*Speech, error) {
	audio, err := s.provider.TextToSpeech(ctx, voiceRef, elevenlabs.SpeechRequest{
		Text:          text,
		ModelID:       s.modelID,
		VoiceSettings: s.settings,
		OutputFormat:  s.format,
	})
	if err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeUpstreamSynthesis, "synthesize speech")
	}
	if len(audio) == 0 {
		return nil, apperrors.WrapWithCode(elevenlabs.ErrEmptyAudio, apperrors.CodeUpstreamSynthesis, "synthesize speech")
	}
	return &Speech{Audio: audio, DurationSeconds: EstimateDuration(text)}, nil
}

// EstimateDuration 按每分钟 120 词估算朗读秒数
func EstimateDuration(text string) int64 {
	words := len(strings.Fields(text))
	return int64(math.Round(float64(words) / WordsPerMinute * 60))
}
