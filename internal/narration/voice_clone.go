package narration

import (
	"context"
	"strings"

	"TinyTales/internal/models"
	"TinyTales/pkg/elevenlabs"
	apperrors "TinyTales/pkg/errors"
	"TinyTales/pkg/logger"

	"go.uber.org/zap"
)

const StatusProcessing = "processing"

// VoiceLanguages 可用于克隆的语言
var VoiceLanguages = map[string]bool{"en": true}

// VoiceCloner creates and removes voices at the provider
type VoiceCloner interface {
	AddVoice(ctx context.Context, name string, labels map[string]string, samples ...elevenlabs.Sample) (string, error)
	DeleteVoice(ctx context.Context, voiceID string) error
}

// VoiceProfileStore persists at most one profile per user
type VoiceProfileStore interface {
	Create(ctx context.Context, p *models.VoiceProfile) error
	GetByUser(ctx context.Context, userID string) (*models.VoiceProfile, error)
	DeleteByUser(ctx context.Context, userID string) (bool, error)
}

// CreateVoiceInput is one uploaded voice sample with its metadata
type CreateVoiceInput struct {
	UserID          string
	Name            string
	Language        string
	DurationSeconds int64
	SizeBytes       int64
	FileName        string
	MimeType        string
	Audio           []byte
}

// VoiceCloneResult is returned right after the provider accepted the sample
type VoiceCloneResult struct {
	VoiceRef string `json:"voice_id"`
	Status   string `json:"status"`
}

type VoiceCloneManager struct {
	cloner   VoiceCloner
	profiles VoiceProfileStore
}

func NewVoiceCloneManager(cloner VoiceCloner, profiles VoiceProfileStore) *VoiceCloneManager {
	return &VoiceCloneManager{cloner: cloner, profiles: profiles}
}

// Create 校验样本，在服务商处克隆音色并保存。已有音色返回 ErrConflict
func (m *VoiceCloneManager) Create(ctx context.Context, in CreateVoiceInput) (*VoiceCloneResult, error) {
	if err := validateVoiceInput(in); err != nil {
		return nil, err
	}

	existing, err := m.profiles.GetByUser(ctx, in.UserID)
	if err != nil {
		return nil, ensureCode(err, apperrors.CodePersistence, "lookup voice")
	}
	if existing != nil {
		return nil, apperrors.WithCode(apperrors.CodeConflict, "user already has a voice")
	}

	voiceRef, err := m.cloner.AddVoice(ctx, in.Name, map[string]string{"Language": in.Language}, elevenlabs.Sample{
		FileName:    sampleFileName(in),
		ContentType: in.MimeType,
		Data:        in.Audio,
	})
	if err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeUpstreamSynthesis, "clone voice")
	}

	profile := &models.VoiceProfile{
		UserID:           in.UserID,
		ExternalVoiceRef: voiceRef,
		Name:             in.Name,
		Language:         in.Language,
		DurationSeconds:  in.DurationSeconds,
		SizeBytes:        in.SizeBytes,
	}
	if err := m.profiles.Create(ctx, profile); err != nil {
		// 本地未落库，服务商侧的音色不能留下
		m.deleteRemote(ctx, voiceRef)
		if apperrors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		return nil, ensureCode(err, apperrors.CodePersistence, "save voice")
	}

	logger.Info("voice cloned", zap.String("user_id", in.UserID), zap.String("voice_ref", voiceRef))
	return &VoiceCloneResult{VoiceRef: voiceRef, Status: StatusProcessing}, nil
}

// Get 不存在时返回 nil, nil
func (m *VoiceCloneManager) Get(ctx context.Context, userID string) (*models.VoiceProfile, error) {
	p, err := m.profiles.GetByUser(ctx, userID)
	if err != nil {
		return nil, ensureCode(err, apperrors.CodePersistence, "lookup voice")
	}
	return p, nil
}

// Delete 服务商侧删除失败只记日志，本地记录照常删除
func (m *VoiceCloneManager) Delete(ctx context.Context, userID string) error {
	p, err := m.profiles.GetByUser(ctx, userID)
	if err != nil {
		return ensureCode(err, apperrors.CodePersistence, "lookup voice")
	}
	if p == nil {
		return apperrors.WithCode(apperrors.CodeNotFound, "voice not found")
	}

	m.deleteRemote(ctx, p.ExternalVoiceRef)

	if _, err := m.profiles.DeleteByUser(ctx, userID); err != nil {
		return ensureCode(err, apperrors.CodePersistence, "delete voice")
	}
	return nil
}

func (m *VoiceCloneManager) deleteRemote(ctx context.Context, voiceRef string) {
	if err := m.cloner.DeleteVoice(ctx, voiceRef); err != nil {
		logger.Warn("delete remote voice failed", zap.String("voice_ref", voiceRef), zap.Error(err))
	}
}

func validateVoiceInput(in CreateVoiceInput) error {
	switch {
	case in.UserID == "":
		return apperrors.WithCode(apperrors.CodeUnauthorized, "missing user")
	case len(in.Audio) == 0:
		return apperrors.WithCode(apperrors.CodeValidation, "audio file is required")
	case !strings.HasPrefix(strings.ToLower(in.MimeType), "audio/"):
		return apperrors.WithCodef(apperrors.CodeValidation, "invalid file type %q, audio required", in.MimeType)
	case strings.TrimSpace(in.Name) == "":
		return apperrors.WithCode(apperrors.CodeValidation, "name is required")
	case !VoiceLanguages[in.Language]:
		return apperrors.WithCodef(apperrors.CodeValidation, "unsupported voice language %q", in.Language)
	case in.DurationSeconds < 1:
		return apperrors.WithCode(apperrors.CodeValidation, "duration must be at least 1 second")
	case in.SizeBytes < 1:
		return apperrors.WithCode(apperrors.CodeValidation, "size must be at least 1 byte")
	}
	return nil
}

func sampleFileName(in CreateVoiceInput) string {
	if in.FileName != "" {
		return in.FileName
	}
	return "sample"
}

// ensureCode 保留已有错误码，没有时补上
func ensureCode(err error, code int, msg string) error {
	if apperrors.GetCode(err) != 0 {
		return apperrors.Wrap(err, msg)
	}
	return apperrors.WrapWithCode(err, code, msg)
}
