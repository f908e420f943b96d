package narration

import (
	"context"

	"TinyTales/internal/models"
	apperrors "TinyTales/pkg/errors"
)

// Service is what the HTTP layer talks to
type Service struct {
	voices   *VoiceCloneManager
	pipeline *Orchestrator
	catalog  ContentCatalog
}

func NewService(voices *VoiceCloneManager, pipeline *Orchestrator, catalog ContentCatalog) *Service {
	return &Service{voices: voices, pipeline: pipeline, catalog: catalog}
}

func (s *Service) CreateVoiceProfile(ctx context.Context, in CreateVoiceInput) (*VoiceCloneResult, error) {
	return s.voices.Create(ctx, in)
}

// GetVoiceProfile 用户没有音色时返回 nil, nil
func (s *Service) GetVoiceProfile(ctx context.Context, userID string) (*models.VoiceProfile, error) {
	return s.voices.Get(ctx, userID)
}

func (s *Service) DeleteVoiceProfile(ctx context.Context, userID string) error {
	return s.voices.Delete(ctx, userID)
}

func (s *Service) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	return s.pipeline.Run(ctx, req)
}

// ListContent 最新的在前
func (s *Service) ListContent(ctx context.Context, userID string) ([]models.ContentItem, error) {
	items, err := s.catalog.ListByUser(ctx, userID)
	if err != nil {
		return nil, ensureCode(err, apperrors.CodePersistence, "list content")
	}
	if items == nil {
		items = []models.ContentItem{}
	}
	return items, nil
}

// DeleteContent 只删除目录记录，不动已归档的音频
func (s *Service) DeleteContent(ctx context.Context, id, userID string) error {
	if id == "" {
		return apperrors.WithCode(apperrors.CodeValidation, "content id is required")
	}
	if err := s.catalog.Delete(ctx, id, userID); err != nil {
		return ensureCode(err, apperrors.CodePersistence, "delete content")
	}
	return nil
}
