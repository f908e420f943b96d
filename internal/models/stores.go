package models

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "TinyTales/pkg/errors"

	"gorm.io/gorm"
)

// VoiceProfileStore 音色持久化
type VoiceProfileStore struct {
	db *gorm.DB
}

func NewVoiceProfileStore(db *gorm.DB) *VoiceProfileStore {
	return &VoiceProfileStore{db: db}
}

// Create 插入音色，user_id 唯一索引冲突返回 ErrConflict
func (s *VoiceProfileStore) Create(ctx context.Context, p *VoiceProfile) error {
	err := s.db.WithContext(ctx).Create(p).Error
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return apperrors.WrapWithCode(err, apperrors.CodeConflict, "user already has a voice")
	}
	return apperrors.WrapWithCode(err, apperrors.CodePersistence, "insert voice")
}

// GetByUser 不存在时返回 nil, nil
func (s *VoiceProfileStore) GetByUser(ctx context.Context, userID string) (*VoiceProfile, error) {
	var p VoiceProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodePersistence, "get voice")
	}
	return &p, nil
}

// DeleteByUser 返回是否删除了记录
func (s *VoiceProfileStore) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&VoiceProfile{})
	if res.Error != nil {
		return false, apperrors.WrapWithCode(res.Error, apperrors.CodePersistence, "delete voice")
	}
	return res.RowsAffected > 0, nil
}

// ContentStore 生成内容目录
type ContentStore struct {
	db *gorm.DB
}

func NewContentStore(db *gorm.DB) *ContentStore {
	return &ContentStore{db: db}
}

func (s *ContentStore) Create(ctx context.Context, item *ContentItem) (string, error) {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return "", apperrors.WrapWithCode(err, apperrors.CodePersistence, "insert audio content")
	}
	return item.ID, nil
}

// ListByUser 按创建时间倒序
func (s *ContentStore) ListByUser(ctx context.Context, userID string) ([]ContentItem, error) {
	items := make([]ContentItem, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodePersistence, "list audio content")
	}
	return items, nil
}

// Delete id 与 user_id 在同一条件内，别人的记录与不存在的记录一样返回 ErrNotFound
func (s *ContentStore) Delete(ctx context.Context, id, userID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&ContentItem{})
	if res.Error != nil {
		return apperrors.WrapWithCode(res.Error, apperrors.CodePersistence, "delete audio content")
	}
	if res.RowsAffected == 0 {
		return apperrors.WithCode(apperrors.CodeNotFound, "audio content not found")
	}
	return nil
}

// OrphanStore 记录未入库的音频对象
type OrphanStore struct {
	db *gorm.DB
}

func NewOrphanStore(db *gorm.DB) *OrphanStore {
	return &OrphanStore{db: db}
}

func (s *OrphanStore) Record(ctx context.Context, o *OrphanedAudio) error {
	return s.db.WithContext(ctx).Create(o).Error
}

// ListPending 创建早于 before、尚未清理且已到重试时间的记录，失败次数少的优先
func (s *OrphanStore) ListPending(ctx context.Context, before, now time.Time, limit int) ([]OrphanedAudio, error) {
	var out []OrphanedAudio
	q := s.db.WithContext(ctx).
		Where("swept_at IS NULL AND created_at < ?", before).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("attempts ASC").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (s *OrphanStore) MarkSwept(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&OrphanedAudio{}).
		Where("id = ?", id).
		Update("swept_at", at).Error
}

// MarkFailed 记一次删除失败，next 之前不再取出
func (s *OrphanStore) MarkFailed(ctx context.Context, id uint, reason string, next time.Time) error {
	return s.db.WithContext(ctx).
		Model(&OrphanedAudio{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      reason,
			"next_attempt_at": next,
		}).Error
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 未开启 TranslateError 时按驱动错误文本兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
