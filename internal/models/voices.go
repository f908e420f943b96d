package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VoiceProfile 用户的克隆音色，每个用户最多一条
type VoiceProfile struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	UserID           string    `gorm:"size:64;not null;uniqueIndex:idx_voices_user_id" json:"user_id"`
	ExternalVoiceRef string    `gorm:"column:elevenlabs_voice_id;size:128;not null" json:"elevenlabs_voice_id"`
	Name             string    `gorm:"size:128" json:"name"`
	Language         string    `gorm:"size:16" json:"language"`
	DurationSeconds  int64     `gorm:"column:duration" json:"duration"`
	SizeBytes        int64     `gorm:"column:size" json:"size"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (VoiceProfile) TableName() string { return "voices" }

func (v *VoiceProfile) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// ContentItem 生成的音频故事
type ContentItem struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          string    `gorm:"size:64;not null;index:idx_audio_content_user_created,priority:1" json:"user_id"`
	VoiceID         string    `gorm:"size:36" json:"voice_id"` // 生成时使用的 VoiceProfile.ID
	Title           string    `gorm:"size:256" json:"title"`
	Prompt          string    `gorm:"type:text" json:"prompt"`
	Language        string    `gorm:"size:16" json:"language"`
	AudioURL        string    `gorm:"column:audio_url;size:1024" json:"audio_url"`
	DurationSeconds int64     `gorm:"column:duration" json:"duration"`
	CreatedAt       time.Time `gorm:"index:idx_audio_content_user_created,priority:2" json:"created_at"`
}

func (ContentItem) TableName() string { return "audio_content" }

func (c *ContentItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// OrphanedAudio 已上传但未入库的音频
type OrphanedAudio struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"size:64" json:"user_id"`
	ObjectKey string     `gorm:"size:512;not null;uniqueIndex" json:"object_key"`
	AudioURL  string     `gorm:"size:1024" json:"audio_url"`
	Reason    string     `gorm:"type:text" json:"reason"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	SweptAt   *time.Time `json:"swept_at"`

	// 删除失败后的重试状态
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	LastError     string     `gorm:"type:text" json:"last_error"`
	NextAttemptAt *time.Time `gorm:"index" json:"next_attempt_at"`
}

func (OrphanedAudio) TableName() string { return "orphaned_audio" }

// Migrates 返回需要自动迁移的模型
func Migrates() []any {
	return []any{
		&VoiceProfile{},
		&ContentItem{},
		&OrphanedAudio{},
	}
}
