package handlers

import (
	"context"
	"time"

	"TinyTales/internal/models"
	"TinyTales/internal/narration"
	"TinyTales/pkg/cache"
	"TinyTales/pkg/i18n"
	"TinyTales/pkg/metrics"
	"TinyTales/pkg/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NarrationService 处理器依赖的业务操作
type NarrationService interface {
	CreateVoiceProfile(ctx context.Context, in narration.CreateVoiceInput) (*narration.VoiceCloneResult, error)
	GetVoiceProfile(ctx context.Context, userID string) (*models.VoiceProfile, error)
	DeleteVoiceProfile(ctx context.Context, userID string) error
	GenerateContent(ctx context.Context, req narration.GenerateRequest) (*narration.GenerateResult, error)
	ListContent(ctx context.Context, userID string) ([]models.ContentItem, error)
	DeleteContent(ctx context.Context, id, userID string) error
}

type Options struct {
	APIPrefix   string
	MetricsPath string
	JWTSecret   string

	RateLimiter      *middleware.RateLimiter // 只作用于生成接口
	IdempotencyStore cache.Cache
	IdempotencyTTL   time.Duration

	OperationLog    bool
	LanguageEnabled bool
}

type Handlers struct {
	db      *gorm.DB
	service NarrationService
	i18n    *i18n.I18nSupport
	metrics *metrics.Metrics
	opts    Options
}

func NewHandlers(db *gorm.DB, service NarrationService, i18nSupport *i18n.I18nSupport, m *metrics.Metrics, opts Options) *Handlers {
	return &Handlers{
		db:      db,
		service: service,
		i18n:    i18nSupport,
		metrics: m,
		opts:    opts,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	if h.metrics != nil {
		engine.Use(metrics.MonitorMiddleware(h.metrics))
		if h.opts.MetricsPath != "" {
			engine.GET(h.opts.MetricsPath, gin.WrapH(h.metrics.Handler()))
		}
	}

	r := engine.Group(h.opts.APIPrefix)
	if h.opts.LanguageEnabled && h.i18n != nil {
		r.Use(middleware.LanguageMiddleware(h.i18n))
	}

	// Register System Module Routes
	h.registerSystemRoutes(r)

	authed := r.Group("")
	authed.Use(middleware.AuthMiddleware(h.opts.JWTSecret))
	if h.opts.OperationLog {
		authed.Use(middleware.OperationLogMiddleware(h.db))
	}

	// Register Business Module Routes
	h.registerVoiceRoutes(authed)
	h.registerContentRoutes(authed)
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)
	}
}

// Voice Clone Module
func (h *Handlers) registerVoiceRoutes(r *gin.RouterGroup) {
	voices := r.Group("voice-clones")
	{
		voices.POST("", h.handleCreateVoice)

		voices.GET("", h.handleGetVoice)

		voices.DELETE("", h.handleDeleteVoice)
	}
}

// Audio Content Module
func (h *Handlers) registerContentRoutes(r *gin.RouterGroup) {
	content := r.Group("audio-content")
	{
		// 先限流再占用幂等键，被拒绝的请求不占键
		generate := []gin.HandlerFunc{}
		if h.opts.RateLimiter != nil {
			generate = append(generate, h.opts.RateLimiter.Middleware())
		}
		generate = append(generate, middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{
			TTL:         h.opts.IdempotencyTTL,
			Store:       h.opts.IdempotencyStore,
			DenyMessage: h.t(nil, "error.duplicate_request"),
		}), h.handleGenerateContent)
		content.POST("", generate...)

		content.GET("", h.handleListContent)

		content.DELETE("/:id", h.handleDeleteContent)
	}
}
