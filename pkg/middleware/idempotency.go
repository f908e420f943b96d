package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"TinyTales/pkg/cache"
	"TinyTales/pkg/constants"
	"TinyTales/pkg/logger"
	"TinyTales/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type IdempotencyConfig struct {
	HeaderName  string        // Idempotency-Key 的请求头名
	TTL         time.Duration // 决定一段时间内重复请求的拒绝窗口
	Store       cache.Cache   // 为空时使用本地缓存
	DenyMessage string
}

// IdempotencyMiddleware 只处理带幂等键的请求；没有键的请求直接放行，不做去重。
// 只有 2xx 才占用键，其余状态释放键，客户端修正请求后可用同一个键重试
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = constants.HeaderIdempotencyKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.DenyMessage == "" {
		cfg.DenyMessage = "duplicate request"
	}
	store := cfg.Store
	if store == nil {
		store = cache.NewLocalCache(cache.LocalConfig{MaxSize: 10000, DefaultExpiration: cfg.TTL})
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" {
			c.Next()
			return
		}
		full := strings.Join([]string{"idem", c.GetString(constants.UserField), c.Request.Method, routeOf(c), key}, ":")

		ok, err := store.SetNX(c.Request.Context(), full, time.Now().Unix(), cfg.TTL)
		if err != nil {
			logger.Warn("idempotency store error", zap.String("key", full), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			response.AbortWithStatus(c, http.StatusConflict, cfg.DenyMessage)
			return
		}

		c.Next()

		if status := c.Writer.Status(); status < http.StatusOK || status >= http.StatusMultipleChoices {
			if err := store.Delete(context.WithoutCancel(c.Request.Context()), full); err != nil {
				logger.Warn("release idempotency key failed", zap.String("key", full), zap.Error(err))
			}
		}
	}
}
