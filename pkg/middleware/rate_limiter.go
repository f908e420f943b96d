package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"TinyTales/pkg/constants"
	"TinyTales/pkg/logger"
	"TinyTales/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// RateLimiterConfig 限流配置
//
// Rate: "10-M"；Identifier: "user"（默认，未登录时退回 ip）/"ip"/"ip+route"
// PerRouteRates: {"/api/audio-content": "10-M"} 以路由模板为键
// SkipPaths: ["/api/system/health", "/metrics"] 前缀匹配
type RateLimiterConfig struct {
	Rate          string            `json:"rate"`
	PerRouteRates map[string]string `json:"per_route_rates"`
	Identifier    string            `json:"identifier"`
	SkipPaths     []string          `json:"skip_paths"`
	AddHeaders    bool              `json:"add_headers"`
	DenyStatus    int               `json:"deny_status"` // 默认 429
	DenyMessage   string            `json:"deny_message"`
}

// MetricsObserver 指标上报接口
type MetricsObserver interface {
	OnAllow(route string, key string)
	OnDeny(route string, key string)
}

// RateLimiter 按速率字符串缓存 limiter，共用同一个 store
type RateLimiter struct {
	cfg            RateLimiterConfig
	store          limiter.Store
	observer       MetricsObserver
	limitersByRate map[string]*limiter.Limiter
	mu             sync.RWMutex
}

// NewRedisLimiterStore 多实例部署时共享计数
func NewRedisLimiterStore(client *redis.Client) (limiter.Store, error) {
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "tinytales:limiter",
	})
}

// NewRateLimiter store 为 nil 时使用内存存储
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) *RateLimiter {
	if store == nil {
		store = memory.NewStore()
	}
	return &RateLimiter{
		cfg:            cfg,
		store:          store,
		limitersByRate: make(map[string]*limiter.Limiter),
	}
}

// WithObserver 配置指标观察者
func (l *RateLimiter) WithObserver(observer MetricsObserver) *RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = observer
	return l
}

// Middleware 返回 Gin 中间件
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := routeOf(c)
		if l.skipped(route) {
			c.Next()
			return
		}

		key := l.limitKey(c, route)
		lim := l.getLimiter(l.rateFor(route))

		lctx, err := lim.Get(c.Request.Context(), key)
		if err != nil {
			// 存储不可用时放行
			logger.Warn("rate limiter store error", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if l.cfg.AddHeaders {
			setStandardHeaders(c, lctx)
		}
		if lctx.Reached {
			setRetryAfter(c, time.Until(time.Unix(lctx.Reset, 0)))
			l.report(route, key, false)
			l.deny(c)
			return
		}

		l.report(route, key, true)
		c.Next()
	}
}

func (l *RateLimiter) report(route, key string, allowed bool) {
	l.mu.RLock()
	obs := l.observer
	l.mu.RUnlock()
	if obs == nil {
		return
	}
	if allowed {
		obs.OnAllow(route, key)
	} else {
		obs.OnDeny(route, key)
	}
}

func (l *RateLimiter) getLimiter(rateStr string) *limiter.Limiter {
	l.mu.RLock()
	lim, ok := l.limitersByRate[rateStr]
	l.mu.RUnlock()
	if ok {
		return lim
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok = l.limitersByRate[rateStr]; ok {
		return lim
	}
	r, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		logger.Warn("invalid rate, falling back to 10-S", zap.String("rate", rateStr), zap.Error(err))
		r = limiter.Rate{Period: time.Second, Limit: 10}
	}
	lim = limiter.New(l.store, r)
	l.limitersByRate[rateStr] = lim
	return lim
}

func (l *RateLimiter) rateFor(route string) string {
	if r, ok := l.cfg.PerRouteRates[route]; ok && r != "" {
		return r
	}
	if l.cfg.Rate != "" {
		return l.cfg.Rate
	}
	return "10-S"
}

func (l *RateLimiter) skipped(route string) bool {
	for _, pref := range l.cfg.SkipPaths {
		if pref != "" && strings.HasPrefix(route, pref) {
			return true
		}
	}
	return false
}

func (l *RateLimiter) limitKey(c *gin.Context, route string) string {
	ip := clientIP(c)
	switch l.cfg.Identifier {
	case "ip":
		return "ip:" + ip
	case "ip+route":
		return "iprt:" + ip + ":" + route
	default:
		if user := c.GetString(constants.UserField); user != "" {
			return "user:" + user + ":" + route
		}
		return "ip:" + ip + ":" + route
	}
}

func (l *RateLimiter) deny(c *gin.Context) {
	status := l.cfg.DenyStatus
	if status == 0 {
		status = http.StatusTooManyRequests
	}
	msg := l.cfg.DenyMessage
	if msg == "" {
		msg = "Too Many Requests"
	}
	response.AbortWithStatus(c, status, msg)
}

func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return c.Request.URL.Path
}

func clientIP(c *gin.Context) string {
	return strings.TrimPrefix(c.ClientIP(), "::ffff:")
}

func setStandardHeaders(c *gin.Context, ctx limiter.Context) {
	c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
	resetSec := int(time.Until(time.Unix(ctx.Reset, 0)).Seconds())
	if resetSec < 0 {
		resetSec = 0
	}
	c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))
}

func setRetryAfter(c *gin.Context, d time.Duration) {
	sec := int(d.Seconds())
	if sec < 0 {
		sec = 0
	}
	c.Header("Retry-After", strconv.Itoa(sec))
}
