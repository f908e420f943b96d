package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers "TinyTales/internal/handler"
	"TinyTales/internal/jobs"
	"TinyTales/internal/models"
	"TinyTales/internal/narration"
	"TinyTales/pkg/cache"
	"TinyTales/pkg/config"
	"TinyTales/pkg/elevenlabs"
	"TinyTales/pkg/i18n"
	"TinyTales/pkg/llm"
	"TinyTales/pkg/logger"
	"TinyTales/pkg/metrics"
	"TinyTales/pkg/middleware"
	"TinyTales/pkg/scheduler"
	stores "TinyTales/pkg/storage"
	"TinyTales/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}
	cfg := config.GlobalConfig

	if err := logger.Init(cfg.Log, cfg.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.JWTSecret == "" {
		logger.L().Fatal("AUTH_JWT_SECRET is required")
	}

	// 初始化数据库
	db, err := util.InitDatabase(os.Stdout, cfg.DBDriver, cfg.DSN)
	if err != nil {
		logger.L().Fatal("init database failed", zap.Error(err))
	}
	m := metrics.NewMetrics()
	if err := db.Use(metrics.NewGormPlugin(m)); err != nil {
		logger.L().Fatal("register gorm metrics failed", zap.Error(err))
	}
	if err := util.MakeMigrates(db, append(models.Migrates(), &middleware.OperationLog{})); err != nil {
		logger.L().Fatal("migrate failed", zap.Error(err))
	}

	// 外部服务
	logrusLogger := logrus.New()
	logrusLogger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logrusLogger.SetLevel(lvl)
	}
	model, err := llm.NewLLMHandler(cfg.LLMProvider, cfg.LLMApiKey, cfg.LLMBaseURL, cfg.LLMTimeout, logrusLogger)
	if err != nil {
		logger.L().Fatal("init llm failed", zap.Error(err))
	}
	voiceClient := elevenlabs.NewClient(cfg.ElevenLabsApiKey,
		elevenlabs.WithBaseURL(cfg.ElevenLabsBaseURL),
		elevenlabs.WithTimeout(cfg.ElevenLabsTimeout),
	)
	blobStore, err := stores.NewStore(cfg.StorageDriver)
	if err != nil {
		logger.L().Fatal("init storage failed", zap.Error(err))
	}

	// 缓存与限流存储；redis 时两者共用一个连接
	var (
		idemStore    cache.Cache
		limiterStore limiter.Store
	)
	switch cfg.CacheType {
	case "redis":
		var redisClient *redis.Client
		redisClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.L().Fatal("connect redis failed", zap.Error(err))
		}
		idemStore = cache.NewRedisCacheWithClient(redisClient)
		if limiterStore, err = middleware.NewRedisLimiterStore(redisClient); err != nil {
			logger.L().Fatal("init limiter store failed", zap.Error(err))
		}
	default:
		idemStore, err = cache.NewCache(cache.Config{
			Type: cfg.CacheType,
			Local: cache.LocalConfig{
				MaxSize:           10000,
				DefaultExpiration: cfg.IdempotencyTTL,
				CleanupInterval:   10 * time.Minute,
			},
		})
		if err != nil {
			logger.L().Fatal("init cache failed", zap.Error(err))
		}
	}
	defer idemStore.Close()

	// 业务装配
	profiles := models.NewVoiceProfileStore(db)
	catalog := models.NewContentStore(db)
	orphans := models.NewOrphanStore(db)
	archiver := narration.NewAudioArchiver(blobStore, cfg.AudioKeyPrefix)

	pipeline := narration.NewOrchestrator(
		profiles,
		narration.NewStoryGenerator(model,
			narration.WithModel(cfg.LLMModel),
			narration.WithSampling(float32(cfg.LLMTemperature), cfg.LLMMaxTokens)),
		narration.NewSpeechSynthesizer(voiceClient),
		archiver,
		catalog,
		narration.WithOrphanRecorder(orphans),
		narration.WithObserver(m),
	)
	service := narration.NewService(narration.NewVoiceCloneManager(voiceClient, profiles), pipeline, catalog)

	// 孤儿音频清理
	var cr *scheduler.Cron
	if cfg.OrphanSweepSchedule != "" {
		cr = scheduler.NewCron(time.UTC)
		sweeper := jobs.NewOrphanSweeper(orphans, archiver, cfg.OrphanRetention, m)
		if _, err := cr.Add(cfg.OrphanSweepSchedule, sweeper); err != nil {
			logger.L().Fatal("invalid orphan sweep schedule", zap.String("schedule", cfg.OrphanSweepSchedule), zap.Error(err))
		}
		cr.Start()
	}

	i18nSupport, err := i18n.NewI18nSupport("en")
	if err != nil {
		logger.L().Fatal("load locales failed", zap.Error(err))
	}
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:        cfg.RateLimitGenerate,
		AddHeaders:  true,
		DenyMessage: i18nSupport.T("en", "error.rate_limited", nil),
	}, limiterStore).WithObserver(m)

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	handlers.NewHandlers(db, service, i18nSupport, m, handlers.Options{
		APIPrefix:        cfg.APIPrefix,
		MetricsPath:      cfg.MetricsPath,
		JWTSecret:        cfg.JWTSecret,
		RateLimiter:      rateLimiter,
		IdempotencyStore: idemStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		OperationLog:     cfg.OperationLog,
		LanguageEnabled:  cfg.LanguageEnabled,
	}).Register(engine)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: engine,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if cr != nil {
		cr.Stop()
	}
}
