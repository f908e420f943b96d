package config

import (
	"TinyTales/pkg/logger"
	"TinyTales/pkg/util"
	"log"
	"os"
	"strings"
	"time"
)

// config/config.go
type Config struct {
	Addr      string `env:"ADDR"`
	Mode      string `env:"MODE"`
	APIPrefix string `env:"API_PREFIX"`
	DBDriver  string `env:"DB_DRIVER"`
	DSN       string `env:"DSN"`
	Log       logger.LogConfig

	JWTSecret string `env:"AUTH_JWT_SECRET"`

	LLMProvider    string        `env:"LLM_PROVIDER"`
	LLMApiKey      string        `env:"LLM_API_KEY"`
	LLMBaseURL     string        `env:"LLM_BASE_URL"`
	LLMModel       string        `env:"LLM_MODEL"`
	LLMTemperature float64       `env:"LLM_TEMPERATURE"`
	LLMMaxTokens   int           `env:"LLM_MAX_TOKENS"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT"`

	ElevenLabsApiKey  string        `env:"ELEVENLABS_API_KEY"`
	ElevenLabsBaseURL string        `env:"ELEVENLABS_BASE_URL"`
	ElevenLabsTimeout time.Duration `env:"ELEVENLABS_TIMEOUT"`

	StorageDriver  string `env:"STORAGE_DRIVER"`
	AudioKeyPrefix string `env:"AUDIO_KEY_PREFIX"`

	CacheType     string `env:"CACHE_TYPE"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	RateLimitGenerate string        `env:"RATE_LIMIT_GENERATE"`
	IdempotencyTTL    time.Duration `env:"IDEMPOTENCY_TTL"`
	LanguageEnabled   bool          `env:"LANGUAGE_ENABLED"`
	OperationLog      bool          `env:"OPERATION_LOG_ENABLED"`
	MetricsPath       string        `env:"METRICS_PATH"`

	OrphanSweepSchedule string        `env:"ORPHAN_SWEEP_SCHEDULE"`
	OrphanRetention     time.Duration `env:"ORPHAN_RETENTION"`
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = FromEnv()
	return nil
}

// FromEnv 直接从当前环境变量构造配置，带默认值
func FromEnv() *Config {
	return &Config{
		Addr:      util.GetEnvOr("ADDR", ":"+util.GetEnvOr("PORT", "8080")),
		Mode:      normalizeMode(util.GetEnv("MODE")),
		APIPrefix: util.GetEnvOr("API_PREFIX", "/api"),
		DBDriver:  util.GetEnv("DB_DRIVER"),
		DSN:       util.GetEnv("DSN"),
		Log: logger.LogConfig{
			Level:      util.GetEnvOr("LOG_LEVEL", "info"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		JWTSecret: util.GetEnv("AUTH_JWT_SECRET"),

		LLMProvider:    util.GetEnvOr("LLM_PROVIDER", "openai"),
		LLMApiKey:      util.GetEnvOr("LLM_API_KEY", util.GetEnv("OPENAI_API_KEY")),
		LLMBaseURL:     util.GetEnv("LLM_BASE_URL"),
		LLMModel:       util.GetEnvOr("LLM_MODEL", "gpt-4"),
		LLMTemperature: util.GetFloatEnvOr("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:   int(util.GetIntEnvOr("LLM_MAX_TOKENS", 500)),
		LLMTimeout:     util.GetDurationEnvOr("LLM_TIMEOUT", 60*time.Second),

		ElevenLabsApiKey:  util.GetEnv("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL: util.GetEnvOr("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsTimeout: util.GetDurationEnvOr("ELEVENLABS_TIMEOUT", 120*time.Second),

		StorageDriver:  util.GetEnvOr("STORAGE_DRIVER", "minio"),
		AudioKeyPrefix: util.GetEnvOr("AUDIO_KEY_PREFIX", "audio"),

		CacheType:     util.GetEnvOr("CACHE_TYPE", "local"),
		RedisAddr:     util.GetEnvOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: util.GetEnv("REDIS_PASSWORD"),
		RedisDB:       int(util.GetIntEnv("REDIS_DB")),

		RateLimitGenerate: util.GetEnvOr("RATE_LIMIT_GENERATE", "10-M"),
		IdempotencyTTL:    util.GetDurationEnvOr("IDEMPOTENCY_TTL", 10*time.Minute),
		LanguageEnabled:   util.GetBoolEnv("LANGUAGE_ENABLED"),
		OperationLog:      util.GetBoolEnv("OPERATION_LOG_ENABLED"),
		MetricsPath:       util.GetEnvOr("METRICS_PATH", "/metrics"),

		OrphanSweepSchedule: util.GetEnv("ORPHAN_SWEEP_SCHEDULE"),
		OrphanRetention:     util.GetDurationEnvOr("ORPHAN_RETENTION", 72*time.Hour),
	}
}

// normalizeMode 统一成 gin 认识的模式，未知值按 debug 处理
func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "release", "production", "prod":
		return "release"
	case "test":
		return "test"
	case "":
		return "debug"
	default:
		log.Printf("unknown MODE %q, falling back to debug", mode)
		return "debug"
	}
}
