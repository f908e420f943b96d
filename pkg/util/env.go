package util

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv 按顺序加载 .env.<env>、.env，已存在的环境变量不会被覆盖
func LoadEnv(env string) error {
	files := []string{".env"}
	if env != "" {
		files = append([]string{".env." + env}, files...)
	}
	var loaded bool
	for _, f := range files {
		err := godotenv.Load(f)
		if err == nil {
			loaded = true
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if !loaded {
		return fs.ErrNotExist
	}
	return nil
}

func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetEnvOr 读取环境变量，为空时返回默认值
func GetEnvOr(key, fallback string) string {
	if v := GetEnv(key); v != "" {
		return v
	}
	return fallback
}

func GetIntEnv(key string) int64 {
	return cast.ToInt64(GetEnv(key))
}

func GetIntEnvOr(key string, fallback int64) int64 {
	v := GetEnv(key)
	if v == "" {
		return fallback
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return fallback
	}
	return n
}

func GetBoolEnv(key string) bool {
	return cast.ToBool(GetEnv(key))
}

func GetFloatEnvOr(key string, fallback float64) float64 {
	v := GetEnv(key)
	if v == "" {
		return fallback
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return fallback
	}
	return f
}

// GetDurationEnvOr 支持 "30s"、"5m" 等格式，纯数字按秒处理
func GetDurationEnvOr(key string, fallback time.Duration) time.Duration {
	v := GetEnv(key)
	if v == "" {
		return fallback
	}
	if n, err := cast.ToInt64E(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return fallback
	}
	return d
}
