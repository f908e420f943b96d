package stores

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrObjectExists 写入时目标键已存在（不覆盖）
var ErrObjectExists = errors.New("object already exists")

// Store 对象存储
type Store interface {
	// Write 写入对象，键已存在时返回 ErrObjectExists
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// PublicURL 对外可访问地址
	PublicURL(key string) string
}

// NewStore 根据驱动名创建存储，配置从环境变量读取
func NewStore(driver string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "minio", "s3":
		return NewMinioStore(), nil
	case "cos":
		return NewCosStore()
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}
