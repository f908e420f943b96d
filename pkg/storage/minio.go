package stores

import (
	"TinyTales/pkg/util"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStore struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	UseSSL    bool   `env:"MINIO_USE_SSL"`
	BaseURL   string `env:"MINIO_PUBLIC_BASE"` // 对外访问域名，可选

	once        sync.Once
	cli         *minio.Client
	cliErr      error
	bucketMu    sync.Mutex
	bucketReady bool
}

func NewMinioStore() *MinioStore {
	return &MinioStore{
		Endpoint:  util.GetEnv("MINIO_ENDPOINT"),
		AccessKey: util.GetEnv("MINIO_ACCESS_KEY"),
		SecretKey: util.GetEnv("MINIO_SECRET_KEY"),
		Bucket:    util.GetEnvOr("MINIO_BUCKET", "audio"),
		UseSSL:    util.GetBoolEnv("MINIO_USE_SSL"),
		BaseURL:   util.GetEnv("MINIO_PUBLIC_BASE"),
	}
}

// client 懒加载并复用连接
func (m *MinioStore) client() (*minio.Client, error) {
	m.once.Do(func() {
		m.cli, m.cliErr = minio.New(m.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(m.AccessKey, m.SecretKey, ""),
			Secure: m.UseSSL,
		})
	})
	return m.cli, m.cliErr
}

func (m *MinioStore) ensureBucket(ctx context.Context, cli *minio.Client) error {
	m.bucketMu.Lock()
	defer m.bucketMu.Unlock()
	if m.bucketReady {
		return nil
	}
	exists, err := cli.BucketExists(ctx, m.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}
	m.bucketReady = true
	return nil
}

func (m *MinioStore) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	cli, err := m.client()
	if err != nil {
		return err
	}
	if err := m.ensureBucket(ctx, cli); err != nil {
		return err
	}
	exists, err := m.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrObjectExists
	}
	_, err = cli.PutObject(ctx, m.Bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *MinioStore) Delete(ctx context.Context, key string) error {
	cli, err := m.client()
	if err != nil {
		return err
	}
	return cli.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	cli, err := m.client()
	if err != nil {
		return false, err
	}
	_, err = cli.StatObject(ctx, m.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *MinioStore) PublicURL(key string) string {
	if m.BaseURL != "" {
		return strings.TrimRight(m.BaseURL, "/") + "/" + key
	}
	// 回退使用 endpoint（注意直连可能需配置公共读策略）
	scheme := "http://"
	if m.UseSSL {
		scheme = "https://"
	}
	return scheme + m.Endpoint + "/" + m.Bucket + "/" + key
}
