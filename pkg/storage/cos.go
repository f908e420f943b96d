package stores

import (
	"TinyTales/pkg/util"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// CosStore 腾讯云 COS
type CosStore struct {
	BucketURL string `env:"COS_BUCKET_URL"` // https://<bucket>-<appid>.cos.<region>.myqcloud.com
	SecretID  string `env:"COS_SECRET_ID"`
	SecretKey string `env:"COS_SECRET_KEY"`
	BaseURL   string `env:"COS_PUBLIC_BASE"` // CDN 域名，可选

	client *cos.Client
}

func NewCosStore() (*CosStore, error) {
	s := &CosStore{
		BucketURL: util.GetEnv("COS_BUCKET_URL"),
		SecretID:  util.GetEnv("COS_SECRET_ID"),
		SecretKey: util.GetEnv("COS_SECRET_KEY"),
		BaseURL:   util.GetEnv("COS_PUBLIC_BASE"),
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CosStore) init() error {
	u, err := url.Parse(s.BucketURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid COS_BUCKET_URL %q", s.BucketURL)
	}
	s.client = cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  s.SecretID,
			SecretKey: s.SecretKey,
		},
	})
	return nil
}

func (s *CosStore) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return ErrObjectExists
	}
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: contentType,
		},
	}
	if size >= 0 {
		opt.ObjectPutHeaderOptions.ContentLength = size
	}
	_, err = s.client.Object.Put(ctx, key, r, opt)
	return err
}

func (s *CosStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.Object.Delete(ctx, key)
	return err
}

func (s *CosStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.client.Object.IsExist(ctx, key)
}

func (s *CosStore) PublicURL(key string) string {
	if s.BaseURL != "" {
		return strings.TrimRight(s.BaseURL, "/") + "/" + key
	}
	return s.client.Object.GetObjectURL(key).String()
}
