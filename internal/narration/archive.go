package narration

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	apperrors "TinyTales/pkg/errors"
	stores "TinyTales/pkg/storage"

	"github.com/google/uuid"
)

const audioContentType = "audio/mpeg"

// Archived is the location of a stored audio object
type Archived struct {
	Key string
	URL string
}

type AudioArchiver struct {
	store  stores.Store
	prefix string
	now    func() time.Time
}

func NewAudioArchiver(store stores.Store, prefix string) *AudioArchiver {
	if prefix == "" {
		prefix = "audio"
	}
	return &AudioArchiver{store: store, prefix: prefix, now: time.Now}
}

// Archive 写入对象存储，返回键与公开地址。键唯一，不覆盖已有对象
func (a *AudioArchiver) Archive(ctx context.Context, audio []byte) (*Archived, error) {
	key := a.objectKey()
	if err := a.store.Write(ctx, key, bytes.NewReader(audio), int64(len(audio)), audioContentType); err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeStorage, "archive audio").WithContext("key", key)
	}
	url := a.store.PublicURL(key)
	if url == "" {
		return nil, apperrors.WithCodef(apperrors.CodeStorage, "no public url for %s", key)
	}
	return &Archived{Key: key, URL: url}, nil
}

// Discard removes an archived object
func (a *AudioArchiver) Discard(ctx context.Context, key string) error {
	if err := a.store.Delete(ctx, key); err != nil {
		return apperrors.WrapWithCode(err, apperrors.CodeStorage, "delete audio").WithContext("key", key)
	}
	return nil
}

func (a *AudioArchiver) objectKey() string {
	t := a.now().UTC()
	name := fmt.Sprintf("%d-%s.mp3", t.UnixMilli(), uuid.NewString())
	return path.Join(a.prefix, t.Format("2006/01/02"), name)
}
