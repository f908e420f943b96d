package narration

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	apperrors "TinyTales/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioArchiver_Archive(t *testing.T) {
	store := newMemStore()
	a := NewAudioArchiver(store, "stories")
	a.now = func() time.Time { return time.Date(2024, 3, 7, 9, 30, 0, 0, time.UTC) }

	got, err := a.Archive(context.Background(), []byte("mp3-bytes"))
	require.NoError(t, err)

	keyRe := regexp.MustCompile(`^stories/2024/03/07/1709803800000-[0-9a-f-]{36}\.mp3$`)
	assert.Regexp(t, keyRe, got.Key)
	assert.Equal(t, "https://cdn.test/"+got.Key, got.URL)
	assert.Equal(t, []byte("mp3-bytes"), store.objects[got.Key])
	assert.Equal(t, "audio/mpeg", store.types[got.Key])
}

func TestAudioArchiver_KeysNeverCollide(t *testing.T) {
	store := newMemStore()
	a := NewAudioArchiver(store, "")
	fixed := time.Now()
	a.now = func() time.Time { return fixed }

	first, err := a.Archive(context.Background(), []byte("a"))
	require.NoError(t, err)
	second, err := a.Archive(context.Background(), []byte("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)
	assert.Len(t, store.keys(), 2)
	assert.Regexp(t, `^audio/`, first.Key)
}

func TestAudioArchiver_Failures(t *testing.T) {
	t.Run("write error", func(t *testing.T) {
		store := newMemStore()
		store.writeErr = errors.New("bucket unavailable")
		_, err := NewAudioArchiver(store, "audio").Archive(context.Background(), []byte("x"))
		assert.ErrorIs(t, err, apperrors.ErrStorage)
	})

	t.Run("no public url", func(t *testing.T) {
		store := newMemStore()
		store.noURL = true
		_, err := NewAudioArchiver(store, "audio").Archive(context.Background(), []byte("x"))
		assert.ErrorIs(t, err, apperrors.ErrStorage)
	})
}

func TestAudioArchiver_Discard(t *testing.T) {
	store := newMemStore()
	a := NewAudioArchiver(store, "audio")
	got, err := a.Archive(context.Background(), []byte("x"))
	require.NoError(t, err)

	require.NoError(t, a.Discard(context.Background(), got.Key))
	assert.Empty(t, store.keys())
}
