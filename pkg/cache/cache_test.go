package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalCache(t *testing.T) {
	config := LocalConfig{
		MaxSize:           2,
		DefaultExpiration: 5 * time.Minute,
	}

	cache := NewLocalCache(config)
	defer cache.Close()

	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		if err := cache.Set(ctx, "test_key", "test_value", time.Minute); err != nil {
			t.Fatalf("Failed to set cache: %v", err)
		}
		if retrieved, exists := cache.Get(ctx, "test_key"); !exists {
			t.Error("Cache value not found")
		} else if retrieved != "test_value" {
			t.Errorf("Expected %v, got %v", "test_value", retrieved)
		}
	})

	t.Run("Expiration", func(t *testing.T) {
		_ = cache.Set(ctx, "short", 1, 10*time.Millisecond)
		time.Sleep(30 * time.Millisecond)
		if cache.Exists(ctx, "short") {
			t.Error("expired key should not exist")
		}
	})

	t.Run("Eviction", func(t *testing.T) {
		_ = cache.Set(ctx, "a", 1, 0)
		_ = cache.Set(ctx, "b", 2, 0)
		_ = cache.Set(ctx, "c", 3, 0)
		if cache.Exists(ctx, "a") {
			t.Error("oldest key should be evicted")
		}
	})
}

func testSetNX(t *testing.T, c Cache) {
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "idem", "1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX should succeed, ok=%v err=%v", ok, err)
	}
	ok, _ = c.SetNX(ctx, "idem", "2", time.Minute)
	if ok {
		t.Error("second SetNX should fail")
	}
	if err := c.Delete(ctx, "idem"); err != nil {
		t.Fatal(err)
	}
	ok, _ = c.SetNX(ctx, "idem", "3", time.Minute)
	if !ok {
		t.Error("SetNX after Delete should succeed")
	}
}

func TestSetNX(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		testSetNX(t, NewLocalCache(LocalConfig{MaxSize: 10}))
	})
	t.Run("gocache", func(t *testing.T) {
		testSetNX(t, NewGoCache(LocalConfig{DefaultExpiration: time.Minute, CleanupInterval: time.Minute}))
	})
}

func TestLocalSetNXConcurrent(t *testing.T) {
	c := NewLocalCache(LocalConfig{MaxSize: 10})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := c.SetNX(ctx, "race", true, time.Minute); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func TestNewCacheUnsupported(t *testing.T) {
	if _, err := NewCache(Config{Type: "memcached"}); err == nil {
		t.Error("expected error for unsupported type")
	}
}
