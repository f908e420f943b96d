package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// localCache 基于 LRU 的进程内缓存，过期在读取时判断
type localCache struct {
	config LocalConfig
	items  *lru.Cache[string, cacheItem]
	mu     sync.Mutex
}

type cacheItem struct {
	value      interface{}
	expiration time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewLocalCache 创建本地缓存
func NewLocalCache(config LocalConfig) Cache {
	size := config.MaxSize
	if size <= 0 {
		size = 1000
	}
	items, _ := lru.New[string, cacheItem](size)
	return &localCache{config: config, items: items}
}

func (lc *localCache) Get(ctx context.Context, key string) (interface{}, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.get(key)
}

func (lc *localCache) get(key string) (interface{}, bool) {
	item, ok := lc.items.Get(key)
	if !ok {
		return nil, false
	}
	if item.expired(time.Now()) {
		lc.items.Remove(key)
		return nil, false
	}
	return item.value, true
}

func (lc *localCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.items.Add(key, lc.newItem(value, expiration))
	return nil
}

func (lc *localCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if _, ok := lc.get(key); ok {
		return false, nil
	}
	lc.items.Add(key, lc.newItem(value, expiration))
	return true, nil
}

func (lc *localCache) Delete(ctx context.Context, key string) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.items.Remove(key)
	return nil
}

func (lc *localCache) Exists(ctx context.Context, key string) bool {
	_, ok := lc.Get(ctx, key)
	return ok
}

func (lc *localCache) Close() error {
	lc.items.Purge()
	return nil
}

func (lc *localCache) newItem(value interface{}, expiration time.Duration) cacheItem {
	if expiration <= 0 {
		expiration = lc.config.DefaultExpiration
	}
	item := cacheItem{value: value}
	if expiration > 0 {
		item.expiration = time.Now().Add(expiration)
	}
	return item
}
