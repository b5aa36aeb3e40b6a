package marketcache

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const DefaultTTL = 300 * time.Second

// 缓存层级，用于指标统计
const (
	TierMemory = "memory"
	TierStore  = "store"
)

// Store 第二层缓存（文件 / redis），value 为 JSON 字节
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Observer 命中统计回调：tier + hit/miss
type Observer func(tier string, hit bool)

// Cache 两级行情缓存：进程内存 -> Store
// 只是尽力而为的缓存，任何 store 错误都按未命中处理
type Cache struct {
	ttl      time.Duration
	memory   *cache.Cache
	store    Store
	tl       *zap.Logger
	observer Observer
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithObserver(fn Observer) Option {
	return func(c *Cache) { c.observer = fn }
}

// New 创建缓存实例，store 为 nil 时只有内存层
func New(store Store, tl *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		ttl:   DefaultTTL,
		store: store,
		tl:    tl,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.memory = cache.New(c.ttl, 2*c.ttl)
	return c
}

func (c *Cache) observe(tier string, hit bool) {
	if c.observer != nil {
		c.observer(tier, hit)
	}
}

// Get 先查内存，再查 store；store 命中时回填内存
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T

	if cached, found := c.memory.Get(key); found {
		if v, ok := cached.(T); ok {
			c.observe(TierMemory, true)
			return v, true
		}
	}
	c.observe(TierMemory, false)

	if c.store == nil {
		return zero, false
	}
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.tl.Warn("market cache store get failed", zap.String("key", key), zap.Error(err))
		c.observe(TierStore, false)
		return zero, false
	}
	if !found {
		c.observe(TierStore, false)
		return zero, false
	}

	var v T
	if err := sonic.Unmarshal(data, &v); err != nil {
		c.tl.Warn("market cache decode failed", zap.String("key", key), zap.Error(err))
		c.observe(TierStore, false)
		return zero, false
	}
	c.observe(TierStore, true)
	c.memory.Set(key, v, cache.DefaultExpiration)
	return v, true
}

// Set 同时写入内存和 store
func Set[T any](ctx context.Context, c *Cache, key string, value T) {
	c.memory.Set(key, value, cache.DefaultExpiration)
	if c.store == nil {
		return
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		c.tl.Warn("market cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.tl.Warn("market cache store set failed", zap.String("key", key), zap.Error(err))
	}
}

// Fetch 命中缓存直接返回，否则调用 load 并写入缓存；load 的错误原样返回且不缓存
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := Get[T](ctx, c, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	Set(ctx, c, key, v)
	return v, nil
}
