package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"chunkstore/pkg/storage"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CachedFS 是一个装饰器，它为底层的 storage.FileSystem 添加 Redis 元数据缓存
// chunk 一旦写入就不可变 (不允许覆盖)，所以缓存的 Size 只会因为删除而失效
type CachedFS struct {
	backend storage.FileSystem // 被装饰的底层存储 (如 HDFS)
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	log     *logrus.Entry
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
	// Prefix 用于区分同一个 Redis 上的多个存储根目录
	Prefix string
}

// NewCachedFS 解析 URL 并立即 Ping (Fail-fast)
func NewCachedFS(ctx context.Context, backend storage.FileSystem, cfg Config, log *logrus.Entry) (*CachedFS, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(backend, client, cfg, log), nil
}

// NewWithClient 使用已有的 Redis 客户端，方便测试和连接复用
func NewWithClient(backend storage.FileSystem, client *redis.Client, cfg Config, log *logrus.Entry) *CachedFS {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "chunk:stat:"
	}
	return &CachedFS{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
		prefix:  prefix,
		log:     log.WithFields(logrus.Fields{"component": "stat-cache"}),
	}
}

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (c *CachedFS) cacheKey(name string) string {
	return c.prefix + name
}

// Stat 优先查 Redis
func (c *CachedFS) Stat(ctx context.Context, name string) (storage.FileInfo, error) {
	key := c.cacheKey(name)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var info storage.FileInfo
		if err := cbor.Unmarshal(raw, &info); err == nil {
			return info, nil
		}
		// 脏数据，删掉后回源
		c.log.WithField("path", name).Warn("corrupted stat cache entry, dropping")
		c.client.Del(ctx, key)
	case errors.Is(err, redis.Nil):
		// Cache Miss
	default:
		// 缓存故障降级：Redis 挂了就退化为无缓存模式
		c.log.WithError(err).Warn("redis unavailable, falling back to backend")
	}

	info, err := c.backend.Stat(ctx, name)
	if err != nil {
		return info, err
	}

	// 回填失败不影响主流程
	if raw, err := cbor.Marshal(info); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.WithError(err).Debug("stat cache fill failed")
		}
	}
	return info, nil
}

// Open 透传：我们不缓存 chunk 内容
func (c *CachedFS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return c.backend.Open(ctx, name)
}

// CreateExclusive 透传
// 不在这里填充缓存：写入可能在 Close 时才失败
func (c *CachedFS) CreateExclusive(ctx context.Context, name string) (io.WriteCloser, error) {
	return c.backend.CreateExclusive(ctx, name)
}

// Remove 先删底层，再让缓存失效
func (c *CachedFS) Remove(ctx context.Context, name string) error {
	err := c.backend.Remove(ctx, name)
	if err == nil || storage.IsNotExist(err) {
		if delErr := c.client.Del(ctx, c.cacheKey(name)).Err(); delErr != nil {
			c.log.WithError(delErr).WithField("path", name).Warn("failed to invalidate stat cache")
		}
	}
	return err
}

func (c *CachedFS) MkdirAll(ctx context.Context, name string) error {
	return c.backend.MkdirAll(ctx, name)
}

// Close 关闭 Redis 客户端和底层存储 (如果它需要关闭)
func (c *CachedFS) Close() error {
	err := c.client.Close()
	if closer, ok := c.backend.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}
