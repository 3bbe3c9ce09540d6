// pkg/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chunkstore/pkg/async"
	"chunkstore/pkg/chunkstore"
	"chunkstore/pkg/config"
	"chunkstore/pkg/journal"
	"chunkstore/pkg/pathutil"
	"chunkstore/pkg/storage"
	"chunkstore/pkg/storage/cache"
	"chunkstore/pkg/storage/conn"
	"chunkstore/pkg/storage/hdfs"
	"chunkstore/pkg/storage/local"
	"chunkstore/pkg/storage/s3"

	"github.com/sirupsen/logrus"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// 它持有所有"单例"服务
type App struct {
	Config  *config.Config
	Store   *chunkstore.Store
	Conn    *conn.Manager
	Pool    *async.Pool
	Journal *journal.Repository // journal.driver=none 时为 nil

	journalDB *journal.DB
	log       *logrus.Entry
}

// NewApp 是工厂函数，负责组装这一台机器
// 后端连接是懒加载的：这里不会访问 HDFS / S3
func NewApp(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*App, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	// 1. 后端拨号器 (按 storage.type 切换)
	dial, err := initDialer(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	// 2. 路径解析
	resolver, err := pathutil.NewResolver(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid storage root: %w", err)
	}

	// 3. 连接管理 + 后台执行上下文
	cm := conn.NewManager(dial, log)
	pool := async.NewPool(cfg.Pool.Size, log)
	store := chunkstore.New(cm, resolver, pool, chunkstore.WithLogger(log))

	a := &App{
		Config: cfg,
		Store:  store,
		Conn:   cm,
		Pool:   pool,
		log:    log.WithField("component", "app"),
	}

	// 4. 删除日志
	if err := a.initJournal(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// initDialer 返回一个按配置建立后端连接的 Dialer
// 配置错误在这里就报出来，网络错误推迟到第一次使用
func initDialer(cfg *config.Config, log *logrus.Entry) (conn.Dialer, error) {
	var dial conn.Dialer

	sc := cfg.Storage
	switch strings.ToLower(sc.Type) {
	case "hdfs":
		hc := hdfs.Config{Address: sc.HDFS.Address, User: sc.HDFS.User}
		dial = func(ctx context.Context) (storage.FileSystem, error) {
			return hdfs.Dial(ctx, hc)
		}
	case "local", "disk":
		if sc.Local.Path == "" {
			return nil, errors.New("storage.local.path is required")
		}
		dial = func(ctx context.Context) (storage.FileSystem, error) {
			return local.NewDiskAdapter(sc.Local.Path)
		}
	case "memory":
		// 同一个进程内重连也要看到同一份数据
		mem := local.NewMemoryAdapter()
		dial = func(ctx context.Context) (storage.FileSystem, error) {
			return mem, nil
		}
	case "s3":
		if sc.S3.Bucket == "" {
			return nil, errors.New("s3 bucket is required")
		}
		s3cfg := s3.Config{
			Endpoint:        sc.S3.Endpoint,
			Region:          sc.S3.Region,
			Bucket:          sc.S3.Bucket,
			AccessKeyID:     sc.S3.AccessKey,
			SecretAccessKey: sc.S3.SecretKey,
		}
		dial = func(ctx context.Context) (storage.FileSystem, error) {
			return s3.NewAdapter(ctx, s3cfg)
		}
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", sc.Type)
	}

	if cfg.Cache.RedisURL == "" {
		return dial, nil
	}
	return withCache(dial, cfg.Cache, log), nil
}

// withCache 在后端外面套一层 Redis 元数据缓存
func withCache(dial conn.Dialer, cc config.CacheConfig, log *logrus.Entry) conn.Dialer {
	return func(ctx context.Context) (storage.FileSystem, error) {
		backend, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		cached, err := cache.NewCachedFS(ctx, backend, cache.Config{
			RedisURL: cc.RedisURL,
			TTL:      cc.TTL,
			Prefix:   cc.Prefix,
		}, log)
		if err != nil {
			if closer, ok := backend.(interface{ Close() error }); ok {
				_ = closer.Close()
			}
			return nil, err
		}
		return cached, nil
	}
}

func (a *App) initJournal(ctx context.Context) error {
	jc := a.Config.Journal
	if jc.Driver == "none" {
		return nil
	}
	db, err := journal.NewDB(ctx, journalConfig(jc))
	if err != nil {
		return fmt.Errorf("failed to init journal: %w", err)
	}
	a.journalDB = db
	a.Journal = journal.NewRepository(db)
	return nil
}

func journalConfig(jc config.JournalConfig) journal.Config {
	return journal.Config{
		Driver:   jc.Driver,
		Path:     jc.Path,
		DSN:      jc.DSN,
		Host:     jc.Host,
		Port:     jc.Port,
		User:     jc.User,
		Password: jc.Password,
		DBName:   jc.DBName,
		SSLMode:  jc.SSLMode,
		Verbose:  jc.Verbose,
	}
}

// Close 释放后端连接和数据库
func (a *App) Close() error {
	err := a.Conn.Close()
	if a.journalDB != nil {
		err = errors.Join(err, a.journalDB.Close())
	}
	return err
}
