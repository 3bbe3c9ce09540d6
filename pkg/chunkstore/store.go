// Package chunkstore 把不透明的 chunk 存进层级文件系统 (HDFS / S3 / 本地)
// 所有操作立刻返回 Future，阻塞 I/O 在有界的后台 Pool 中执行
package chunkstore

import (
	"context"

	"chunkstore/pkg/async"
	"chunkstore/pkg/pathutil"
	"chunkstore/pkg/storage"
	"chunkstore/pkg/storage/conn"
	"chunkstore/pkg/types"

	"github.com/sirupsen/logrus"
)

type Store struct {
	conn     *conn.Manager
	resolver *pathutil.Resolver
	pool     *async.Pool
	newID    types.IDGenerator
	log      *logrus.Entry
}

type Option func(*Store)

// WithIDGenerator 替换 chunk id 生成器 (测试中用来制造冲突)
func WithIDGenerator(gen types.IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func New(cm *conn.Manager, resolver *pathutil.Resolver, pool *async.Pool, opts ...Option) *Store {
	s := &Store{
		conn:     cm,
		resolver: resolver,
		pool:     pool,
		newID:    types.NewChunkID,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "chunkstore")
	return s
}

// Root 返回物理根目录
func (s *Store) Root() string {
	return s.resolver.Root()
}

// locate 建立连接并把逻辑路径映射到物理路径
func (s *Store) locate(ctx context.Context, logical string) (storage.FileSystem, string, error) {
	fs, err := s.conn.Ensure(ctx)
	if err != nil {
		return nil, "", err
	}
	p, err := s.resolver.Resolve(logical)
	if err != nil {
		return nil, "", err
	}
	return fs, p, nil
}

// background 保留 ctx 中的值，但后台 I/O 不随调用方取消
func background(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
