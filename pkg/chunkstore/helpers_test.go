package chunkstore

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"chunkstore/pkg/async"
	"chunkstore/pkg/pathutil"
	"chunkstore/pkg/storage"
	"chunkstore/pkg/storage/conn"
	"chunkstore/pkg/storage/local"
	"chunkstore/pkg/storage/storagetest"
	"chunkstore/pkg/types"

	"github.com/stretchr/testify/require"
)

const testRoot = "/data"

// env 把一个内存后端包装成 Spy -> Faulty 两层，方便统计和注入故障
type env struct {
	store  *Store
	mem    *local.Adapter
	spy    *storagetest.SpyFS
	faulty *storagetest.FaultyFS
	conn   *conn.Manager
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	mem := local.NewMemoryAdapter()
	faulty := storagetest.NewFaultyFS(mem)
	spy := storagetest.NewSpyFS(faulty)

	cm := conn.NewManager(func(ctx context.Context) (storage.FileSystem, error) {
		return spy, nil
	}, nil)
	resolver, err := pathutil.NewResolver(testRoot)
	require.NoError(t, err)

	return &env{
		store:  New(cm, resolver, async.NewPool(4, nil), opts...),
		mem:    mem,
		spy:    spy,
		faulty: faulty,
		conn:   cm,
	}
}

func await[T any](t *testing.T, f *async.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := f.Await(ctx)
	require.False(t, errors.Is(err, context.DeadlineExceeded), "future never completed")
	return v, err
}

func mustAdd(t *testing.T, s *Store, content, folder string) string {
	t.Helper()
	p, err := await(t, s.AddChunk(context.Background(), []byte(content), folder))
	require.NoError(t, err)
	return p
}

func readAll(t *testing.T, s *Store, logical string) string {
	t.Helper()
	h, err := await(t, s.GetOne(context.Background(), logical))
	require.NoError(t, err)
	defer h.Close()
	data, err := io.ReadAll(h)
	require.NoError(t, err)
	require.Equal(t, h.Size, int64(len(data)))
	return string(data)
}

func fixedID() Option {
	return WithIDGenerator(types.FixedID("5f1d7c2a9b3e4f6a7c8d9e0f"))
}
