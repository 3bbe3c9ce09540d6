package chunkstore

import (
	"context"
	"testing"
	"time"

	"chunkstore/pkg/async"
	"chunkstore/pkg/pathutil"
	"chunkstore/pkg/storage"
	"chunkstore/pkg/storage/conn"
	"chunkstore/pkg/storage/local"
	"chunkstore/pkg/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOne_AbandonedStreamIsClosed(t *testing.T) {
	ctx := context.Background()
	mem := local.NewMemoryAdapter()
	require.NoError(t, mem.MkdirAll(ctx, testRoot+"/g"))
	w, err := mem.CreateExclusive(ctx, testRoot+"/g/5f1d7c2a9b3e4f6a7c8d9e0f")
	require.NoError(t, err)
	_, err = w.Write([]byte("late"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	gated := storagetest.NewGatedFS(mem)
	cm := conn.NewManager(func(context.Context) (storage.FileSystem, error) {
		return gated, nil
	}, nil)
	resolver, err := pathutil.NewResolver(testRoot)
	require.NoError(t, err)
	s := New(cm, resolver, async.NewPool(2, nil))

	// Stat 被卡住，调用方先放弃
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = s.GetOne(waitCtx, "/g/5f1d7c2a9b3e4f6a7c8d9e0f").Await(waitCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	gated.Release()
	assert.Eventually(t, func() bool {
		return gated.Opened() == 1 && gated.Closed() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestGetOne_DeliveredStreamIsNotClosed(t *testing.T) {
	ctx := context.Background()
	gated := storagetest.NewGatedFS(local.NewMemoryAdapter())
	gated.Release()
	cm := conn.NewManager(func(context.Context) (storage.FileSystem, error) {
		return gated, nil
	}, nil)
	resolver, err := pathutil.NewResolver(testRoot)
	require.NoError(t, err)
	s := New(cm, resolver, async.NewPool(2, nil))

	p := mustAdd(t, s, "kept", "/g")
	h, err := await(t, s.GetOne(ctx, p))
	require.NoError(t, err)
	assert.Equal(t, int32(1), gated.Opened())
	assert.Equal(t, int32(0), gated.Closed())
	require.NoError(t, h.Close())
	assert.Equal(t, int32(1), gated.Closed())
}
