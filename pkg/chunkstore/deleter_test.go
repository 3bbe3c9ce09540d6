package chunkstore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteQueue_FIFO(t *testing.T) {
	q := NewDeleteQueue("a", "b")
	q.Push("c")
	assert.Equal(t, 3, q.Len())

	head, ok := q.Poll()
	require.True(t, ok)
	assert.Equal(t, "a", head)

	assert.Equal(t, []string{"b", "c"}, q.Snapshot())
	assert.Equal(t, 2, q.Len())

	q.Poll()
	q.Poll()
	_, ok = q.Poll()
	assert.False(t, ok)
}

func TestDeleteChunks_All(t *testing.T) {
	e := newEnv(t)
	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, mustAdd(t, e.store, "data", "/del"))
	}

	q := NewDeleteQueue(paths...)
	n, err := await(t, e.store.DeleteChunks(context.Background(), q))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, q.Len(), "queue is consumed")

	for _, p := range paths {
		ok, _ := afero.Exists(e.mem.Fs(), testRoot+p)
		assert.False(t, ok, "%s should be gone", p)
	}
	// 按队列顺序删除
	removed := e.faulty.Removed()
	require.Len(t, removed, 5)
	for i, p := range paths {
		assert.Equal(t, testRoot+p, removed[i])
	}
}

func TestDeleteChunks_EmptyQueue(t *testing.T) {
	e := newEnv(t)

	f := e.store.DeleteChunks(context.Background(), NewDeleteQueue())
	select {
	case <-f.Done():
	default:
		t.Fatal("empty batch should complete immediately")
	}
	n, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = e.store.DeleteChunks(context.Background(), nil).Result()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, int32(0), e.spy.Total(), "no store operations")
	assert.Equal(t, int64(0), e.conn.Dials(), "no connection attempt")
}

func TestDeleteChunks_MissingCountsAsDeleted(t *testing.T) {
	e := newEnv(t)
	p := mustAdd(t, e.store, "x", "/m")

	n, err := await(t, e.store.DeleteChunks(context.Background(),
		NewDeleteQueue("/m/5f1d7c2a9b3e4f6a7c8d9e0f", p)))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteChunks_FailFastThenResume(t *testing.T) {
	e := newEnv(t)
	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, mustAdd(t, e.store, "data", "/ff"))
	}
	// 第三个不可删除
	e.faulty.DenyRemove(testRoot + paths[2])

	q := NewDeleteQueue(paths...)
	n, err := await(t, e.store.DeleteChunks(context.Background(), q))
	require.Error(t, err)
	assert.Equal(t, 2, n)
	// 失败的路径已出队，队列保留它之后的部分
	assert.Equal(t, paths[3:], q.Snapshot())

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, paths[2], batchErr.Failed)
	assert.Equal(t, 2, batchErr.Deleted)
	assert.Equal(t, paths[2:], batchErr.Unprocessed)
	assert.ErrorIs(t, err, ErrIO)

	// 前两个已删除，其余保持原样
	for i, p := range paths {
		ok, _ := afero.Exists(e.mem.Fs(), testRoot+p)
		assert.Equal(t, i >= 2, ok, "path %d", i)
	}
	// 失败之后不再尝试后面的条目
	assert.Equal(t, int32(3), atomic.LoadInt32(&e.spy.RemoveCount))

	// 修复权限后用剩余部分重试
	e.faulty.AllowRemove(testRoot + paths[2])
	n, err = await(t, e.store.DeleteChunks(context.Background(), NewDeleteQueue(batchErr.Unprocessed...)))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, p := range paths {
		ok, _ := afero.Exists(e.mem.Fs(), testRoot+p)
		assert.False(t, ok)
	}
}

func TestDeleteChunks_InvalidPathStopsBatch(t *testing.T) {
	e := newEnv(t)
	p := mustAdd(t, e.store, "x", "/v")

	_, err := await(t, e.store.DeleteChunks(context.Background(), NewDeleteQueue("/../escape", p)))
	assert.ErrorIs(t, err, ErrInvalidPath)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, []string{"/../escape", p}, batchErr.Unprocessed)
	assert.Equal(t, 0, batchErr.Deleted)
}

func TestDeleteChunks_DoesNotHoldWorkerForBatch(t *testing.T) {
	e := newEnv(t)
	var paths []string
	for i := 0; i < 50; i++ {
		paths = append(paths, mustAdd(t, e.store, "x", "/many"))
	}

	// 多个批次和写入交错执行，Pool 只有 4 个 worker
	var futures []interface{ Done() <-chan struct{} }
	for i := 0; i < 10; i++ {
		futures = append(futures, e.store.DeleteChunks(context.Background(), NewDeleteQueue(paths[i*5:(i+1)*5]...)))
	}
	w := e.store.AddChunk(context.Background(), []byte("late"), "/many")
	_, err := await(t, w)
	require.NoError(t, err)

	for _, f := range futures {
		<-f.Done()
	}
	assert.Equal(t, int32(50), atomic.LoadInt32(&e.spy.RemoveCount))
}
