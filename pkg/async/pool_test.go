package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_DeliversResult(t *testing.T) {
	p := NewPool(2, nil)

	f := Submit(p, "test", func() (int, error) { return 42, nil })
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	// 再次读取结果保持不变
	v, err = f.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmit_DeliversError(t *testing.T) {
	p := NewPool(2, nil)
	boom := errors.New("boom")

	f := Submit(p, "test", func() (string, error) { return "", boom })
	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSubmit_RecoversPanic(t *testing.T) {
	p := NewPool(1, nil)

	f := Submit(p, "panicky", func() (int, error) { panic("kaboom") })
	_, err := f.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered")

	// panic 之后 slot 必须被归还
	f2 := Submit(p, "after", func() (int, error) { return 1, nil })
	v, err := f2.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSubmit_DoesNotBlockCaller(t *testing.T) {
	p := NewPool(1, nil)
	release := make(chan struct{})
	started := make(chan struct{})

	// 占满唯一的 slot
	first := Submit(p, "hold", func() (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	<-started

	// 池已满时 Submit 依然立刻返回
	returned := make(chan *Future[int])
	go func() {
		returned <- Submit(p, "queued", func() (int, error) { return 2, nil })
	}()

	var second *Future[int]
	select {
	case second = <-returned:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked the caller while the pool was full")
	}

	select {
	case <-second.Done():
		t.Fatal("queued operation ran before a slot was released")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	v, err := second.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	_, err = first.Await(context.Background())
	require.NoError(t, err)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 3
	p := NewPool(size, nil)

	var current, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		f := Submit(p, "bounded", func() (struct{}, error) {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return struct{}{}, nil
		})
		f.OnComplete(func(struct{}, error) { wg.Done() })
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(size))
}

func TestFuture_CompletesOnce(t *testing.T) {
	f := newFuture[int]()
	assert.True(t, f.complete(1, nil))
	assert.False(t, f.complete(2, errors.New("late")))

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFuture_AwaitHonoursCallerContext(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFuture_AbandonReleasesLateResult(t *testing.T) {
	f := newFuture[int]()
	released := make(chan int, 1)
	f.OnAbandon(func(v int) { released <- v })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)

	f.complete(7, nil)
	select {
	case v := <-released:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("abandoned result was not released")
	}
}

func TestFuture_AbandonSkipsFailedResult(t *testing.T) {
	f := newFuture[int]()
	var calls int32
	f.OnAbandon(func(int) { atomic.AddInt32(&calls, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)

	f.complete(0, errors.New("boom"))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFuture_AwaitPrefersReadyResult(t *testing.T) {
	f := Completed(3)
	var calls int32
	f.OnAbandon(func(int) { atomic.AddInt32(&calls, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := f.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestCompletedAndFailed(t *testing.T) {
	v, err := Completed("ok").Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	boom := errors.New("boom")
	_, err = Failed[string](boom).Result()
	assert.ErrorIs(t, err, boom)
}

func TestGo_DoesNotTakeSlot(t *testing.T) {
	p := NewPool(1, nil)

	// 协调者在 Pool 之外运行，内部的 Submit 依然能拿到唯一的 slot
	f := Go(p, "coordinator", func() (int, error) {
		sum := 0
		for i := 1; i <= 3; i++ {
			v, err := Submit(p, "step", func() (int, error) { return i, nil }).Result()
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := f.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestGo_RecoversPanic(t *testing.T) {
	p := NewPool(1, nil)
	_, err := Go(p, "coordinator", func() (int, error) { panic("oops") }).Result()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered")
}
