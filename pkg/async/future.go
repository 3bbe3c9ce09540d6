package async

import (
	"context"
	"sync"
)

// Future 是一次性兑现的结果通道 (value, error)
// 只有第一次 complete 生效，之后的调用被忽略
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error

	release func(T)
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed 返回一个已经成功兑现的 Future
func Completed[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.complete(v, nil)
	return f
}

// Failed 返回一个已经失败的 Future
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// complete 兑现结果，返回是否是第一次兑现
func (f *Future[T]) complete(v T, err error) bool {
	first := false
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
		first = true
	})
	return first
}

// Done 在结果可用时被关闭
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// OnAbandon 注册结果的回收函数
// Await 因 ctx 结束而放弃等待时，之后成功兑现的值会交给 fn，比如关闭已经打开的流
// 要在 Future 交给调用方之前注册，Future 只能有一个 Await 的消费者
func (f *Future[T]) OnAbandon(fn func(T)) *Future[T] {
	f.release = fn
	return f
}

// Await 等待结果
// ctx 只控制调用方等待多久，不会取消后台正在执行的阻塞调用
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}

	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		if release := f.release; release != nil {
			go func() {
				<-f.done
				if f.err == nil {
					release(f.val)
				}
			}()
		}
		var zero T
		return zero, ctx.Err()
	}
}

// Result 返回已兑现的结果
// 必须在 Done() 关闭之后调用，否则会阻塞
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// OnComplete 在结果可用后异步调用 cb，恰好一次
func (f *Future[T]) OnComplete(cb func(T, error)) {
	go func() {
		<-f.done
		cb(f.val, f.err)
	}()
}
