// Package storagetest 提供 storage.FileSystem 的测试替身
package storagetest

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"chunkstore/pkg/storage"
)

// SpyFS 统计底层方法被调用的次数，验证请求是否真的到达了后端
type SpyFS struct {
	storage.FileSystem

	StatCount   int32
	OpenCount   int32
	CreateCount int32
	RemoveCount int32
	MkdirCount  int32
}

func NewSpyFS(backend storage.FileSystem) *SpyFS {
	return &SpyFS{FileSystem: backend}
}

// Total 返回所有调用的总次数
func (s *SpyFS) Total() int32 {
	return atomic.LoadInt32(&s.StatCount) +
		atomic.LoadInt32(&s.OpenCount) +
		atomic.LoadInt32(&s.CreateCount) +
		atomic.LoadInt32(&s.RemoveCount) +
		atomic.LoadInt32(&s.MkdirCount)
}

func (s *SpyFS) Stat(ctx context.Context, name string) (storage.FileInfo, error) {
	atomic.AddInt32(&s.StatCount, 1)
	return s.FileSystem.Stat(ctx, name)
}

func (s *SpyFS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	atomic.AddInt32(&s.OpenCount, 1)
	return s.FileSystem.Open(ctx, name)
}

func (s *SpyFS) CreateExclusive(ctx context.Context, name string) (io.WriteCloser, error) {
	atomic.AddInt32(&s.CreateCount, 1)
	return s.FileSystem.CreateExclusive(ctx, name)
}

func (s *SpyFS) Remove(ctx context.Context, name string) error {
	atomic.AddInt32(&s.RemoveCount, 1)
	return s.FileSystem.Remove(ctx, name)
}

func (s *SpyFS) MkdirAll(ctx context.Context, name string) error {
	atomic.AddInt32(&s.MkdirCount, 1)
	return s.FileSystem.MkdirAll(ctx, name)
}

// FaultyFS 对指定路径注入权限错误，模拟 "chmod 000"
type FaultyFS struct {
	storage.FileSystem

	mu      sync.Mutex
	removes map[string]bool
	writes  map[string]bool
	removed []string
}

func NewFaultyFS(backend storage.FileSystem) *FaultyFS {
	return &FaultyFS{
		FileSystem: backend,
		removes:    make(map[string]bool),
		writes:     make(map[string]bool),
	}
}

// DenyRemove 让 Remove(name) 返回 os.ErrPermission
func (f *FaultyFS) DenyRemove(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes[name] = true
}

// AllowRemove 恢复权限
func (f *FaultyFS) AllowRemove(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.removes, name)
}

// FailWrites 让写入 name 的 Writer 在 Write 时失败
func (f *FaultyFS) FailWrites(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[name] = true
}

// Removed 按顺序返回成功删除的路径
func (f *FaultyFS) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

func (f *FaultyFS) Remove(ctx context.Context, name string) error {
	f.mu.Lock()
	denied := f.removes[name]
	f.mu.Unlock()
	if denied {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrPermission}
	}

	if err := f.FileSystem.Remove(ctx, name); err != nil {
		return err
	}
	f.mu.Lock()
	f.removed = append(f.removed, name)
	f.mu.Unlock()
	return nil
}

func (f *FaultyFS) CreateExclusive(ctx context.Context, name string) (io.WriteCloser, error) {
	w, err := f.FileSystem.CreateExclusive(ctx, name)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	fail := f.writes[name]
	f.mu.Unlock()
	if fail {
		return &failingWriter{WriteCloser: w, name: name}, nil
	}
	return w, nil
}

type failingWriter struct {
	io.WriteCloser
	name string
}

func (w *failingWriter) Write(p []byte) (int, error) {
	return 0, &os.PathError{Op: "write", Path: w.name, Err: io.ErrShortWrite}
}

// GatedFS 让 Stat 和 Remove 阻塞到 Release 被调用，模拟一个很慢的后端
// 同时统计打开和关闭的流，用来发现泄漏的句柄
type GatedFS struct {
	storage.FileSystem

	gate   chan struct{}
	once   sync.Once
	opened int32
	closed int32
}

func NewGatedFS(backend storage.FileSystem) *GatedFS {
	return &GatedFS{FileSystem: backend, gate: make(chan struct{})}
}

// Release 放行所有等待中和之后的调用
func (g *GatedFS) Release() {
	g.once.Do(func() { close(g.gate) })
}

func (g *GatedFS) Opened() int32 { return atomic.LoadInt32(&g.opened) }

func (g *GatedFS) Closed() int32 { return atomic.LoadInt32(&g.closed) }

func (g *GatedFS) Stat(ctx context.Context, name string) (storage.FileInfo, error) {
	<-g.gate
	return g.FileSystem.Stat(ctx, name)
}

func (g *GatedFS) Remove(ctx context.Context, name string) error {
	<-g.gate
	return g.FileSystem.Remove(ctx, name)
}

func (g *GatedFS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := g.FileSystem.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	atomic.AddInt32(&g.opened, 1)
	return &countingReader{ReadCloser: rc, closed: &g.closed}, nil
}

type countingReader struct {
	io.ReadCloser
	closed *int32
	once   sync.Once
}

func (r *countingReader) Close() error {
	r.once.Do(func() { atomic.AddInt32(r.closed, 1) })
	return r.ReadCloser.Close()
}
