// Package conn 负责后端存储连接的懒加载与复用
package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"chunkstore/pkg/storage"

	"github.com/sirupsen/logrus"
)

// ErrConnection 表示无法建立到后端存储的连接
var ErrConnection = errors.New("connection failed")

// Dialer 建立一个新的后端连接 (阻塞)
type Dialer func(ctx context.Context) (storage.FileSystem, error)

// Manager 在第一次使用时建立连接，并在进程生命周期内复用
// 连接失败不会被缓存，下一次调用会重新拨号
type Manager struct {
	dial Dialer
	log  *logrus.Entry

	mu     sync.Mutex
	handle atomic.Pointer[storage.FileSystem]
	dials  atomic.Int64
}

func NewManager(dial Dialer, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		dial: dial,
		log:  log.WithField("component", "conn"),
	}
}

// Ensure 返回已建立的连接，必要时拨号
func (m *Manager) Ensure(ctx context.Context) (storage.FileSystem, error) {
	// 1. 快路径: 已连接
	if h := m.handle.Load(); h != nil {
		return *h, nil
	}

	// 2. 慢路径: 加锁后再检查一次
	m.mu.Lock()
	defer m.mu.Unlock()
	if h := m.handle.Load(); h != nil {
		return *h, nil
	}

	m.dials.Add(1)
	fs, err := m.dial(ctx)
	if err != nil {
		m.log.WithError(err).Warn("dial failed")
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if fs == nil {
		return nil, fmt.Errorf("%w: dialer returned no filesystem", ErrConnection)
	}

	m.handle.Store(&fs)
	m.log.Info("backend connected")
	return fs, nil
}

// Connected 报告连接是否已经建立
func (m *Manager) Connected() bool {
	return m.handle.Load() != nil
}

// Dials 返回拨号次数 (含失败)
func (m *Manager) Dials() int64 {
	return m.dials.Load()
}

// Close 关闭缓存的连接 (如果它实现了 io.Closer)
// 之后的 Ensure 会重新拨号
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.handle.Swap(nil)
	if h == nil {
		return nil
	}
	if closer, ok := (*h).(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
