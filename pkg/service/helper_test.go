package service

import (
	"context"
	"path/filepath"
	"testing"

	chunkrpc "chunkstore/pkg/api/chunkrpc/v1"
	"chunkstore/pkg/app"
	"chunkstore/pkg/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// setupTestApp 是所有 Service 测试共享的基础设施初始化逻辑
// 内存后端 + 临时 sqlite 日志
func setupTestApp(t *testing.T) *app.App {
	t.Helper()
	viper.Reset()
	config.SetDefaults()
	cfg, err := config.FromViper()
	require.NoError(t, err)

	cfg.Storage.Type = "memory"
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")

	a, err := app.NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

// MockChunkStream 模拟服务端流式响应
type MockChunkStream struct {
	grpc.ServerStream
	Ctx       context.Context
	Responses []*chunkrpc.GetChunkResponse
}

func (m *MockChunkStream) Context() context.Context {
	if m.Ctx == nil {
		return context.Background()
	}
	return m.Ctx
}

func (m *MockChunkStream) Send(resp *chunkrpc.GetChunkResponse) error {
	// gRPC 会在 Send 返回前序列化，这里同样拷贝一份
	m.Responses = append(m.Responses, &chunkrpc.GetChunkResponse{
		Header: resp.Header,
		Data:   append([]byte(nil), resp.Data...),
	})
	return nil
}
