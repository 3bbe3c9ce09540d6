package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"testing"

	chunkrpc "chunkstore/pkg/api/chunkrpc/v1"
	"chunkstore/pkg/app"
	"chunkstore/pkg/config"
	"chunkstore/pkg/server"
	"chunkstore/pkg/service"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// startServer 在内存管道上启动一个完整的 chunkd
func startServer(t *testing.T) *ChunkClient {
	t.Helper()
	viper.Reset()
	config.SetDefaults()
	cfg, err := config.FromViper()
	require.NoError(t, err)
	cfg.Storage.Type = "memory"
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")

	application, err := app.NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(server.NewInterceptors(nil).ServerOptions()...)
	chunkrpc.RegisterChunkServiceServer(srv, service.NewChunkService(application, nil))
	go func() { _ = srv.Serve(lis) }()

	c, err := NewChunkClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		c.Close()
		srv.Stop()
		application.Close()
	})
	return c
}

func TestClient_RoundTrip(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	content := bytes.Repeat([]byte{0xAB}, chunkrpc.FrameSize*2+17)
	p, err := c.Add(ctx, content, "/remote")
	require.NoError(t, err)

	h, err := c.Get(ctx, p)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, int64(len(content)), h.Size)

	got, err := io.ReadAll(h)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestClient_GetMissing(t *testing.T) {
	c := startServer(t)
	_, err := c.Get(context.Background(), "/nope/5f1d7c2a9b3e4f6a7c8d9e0f")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestClient_DeleteAbortAndResume(t *testing.T) {
	c := startServer(t)
	ctx := context.Background()

	a, err := c.Add(ctx, []byte("a"), "/d")
	require.NoError(t, err)
	b, err := c.Add(ctx, []byte("b"), "/d")
	require.NoError(t, err)

	_, err = c.Delete(ctx, []string{a, "/../bad", b})
	require.Error(t, err)

	var be *BatchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 1, be.Deleted)
	assert.NotEmpty(t, be.BatchID)
	assert.Equal(t, codes.Aborted, status.Code(be.Err))

	pending, err := c.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, be.BatchID, pending[0].ID)
	assert.Equal(t, []string{"/../bad", b}, pending[0].Paths)

	// 坏路径还在队头，resume 依旧失败并返回同一个批次
	_, err = c.Resume(ctx, be.BatchID)
	var again *BatchError
	require.True(t, errors.As(err, &again))
	assert.Equal(t, be.BatchID, again.BatchID)

	n, err := c.Delete(ctx, []string{b})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type fakeStream struct {
	frames []*chunkrpc.GetChunkResponse
}

func (f *fakeStream) Recv() (*chunkrpc.GetChunkResponse, error) {
	if len(f.frames) == 0 {
		return nil, io.EOF
	}
	r := f.frames[0]
	f.frames = f.frames[1:]
	return r, nil
}

func TestFrameReader_SkipsEmptyFrames(t *testing.T) {
	r := &frameReader{stream: &fakeStream{frames: []*chunkrpc.GetChunkResponse{
		{Data: []byte("he")},
		{},
		{Data: []byte("llo")},
	}}}

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, r.Close())
}
