package commands

import (
	"context"
	"errors"
	"io"

	"chunkstore/pkg/app"
	"chunkstore/pkg/chunkstore"
	"chunkstore/pkg/client"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Pending 是一个待恢复的删除批次
type Pending struct {
	ID        string
	Paths     []string
	LastError string
	Attempts  int
}

// Backend 是子命令看到的 chunk 存储
// 本地模式直接使用 App，--remote 模式走 gRPC
type Backend interface {
	Put(ctx context.Context, content []byte, folder string) (string, error)
	Get(ctx context.Context, path string) (int64, io.ReadCloser, error)
	// Delete 失败时 batchID 非空表示剩余部分已记录，可以 resume
	Delete(ctx context.Context, paths []string) (deleted int, batchID string, err error)
	Resume(ctx context.Context, batchID string) (deleted int, err error)
	Pending(ctx context.Context) ([]Pending, error)
	Close() error
}

// =============================================================================
// Local
// =============================================================================

type localBackend struct {
	app *app.App
}

func (b *localBackend) Put(ctx context.Context, content []byte, folder string) (string, error) {
	return b.app.Store.AddChunk(ctx, content, folder).Await(ctx)
}

func (b *localBackend) Get(ctx context.Context, path string) (int64, io.ReadCloser, error) {
	h, err := b.app.Store.GetOne(ctx, path).Await(ctx)
	if err != nil {
		return 0, nil, err
	}
	return h.Size, h, nil
}

func (b *localBackend) Delete(ctx context.Context, paths []string) (int, string, error) {
	deleted, batch, err := b.app.Delete(ctx, paths)
	if batch != nil {
		return deleted, batch.ID.String(), err
	}
	return deleted, "", err
}

func (b *localBackend) Resume(ctx context.Context, batchID string) (int, error) {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return 0, err
	}
	deleted, _, err := b.app.Resume(ctx, id)
	return deleted, err
}

func (b *localBackend) Pending(ctx context.Context) ([]Pending, error) {
	if b.app.Journal == nil {
		return nil, app.ErrJournalDisabled
	}
	batches, err := b.app.Journal.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Pending, 0, len(batches))
	for _, batch := range batches {
		paths, err := batch.PathList()
		if err != nil {
			return nil, err
		}
		out = append(out, Pending{
			ID:        batch.ID.String(),
			Paths:     paths,
			LastError: batch.LastError,
			Attempts:  batch.Attempts,
		})
	}
	return out, nil
}

func (b *localBackend) Close() error {
	return b.app.Close()
}

// =============================================================================
// Remote
// =============================================================================

type remoteBackend struct {
	cli *client.ChunkClient
}

func (b *remoteBackend) Put(ctx context.Context, content []byte, folder string) (string, error) {
	return b.cli.Add(ctx, content, folder)
}

func (b *remoteBackend) Get(ctx context.Context, path string) (int64, io.ReadCloser, error) {
	h, err := b.cli.Get(ctx, path)
	if err != nil {
		return 0, nil, err
	}
	return h.Size, h, nil
}

func (b *remoteBackend) Delete(ctx context.Context, paths []string) (int, string, error) {
	deleted, err := b.cli.Delete(ctx, paths)
	var be *client.BatchError
	if errors.As(err, &be) {
		return be.Deleted, be.BatchID, err
	}
	return deleted, "", err
}

func (b *remoteBackend) Resume(ctx context.Context, batchID string) (int, error) {
	return b.cli.Resume(ctx, batchID)
}

func (b *remoteBackend) Pending(ctx context.Context) ([]Pending, error) {
	batches, err := b.cli.Pending(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Pending, 0, len(batches))
	for _, batch := range batches {
		out = append(out, Pending{
			ID:        batch.ID,
			Paths:     batch.Paths,
			LastError: batch.LastError,
			Attempts:  int(batch.Attempts),
		})
	}
	return out, nil
}

func (b *remoteBackend) Close() error {
	return b.cli.Close()
}

// isNotFound 同时识别本地和远端的 "不存在"
func isNotFound(err error) bool {
	return errors.Is(err, chunkstore.ErrNotFound) || status.Code(err) == codes.NotFound
}
