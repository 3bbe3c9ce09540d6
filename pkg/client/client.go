package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	chunkrpc "chunkstore/pkg/api/chunkrpc/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

// ChunkClient 封装了与 chunkd 服务端的连接
type ChunkClient struct {
	conn *grpc.ClientConn
	rpc  chunkrpc.ChunkServiceClient
}

// NewChunkClient 创建客户端，连接在后台建立
func NewChunkClient(addr string, extra ...grpc.DialOption) (*ChunkClient, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			chunkrpc.CallOption(),
			grpc.MaxCallRecvMsgSize(256*1024*1024),
			grpc.MaxCallSendMsgSize(256*1024*1024),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", addr, err)
	}

	return &ChunkClient{
		conn: conn,
		rpc:  chunkrpc.NewChunkServiceClient(conn),
	}, nil
}

// ReadHandle 是远端 chunk 的读取流
type ReadHandle struct {
	Size int64
	io.ReadCloser
}

// Get 打开远端 chunk；第一帧必须是 Header
func (c *ChunkClient) Get(ctx context.Context, path string) (*ReadHandle, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.rpc.GetChunk(ctx, &chunkrpc.GetChunkRequest{Path: path})
	if err != nil {
		cancel()
		return nil, err
	}

	first, err := stream.Recv()
	if err != nil {
		cancel()
		return nil, err
	}
	if first.Header == nil {
		cancel()
		return nil, errors.New("protocol violation: first frame must be a header")
	}

	return &ReadHandle{
		Size:       first.Header.Size,
		ReadCloser: &frameReader{stream: stream, cancel: cancel},
	}, nil
}

// Add 上传一个 chunk，返回服务端分配的逻辑路径
func (c *ChunkClient) Add(ctx context.Context, content []byte, folder string) (string, error) {
	resp, err := c.rpc.AddChunk(ctx, &chunkrpc.AddChunkRequest{Content: content, Folder: folder})
	if err != nil {
		return "", err
	}
	return resp.Path, nil
}

// BatchError 是服务端中止的批量删除
type BatchError struct {
	BatchID string
	Deleted int
	Err     error
}

func (e *BatchError) Error() string {
	if e.BatchID == "" {
		return fmt.Sprintf("delete batch stopped after %d deleted: %v", e.Deleted, e.Err)
	}
	return fmt.Sprintf("delete batch %s stopped after %d deleted: %v", e.BatchID, e.Deleted, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Delete 删除一批 chunk
// 失败时返回 *BatchError，BatchID 可以交给 Resume
func (c *ChunkClient) Delete(ctx context.Context, paths []string) (int, error) {
	var trailer metadata.MD
	resp, err := c.rpc.DeleteChunks(ctx, &chunkrpc.DeleteChunksRequest{Paths: paths}, grpc.Trailer(&trailer))
	if err != nil {
		return 0, batchError(trailer, err)
	}
	return int(resp.Deleted), nil
}

func (c *ChunkClient) Resume(ctx context.Context, batchID string) (int, error) {
	var trailer metadata.MD
	resp, err := c.rpc.ResumeDeletes(ctx, &chunkrpc.ResumeDeletesRequest{BatchID: batchID}, grpc.Trailer(&trailer))
	if err != nil {
		return 0, batchError(trailer, err)
	}
	return int(resp.Deleted), nil
}

func (c *ChunkClient) Pending(ctx context.Context, limit int) ([]chunkrpc.PendingBatch, error) {
	resp, err := c.rpc.ListPending(ctx, &chunkrpc.ListPendingRequest{Limit: int32(limit)})
	if err != nil {
		return nil, err
	}
	return resp.Batches, nil
}

func batchError(trailer metadata.MD, err error) error {
	deleted := trailer.Get(chunkrpc.TrailerDeleted)
	if len(deleted) == 0 {
		return err
	}
	be := &BatchError{Err: err}
	be.Deleted, _ = strconv.Atoi(deleted[0])
	if ids := trailer.Get(chunkrpc.TrailerBatchID); len(ids) > 0 {
		be.BatchID = ids[0]
	}
	return be
}

// Close 关闭底层连接
func (c *ChunkClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
