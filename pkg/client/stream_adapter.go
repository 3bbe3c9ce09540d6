package client

import (
	"context"
	"io"

	chunkrpc "chunkstore/pkg/api/chunkrpc/v1"
)

// ChunkStream 定义了 GetChunk 客户端流所需的最小集合
type ChunkStream interface {
	Recv() (*chunkrpc.GetChunkResponse, error)
}

// frameReader 将 GetChunk 的 Data 帧包装为 io.ReadCloser
// 这是一个典型的"缓冲-消费"状态机
type frameReader struct {
	stream ChunkStream
	cancel context.CancelFunc
	buf    []byte // 从 Recv 拿到、还没被 Read 读走的数据
	err    error  // 流的状态错误 (如 EOF)
}

func (r *frameReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		resp, err := r.stream.Recv()
		if err != nil {
			r.err = err
			return 0, err
		}
		// 空帧直接跳过
		r.buf = resp.Data
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// Close 取消底层流，未读完的数据被丢弃
func (r *frameReader) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.err == nil {
		r.err = io.ErrClosedPipe
	}
	return nil
}
