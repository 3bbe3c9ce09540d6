package service

import (
	"fmt"
	"io"

	chunkrpc "chunkstore/pkg/api/chunkrpc/v1"
)

// ChunkStream 定义了 GetChunk 所需的最小集合，方便测试 Mock
type ChunkStream interface {
	Send(*chunkrpc.GetChunkResponse) error
}

// GrpcStreamWriter 将 GetChunk 流包装为 io.Writer
// 每次 Write 发送一个 Data 帧
type GrpcStreamWriter struct {
	stream ChunkStream
}

func NewGrpcStreamWriter(stream ChunkStream) *GrpcStreamWriter {
	return &GrpcStreamWriter{stream: stream}
}

func (w *GrpcStreamWriter) Write(p []byte) (n int, err error) {
	if err := w.stream.Send(&chunkrpc.GetChunkResponse{Data: p}); err != nil {
		return 0, fmt.Errorf("grpc send failed: %w", err)
	}
	return len(p), nil
}

// copyFrames 把 r 按 FrameSize 切成帧写入 w
// 不用 io.Copy：它会优先走 WriterTo，帧大小就不受控制了
func copyFrames(w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, chunkrpc.FrameSize)
	var total int64
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if _, wErr := w.Write(buf[:n]); wErr != nil {
				return total, wErr
			}
			total += int64(n)
		}
		switch err {
		case nil:
			continue
		case io.EOF, io.ErrUnexpectedEOF:
			return total, nil
		default:
			return total, err
		}
	}
}
