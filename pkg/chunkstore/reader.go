package chunkstore

import (
	"context"
	"io"

	"chunkstore/pkg/async"

	"github.com/sirupsen/logrus"
)

// ReadHandle 是一个从偏移 0 开始的 chunk 读取流
// 调用方负责 Close，流不做额外缓冲
type ReadHandle struct {
	Size int64
	io.ReadCloser
}

// GetOne 打开逻辑路径上的 chunk
func (s *Store) GetOne(ctx context.Context, logical string) *async.Future[*ReadHandle] {
	bg := background(ctx)
	return async.Submit(s.pool, opGet, func() (*ReadHandle, error) {
		fs, p, err := s.locate(bg, logical)
		if err != nil {
			return nil, opError(opGet, logical, err, true)
		}

		info, err := fs.Stat(bg, p)
		if err != nil {
			return nil, opError(opGet, logical, err, true)
		}

		rc, err := fs.Open(bg, p)
		if err != nil {
			return nil, opError(opGet, logical, err, true)
		}

		s.log.WithFields(logrus.Fields{"op": opGet, "path": logical, "size": info.Size}).Debug("chunk opened")
		return &ReadHandle{Size: info.Size, ReadCloser: rc}, nil
	}).OnAbandon(func(h *ReadHandle) {
		// 调用方已经不等了，没人会关闭这个流
		if err := h.Close(); err != nil {
			s.log.WithFields(logrus.Fields{"op": opGet, "path": logical}).WithError(err).Warn("failed to close abandoned chunk stream")
		}
	})
}
