package chunkstore

import (
	"bytes"
	"context"
	"path"

	"chunkstore/pkg/async"
	"chunkstore/pkg/pathutil"
	"chunkstore/pkg/storage"

	"github.com/sirupsen/logrus"
)

// AddChunk 把 content 写入 folder 下一个新生成 id 的文件，返回逻辑路径
// folder 为空时写到根目录 "/"
// 目标已存在时失败 (ErrExclusiveCreateConflict)，不会覆盖
func (s *Store) AddChunk(ctx context.Context, content []byte, folder string) *async.Future[string] {
	filename := pathutil.Join(pathutil.Folder(folder), s.newID().String())
	// 调用方可能在写入完成前复用 content
	data := bytes.Clone(content)
	bg := background(ctx)

	return async.Submit(s.pool, opAdd, func() (string, error) {
		if err := s.write(bg, filename, data); err != nil {
			return "", opError(opAdd, filename, err, false)
		}
		s.log.WithFields(logrus.Fields{"op": opAdd, "path": filename, "size": len(data)}).Debug("chunk written")
		return filename, nil
	})
}

func (s *Store) write(ctx context.Context, filename string, data []byte) (err error) {
	fs, p, err := s.locate(ctx, filename)
	if err != nil {
		return err
	}

	if err := fs.MkdirAll(ctx, path.Dir(p)); err != nil {
		return err
	}

	w, err := fs.CreateExclusive(ctx, p)
	if err != nil {
		return err
	}

	// 文件已经创建：任何后续失败都要删掉残留的半成品
	// 例外是 "已存在"，那是别人的文件 (S3 在提交时才检测冲突)
	defer func() {
		if err == nil || storage.IsExist(err) {
			return
		}
		if rmErr := fs.Remove(ctx, p); rmErr != nil && !storage.IsNotExist(rmErr) {
			s.log.WithError(rmErr).WithField("path", filename).Warn("failed to remove partial chunk")
		}
	}()

	if _, err = w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
