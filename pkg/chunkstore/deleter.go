package chunkstore

import (
	"context"
	"fmt"
	"sync"

	"chunkstore/pkg/async"
	"chunkstore/pkg/storage"

	"github.com/sirupsen/logrus"
)

// DeleteQueue 是待删除逻辑路径的 FIFO 队列，并发安全
// DeleteChunks 会消费它
type DeleteQueue struct {
	mu    sync.Mutex
	paths []string
}

func NewDeleteQueue(paths ...string) *DeleteQueue {
	q := &DeleteQueue{}
	q.Push(paths...)
	return q
}

func (q *DeleteQueue) Push(paths ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paths = append(q.paths, paths...)
}

// Poll 取出队头
func (q *DeleteQueue) Poll() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.paths) == 0 {
		return "", false
	}
	head := q.paths[0]
	q.paths = q.paths[1:]
	return head, true
}

func (q *DeleteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.paths)
}

// Snapshot 返回队列当前内容的副本，不改变队列
func (q *DeleteQueue) Snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.paths...)
}

// BatchError 描述一次在中途停止的批量删除
// Unprocessed 以失败的路径开头，可以原样交给下一次 DeleteChunks
type BatchError struct {
	Failed      string
	Deleted     int
	Unprocessed []string
	Err         error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("delete batch stopped at %s after %d deleted, %d unprocessed: %v",
		e.Failed, e.Deleted, len(e.Unprocessed), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// DeleteChunks 按顺序逐个删除队列中的 chunk，遇到第一个失败立即停止
// 已删除的不会回滚；不存在的路径视为已删除
// 失败时失败的路径已从队列取出，队列里只剩它之后的路径；
// BatchError.Unprocessed 是失败路径加上这些剩余路径的副本
// 每一步是一次独立的 Pool 提交，协调者本身不占用 worker
func (s *Store) DeleteChunks(ctx context.Context, q *DeleteQueue) *async.Future[int] {
	if q == nil || q.Len() == 0 {
		return async.Completed(0)
	}
	bg := background(ctx)

	return async.Go(s.pool, "delete-batch", func() (int, error) {
		deleted := 0
		for {
			head, ok := q.Poll()
			if !ok {
				s.log.WithFields(logrus.Fields{"op": opDelete, "deleted": deleted}).Debug("delete batch finished")
				return deleted, nil
			}

			_, err := async.Submit(s.pool, opDelete, func() (struct{}, error) {
				return struct{}{}, s.deleteOne(bg, head)
			}).Result()
			if err != nil {
				batchErr := &BatchError{
					Failed:      head,
					Deleted:     deleted,
					Unprocessed: append([]string{head}, q.Snapshot()...),
					Err:         err,
				}
				s.log.WithFields(logrus.Fields{
					"op":          opDelete,
					"path":        head,
					"deleted":     deleted,
					"unprocessed": len(batchErr.Unprocessed),
				}).WithError(err).Warn("delete batch stopped")
				return deleted, batchErr
			}
			deleted++
		}
	})
}

func (s *Store) deleteOne(ctx context.Context, logical string) error {
	fs, p, err := s.locate(ctx, logical)
	if err != nil {
		return opError(opDelete, logical, err, false)
	}
	if err := fs.Remove(ctx, p); err != nil && !storage.IsNotExist(err) {
		return opError(opDelete, logical, err, false)
	}
	return nil
}
