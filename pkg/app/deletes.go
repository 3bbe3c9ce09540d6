package app

import (
	"context"
	"errors"
	"fmt"

	"chunkstore/pkg/async"
	"chunkstore/pkg/chunkstore"
	"chunkstore/pkg/journal"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrJournalDisabled 表示没有配置删除日志，无法记录或恢复批次
var ErrJournalDisabled = errors.New("delete journal is disabled")

// batchOutcome 是一次批量删除连同日志处理之后的结果
type batchOutcome struct {
	deleted int
	batch   *journal.PendingBatch
	err     error
}

// settle 在批次结束之后处理日志，不依赖调用方是否还在等
// 调用方 ctx 结束时批次仍在后台执行，剩余部分照样会写进日志
func (a *App) settle(ctx context.Context, op string, f *async.Future[int],
	fn func(ctx context.Context, deleted int, err error) batchOutcome) (int, *journal.PendingBatch, error) {
	bg := context.WithoutCancel(ctx)
	out, err := async.Go(a.Pool, op, func() (batchOutcome, error) {
		deleted, err := f.Result()
		return fn(bg, deleted, err), nil
	}).Await(ctx)
	if err != nil {
		a.log.WithField("op", op).WithError(err).Warn("caller stopped waiting, delete batch continues in background")
		return 0, nil, err
	}
	return out.deleted, out.batch, out.err
}

// Delete 删除一批 chunk
// 中途失败时剩余部分被写入日志，返回的 PendingBatch 可以交给 Resume
func (a *App) Delete(ctx context.Context, paths []string) (int, *journal.PendingBatch, error) {
	f := a.Store.DeleteChunks(ctx, chunkstore.NewDeleteQueue(paths...))
	return a.settle(ctx, "delete-journal", f, a.recordBatch)
}

func (a *App) recordBatch(ctx context.Context, deleted int, err error) batchOutcome {
	if err == nil {
		return batchOutcome{deleted: deleted}
	}

	var batchErr *chunkstore.BatchError
	if !errors.As(err, &batchErr) || a.Journal == nil {
		return batchOutcome{deleted: deleted, err: err}
	}

	batch, jErr := a.Journal.Record(ctx, batchErr.Unprocessed, batchErr.Err)
	if jErr != nil {
		a.log.WithError(jErr).Error("failed to journal unprocessed deletes")
		return batchOutcome{deleted: deleted, err: errors.Join(err, jErr)}
	}
	a.log.WithFields(logrus.Fields{
		"batch":       batch.ID,
		"deleted":     deleted,
		"unprocessed": len(batchErr.Unprocessed),
	}).Warn("delete batch journaled")
	return batchOutcome{deleted: deleted, batch: batch, err: err}
}

// Resume 继续一个之前失败的批次
// 全部完成后日志记录被删除；再次失败则更新剩余部分并返回同一个批次
func (a *App) Resume(ctx context.Context, id uuid.UUID) (int, *journal.PendingBatch, error) {
	if a.Journal == nil {
		return 0, nil, ErrJournalDisabled
	}

	batch, err := a.Journal.Get(ctx, id)
	if err != nil {
		return 0, nil, err
	}
	paths, err := batch.PathList()
	if err != nil {
		return 0, nil, fmt.Errorf("corrupted journal entry %s: %w", id, err)
	}

	f := a.Store.DeleteChunks(ctx, chunkstore.NewDeleteQueue(paths...))
	return a.settle(ctx, "resume-journal", f, func(ctx context.Context, deleted int, err error) batchOutcome {
		return a.updateBatch(ctx, batch, deleted, err)
	})
}

func (a *App) updateBatch(ctx context.Context, batch *journal.PendingBatch, deleted int, err error) batchOutcome {
	if err == nil {
		if dErr := a.Journal.Delete(ctx, batch.ID); dErr != nil {
			return batchOutcome{deleted: deleted, err: dErr}
		}
		a.log.WithFields(logrus.Fields{"batch": batch.ID, "deleted": deleted}).Info("delete batch resumed")
		return batchOutcome{deleted: deleted}
	}

	var batchErr *chunkstore.BatchError
	if !errors.As(err, &batchErr) {
		return batchOutcome{deleted: deleted, batch: batch, err: err}
	}
	if uErr := a.Journal.Update(ctx, batch.ID, batch.Version, batchErr.Unprocessed, batchErr.Err); uErr != nil {
		return batchOutcome{deleted: deleted, batch: batch, err: errors.Join(err, uErr)}
	}
	updated, gErr := a.Journal.Get(ctx, batch.ID)
	if gErr != nil {
		return batchOutcome{deleted: deleted, batch: batch, err: err}
	}
	return batchOutcome{deleted: deleted, batch: updated, err: err}
}
