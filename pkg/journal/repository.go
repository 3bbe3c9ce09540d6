package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrBatchNotFound    = errors.New("pending delete batch not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected (CAS failed)")
	ErrEmptyBatch       = errors.New("pending delete batch has no paths")
)

// Repository 封装对 pending_deletes 表的所有操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Record 保存一次失败批量删除的剩余路径
func (r *Repository) Record(ctx context.Context, paths []string, cause error) (*PendingBatch, error) {
	if len(paths) == 0 {
		return nil, ErrEmptyBatch
	}
	raw, err := json.Marshal(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal paths: %w", err)
	}

	batch := PendingBatch{
		ID:        uuid.New(),
		Paths:     datatypes.JSON(raw),
		LastError: errString(cause),
		Attempts:  1,
		Version:   1,
	}
	if err := r.db.GetConn().WithContext(ctx).Create(&batch).Error; err != nil {
		return nil, fmt.Errorf("failed to record pending batch: %w", err)
	}
	return &batch, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*PendingBatch, error) {
	var batch PendingBatch
	err := r.db.GetConn().WithContext(ctx).
		Where("id = ?", id).
		First(&batch).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// List 按创建时间返回待处理的批次，limit <= 0 表示不限制
func (r *Repository) List(ctx context.Context, limit int) ([]PendingBatch, error) {
	var batches []PendingBatch
	q := r.db.GetConn().WithContext(ctx).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&batches).Error
	return batches, err
}

// Update 在又一次失败后记录新的剩余路径 (CAS)
// oldVersion 是调用方读到的版本号，不匹配说明别人已经推进了这个批次
func (r *Repository) Update(ctx context.Context, id uuid.UUID, oldVersion int64, paths []string, cause error) error {
	if len(paths) == 0 {
		return ErrEmptyBatch
	}
	raw, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("failed to marshal paths: %w", err)
	}

	result := r.db.GetConn().WithContext(ctx).
		Model(&PendingBatch{}).
		Where("id = ? AND version = ?", id, oldVersion).
		Updates(map[string]any{
			"paths":      datatypes.JSON(raw),
			"last_error": errString(cause),
			"attempts":   gorm.Expr("attempts + 1"),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

// Delete 在批次全部完成后移除记录
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.GetConn().WithContext(ctx).
		Where("id = ?", id).
		Delete(&PendingBatch{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (r *Repository) missingOrConflict(ctx context.Context, id uuid.UUID) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrConcurrentUpdate
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
