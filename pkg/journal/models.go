package journal

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PendingBatch 是一次失败批量删除的剩余部分
// Paths 的第一个元素就是失败的那个路径
type PendingBatch struct {
	ID uuid.UUID `gorm:"primaryKey;type:varchar(36)"`

	// Paths 是按原顺序保存的逻辑路径 ["/a/x", "/a/y"]
	Paths datatypes.JSON

	LastError string `gorm:"type:text"`

	// Attempts 记录已经失败的次数 (包括第一次)
	Attempts int `gorm:"default:1"`

	// Version 用于乐观锁，防止两个 resume 同时推进同一个批次
	Version int64 `gorm:"default:1"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (PendingBatch) TableName() string {
	return "pending_deletes"
}

// PathList 解码 Paths
func (b *PendingBatch) PathList() ([]string, error) {
	var paths []string
	if len(b.Paths) == 0 {
		return paths, nil
	}
	if err := json.Unmarshal(b.Paths, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}
