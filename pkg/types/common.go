// pkg/types/common.go
package types

import (
	"encoding/hex"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChunkIDLen 是 ChunkID 的固定长度 (12 字节 ObjectID 的 Hex 编码)
const ChunkIDLen = 24

// ChunkID 是写入时生成的 chunk 文件名
// 结构: 4 字节秒级时间戳 + 5 字节进程随机数 + 3 字节自增计数器
// 唯一性依赖熵与计数器，而不是存在性检查
type ChunkID string

func (id ChunkID) String() string { return string(id) }

func (id ChunkID) IsZero() bool { return id == "" }

// IsValid 检查是否是合法的 24 位 hex 字符串
func (id ChunkID) IsValid() bool {
	if len(id) != ChunkIDLen {
		return false
	}
	_, err := hex.DecodeString(string(id))
	return err == nil
}

// IDGenerator 生成新的 ChunkID
// 测试中可以替换为返回固定值的实现，用来模拟 ID 冲突
type IDGenerator func() ChunkID

// NewChunkID 生成一个全新的 ChunkID (并发安全)
func NewChunkID() ChunkID {
	return ChunkID(primitive.NewObjectID().Hex())
}

// FixedID 返回一个永远生成同一个 ID 的 IDGenerator
func FixedID(id ChunkID) IDGenerator {
	return func() ChunkID { return id }
}
