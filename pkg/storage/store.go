package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"time"
)

var (
	// ErrNotFound 与 fs.ErrNotExist 等价，方便 errors.Is 判断
	ErrNotFound = fs.ErrNotExist
	// ErrExists 与 fs.ErrExist 等价：独占创建时目标已存在
	ErrExists = fs.ErrExist
)

// FileInfo 是 chunk 在后端上的元数据
type FileInfo struct {
	Name    string    `cbor:"1,keyasint"`
	Size    int64     `cbor:"2,keyasint"`
	ModTime time.Time `cbor:"3,keyasint"`
}

// FileSystem 是层级化后端存储的阻塞接口 (HDFS、本地磁盘、S3 ...)
// 所有方法都可能长时间阻塞，调用方必须把它们放到后台执行
// 路径都是物理路径 (已经拼接过存储根目录)
//
// 错误约定：
//   - 路径不存在时 errors.Is(err, fs.ErrNotExist) 为 true
//   - 独占创建遇到已存在文件时 errors.Is(err, fs.ErrExist) 为 true
//   - 权限问题时 errors.Is(err, fs.ErrPermission) 为 true
type FileSystem interface {
	// Stat 读取元数据 (主要是 Size)
	Stat(ctx context.Context, name string) (FileInfo, error)

	// Open 打开一个从 offset 0 开始的字节流，调用方负责 Close
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// CreateExclusive 以独占方式创建文件，文件已存在则失败，绝不覆盖
	CreateExclusive(ctx context.Context, name string) (io.WriteCloser, error)

	// Remove 非递归删除一个文件 (或空目录)
	Remove(ctx context.Context, name string) error

	// MkdirAll 确保目录存在
	MkdirAll(ctx context.Context, name string) error
}

// IsNotExist 判断 err 是否表示路径不存在
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsExist 判断 err 是否表示目标已存在
func IsExist(err error) bool {
	return errors.Is(err, fs.ErrExist)
}

// InfoFromOS 把 os.FileInfo 转换为 FileInfo
func InfoFromOS(fi os.FileInfo) FileInfo {
	return FileInfo{
		Name:    fi.Name(),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}
}

// DirPerm 是后端创建目录时使用的权限
const DirPerm os.FileMode = 0o755

// FilePerm 是后端创建 chunk 文件时使用的权限
const FilePerm os.FileMode = 0o644
