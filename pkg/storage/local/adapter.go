package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chunkstore/pkg/storage"

	"github.com/spf13/afero"
)

// Adapter 实现了 storage.FileSystem 接口
// 底层是 afero.Fs：生产环境用 OsFs，测试用 MemMapFs
type Adapter struct {
	fs afero.Fs
}

// NewAdapter 包装一个已有的 afero.Fs
func NewAdapter(fs afero.Fs) *Adapter {
	return &Adapter{fs: fs}
}

// NewDiskAdapter 创建一个以 baseDir 为根的本地磁盘适配器
// 物理路径 "/a/b" 会落到 baseDir/a/b
func NewDiskAdapter(baseDir string) (*Adapter, error) {
	// 确保根目录存在
	if err := os.MkdirAll(baseDir, storage.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	return &Adapter{fs: afero.NewBasePathFs(afero.NewOsFs(), baseDir)}, nil
}

// NewMemoryAdapter 创建一个纯内存的适配器 (测试 & storage.type=memory)
func NewMemoryAdapter() *Adapter {
	return &Adapter{fs: afero.NewMemMapFs()}
}

// Fs 暴露底层 afero.Fs，方便测试直接预置文件
func (a *Adapter) Fs() afero.Fs {
	return a.fs
}

func (a *Adapter) Stat(ctx context.Context, name string) (storage.FileInfo, error) {
	fi, err := a.fs.Stat(name)
	if err != nil {
		return storage.FileInfo{}, err
	}
	if fi.IsDir() {
		return storage.FileInfo{}, &os.PathError{Op: "stat", Path: name, Err: fmt.Errorf("is a directory")}
	}
	return storage.InfoFromOS(fi), nil
}

func (a *Adapter) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := a.fs.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// CreateExclusive 使用 O_EXCL：文件已存在时返回 os.ErrExist
func (a *Adapter) CreateExclusive(ctx context.Context, name string) (io.WriteCloser, error) {
	f, err := a.fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, storage.FilePerm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Remove 只删除单个文件或空目录
func (a *Adapter) Remove(ctx context.Context, name string) error {
	return a.fs.Remove(name)
}

func (a *Adapter) MkdirAll(ctx context.Context, name string) error {
	return a.fs.MkdirAll(filepath.FromSlash(name), storage.DirPerm)
}
