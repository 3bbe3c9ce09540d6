package chunkstore

import (
	"errors"
	"fmt"

	"chunkstore/pkg/pathutil"
	"chunkstore/pkg/storage"
	"chunkstore/pkg/storage/conn"
)

// 错误类别，调用方用 errors.Is 判断
var (
	ErrConnection  = conn.ErrConnection
	ErrNotFound    = errors.New("chunk not found")
	ErrIO          = errors.New("chunk i/o failed")
	ErrInvalidPath = pathutil.ErrInvalidPath

	// ErrExclusiveCreateConflict 同时满足 errors.Is(err, ErrIO)
	ErrExclusiveCreateConflict = fmt.Errorf("%w: chunk already exists", ErrIO)
)

const (
	opGet    = "get"
	opAdd    = "add"
	opDelete = "delete"
)

// OpError 记录失败的操作、逻辑路径、错误类别和底层原因
type OpError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap 同时暴露类别和原因
func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// opError 根据底层错误推断类别
// missingIsNotFound 只有读路径为 true，写路径上的 "不存在" 属于 I/O 错误
func opError(op, path string, err error, missingIsNotFound bool) error {
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	return &OpError{Op: op, Path: path, Kind: classify(err, missingIsNotFound), Err: err}
}

func classify(err error, missingIsNotFound bool) error {
	switch {
	case errors.Is(err, ErrInvalidPath):
		return ErrInvalidPath
	case errors.Is(err, ErrConnection):
		return ErrConnection
	case missingIsNotFound && storage.IsNotExist(err):
		return ErrNotFound
	case storage.IsExist(err):
		return ErrExclusiveCreateConflict
	default:
		return ErrIO
	}
}

// Kind 返回 err 所属的类别，不属于任何类别时返回 nil
func Kind(err error) error {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return nil
}
