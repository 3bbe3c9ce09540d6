package pathutil

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidPath 表示逻辑路径试图逃逸出存储根目录，或者包含非法字符
var ErrInvalidPath = errors.New("invalid chunk path")

// Separator 是后端存储统一使用的路径分隔符 (HDFS / S3 / afero 都接受 "/")
const Separator = "/"

// Join 用 "/" 拼接路径片段，不会产生重复的分隔符
// 空片段会被忽略，因此 Join(root, "") == root
// 如果第一个非空片段以 "/" 开头，结果也是绝对路径
func Join(elems ...string) string {
	var parts []string
	absolute := false
	for _, e := range elems {
		if e == "" {
			continue
		}
		if len(parts) == 0 && strings.HasPrefix(e, Separator) {
			absolute = true
		}
		parts = append(parts, e)
	}
	if len(parts) == 0 {
		return Separator
	}

	joined := strings.Join(parts, Separator)
	// 折叠 "//" 并去掉尾部的 "/"
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", Separator)
	}
	if len(joined) > 1 {
		joined = strings.TrimSuffix(joined, Separator)
	}
	if absolute && !strings.HasPrefix(joined, Separator) {
		joined = Separator + joined
	}
	return joined
}

// Folder 规范化调用方传入的目标目录
// 空目录默认为根目录 "/"
func Folder(folder string) string {
	if folder == "" {
		return Separator
	}
	return Join(Separator, folder)
}

// Validate 检查逻辑路径是否安全
// 任何 ".." 片段都直接拒绝，不做规范化
func Validate(logical string) error {
	if strings.ContainsRune(logical, 0) {
		return fmt.Errorf("%w: %q contains NUL byte", ErrInvalidPath, logical)
	}
	if strings.Contains(logical, `\`) {
		return fmt.Errorf("%w: %q contains backslash", ErrInvalidPath, logical)
	}
	for _, seg := range strings.Split(logical, Separator) {
		if seg == ".." {
			return fmt.Errorf("%w: %q escapes the storage root", ErrInvalidPath, logical)
		}
	}
	return nil
}

// Resolver 把逻辑路径映射为后端的物理路径
type Resolver struct {
	root string
}

// NewResolver 创建一个以 root 为根的 Resolver
// root 为空时使用 "/"
func NewResolver(root string) (*Resolver, error) {
	if err := Validate(root); err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	return &Resolver{root: Join(Separator, path.Clean(Join(root)))}, nil
}

// Root 返回配置的存储根目录
func (r *Resolver) Root() string {
	return r.root
}

// Resolve 返回 join(root, logical)
// 结果保证位于 root 之下 (或者等于 root)
func (r *Resolver) Resolve(logical string) (string, error) {
	if err := Validate(logical); err != nil {
		return "", err
	}
	physical := Join(r.root, path.Clean(Join(Separator, logical)))

	// Clean 之后仍然必须以 root 为前缀
	if physical != r.root && r.root != Separator && !strings.HasPrefix(physical, r.root+Separator) {
		return "", fmt.Errorf("%w: %q resolves outside %q", ErrInvalidPath, logical, r.root)
	}
	return physical, nil
}
