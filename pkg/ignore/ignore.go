package ignore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName 是用户自定义忽略规则的文件名
const FileName = ".chunkignore"

// DefaultRules 总是生效，.chunkignore 只能在此基础上追加
var DefaultRules = []string{
	".chunkstore", // 本地数据和删除日志
	".git",
	"config.yaml", // 可能带着 S3 密钥
	".env",
	FileName,
	".DS_Store",
	"Thumbs.db",
}

// Matcher 判断 chunkctl push 时哪些文件要跳过
type Matcher struct {
	ignorer *gitignore.GitIgnore
}

// NewMatcher 编译默认规则和 rootPath 下的 .chunkignore (如果有)
func NewMatcher(rootPath string) (*Matcher, error) {
	userFile := filepath.Join(rootPath, FileName)
	if _, err := os.Stat(userFile); err != nil {
		return &Matcher{ignorer: gitignore.CompileIgnoreLines(DefaultRules...)}, nil
	}

	ignorer, err := gitignore.CompileIgnoreFileAndLines(userFile, DefaultRules...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", userFile, err)
	}
	return &Matcher{ignorer: ignorer}, nil
}

// Matches 对相对路径 (slash 分隔) 返回 true 表示跳过
func (m *Matcher) Matches(rel string) bool {
	return m.ignorer != nil && m.ignorer.MatchesPath(rel)
}

// Walk 遍历 root 下所有未被忽略的普通文件
// fn 收到的是相对路径 (slash 分隔)，被忽略的目录整体跳过
func (m *Matcher) Walk(root string, fn func(rel string) error) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if m.Matches(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(rel)
	})
}
