package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"chunkstore/pkg/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Adapter 实现了 storage.FileSystem 接口
// S3 没有真正的目录，物理路径 "/a/b" 对应 Key "a/b"
type Adapter struct {
	client *s3.Client
	bucket string
}

// Config 用于初始化 Adapter
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewAdapter 初始化 S3 客户端 (适配 AWS SDK v2 最新规范)
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	// 1. 加载基础配置 (仅包含 Region 和 Credentials)
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	// 2. 创建 S3 客户端时，注入特定于 S3 的配置
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// 如果指定了 Endpoint (比如 MinIO 的 localhost:9000)，则覆盖默认值
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO 必须强制使用 Path Style
		o.UsePathStyle = true
	})

	// 3. 确认 Bucket 可访问，这里失败就是连接失败
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("s3 bucket %s not reachable: %w", cfg.Bucket, err)
	}

	return &Adapter{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// transformKey 把物理路径转换为 S3 Key
// Logic: "/root/a/b" -> "root/a/b"
func (s *Adapter) transformKey(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

func (s *Adapter) Stat(ctx context.Context, name string) (storage.FileInfo, error) {
	key := s.transformKey(name)

	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return storage.FileInfo{}, s.transformError("stat", name, err)
	}

	info := storage.FileInfo{
		Name: path.Base(key),
		Size: aws.ToInt64(resp.ContentLength),
	}
	if resp.LastModified != nil {
		info.ModTime = *resp.LastModified
	}
	return info, nil
}

func (s *Adapter) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.transformKey(name)),
	})
	if err != nil {
		return nil, s.transformError("open", name, err)
	}
	return resp.Body, nil
}

// CreateExclusive 返回一个缓冲 Writer，Close 时才真正上传
// 上传使用 If-None-Match: *，对象已存在时 S3 返回 412，映射为 os.ErrExist
func (s *Adapter) CreateExclusive(ctx context.Context, name string) (io.WriteCloser, error) {
	return &objectWriter{ctx: ctx, adapter: s, name: name}, nil
}

// Remove 删除对象
// S3 的 DeleteObject 对不存在的 Key 也返回成功
func (s *Adapter) Remove(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.transformKey(name)),
	})
	if err != nil {
		return s.transformError("remove", name, err)
	}
	return nil
}

// MkdirAll 在 S3 上没有意义
func (s *Adapter) MkdirAll(ctx context.Context, name string) error {
	return nil
}

func (s *Adapter) put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.transformKey(name)),
		Body:        bytes.NewReader(data),
		IfNoneMatch: aws.String("*"),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return s.transformError("create", name, err)
	}
	return nil
}

// transformError 将 AWS 的错误映射为 fs 错误
func (s *Adapter) transformError(op, name string, err error) error {
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			// 兼容性：某些 S3 实现只返回 generic 404
			return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
		case "PreconditionFailed", "ConditionalRequestConflict":
			return &os.PathError{Op: op, Path: name, Err: os.ErrExist}
		case "AccessDenied", "Forbidden":
			return &os.PathError{Op: op, Path: name, Err: os.ErrPermission}
		}
	}
	return fmt.Errorf("s3 %s %s failed: %w", op, name, err)
}

// objectWriter 在内存中缓冲整个 chunk
// chunk 本来就是完整的内存负载，所以这里不做分片上传
type objectWriter struct {
	ctx     context.Context
	adapter *Adapter
	name    string
	buf     bytes.Buffer
	closed  bool
}

func (w *objectWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *objectWriter) Close() error {
	if w.closed {
		return os.ErrClosed
	}
	w.closed = true
	return w.adapter.put(w.ctx, w.name, w.buf.Bytes())
}
