package hdfs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/user"
	"strings"

	"chunkstore/pkg/storage"

	gohdfs "github.com/colinmarc/hdfs/v2"
	"github.com/colinmarc/hdfs/v2/hadoopconf"
)

// Config 用于连接 HDFS NameNode
type Config struct {
	// Address 形如 "hdfs://namenode:8020"，多个 NameNode (HA) 用逗号分隔
	// 为空时从 HADOOP_CONF_DIR / HADOOP_HOME 读取 fs.defaultFS
	Address string
	// User 是访问 HDFS 的用户名，为空时取 HADOOP_USER_NAME 或当前系统用户
	User string
}

// Adapter 实现了 storage.FileSystem 接口
// hdfs.Client 本身是阻塞的，但可以被多个 goroutine 并发使用
type Adapter struct {
	client *gohdfs.Client
}

// Dial 连接 HDFS
// 这是一次网络往返，必须在后台执行上下文中调用
func Dial(ctx context.Context, cfg Config) (*Adapter, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := gohdfs.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hdfs %v: %w", opts.Addresses, err)
	}
	return &Adapter{client: client}, nil
}

func clientOptions(cfg Config) (gohdfs.ClientOptions, error) {
	var opts gohdfs.ClientOptions

	if cfg.Address == "" {
		conf, err := hadoopconf.LoadFromEnvironment()
		if err != nil {
			return opts, fmt.Errorf("failed to load hadoop config: %w", err)
		}
		opts = gohdfs.ClientOptionsFromConf(conf)
		if len(opts.Addresses) == 0 {
			return opts, fmt.Errorf("no hdfs address configured and none found in hadoop config")
		}
	} else {
		addrs, err := ParseAddresses(cfg.Address)
		if err != nil {
			return opts, err
		}
		opts.Addresses = addrs
	}

	opts.User = cfg.User
	if opts.User == "" {
		opts.User = os.Getenv("HADOOP_USER_NAME")
	}
	if opts.User == "" {
		u, err := user.Current()
		if err != nil {
			return opts, fmt.Errorf("unable to determine hdfs user: %w", err)
		}
		opts.User = u.Username
	}
	return opts, nil
}

// ParseAddresses 把 "hdfs://nn1:8020,nn2:8020" 解析成 ["nn1:8020", "nn2:8020"]
func ParseAddresses(endpoint string) ([]string, error) {
	var addrs []string
	for _, part := range strings.Split(endpoint, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "://") {
			u, err := url.Parse(part)
			if err != nil {
				return nil, fmt.Errorf("invalid hdfs address %q: %w", part, err)
			}
			if u.Scheme != "hdfs" {
				return nil, fmt.Errorf("invalid hdfs address %q: unsupported scheme %q", part, u.Scheme)
			}
			part = u.Host
		}
		if part == "" {
			return nil, fmt.Errorf("invalid hdfs address %q: missing host", endpoint)
		}
		addrs = append(addrs, part)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("invalid hdfs address %q: empty", endpoint)
	}
	return addrs, nil
}

func (a *Adapter) Stat(ctx context.Context, name string) (storage.FileInfo, error) {
	fi, err := a.client.Stat(name)
	if err != nil {
		return storage.FileInfo{}, err
	}
	if fi.IsDir() {
		return storage.FileInfo{}, &os.PathError{Op: "stat", Path: name, Err: fmt.Errorf("is a directory")}
	}
	return storage.InfoFromOS(fi), nil
}

func (a *Adapter) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := a.client.Open(name)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateExclusive 调用 hdfs Create (不带 overwrite 标志)
// NameNode 在创建时原子地检查文件是否存在，已存在时返回 os.ErrExist
// 注意：HDFS 写入是异步确认的，必须 Close 才算写完
func (a *Adapter) CreateExclusive(ctx context.Context, name string) (io.WriteCloser, error) {
	w, err := a.client.Create(name)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Remove 非递归删除 (等价于 delete(path, recursive=false))
func (a *Adapter) Remove(ctx context.Context, name string) error {
	return a.client.Remove(name)
}

func (a *Adapter) MkdirAll(ctx context.Context, name string) error {
	return a.client.MkdirAll(name, storage.DirPerm)
}

// Close 关闭与 NameNode 的连接
func (a *Adapter) Close() error {
	return a.client.Close()
}
