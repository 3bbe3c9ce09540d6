package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 是 viper 配置的强类型视图
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Journal JournalConfig `mapstructure:"journal"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

type StorageConfig struct {
	Type  string      `mapstructure:"type"` // hdfs | local | memory | s3
	Root  string      `mapstructure:"root"` // 所有 chunk 的物理根目录
	Local LocalConfig `mapstructure:"local"`
	HDFS  HDFSConfig  `mapstructure:"hdfs"`
	S3    S3Config    `mapstructure:"s3"`
}

type LocalConfig struct {
	Path string `mapstructure:"path"`
}

type HDFSConfig struct {
	Address string `mapstructure:"address"` // hdfs://host:port
	User    string `mapstructure:"user"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type CacheConfig struct {
	RedisURL string        `mapstructure:"redis_url"` // 为空表示不启用缓存
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

type PoolConfig struct {
	Size int `mapstructure:"size"`
}

type JournalConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres | none
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"` // 非空时忽略下面的 postgres 字段

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	Verbose bool `mapstructure:"verbose"` // 打印 SQL
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // 为空表示不暴露 /metrics
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) (*Config, error) {
	// 0. .env 只补充尚未设置的环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 1. 设置默认值 (Defaults)
	SetDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(".chunkstore")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".chunkstore"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// 3. 读取环境变量 (CHUNK_STORAGE_TYPE 等)
	viper.SetEnvPrefix("CHUNK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("fatal error config file: %w", err)
		}
		logrus.Debug("no config file found, using defaults/env vars")
	} else {
		logrus.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
	}

	return FromViper()
}

// FromViper 把当前 viper 状态解码为 Config
func FromViper() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults 注册所有键的默认值
// AutomaticEnv 只对 viper 知道的键生效，所以没有默认值的键也要注册成 ""
func SetDefaults() {
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.root", "/chunks")
	viper.SetDefault("storage.local.path", filepath.Join(".chunkstore", "data"))
	viper.SetDefault("storage.hdfs.address", "hdfs://localhost:8020")
	viper.SetDefault("storage.hdfs.user", "")
	viper.SetDefault("storage.s3.endpoint", "")
	viper.SetDefault("storage.s3.region", "us-east-1")
	viper.SetDefault("storage.s3.bucket", "")
	viper.SetDefault("storage.s3.access_key", "")
	viper.SetDefault("storage.s3.secret_key", "")

	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.ttl", time.Hour)
	viper.SetDefault("cache.prefix", "chunk:stat:")

	viper.SetDefault("pool.size", 16)

	viper.SetDefault("journal.driver", "sqlite")
	viper.SetDefault("journal.path", filepath.Join(".chunkstore", "journal.db"))
	viper.SetDefault("journal.dsn", "")
	viper.SetDefault("journal.host", "localhost")
	viper.SetDefault("journal.port", 5432)
	viper.SetDefault("journal.user", "postgres")
	viper.SetDefault("journal.password", "")
	viper.SetDefault("journal.dbname", "chunkstore")
	viper.SetDefault("journal.sslmode", "disable")
	viper.SetDefault("journal.verbose", false)

	viper.SetDefault("server.addr", ":9090")
	viper.SetDefault("metrics.addr", ":9091")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}
