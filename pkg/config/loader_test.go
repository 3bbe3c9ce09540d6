package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "/chunks", cfg.Storage.Root)
	assert.Equal(t, "hdfs://localhost:8020", cfg.Storage.HDFS.Address)
	assert.Equal(t, 16, cfg.Pool.Size)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "sqlite", cfg.Journal.Driver)
	assert.Equal(t, "localhost", cfg.Journal.Host)
	assert.Equal(t, 5432, cfg.Journal.Port)
	assert.Equal(t, "chunkstore", cfg.Journal.DBName)
	assert.Equal(t, "disable", cfg.Journal.SSLMode)
	assert.False(t, cfg.Journal.Verbose)
}

func TestLoad_FileAndEnv(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	chdir(t, dir)

	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
storage:
  type: hdfs
  root: /warehouse/chunks
  hdfs:
    address: hdfs://nn1:8020
pool:
  size: 4
cache:
  ttl: 5m
`), 0o644))

	// 环境变量优先于配置文件
	t.Setenv("CHUNK_STORAGE_HDFS_USER", "etl")
	t.Setenv("CHUNK_POOL_SIZE", "8")
	t.Setenv("CHUNK_JOURNAL_HOST", "pg.internal")
	t.Setenv("CHUNK_JOURNAL_VERBOSE", "true")

	cfg, err := Load(cfgFile)
	require.NoError(t, err)

	assert.Equal(t, "hdfs", cfg.Storage.Type)
	assert.Equal(t, "/warehouse/chunks", cfg.Storage.Root)
	assert.Equal(t, "hdfs://nn1:8020", cfg.Storage.HDFS.Address)
	assert.Equal(t, "etl", cfg.Storage.HDFS.User)
	assert.Equal(t, 8, cfg.Pool.Size)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "pg.internal", cfg.Journal.Host)
	assert.True(t, cfg.Journal.Verbose)
}

func TestLoad_DotEnv(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(".env", []byte("CHUNK_STORAGE_S3_BUCKET=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("CHUNK_STORAGE_S3_BUCKET") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Storage.S3.Bucket)
}

func TestLoad_BadFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("storage: [unclosed"), 0o644))

	_, err := Load(cfgFile)
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	require.NoError(t, SetupLogging(LogConfig{Level: "debug", Format: "json"}))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	_, ok := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)

	assert.Error(t, SetupLogging(LogConfig{Level: "loud"}))
	assert.Error(t, SetupLogging(LogConfig{Level: "info", Format: "xml"}))
}

// chdir 切换工作目录并在测试结束时恢复（等价于 Go 1.24 的 t.Chdir）
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
