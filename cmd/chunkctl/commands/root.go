package commands

import (
	"fmt"
	"os"

	"chunkstore/pkg/app"
	"chunkstore/pkg/client"
	"chunkstore/pkg/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	remoteAddr string

	// Cfg 是加载后的配置
	Cfg *config.Config
	// CS 是全局后端实例，供子命令使用
	CS Backend
)

var rootCmd = &cobra.Command{
	Use:          "chunkctl",
	Short:        "chunkctl: store, fetch and delete opaque chunks",
	SilenceUsage: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 测试中可以预先注入 CS
		if CS != nil {
			return nil
		}

		if remoteAddr != "" {
			cli, err := client.NewChunkClient(remoteAddr)
			if err != nil {
				return err
			}
			CS = &remoteBackend{cli: cli}
			return nil
		}

		application, err := app.NewApp(cmd.Context(), Cfg, logrus.NewEntry(logrus.StandardLogger()))
		if err != nil {
			return fmt.Errorf("failed to initialize chunkstore: %w", err)
		}
		CS = &localBackend{app: application}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if CS == nil {
			return nil
		}
		err := CS.Close()
		CS = nil
		return err
	},
}

// Execute 是入口
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// 1. 全局参数
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.chunkstore/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&remoteAddr, "remote", "", "chunkd address (host:port); empty means operate on local storage")

	// 2. 存储参数绑定到 Viper，flag 优先于 yaml 和环境变量
	flags := []struct{ name, key, usage string }{
		{"storage-type", "storage.type", "backend: hdfs | local | memory | s3"},
		{"storage-root", "storage.root", "root directory for all chunks"},
		{"hdfs-address", "storage.hdfs.address", "namenode address, e.g. hdfs://namenode:8020"},
		{"log-level", "log.level", "log level"},
	}
	for _, f := range flags {
		rootCmd.PersistentFlags().String(f.name, "", f.usage)
		if err := viper.BindPFlag(f.key, rootCmd.PersistentFlags().Lookup(f.name)); err != nil {
			fmt.Println("Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
	if err := config.SetupLogging(cfg.Log); err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
	Cfg = cfg
}
