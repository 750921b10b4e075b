// client 足球联机客户端
//
// 用法:
//
//	client view     - 打开俯视调试窗口并加入比赛
//	client probe    - 无窗口连接服务器，定期打印同步状态
//
// 全局参数:
//
//	--config <path>     配置文件路径（默认按 ~/.soccer/configs、./configs、内置顺序查找）
//	--addr <host:port>  覆盖服务器地址
//	--proto <tcp|kcp|ws>
//	--name <name>       玩家名
//	--room <id>         房间
//	--log-level <level>
package main

import (
	"fmt"
	"os"

	"soccer/internal/config"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagAddr     string
	flagProto    string
	flagName     string
	flagRoom     string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "client",
	Short: "足球联机客户端",
	Long: `足球联机客户端：快照插值、本地预测与服务器纠正、事件延迟补偿、自适应画质。

示例:
  client view --addr 127.0.0.1:7350 --proto kcp
  client probe --proto ws --duration 30s`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "", "服务器地址（覆盖配置）")
	rootCmd.PersistentFlags().StringVar(&flagProto, "proto", "", "传输协议 tcp/kcp/ws（覆盖配置）")
	rootCmd.PersistentFlags().StringVar(&flagName, "name", "", "玩家名（覆盖配置）")
	rootCmd.PersistentFlags().StringVar(&flagRoom, "room", "", "房间 ID（覆盖配置）")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "日志级别 debug/info/warn/error")

	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(probeCmd)
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	if flagAddr != "" {
		cfg.Network.Address = flagAddr
	}
	if flagProto != "" {
		cfg.Network.Protocol = flagProto
	}
	if flagName != "" {
		cfg.Network.PlayerName = flagName
	}
	if flagRoom != "" {
		cfg.Network.RoomID = flagRoom
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, cfg.Validate()
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "soccer",
	})
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("未知日志级别，使用 info", "level", level)
	}
	return logger
}
