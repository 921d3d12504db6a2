// Package main 提供 devlink 命令行入口
//
// 子命令：
//
//	devlink emulate  设备模拟器：接受连接，打开流并回显收到的每个包
//	devlink probe    主机探测：建链、打开流、收发若干包并打印吞吐
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/util/logger"
	"github.com/dep2p/go-devlink/pkg/lib/log"
)

var cmdLogger = log.Logger("devlink/cmd")

// commonFlags 各子命令共享的参数
type commonFlags struct {
	configFile string
	channel    string
	logFile    string
	logLevel   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "配置文件路径（.json / .yaml）")
	fs.StringVar(&c.channel, "channel", "", "字节通道 (pipe/tcp/yamux/quic)，默认取配置")
	fs.StringVar(&c.logFile, "log", "", "日志文件路径，默认输出到 stderr")
	fs.StringVar(&c.logLevel, "log-level", "", "日志级别，例如 core/dispatcher=debug,info")
}

// load 加载配置并按命令行参数覆盖
func (c *commonFlags) load() (*config.Config, error) {
	cfg, err := loadConfig(c.configFile)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if c.channel != "" {
		cfg.Channel.Scheme = c.channel
	}
	if c.logFile != "" {
		cfg.Log.File = c.logFile
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	return cfg, cfg.Validate()
}

// setupLogging 安装日志输出，返回值在退出前关闭
func setupLogging(cfg *config.Config) (io.Closer, error) {
	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("设置日志失败: %w", err)
	}
	return closer, nil
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "emulate":
		err = runEmulate(os.Args[2:])
	case "probe":
		err = runProbe(os.Args[2:])
	case "help", "-h", "-help", "--help":
		printHelp()
		return
	default:
		fmt.Fprintf(os.Stderr, "未知子命令: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`devlink - 字节通道上的多路流控链路

用法:
  devlink emulate [参数]   运行设备模拟器
  devlink probe   [参数]   连接设备并测量吞吐

通用参数:
  -config FILE      配置文件（.json / .yaml）
  -channel NAME     字节通道 pipe/tcp/yamux/quic
  -log FILE         日志文件（由 lumberjack 轮转）
  -log-level SPEC   日志级别，例如 core/dispatcher=debug,info

环境变量:
  DEVLINK_CHANNEL      默认字节通道
  DEVLINK_LOG_FILE     日志文件
  DEVLINK_LOG_LEVEL    日志级别
  DEVLINK_LOG_FORMAT   日志格式 text/json

示例:
  devlink emulate -channel tcp -listen 127.0.0.1:7000 -streams telemetry,control
  devlink probe -channel tcp -addr 127.0.0.1:7000 -stream telemetry -size 4096 -count 1000
`)
}
