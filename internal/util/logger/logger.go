// Package logger 配置 devlink 的全局日志输出
//
// 各组件通过 pkg/lib/log.Logger("core/dispatcher") 记录日志，
// 本包负责在进程启动时安装默认 slog handler：
//   - 按组件配置日志级别（最长前缀匹配）
//   - 文本或 JSON 格式
//   - 可选的文件输出，由 lumberjack 负责轮转
//
// 环境变量配置:
//
//	# 设置所有模块为 info，dispatcher 为 debug
//	DEVLINK_LOG_LEVEL=core/dispatcher=debug,info
//
//	# 使用 JSON 格式输出
//	DEVLINK_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/pkg/lib/log"
)

// nopCloser 输出到 stderr 时的关闭器
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup 按配置安装默认 logger
//
// 返回的 io.Closer 在进程退出前关闭日志文件。
func Setup(cfg config.LogConfig) (io.Closer, error) {
	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out, closer = rotator, rotator
	}

	log.SetDefault(New(out, ParseLevels(cfg.Level), parseFormat(cfg.Format)))
	return closer, nil
}

// New 创建按组件过滤级别的 logger
func New(w io.Writer, levels Levels, format LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{
		// 级别由 componentHandler 判定
		Level:       slog.LevelDebug,
		ReplaceAttr: replaceAttr,
	}

	var inner slog.Handler
	if format == FormatJSON {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(newComponentHandler(inner, levels))
}

// Discard 返回一个丢弃所有日志的 Logger
//
// 主要用于测试，避免日志输出干扰测试结果。
func Discard() *slog.Logger {
	return slog.New(DiscardHandler())
}
