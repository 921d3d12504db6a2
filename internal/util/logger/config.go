package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/dep2p/go-devlink/config"
)

// 环境变量
const (
	// EnvLogLevel 覆盖 LogConfig.Level
	EnvLogLevel = "DEVLINK_LOG_LEVEL"

	// EnvLogFormat 覆盖 LogConfig.Format
	EnvLogFormat = "DEVLINK_LOG_FORMAT"
)

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// Levels 子系统日志级别表
type Levels struct {
	// Default 默认日志级别
	Default slog.Level

	// Subsystems 各子系统的日志级别
	Subsystems map[string]slog.Level
}

// For 获取指定子系统的日志级别
//
// 子系统按最长前缀匹配，"core" 的级别同样作用于 "core/dispatcher"。
func (l Levels) For(subsystem string) slog.Level {
	best := -1
	level := l.Default
	for name, lvl := range l.Subsystems {
		if (subsystem == name || strings.HasPrefix(subsystem, name+"/")) && len(name) > best {
			best = len(name)
			level = lvl
		}
	}
	return level
}

// ParseLevels 解析日志级别配置字符串
//
// 格式: subsystem=level,subsystem=level,defaultLevel
// 示例: core/dispatcher=debug,core/channel=warn,info
func ParseLevels(s string) Levels {
	levels := Levels{
		Default:    slog.LevelInfo,
		Subsystems: make(map[string]slog.Level),
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, lvl, ok := strings.Cut(part, "="); ok {
			if level, ok := parseLevel(strings.TrimSpace(lvl)); ok {
				levels.Subsystems[strings.TrimSpace(name)] = level
			}
			continue
		}
		if level, ok := parseLevel(part); ok {
			levels.Default = level
		}
	}
	return levels
}

// parseFormat 解析日志格式
func parseFormat(s string) LogFormat {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

// applyEnv 用环境变量覆盖配置
func applyEnv(cfg config.LogConfig) config.LogConfig {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Format = v
	}
	return cfg
}

// parseLevel 解析日志级别名称
func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
