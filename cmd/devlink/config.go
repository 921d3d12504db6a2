package main

import (
	"os"
	"strings"

	"github.com/dep2p/go-devlink/config"
)

// ============================================================================
//                              配置加载（CLI 专用）
// ============================================================================

// 环境变量
const (
	envChannel = "DEVLINK_CHANNEL"
	envLogFile = "DEVLINK_LOG_FILE"
)

// loadConfig 加载配置文件，path 为空时返回默认配置
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewConfig(), nil
	}
	return config.Load(path)
}

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv(envChannel); v != "" {
		cfg.Channel.Scheme = v
	}
	if v := os.Getenv(envLogFile); v != "" {
		cfg.Log.File = v
	}
}

// splitAndTrim 分割字符串并去除空白项
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
