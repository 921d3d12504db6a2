package config

import (
	"errors"
	"fmt"
	"strings"
)

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，支持按子系统配置
	// 格式: 子系统=级别,子系统=级别,默认级别
	// 示例: dispatcher=debug,channel=warn,info
	Level string `json:"level" yaml:"level"`

	// Format 输出格式（text / json）
	Format string `json:"format" yaml:"format"`

	// File 日志文件路径，为空时输出到 stderr
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// MaxSizeMB 单个日志文件上限（MB）
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups 保留的轮转文件数
	MaxBackups int `json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays 轮转文件保留天数
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days"`

	// Compress 是否压缩轮转文件
	Compress bool `json:"compress" yaml:"compress"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "text",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Format)
	}
	if c.File != "" && c.MaxSizeMB <= 0 {
		return errors.New("log.max_size_mb must be positive when log.file is set")
	}
	return nil
}
