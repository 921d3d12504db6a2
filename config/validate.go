package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置的有效性
//
// 这是 Config.Validate() 的别名，额外处理 nil。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 写容量对齐为 0 -> 使用默认值
//   - 重复事件策略为空 -> 使用 log
//   - 日志格式为空 -> 使用 text
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	if c.Link.StreamAlign == 0 {
		c.Link.StreamAlign = DefaultLinkConfig().StreamAlign
	}
	if c.Link.DuplicatePolicy == "" {
		c.Link.DuplicatePolicy = DuplicateLog
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Channel.Scheme == "" {
		c.Channel.Scheme = SchemeTCP
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}
	return c, nil
}

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
}
