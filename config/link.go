package config

import (
	"errors"
	"fmt"
	"time"
)

// 重复事件处理策略
const (
	// DuplicateLog 记录告警并丢弃重复事件
	DuplicateLog = "log"

	// DuplicateAbort 视为协议违规，复位链路
	DuplicateAbort = "abort"
)

// LinkConfig 链路配置
//
// 同一条链路两端的 NameLength 必须一致，否则线上头部长度不同。
type LinkConfig struct {
	// MaxLinks 同时活跃的链路上限
	MaxLinks int `json:"max_links" yaml:"max_links"`

	// MaxStreams 每条链路的流上限
	MaxStreams int `json:"max_streams" yaml:"max_streams"`

	// MaxPacketsPerStream 每个流的接收环形缓冲容量（包数）
	MaxPacketsPerStream int `json:"max_packets_per_stream" yaml:"max_packets_per_stream"`

	// MaxEvents 每个事件队列（本地/远端）的槽位数
	MaxEvents int `json:"max_events" yaml:"max_events"`

	// NameLength 线上头部中流名称字段的固定长度
	NameLength int `json:"name_length" yaml:"name_length"`

	// StreamAlign 打开流时写容量向上对齐的字节数（2 的幂）
	StreamAlign uint32 `json:"stream_align" yaml:"stream_align"`

	// DataTimeout 负载读写超时
	DataTimeout Duration `json:"data_timeout" yaml:"data_timeout"`

	// DuplicatePolicy 重复事件处理策略（log / abort）
	DuplicatePolicy string `json:"duplicate_policy" yaml:"duplicate_policy"`

	// DuplicateLogRate 重复事件告警的每秒上限
	DuplicateLogRate float64 `json:"duplicate_log_rate" yaml:"duplicate_log_rate"`
}

// DefaultLinkConfig 返回默认链路配置
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		MaxLinks:            16,
		MaxStreams:          8,
		MaxPacketsPerStream: 64,
		MaxEvents:           64,
		NameLength:          16,
		StreamAlign:         64,
		DataTimeout:         Duration(2 * time.Second),
		DuplicatePolicy:     DuplicateLog,
		DuplicateLogRate:    1,
	}
}

// Validate 验证链路配置
func (c LinkConfig) Validate() error {
	if c.MaxLinks <= 0 || c.MaxLinks >= 0xFF {
		return fmt.Errorf("link.max_links must be in [1, 254], got %d", c.MaxLinks)
	}
	if c.MaxStreams <= 0 {
		return errors.New("link.max_streams must be positive")
	}
	if c.MaxPacketsPerStream <= 0 {
		return errors.New("link.max_packets_per_stream must be positive")
	}
	if c.MaxEvents <= 0 {
		return errors.New("link.max_events must be positive")
	}
	if c.NameLength <= 0 || c.NameLength > 255 {
		return fmt.Errorf("link.name_length must be in [1, 255], got %d", c.NameLength)
	}
	if c.StreamAlign == 0 || c.StreamAlign&(c.StreamAlign-1) != 0 {
		return fmt.Errorf("link.stream_align must be a power of two, got %d", c.StreamAlign)
	}
	if c.DataTimeout < 0 {
		return errors.New("link.data_timeout must not be negative")
	}
	switch c.DuplicatePolicy {
	case DuplicateLog, DuplicateAbort:
	default:
		return fmt.Errorf("link.duplicate_policy must be %q or %q, got %q",
			DuplicateLog, DuplicateAbort, c.DuplicatePolicy)
	}
	if c.DuplicateLogRate < 0 {
		return errors.New("link.duplicate_log_rate must not be negative")
	}
	return nil
}
