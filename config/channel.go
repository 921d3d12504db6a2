package config

import (
	"errors"
	"fmt"
	"time"
)

// 支持的字节通道
const (
	SchemePipe  = "pipe"
	SchemeTCP   = "tcp"
	SchemeYamux = "yamux"
	SchemeQUIC  = "quic"
)

// ChannelConfig 字节通道配置
//
// Scheme 选择 Connect 默认使用的通道；其余通道仍可通过 "scheme://" 前缀地址选用。
type ChannelConfig struct {
	// Scheme 默认通道
	Scheme string `json:"scheme" yaml:"scheme"`

	// DialTimeout 建连超时
	DialTimeout Duration `json:"dial_timeout" yaml:"dial_timeout"`

	// TCP 配置
	TCP TCPConfig `json:"tcp" yaml:"tcp"`

	// Yamux 配置
	Yamux YamuxConfig `json:"yamux" yaml:"yamux"`

	// QUIC 配置
	QUIC QUICConfig `json:"quic" yaml:"quic"`
}

// TCPConfig TCP 桥接配置
type TCPConfig struct {
	// NoDelay 是否禁用 Nagle 算法
	NoDelay bool `json:"no_delay" yaml:"no_delay"`

	// KeepAlivePeriod KeepAlive 周期，0 表示系统默认
	KeepAlivePeriod Duration `json:"keep_alive_period" yaml:"keep_alive_period"`
}

// YamuxConfig yamux 会话配置
//
// 同一桥接地址上的多条链路共享一个 yamux 会话，每条链路占用一个 yamux 流。
type YamuxConfig struct {
	// MaxStreamWindowSize 单流接收窗口
	MaxStreamWindowSize uint32 `json:"max_stream_window_size" yaml:"max_stream_window_size"`

	// EnableKeepAlive 是否启用心跳
	EnableKeepAlive bool `json:"enable_keep_alive" yaml:"enable_keep_alive"`

	// KeepAliveInterval 心跳间隔
	KeepAliveInterval Duration `json:"keep_alive_interval" yaml:"keep_alive_interval"`

	// ConnectionWriteTimeout 会话写超时
	ConnectionWriteTimeout Duration `json:"connection_write_timeout" yaml:"connection_write_timeout"`

	// SessionCacheSize 缓存的会话数（按桥接地址）
	SessionCacheSize int `json:"session_cache_size" yaml:"session_cache_size"`
}

// QUICConfig QUIC 通道配置
type QUICConfig struct {
	// ALPN 应用层协议协商标识
	ALPN string `json:"alpn" yaml:"alpn"`

	// MaxIdleTimeout 最大空闲超时
	MaxIdleTimeout Duration `json:"max_idle_timeout" yaml:"max_idle_timeout"`

	// KeepAlivePeriod KeepAlive 周期
	KeepAlivePeriod Duration `json:"keep_alive_period" yaml:"keep_alive_period"`
}

// DefaultChannelConfig 返回默认字节通道配置
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		Scheme:      SchemeTCP,
		DialTimeout: Duration(5 * time.Second),
		TCP: TCPConfig{
			NoDelay: true,
		},
		Yamux: YamuxConfig{
			MaxStreamWindowSize:    256 * 1024,
			EnableKeepAlive:        true,
			KeepAliveInterval:      Duration(30 * time.Second),
			ConnectionWriteTimeout: Duration(10 * time.Second),
			SessionCacheSize:       8,
		},
		QUIC: QUICConfig{
			ALPN:            "devlink",
			MaxIdleTimeout:  Duration(30 * time.Second),
			KeepAlivePeriod: Duration(10 * time.Second),
		},
	}
}

// Validate 验证字节通道配置
func (c ChannelConfig) Validate() error {
	switch c.Scheme {
	case SchemePipe, SchemeTCP, SchemeYamux, SchemeQUIC:
	default:
		return fmt.Errorf("channel.scheme %q is not supported", c.Scheme)
	}
	if c.DialTimeout < 0 {
		return errors.New("channel.dial_timeout must not be negative")
	}
	if c.Yamux.MaxStreamWindowSize < 256*1024 {
		// yamux 要求窗口不小于初始窗口
		return errors.New("channel.yamux.max_stream_window_size must be at least 256KB")
	}
	if c.Yamux.SessionCacheSize <= 0 {
		return errors.New("channel.yamux.session_cache_size must be positive")
	}
	if c.QUIC.ALPN == "" {
		return errors.New("channel.quic.alpn must not be empty")
	}
	return nil
}
