package devlink

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/transport/pipe"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 统一配置
	config *config.Config

	// 额外注册的连接器，同名时替换内置实现
	connectors []channel.Connector

	// 进程内 pipe 名称空间
	pipes *pipe.Network

	// 吞吐统计与指标使用的时钟
	clock clock.Clock

	// 指标注册器
	registerer prometheus.Registerer
}

func newOptions() *options {
	return &options{
		config: config.NewConfig(),
	}
}

// WithConfig 使用完整配置
//
// 配置被复制，之后修改 cfg 不影响 Host。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.config = config.CloneConfig(cfg)
		return nil
	}
}

// WithConfigFile 从 JSON 或 YAML 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		o.config = cfg
		return nil
	}
}

// WithChannel 设置默认字节通道（pipe / tcp / yamux / quic）
func WithChannel(scheme string) Option {
	return func(o *options) error {
		o.config.Channel.Scheme = scheme
		return nil
	}
}

// WithMaxLinks 设置同时活跃的链路上限
func WithMaxLinks(n int) Option {
	return func(o *options) error {
		o.config.Link.MaxLinks = n
		return nil
	}
}

// WithConnector 注册自定义字节通道
//
// 地址以 "scheme://" 开头时选用 Scheme() 相同的连接器。
func WithConnector(c channel.Connector) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("connector is nil")
		}
		o.connectors = append(o.connectors, c)
		return nil
	}
}

// WithPipes 使用指定的进程内 pipe 名称空间
//
// 同一名称空间内的 Host 可以经 "pipe://name" 互联。
func WithPipes(n *pipe.Network) Option {
	return func(o *options) error {
		o.pipes = n
		return nil
	}
}

// WithClock 设置时钟，测试中可注入 clock.Mock
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithRegisterer 将指标注册到 reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithMetrics 启用或关闭指标收集
func WithMetrics(enabled bool) Option {
	return func(o *options) error {
		o.config.Metrics.Enabled = enabled
		return nil
	}
}
