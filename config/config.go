// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 或 YAML 加载配置
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Channel.Scheme = "yamux"
//	cfg.Link.MaxStreams = 16
//
//	// 从文件加载（按扩展名选择 JSON / YAML）
//	cfg, err := config.Load("devlink.yaml")
package config

// Config 是 devlink 的完整配置结构
//
// 配置按照功能模块组织：
//   - Link: 链路、流、事件队列的容量与线上格式参数
//   - Channel: 字节通道（pipe/tcp/yamux/quic）
//   - Metrics: Prometheus 指标
//   - Log: 日志输出
type Config struct {
	// Link 链路配置
	Link LinkConfig `json:"link" yaml:"link"`

	// Channel 字节通道配置
	Channel ChannelConfig `json:"channel" yaml:"channel"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log" yaml:"log"`
}

// NewConfig 创建默认配置
//
// 返回的配置使用所有组件的默认值，适用于大多数场景。
func NewConfig() *Config {
	return &Config{
		Link:    DefaultLinkConfig(),
		Channel: DefaultChannelConfig(),
		Metrics: DefaultMetricsConfig(),
		Log:     DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置是否有效，如果发现无效配置则返回错误。
func (c *Config) Validate() error {
	if err := c.Link.Validate(); err != nil {
		return err
	}
	if err := c.Channel.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}
