package transport

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/transport/pipe"
	"github.com/dep2p/go-devlink/internal/core/transport/quic"
	"github.com/dep2p/go-devlink/internal/core/transport/tcp"
	"github.com/dep2p/go-devlink/internal/core/transport/yamux"
)

// Params 传输层依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Pipes      *pipe.Network  `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideRegistry),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideRegistry 创建包含全部内置传输的注册表
func ProvideRegistry(p Params) (*Registry, error) {
	cfg := config.DefaultChannelConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Channel
	}
	return NewDefaultRegistry(cfg, p.Pipes)
}

// NewDefaultRegistry 创建包含全部内置传输的注册表
//
// pipes 为空时创建独立的进程内名称空间。
func NewDefaultRegistry(cfg config.ChannelConfig, pipes *pipe.Network) (*Registry, error) {
	if pipes == nil {
		pipes = pipe.NewNetwork()
	}
	ym, err := yamux.New(cfg)
	if err != nil {
		return nil, err
	}
	r := NewRegistry(cfg.Scheme,
		pipes.Connector(),
		tcp.New(cfg),
		ym,
		quic.New(cfg),
	)
	logger.Debug("传输注册表已创建", "default", cfg.Scheme, "schemes", r.Schemes())
	return r, nil
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, r *Registry) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return r.Close()
		},
	})
}
