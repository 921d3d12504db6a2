package devlink

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-devlink/internal/core/metrics"
	"github.com/dep2p/go-devlink/internal/core/transport"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置注入
//  2. Metrics: 指标上报器
//  3. Transport: 字节通道注册表
//  4. Host 组件注入
func buildFxApp(o *options, h *Host) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(o.config),
	}
	if o.pipes != nil {
		modules = append(modules, fx.Supply(o.pipes))
	}
	if o.registerer != nil {
		reg := o.registerer
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}
	if o.clock != nil {
		clk := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 核心模块
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		metrics.Module,
		transport.Module(),
	)

	// ════════════════════════════════════════════════════════════════════════
	// 3. Host 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectHostComponents(h, o)))

	// ════════════════════════════════════════════════════════════════════════
	// 4. Fx 配置
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// hostInjectParams Host 组件注入参数
type hostInjectParams struct {
	fx.In

	Registry *transport.Registry
	Reporter metrics.Reporter
}

// injectHostComponents 创建 Host 组件注入函数
//
// 用户注册的连接器在内置连接器之后登记，同名时替换。
func injectHostComponents(h *Host, o *options) interface{} {
	return func(p hostInjectParams) {
		for _, c := range o.connectors {
			p.Registry.Register(c)
		}
		h.registry = p.Registry
		h.reporter = p.Reporter
	}
}
