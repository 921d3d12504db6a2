package devlink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/link"
	"github.com/dep2p/go-devlink/internal/core/metrics"
	"github.com/dep2p/go-devlink/internal/core/transport"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/lib/log"
	"github.com/dep2p/go-devlink/pkg/types"
)

var logger = log.Logger("devlink")

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期常量
// ════════════════════════════════════════════════════════════════════════════

const (
	// initializeTimeout 初始化超时（Fx App Start）
	initializeTimeout = 30 * time.Second

	// stopTimeout 关闭超时（Fx App Stop）
	stopTimeout = 10 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Host 结构
// ════════════════════════════════════════════════════════════════════════════

// Host 链路表的持有者
//
// 每个 Host 拥有独立的链路表、字节通道注册表和吞吐统计，
// 同一进程内可以创建多个 Host 互不干扰。
type Host struct {
	cfg   *config.Config
	app   *fx.App
	clock clock.Clock

	// 由 Fx 注入
	registry *transport.Registry
	reporter metrics.Reporter

	links *link.Table
	prof  profiler

	// connectMu 串行化建链，同一地址不会并发建出两条链路
	connectMu sync.Mutex

	mu        sync.Mutex
	started   bool
	closed    bool
	listeners []channel.Listener
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建 Host
//
// 创建 Host 但不启动，需要调用 Start() 启动。
//
// 示例：
//
//	host, err := devlink.New(
//	    devlink.WithChannel("yamux"),
//	    devlink.WithMaxLinks(4),
//	)
func New(opts ...Option) (*Host, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	clk := o.clock
	if clk == nil {
		clk = clock.New()
	}
	h := &Host{
		cfg:   o.config,
		clock: clk,
		links: link.NewTable(o.config.Link.MaxLinks),
	}

	var err error
	h.app, err = buildFxApp(o, h)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return h, nil
}

// Start 快捷启动函数
//
// 等价于 New() + Host.Start()。
func Start(ctx context.Context, opts ...Option) (*Host, error) {
	h, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := h.Start(ctx); err != nil {
		return nil, fmt.Errorf("start host: %w", err)
	}
	return h, nil
}

// Start 启动 Host
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	if h.started {
		return ErrAlreadyStarted
	}

	initCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()
	if err := h.app.Start(initCtx); err != nil {
		logger.Error("Host 初始化失败", "error", err)
		return fmt.Errorf("initialize failed: %w", err)
	}

	h.started = true
	logger.Info("Host 已启动",
		"channel", h.cfg.Channel.Scheme,
		"schemes", h.registry.Schemes(),
		"maxLinks", h.cfg.Link.MaxLinks)
	return nil
}

// Close 关闭 Host
//
// 停止全部监听，终止全部链路（未完成的调用以 ErrCommunicationFail 返回），
// 然后停止 Fx 应用。重复调用是安全的。
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	started := h.started
	listeners := h.listeners
	h.listeners = nil
	h.mu.Unlock()

	var errs error
	for _, ln := range listeners {
		errs = multierr.Append(errs, ln.Close())
	}
	for _, l := range h.links.All() {
		errs = multierr.Append(errs, l.Close())
	}

	if started {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		errs = multierr.Append(errs, h.app.Stop(stopCtx))
	}

	logger.Info("Host 已关闭")
	return errs
}

// Config 返回 Host 使用的配置副本
func (h *Host) Config() *config.Config {
	return config.CloneConfig(h.cfg)
}

// ensureRunning 检查 Host 是否可用
func (h *Host) ensureRunning() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	if !h.started {
		return ErrNotStarted
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              设备侧监听
// ════════════════════════════════════════════════════════════════════════════

// Listen 在 addr 上监听设备侧连接
//
// 返回的监听器由调用方 Accept，并通过 Attach 接管得到的句柄。
// Host 关闭时监听器随之关闭。
func (h *Host) Listen(addr string) (channel.Listener, error) {
	if err := h.ensureRunning(); err != nil {
		return nil, err
	}
	ln, err := h.registry.Listen(addr)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		_ = ln.Close()
		return nil, ErrHostClosed
	}
	h.listeners = append(h.listeners, ln)
	logger.Info("开始监听", "addr", ln.Addr())
	return ln, nil
}

// Links 按 ID 顺序返回全部链路 ID
func (h *Host) Links() []types.LinkID {
	all := h.links.All()
	ids := make([]types.LinkID, 0, len(all))
	for _, l := range all {
		ids = append(ids, l.ID())
	}
	return ids
}

// Stats 收发字节统计
type Stats = metrics.Stats

// Totals 返回全部链路累计的收发字节数与最近一分钟的速率
//
// 指标关闭时返回零值。
func (h *Host) Totals() Stats {
	return h.reporter.Totals()
}
