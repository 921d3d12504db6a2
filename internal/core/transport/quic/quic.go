// Package quic 提供基于 QUIC 的字节通道
//
// 每条链路占用一条 QUIC 连接上的一个双向流。设备侧使用自签名证书，
// 两端通过 ALPN 确认协议。
package quic

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/quic-go/quic-go"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/transport/conn"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/lib/log"
)

var logger = log.Logger("transport/quic")

// resetCode 句柄复位时使用的应用错误码
const resetCode = 0x1

// newQUICConfig 从通道配置生成 QUIC 配置
func newQUICConfig(cfg config.QUICConfig) *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  cfg.MaxIdleTimeout.Duration(),
		KeepAlivePeriod: cfg.KeepAlivePeriod.Duration(),
	}
}

// ============================================================================
//                              Connector 实现
// ============================================================================

// Connector QUIC 连接器
type Connector struct {
	cfg     config.ChannelConfig
	quicCfg *quic.Config
}

var _ channel.Connector = (*Connector)(nil)

// New 创建 QUIC 连接器
func New(cfg config.ChannelConfig) *Connector {
	return &Connector{
		cfg:     cfg,
		quicCfg: newQUICConfig(cfg.QUIC),
	}
}

// Connect 连接桥接地址 addrA 并打开一个流，addrB 未使用
func (c *Connector) Connect(ctx context.Context, addrA, _ string) (channel.Handle, error) {
	if d := c.cfg.DialTimeout.Duration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	qc, err := quic.DialAddr(ctx, addrA, newClientTLSConfig(c.cfg.QUIC.ALPN), c.quicCfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %w", channel.ErrTimeout, addrA, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", channel.ErrDeviceNotFound, addrA, err)
	}
	st, err := qc.OpenStreamSync(ctx)
	if err != nil {
		_ = qc.CloseWithError(resetCode, "open stream failed")
		return nil, fmt.Errorf("%w: open stream on %s: %w", channel.ErrGeneric, addrA, err)
	}

	logger.Debug("QUIC 通道已连接", "addr", addrA)
	return conn.NewHandle(st, "quic:"+addrA, func() error {
		st.CancelRead(resetCode)
		_ = st.Close()
		return qc.CloseWithError(resetCode, "reset")
	}), nil
}

// Listen 监听设备侧 UDP 地址
func (c *Connector) Listen(addr string) (channel.Listener, error) {
	tlsConf, err := newServerTLSConfig(c.cfg.QUIC.ALPN)
	if err != nil {
		return nil, err
	}
	ql, err := quic.ListenAddr(addr, tlsConf, c.quicCfg)
	if err != nil {
		return nil, fmt.Errorf("监听失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		listener: ql,
		backlog:  conn.NewBacklog(16),
		cancel:   cancel,
	}
	go l.acceptLoop(ctx)
	return l, nil
}

// Scheme 返回传输名称
func (c *Connector) Scheme() string {
	return config.SchemeQUIC
}

// ============================================================================
//                              Listener 实现
// ============================================================================

// Listener QUIC 设备侧监听器
type Listener struct {
	listener *quic.Listener
	backlog  *conn.Backlog
	cancel   context.CancelFunc
	closed   atomic.Bool
}

var _ channel.Listener = (*Listener)(nil)

func (l *Listener) acceptLoop(ctx context.Context) {
	for {
		qc, err := l.listener.Accept(ctx)
		if err != nil {
			if !l.closed.Load() {
				logger.Warn("接受连接失败", "addr", l.Addr(), "error", err)
			}
			l.backlog.Close()
			return
		}
		go func() {
			// 对端写入首个字节后流才可见
			st, err := qc.AcceptStream(ctx)
			if err != nil {
				_ = qc.CloseWithError(resetCode, "no stream")
				return
			}
			h := conn.NewHandle(st, "quic:"+qc.RemoteAddr().String(), func() error {
				st.CancelRead(resetCode)
				_ = st.Close()
				return qc.CloseWithError(resetCode, "reset")
			})
			l.backlog.Push(ctx, h)
		}()
	}
}

// Accept 等待下一条链路
func (l *Listener) Accept(ctx context.Context) (channel.Handle, error) {
	return l.backlog.Accept(ctx)
}

// Addr 返回实际监听地址
func (l *Listener) Addr() string {
	return l.listener.Addr().String()
}

// Close 关闭监听器
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.cancel()
	l.backlog.Close()
	return l.listener.Close()
}
