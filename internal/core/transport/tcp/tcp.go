package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/transport/conn"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/lib/log"
)

var logger = log.Logger("transport/tcp")

// ============================================================================
//                              Connector 实现
// ============================================================================

// Connector TCP 连接器
type Connector struct {
	cfg config.ChannelConfig
}

var _ channel.Connector = (*Connector)(nil)

// New 创建 TCP 连接器
func New(cfg config.ChannelConfig) *Connector {
	return &Connector{cfg: cfg}
}

// Connect 连接桥接地址 addrA，addrB 未使用
func (c *Connector) Connect(ctx context.Context, addrA, _ string) (channel.Handle, error) {
	dialer := &net.Dialer{
		Timeout:   c.cfg.DialTimeout.Duration(),
		KeepAlive: c.cfg.TCP.KeepAlivePeriod.Duration(),
	}
	nc, err := dialer.DialContext(ctx, "tcp", addrA)
	if err != nil {
		return nil, dialError(addrA, err)
	}
	c.tune(nc)

	logger.Debug("TCP 通道已连接", "addr", addrA, "local", nc.LocalAddr().String())
	return conn.Wrap(nc, "tcp:"+addrA), nil
}

// Listen 监听设备侧地址
func (c *Connector) Listen(addr string) (channel.Listener, error) {
	nl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("监听失败: %w", err)
	}
	l := &Listener{
		listener: nl,
		backlog:  conn.NewBacklog(16),
		tune:     c.tune,
	}
	go l.acceptLoop()
	return l, nil
}

// Scheme 返回传输名称
func (c *Connector) Scheme() string {
	return config.SchemeTCP
}

// tune 设置连接选项
func (c *Connector) tune(nc net.Conn) {
	tc, ok := nc.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(c.cfg.TCP.NoDelay)
	if p := c.cfg.TCP.KeepAlivePeriod.Duration(); p > 0 {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(p)
	}
}

// dialError 将拨号错误映射为通道错误
func dialError(addr string, err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return fmt.Errorf("%w: %s: %w", channel.ErrDeviceNotFound, addr, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %s: %w", channel.ErrTimeout, addr, err)
	}
	return fmt.Errorf("%w: %s: %w", channel.ErrGeneric, addr, err)
}

// ============================================================================
//                              Listener 实现
// ============================================================================

// Listener TCP 监听器
type Listener struct {
	listener net.Listener
	backlog  *conn.Backlog
	tune     func(net.Conn)
	closed   atomic.Bool
}

var _ channel.Listener = (*Listener)(nil)

func (l *Listener) acceptLoop() {
	for {
		nc, err := l.listener.Accept()
		if err != nil {
			if !l.closed.Load() {
				logger.Warn("接受连接失败", "addr", l.Addr(), "error", err)
			}
			l.backlog.Close()
			return
		}
		l.tune(nc)
		h := conn.Wrap(nc, "tcp:"+nc.RemoteAddr().String())
		if !l.backlog.Push(context.Background(), h) {
			return
		}
	}
}

// Accept 等待下一条连接
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
	l.backlog.Close()
	return l.listener.Close()
}
