// Package yamux 提供基于 yamux 多路复用的字节通道
//
// 同一桥接地址上的多条链路共享一条 TCP 连接和一个 yamux 会话，
// 每条链路占用一个 yamux 流。会话按桥接地址缓存，淘汰时关闭。
package yamux

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/yamux"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/transport/conn"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/lib/log"
)

var logger = log.Logger("transport/yamux")

// NewSessionConfig 从通道配置生成 yamux 配置
func NewSessionConfig(cfg config.YamuxConfig) *yamux.Config {
	yc := yamux.DefaultConfig()
	yc.EnableKeepAlive = cfg.EnableKeepAlive
	if cfg.KeepAliveInterval > 0 {
		yc.KeepAliveInterval = cfg.KeepAliveInterval.Duration()
	}
	if cfg.ConnectionWriteTimeout > 0 {
		yc.ConnectionWriteTimeout = cfg.ConnectionWriteTimeout.Duration()
	}
	if cfg.MaxStreamWindowSize > 0 {
		yc.MaxStreamWindowSize = cfg.MaxStreamWindowSize
	}
	yc.LogOutput = io.Discard
	return yc
}

// ============================================================================
//                              Connector 实现
// ============================================================================

// Connector yamux 连接器
type Connector struct {
	cfg      config.ChannelConfig
	yamuxCfg *yamux.Config

	mu       sync.Mutex
	sessions *lru.Cache[string, *yamux.Session]
}

var _ channel.Connector = (*Connector)(nil)

// New 创建 yamux 连接器
func New(cfg config.ChannelConfig) (*Connector, error) {
	size := cfg.Yamux.SessionCacheSize
	if size <= 0 {
		size = config.DefaultChannelConfig().Yamux.SessionCacheSize
	}
	sessions, err := lru.NewWithEvict(size, func(addr string, s *yamux.Session) {
		logger.Debug("关闭 yamux 会话", "addr", addr)
		_ = s.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Connector{
		cfg:      cfg,
		yamuxCfg: NewSessionConfig(cfg.Yamux),
		sessions: sessions,
	}, nil
}

// Connect 在桥接地址 addrA 的会话上打开一个流，addrB 为日志中的设备名
func (c *Connector) Connect(ctx context.Context, addrA, addrB string) (channel.Handle, error) {
	sess, err := c.session(ctx, addrA)
	if err != nil {
		return nil, err
	}
	st, err := sess.OpenStream()
	if err != nil {
		c.mu.Lock()
		c.sessions.Remove(addrA)
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: open stream on %s: %w", channel.ErrGeneric, addrA, err)
	}

	name := "yamux:" + addrA
	if addrB != "" {
		name += "/" + addrB
	}
	return conn.Wrap(st, name), nil
}

// session 返回可用的会话，必要时重新拨号
func (c *Connector) session(ctx context.Context, addr string) (*yamux.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions.Get(addr); ok {
		if !s.IsClosed() {
			return s, nil
		}
		c.sessions.Remove(addr)
	}

	dialer := &net.Dialer{Timeout: c.cfg.DialTimeout.Duration()}
	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", channel.ErrDeviceNotFound, addr, err)
	}
	s, err := yamux.Client(nc, c.yamuxCfg)
	if err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("%w: yamux client: %w", channel.ErrGeneric, err)
	}
	c.sessions.Add(addr, s)
	logger.Debug("yamux 会话已建立", "addr", addr)
	return s, nil
}

// Listen 监听设备侧地址
func (c *Connector) Listen(addr string) (channel.Listener, error) {
	nl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("监听失败: %w", err)
	}
	l := &Listener{
		listener: nl,
		yamuxCfg: c.yamuxCfg,
		backlog:  conn.NewBacklog(16),
		sessions: make(map[*yamux.Session]struct{}),
	}
	go l.acceptLoop()
	return l, nil
}

// Scheme 返回传输名称
func (c *Connector) Scheme() string {
	return config.SchemeYamux
}

// Close 关闭全部缓存的会话
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions.Purge()
	return nil
}

// ============================================================================
//                              Listener 实现
// ============================================================================

// Listener yamux 设备侧监听器
type Listener struct {
	listener net.Listener
	yamuxCfg *yamux.Config
	backlog  *conn.Backlog
	closed   atomic.Bool

	mu       sync.Mutex
	sessions map[*yamux.Session]struct{}
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
		s, err := yamux.Server(nc, l.yamuxCfg)
		if err != nil {
			logger.Warn("创建 yamux 会话失败", "remote", nc.RemoteAddr().String(), "error", err)
			_ = nc.Close()
			continue
		}
		l.mu.Lock()
		l.sessions[s] = struct{}{}
		l.mu.Unlock()
		go l.serveSession(s, nc.RemoteAddr().String())
	}
}

func (l *Listener) serveSession(s *yamux.Session, remote string) {
	defer func() {
		l.mu.Lock()
		delete(l.sessions, s)
		l.mu.Unlock()
		_ = s.Close()
	}()
	for {
		st, err := s.AcceptStream()
		if err != nil {
			return
		}
		h := conn.Wrap(st, fmt.Sprintf("yamux:%s#%d", remote, st.StreamID()))
		if !l.backlog.Push(context.Background(), h) {
			return
		}
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

// Close 关闭监听器和全部会话
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.backlog.Close()
	err := l.listener.Close()

	l.mu.Lock()
	for s := range l.sessions {
		_ = s.Close()
	}
	l.mu.Unlock()
	return err
}
