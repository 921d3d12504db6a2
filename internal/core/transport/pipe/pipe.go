// Package pipe 提供进程内字节通道
//
// 设备以名称注册到 Network，Connect 通过 net.Pipe 建立同步的全双工连接。
// 主要用于模拟器和回环测试。
package pipe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/transport/conn"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/lib/log"
)

var logger = log.Logger("transport/pipe")

// ErrAddressInUse 名称已被监听
var ErrAddressInUse = errors.New("pipe: address in use")

// Network 进程内设备名称空间
type Network struct {
	mu        sync.Mutex
	listeners map[string]*Listener
}

// NewNetwork 创建名称空间
func NewNetwork() *Network {
	return &Network{listeners: make(map[string]*Listener)}
}

// Connector 返回基于该名称空间的连接器
func (n *Network) Connector() *Connector {
	return &Connector{network: n}
}

// Listen 以 name 注册一个设备
func (n *Network) Listen(name string) (channel.Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.listeners[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAddressInUse, name)
	}
	l := &Listener{
		network: n,
		name:    name,
		backlog: conn.NewBacklog(16),
	}
	n.listeners[name] = l
	logger.Debug("管道设备已注册", "name", name)
	return l, nil
}

func (n *Network) lookup(name string) *Listener {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listeners[name]
}

func (n *Network) remove(l *Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners[l.name] == l {
		delete(n.listeners, l.name)
	}
}

// ============================================================================
//                              Connector
// ============================================================================

// Connector 管道连接器
type Connector struct {
	network *Network
}

var _ channel.Connector = (*Connector)(nil)

// Connect 连接名为 addrA 的设备，addrB 未使用
func (c *Connector) Connect(ctx context.Context, addrA, _ string) (channel.Handle, error) {
	l := c.network.lookup(addrA)
	if l == nil {
		return nil, fmt.Errorf("%w: %s", channel.ErrDeviceNotFound, addrA)
	}

	host, device := net.Pipe()
	hh := conn.Wrap(host, "pipe:"+addrA)
	dh := conn.Wrap(device, "pipe:"+addrA+"(device)")

	if !l.backlog.Push(ctx, dh) {
		_ = hh.Reset()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", channel.ErrTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s", channel.ErrDeviceNotFound, addrA)
	}
	return hh, nil
}

// Listen 以 addr 注册设备
func (c *Connector) Listen(addr string) (channel.Listener, error) {
	return c.network.Listen(addr)
}

// Scheme 返回传输名称
func (c *Connector) Scheme() string {
	return config.SchemePipe
}

// ============================================================================
//                              Listener
// ============================================================================

// Listener 管道设备
type Listener struct {
	network *Network
	name    string
	backlog *conn.Backlog
}

var _ channel.Listener = (*Listener)(nil)

// Accept 等待下一条连接
func (l *Listener) Accept(ctx context.Context) (channel.Handle, error) {
	return l.backlog.Accept(ctx)
}

// Addr 返回设备名称
func (l *Listener) Addr() string {
	return l.name
}

// Close 注销设备
func (l *Listener) Close() error {
	l.network.remove(l)
	l.backlog.Close()
	return nil
}
