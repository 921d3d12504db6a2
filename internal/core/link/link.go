package link

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/dispatcher"
	"github.com/dep2p/go-devlink/internal/core/metrics"
	"github.com/dep2p/go-devlink/internal/core/protocol"
	"github.com/dep2p/go-devlink/internal/core/stream"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/lib/log"
	"github.com/dep2p/go-devlink/pkg/types"
)

var logger = log.Logger("core/link")

// Role 链路角色
type Role int

const (
	// RoleHost 主机侧，经握手建立
	RoleHost Role = iota
	// RoleDevice 设备侧，直接接管已建立的句柄
	RoleDevice
)

// String 返回角色名称
func (r Role) String() string {
	if r == RoleDevice {
		return "device"
	}
	return "host"
}

// Params 创建链路的参数
type Params struct {
	Role     Role
	Addr     string
	Handle   channel.Handle
	Config   config.LinkConfig
	Reporter metrics.Reporter

	// OnTerminate 调度器终止后回调
	OnTerminate func(l *Link, cause error)
}

// Link 一条链路
type Link struct {
	id      types.LinkID
	session uuid.UUID
	role    Role
	addr    string
	state   atomic.Int32

	handle     channel.Handle
	streams    *stream.Registry
	dispatcher *dispatcher.Dispatcher
	codec      *protocol.Codec
}

// newLink 创建链路，调度器尚未启动
func newLink(id types.LinkID, p Params) *Link {
	l := &Link{
		id:      id,
		session: uuid.New(),
		role:    p.Role,
		addr:    p.Addr,
		handle:  p.Handle,
		streams: stream.NewRegistry(p.Config.MaxStreams, p.Config.MaxPacketsPerStream),
	}
	l.state.Store(int32(types.LinkNotInit))

	cfg := dispatcher.ConfigFromLink(l.Name(), p.Config)
	cfg.Reporter = p.Reporter
	cfg.OnTerminate = func(cause error) {
		l.state.Store(int32(types.LinkDown))
		if p.OnTerminate != nil {
			p.OnTerminate(l, cause)
		}
	}
	l.codec = cfg.Codec
	l.dispatcher = dispatcher.New(p.Handle, l.streams, cfg)
	return l
}

// ID 返回链路 ID
func (l *Link) ID() types.LinkID {
	return l.id
}

// Session 返回链路会话 ID，用于日志关联
func (l *Link) Session() uuid.UUID {
	return l.session
}

// Name 返回日志中的链路名称
func (l *Link) Name() string {
	return fmt.Sprintf("%d/%s", uint8(l.id), l.session.String()[:8])
}

// Role 返回链路角色
func (l *Link) Role() Role {
	return l.role
}

// Addr 返回建链地址
func (l *Link) Addr() string {
	return l.addr
}

// State 返回链路状态
func (l *Link) State() types.LinkState {
	return types.LinkState(l.state.Load())
}

// Streams 返回流注册表
func (l *Link) Streams() *stream.Registry {
	return l.streams
}

// Codec 返回头部编解码器
func (l *Link) Codec() *protocol.Codec {
	return l.codec
}

// Dispatcher 返回调度器
func (l *Link) Dispatcher() *dispatcher.Dispatcher {
	return l.dispatcher
}

// Start 启动调度器
func (l *Link) Start() {
	l.dispatcher.Start()
	logger.Debug("链路已启动",
		"link", l.Name(),
		"role", l.role.String(),
		"channel", l.handle.String())
}

// MarkUp 标记链路可用
func (l *Link) MarkUp() {
	l.state.CompareAndSwap(int32(types.LinkNotInit), int32(types.LinkUp))
}

// Call 发送一个本地请求并等待完成
//
// ctx 只结束等待，已入队的事件仍会被处理。
func (l *Link) Call(ctx context.Context, h protocol.Header, data []byte) (protocol.Event, error) {
	tk, err := l.dispatcher.Enqueue(h, data)
	if err != nil {
		return protocol.Event{}, err
	}
	return tk.Wait(ctx)
}

// Close 在本端终止链路
func (l *Link) Close() error {
	return l.dispatcher.Close()
}

// Done 返回链路终止通知通道
func (l *Link) Done() <-chan struct{} {
	return l.dispatcher.Done()
}
