package devlink

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/dep2p/go-devlink/internal/core/dispatcher"
	"github.com/dep2p/go-devlink/internal/core/link"
	"github.com/dep2p/go-devlink/internal/core/protocol"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              建链
// ════════════════════════════════════════════════════════════════════════════

// Connect 连接设备并建立链路
//
// addrA 可带 "scheme://" 前缀选择字节通道，否则使用默认通道；addrB 由通道解释。
// 字节通道建立后先完成一次 ping 往返，链路才进入 up 状态。
// addrA 上已有可用链路时返回该链路 ID 和 ErrAlreadyOpen。
func (h *Host) Connect(ctx context.Context, addrA, addrB string) (types.LinkID, error) {
	if err := h.ensureRunning(); err != nil {
		return types.InvalidLinkID, err
	}

	h.connectMu.Lock()
	defer h.connectMu.Unlock()

	if l := h.links.FindByAddr(addrA); l != nil {
		return l.ID(), fmt.Errorf("%w: %s is %s", ErrAlreadyOpen, addrA, l.ID())
	}

	handle, err := h.registry.Connect(ctx, addrA, addrB)
	if err != nil {
		logger.Debug("连接字节通道失败", "addr", addrA, "error", err)
		return types.InvalidLinkID, connectError(addrA, err)
	}

	l, err := h.addLink(link.RoleHost, addrA, handle)
	if err != nil {
		_ = handle.Reset()
		return types.InvalidLinkID, err
	}
	l.Start()

	if err := h.ping(ctx, l); err != nil {
		_ = l.Close()
		logger.Warn("链路握手失败", "link", l.Name(), "addr", addrA, "error", err)
		return types.InvalidLinkID, fmt.Errorf("handshake with %s: %w", addrA, err)
	}
	l.MarkUp()

	logger.Info("链路已建立", "link", l.Name(), "addr", addrA, "channel", handle.String())
	return l.ID(), nil
}

// Attach 以设备角色接管一个已建立的字节通道句柄
//
// 不做握手，链路立即进入 up 状态，对端的 ping 由调度器应答。
func (h *Host) Attach(handle channel.Handle) (types.LinkID, error) {
	if err := h.ensureRunning(); err != nil {
		return types.InvalidLinkID, err
	}

	l, err := h.addLink(link.RoleDevice, "", handle)
	if err != nil {
		return types.InvalidLinkID, err
	}
	l.Start()
	l.MarkUp()

	logger.Info("设备侧链路已接管", "link", l.Name(), "channel", handle.String())
	return l.ID(), nil
}

// addLink 在链路表中登记新链路，链路终止后自动移除
func (h *Host) addLink(role link.Role, addr string, handle channel.Handle) (*link.Link, error) {
	return h.links.Add(link.Params{
		Role:        role,
		Addr:        addr,
		Handle:      handle,
		Config:      h.cfg.Link,
		Reporter:    h.reporter,
		OnTerminate: h.onLinkTerminated,
	})
}

// onLinkTerminated 调度器终止后的回调
func (h *Host) onLinkTerminated(l *link.Link, cause error) {
	h.links.Remove(l)
	logger.Info("链路已移除", "link", l.Name(), "role", l.Role().String(), "cause", cause)
}

// connectError 将字节通道错误映射为公共错误
func connectError(addr string, err error) error {
	switch {
	case errors.Is(err, channel.ErrDeviceNotFound):
		return fmt.Errorf("%w: %s: %w", ErrDeviceNotFound, addr, err)
	case errors.Is(err, channel.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %w", ErrTimeout, addr, err)
	default:
		return fmt.Errorf("connect %s: %w", addr, err)
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              链路操作
// ════════════════════════════════════════════════════════════════════════════

// Ping 完成一次 ping 往返
func (h *Host) Ping(ctx context.Context, id types.LinkID) error {
	l, err := h.upLink(id)
	if err != nil {
		return err
	}
	return h.ping(ctx, l)
}

func (h *Host) ping(ctx context.Context, l *link.Link) error {
	ev, err := l.Call(ctx, protocol.Header{Type: protocol.PingReq}, nil)
	return callError(ev, err)
}

// ResetRemote 复位对端并终止链路
//
// 返回时链路已终止并从链路表移除。链路不处于 up 状态时直接终止本端并返回 ErrNotOpen。
func (h *Host) ResetRemote(ctx context.Context, id types.LinkID) error {
	if err := h.ensureRunning(); err != nil {
		return err
	}
	l, err := h.links.Get(id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotOpen, err)
	}
	if l.State() != types.LinkUp {
		_ = l.Close()
		return fmt.Errorf("%w: %s is %s", ErrNotOpen, id, l.State())
	}

	logger.Debug("发送复位请求", "link", l.Name())
	_, err = l.Call(ctx, protocol.Header{Type: protocol.ResetReq}, nil)
	if err != nil && !errors.Is(err, dispatcher.ErrLinkDown) {
		return waitError(err)
	}

	select {
	case <-l.Done():
		return nil
	case <-ctx.Done():
		return waitError(ctx.Err())
	}
}

// ResetAll 关闭每条链路上的全部流，然后复位每条链路
func (h *Host) ResetAll(ctx context.Context) error {
	if err := h.ensureRunning(); err != nil {
		return err
	}

	var errs error
	for _, l := range h.links.All() {
		for _, info := range l.Streams().Snapshot() {
			sid := types.CombineIDs(l.ID(), info.ID)
			if err := h.CloseStream(ctx, sid); err != nil {
				logger.Debug("关闭流失败", "link", l.Name(), "stream", info.Name, "error", err)
				errs = multierr.Append(errs, fmt.Errorf("close %s/%s: %w", l.ID(), info.Name, err))
			}
		}
		if err := h.ResetRemote(ctx, l.ID()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reset %s: %w", l.ID(), err))
		}
	}
	return errs
}

// LinkState 返回链路状态
//
// 终止的链路会从链路表移除，之后查询返回 LinkDown。
func (h *Host) LinkState(id types.LinkID) types.LinkState {
	l, err := h.links.Get(id)
	if err != nil {
		return types.LinkDown
	}
	return l.State()
}

// upLink 返回处于 up 状态的链路
func (h *Host) upLink(id types.LinkID) (*link.Link, error) {
	if err := h.ensureRunning(); err != nil {
		return nil, err
	}
	l, err := h.links.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotOpen, err)
	}
	if l.State() != types.LinkUp {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotOpen, id, l.State())
	}
	return l, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              结果映射
// ════════════════════════════════════════════════════════════════════════════

// callError 将调度器的完成结果映射为公共错误
func callError(ev protocol.Event, err error) error {
	if err != nil {
		return waitError(err)
	}
	flags := ev.Header.Flags
	switch {
	case flags.Acked():
		return nil
	case flags.Has(protocol.FlagNoSuchStream):
		return fmt.Errorf("%w: %w: %s", ErrCommunicationFail, ErrNoSuchStream, ev.Header.StreamID)
	case flags.Has(protocol.FlagSizeTooBig):
		return fmt.Errorf("%w: %w: %d bytes", ErrCommunicationFail, ErrSizeTooBig, ev.Header.Size)
	default:
		return fmt.Errorf("%w: %s not acknowledged (%s)", ErrCommunicationFail, ev.Header.Type, flags)
	}
}

// waitError 映射入队或等待失败
func waitError(err error) error {
	switch {
	case errors.Is(err, dispatcher.ErrLinkDown):
		return fmt.Errorf("%w: %w", ErrCommunicationFail, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return err
	}
}
