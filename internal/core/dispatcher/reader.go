package dispatcher

import (
	"fmt"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/protocol"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/types"
)

// ============================================================================
//                              读取协程
// ============================================================================

// readLoop 从字节通道读取事件并放入远端事件环
//
// 读到复位请求或复位响应后正常退出，由工作协程完成终止。
// 其余退出均返回错误。
func (d *Dispatcher) readLoop() error {
	buf := make([]byte, d.codec.HeaderSize())

	var last protocol.Header
	seen := false

	for {
		if err := d.handle.Read(buf, channel.Infinite); err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		h, err := d.codec.Decode(buf)
		if err != nil {
			return fmt.Errorf("%w: %w", protocol.ErrProtocolViolation, err)
		}
		d.reporter.BytesReceived(len(buf))

		var data []byte
		if h.Type == protocol.WriteReq {
			if data, err = d.readPayload(h); err != nil {
				return err
			}
		}

		if seen && last.ID == h.ID && last.Type == h.Type {
			if err := d.duplicate(h); err != nil {
				return err
			}
			continue
		}
		last, seen = h, true

		if h.Type == protocol.WriteReq {
			if err := d.deliver(h, data); err != nil {
				return err
			}
		}

		ev := protocol.Event{Header: h, Origin: types.OriginRemote}
		if err := d.enqueueRemote(ev); err != nil {
			return err
		}
		if h.Type == protocol.ResetReq || h.Type == protocol.ResetResp {
			return nil
		}
	}
}

// readPayload 读取写请求的负载
func (d *Dispatcher) readPayload(h protocol.Header) ([]byte, error) {
	s := d.streams.FindByID(h.StreamID)
	if s == nil {
		return nil, fmt.Errorf("%w: payload for unknown stream (%s)", protocol.ErrProtocolViolation, h)
	}
	readSize := s.ReadSize
	d.streams.Release(s)

	if h.Size > readSize {
		return nil, fmt.Errorf("%w: payload exceeds read size %d (%s)",
			protocol.ErrProtocolViolation, readSize, h)
	}

	data := make([]byte, h.Size)
	if h.Size == 0 {
		return data, nil
	}
	if err := d.handle.Read(data, d.dataTimeout()); err != nil {
		return nil, fmt.Errorf("read %s payload: %w", h.Type, err)
	}
	d.reporter.BytesReceived(len(data))
	return data, nil
}

// deliver 将负载放入流的包缓冲
func (d *Dispatcher) deliver(h protocol.Header, data []byte) error {
	s := d.streams.FindByID(h.StreamID)
	if s == nil {
		return fmt.Errorf("%w: payload for unknown stream (%s)", protocol.ErrProtocolViolation, h)
	}
	defer d.streams.Release(s)

	if err := s.AddPacket(data); err != nil {
		return fmt.Errorf("%w: %w (%s)", protocol.ErrProtocolViolation, err, h)
	}
	return nil
}

// duplicate 处理与上一事件 ID 和类型都相同的事件
func (d *Dispatcher) duplicate(h protocol.Header) error {
	d.reporter.DuplicateEvent()
	if d.cfg.DuplicatePolicy == config.DuplicateAbort {
		return fmt.Errorf("%w: %w (%s)", protocol.ErrProtocolViolation, ErrDuplicateEvent, h)
	}
	if d.limiter.Allow() {
		logger.Warn("丢弃重复事件", "link", d.cfg.Name, "header", h.String())
	}
	return nil
}
