package protocol

import (
	"fmt"

	"github.com/dep2p/go-devlink/pkg/lib/log"
)

var logger = log.Logger("core/protocol")

// ResolveLocal 解析本端发起的请求
//
// 仅依据本地已知的流状态决定请求能否立即完成，并就地更新 ev.Header.Flags。
// 阻塞与本地服务的请求不发送；失败的请求（nack）同样不发送。
func ResolveLocal(t StreamTable, ev *Event) (Resolution, error) {
	h := &ev.Header
	switch h.Type {
	case WriteReq:
		return resolveLocalWrite(t, ev), nil
	case ReadReq:
		return resolveLocalRead(t, ev), nil
	case ReadRelReq:
		return resolveLocalRelease(t, ev), nil
	case CloseStreamReq:
		return resolveLocalClose(t, ev), nil
	case CreateStreamReq, PingReq, ResetReq:
		return send(), nil
	default:
		return Resolution{}, fmt.Errorf("%w: local event of type %s", ErrProtocolViolation, h.Type)
	}
}

func send() Resolution {
	return Resolution{Outcome: OutcomePending, Send: true}
}

func served() Resolution {
	return Resolution{Outcome: OutcomeServed}
}

func blocked() Resolution {
	return Resolution{Outcome: OutcomeBlocked}
}

func fail(h *Header, reason Flags) Resolution {
	h.Flags = h.Flags.Fail(reason)
	return served()
}

func resolveLocalWrite(t StreamTable, ev *Event) Resolution {
	h := &ev.Header
	s := t.FindByID(h.StreamID)
	if s == nil {
		return fail(h, FlagNoSuchStream)
	}
	defer t.Release(s)

	// 本端已关闭写方向
	if s.WriteSize == 0 {
		return fail(h, 0)
	}
	// 永远无法放入对端缓冲
	if h.Size > s.WriteSize {
		return fail(h, FlagSizeTooBig)
	}

	h.Flags = (h.Flags | FlagAck) &^ (FlagNack | FlagLocalServe | FlagBlock)
	if !s.HasRemoteSpace(h.Size, t.MaxPackets()) {
		logger.Debug("对端缓冲已满，写请求阻塞",
			"stream", h.StreamID,
			"size", h.Size,
			"remoteFill", s.RemoteFill,
			"writeSize", s.WriteSize)
		h.Flags |= FlagBlock | FlagLocalServe
		return blocked()
	}

	s.RemoteFill += h.Size
	s.RemoteFillPackets++
	return send()
}

func resolveLocalRead(t StreamTable, ev *Event) Resolution {
	h := &ev.Header
	s := t.FindByID(h.StreamID)
	if s == nil {
		return fail(h, FlagNoSuchStream|FlagLocalServe)
	}
	defer t.Release(s)

	h.Flags |= FlagLocalServe
	p, ok := s.TakePacket()
	if !ok {
		h.Flags |= FlagBlock
		return blocked()
	}
	ev.Data = p.Data
	h.Size = p.Length
	h.Flags = (h.Flags | FlagAck) &^ (FlagNack | FlagBlock)
	return served()
}

func resolveLocalRelease(t StreamTable, ev *Event) Resolution {
	h := &ev.Header
	s := t.FindByID(h.StreamID)
	if s == nil {
		return fail(h, FlagNoSuchStream)
	}
	defer t.Release(s)

	size, err := s.ReleasePacket()
	if err != nil {
		// 没有已交付的包
		return fail(h, 0)
	}
	h.Size = size
	return send()
}

func resolveLocalClose(t StreamTable, ev *Event) Resolution {
	h := &ev.Header
	s := t.FindByID(h.StreamID)
	if s == nil {
		// 本端已无此流，交由对端确认
		return send()
	}
	defer t.Release(s)

	if s.RemoteFill != 0 {
		s.CloseRequested = true
		h.Flags |= FlagBlock | FlagLocalServe
		return blocked()
	}
	h.Flags &^= FlagBlock | FlagLocalServe
	return send()
}
