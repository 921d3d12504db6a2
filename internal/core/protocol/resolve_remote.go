package protocol

import (
	"fmt"

	"github.com/dep2p/go-devlink/pkg/types"
)

// ResolveRemote 解析对端发来的事件
//
// 对请求生成响应头；对响应完成本端记账，与本地请求的配对由调度器完成。
// 对端引用不存在的流等情况返回 ErrProtocolViolation。
func ResolveRemote(t StreamTable, ev *Event) (Resolution, error) {
	h := ev.Header
	if h.Type.IsRequest() {
		respType, _ := h.Type.Response()
		r := Resolution{
			Outcome: OutcomeServed,
			Send:    true,
			Response: Header{
				ID:       h.ID,
				Type:     respType,
				StreamID: h.StreamID,
			},
		}
		err := resolveRemoteRequest(t, h, &r)
		return r, err
	}
	r := Resolution{Outcome: OutcomeServed}
	err := resolveRemoteResponse(t, h, &r)
	return r, err
}

func resolveRemoteRequest(t StreamTable, h Header, r *Resolution) error {
	resp := &r.Response
	switch h.Type {
	case WriteReq:
		// 负载已由读取端放入流缓冲
		resp.Size = h.Size
		resp.Flags = FlagAck
		r.Wake = append(r.Wake, Wake{Type: ReadReq, StreamID: h.StreamID})

	case ReadRelReq:
		s := t.FindByID(h.StreamID)
		if s == nil {
			return violation(h, "release on unknown stream")
		}
		if s.RemoteFill < h.Size || s.RemoteFillPackets == 0 {
			t.Release(s)
			return violation(h, "release exceeds remote fill level")
		}
		s.RemoteFill -= h.Size
		s.RemoteFillPackets--
		closeReady := s.CloseRequested && s.RemoteFill == 0
		t.Release(s)

		resp.Size = h.Size
		resp.Flags = FlagAck
		r.Wake = append(r.Wake, Wake{Type: WriteReq, StreamID: h.StreamID})
		if closeReady {
			r.Wake = append(r.Wake, Wake{Type: CloseStreamReq, StreamID: h.StreamID})
		}

	case CreateStreamReq:
		// 对端的写容量即本端的读容量
		id := t.Allocate(h.Name, 0, h.Size, types.InvalidStreamID)
		resp.Name = h.Name
		resp.StreamID = id
		resp.Size = h.Size
		if id.IsValid() {
			resp.Flags = FlagAck
		} else {
			resp.Flags = FlagNack
		}

	case CloseStreamReq:
		s := t.FindByID(h.StreamID)
		if s == nil {
			// 已关闭
			resp.Flags = FlagAck
			break
		}
		if s.LocalFill == 0 {
			resp.Flags = FlagAck
			s.ReadSize = 0
			s.CloseRequested = false
			if s.WriteSize == 0 {
				t.Free(s)
			}
		} else {
			resp.Flags = FlagNack
			s.CloseRequested = true
		}
		t.Release(s)

	case PingReq:
		resp.Flags = FlagAck

	case ResetReq:
		resp.Flags = FlagAck
		r.Terminate = true

	default:
		return violation(h, "unexpected request")
	}
	return nil
}

func resolveRemoteResponse(t StreamTable, h Header, r *Resolution) error {
	switch h.Type {
	case CreateStreamResp:
		if !h.Flags.Acked() {
			return nil
		}
		// 对端的读容量即本端的写容量，流 ID 以对端分配为准
		if id := t.Allocate(h.Name, h.Size, 0, h.StreamID); !id.IsValid() {
			r.Reject = true
		}

	case CloseStreamResp:
		if !h.Flags.Acked() {
			return nil
		}
		s := t.FindByID(h.StreamID)
		if s == nil {
			return nil
		}
		s.WriteSize = 0
		if s.ReadSize == 0 {
			t.Free(s)
		}
		t.Release(s)

	case ResetResp:
		r.Terminate = true

	case WriteResp, ReadRelResp, PingResp:

	default:
		return violation(h, "unexpected response")
	}
	return nil
}

func violation(h Header, what string) error {
	return fmt.Errorf("%w: %s (%s)", ErrProtocolViolation, what, h)
}
