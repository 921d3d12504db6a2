package devlink

import (
	"context"
	"fmt"
	"math"

	"github.com/dep2p/go-devlink/internal/core/link"
	"github.com/dep2p/go-devlink/internal/core/protocol"
	"github.com/dep2p/go-devlink/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              流的打开与关闭
// ════════════════════════════════════════════════════════════════════════════

// OpenStream 打开链路上的命名流并返回跨链路流 ID
//
// writeSize > 0 时向对端申请 writeSize 字节（向上对齐到 StreamAlign）的接收缓冲，
// 流随之对本端可写；writeSize 为 0 时只查找对端已创建的同名流。
// 返回值高字节为链路 ID，可直接传给其它流操作。
func (h *Host) OpenStream(ctx context.Context, id types.LinkID, name string, writeSize uint32) (types.StreamID, error) {
	l, err := h.upLink(id)
	if err != nil {
		return types.InvalidStreamID, err
	}
	if err := l.Codec().CheckName(name); err != nil {
		return types.InvalidStreamID, fmt.Errorf("%w: %w", ErrStreamRejected, err)
	}

	if writeSize > 0 {
		if writeSize > math.MaxUint32-(h.cfg.Link.StreamAlign-1) {
			return types.InvalidStreamID, fmt.Errorf("%w: write size %d too large", ErrStreamRejected, writeSize)
		}
		size := alignUp(writeSize, h.cfg.Link.StreamAlign)
		ev, err := l.Call(ctx, protocol.Header{
			Type:     protocol.CreateStreamReq,
			Name:     name,
			Size:     size,
			StreamID: types.InvalidStreamID,
		}, nil)
		if err != nil {
			return types.InvalidStreamID, waitError(err)
		}
		if !ev.Header.Flags.Acked() {
			return types.InvalidStreamID, fmt.Errorf("%w: %q (%d bytes)", ErrStreamRejected, name, size)
		}
	}

	sid := l.Streams().IDByName(name)
	if !sid.IsValid() {
		return types.InvalidStreamID, fmt.Errorf("%w: %q", ErrNoSuchStream, name)
	}
	if sid > types.MaxLocalStreamID {
		return types.InvalidStreamID, fmt.Errorf("%w: stream id %s out of range", ErrStreamRejected, sid)
	}

	logger.Debug("流已打开", "link", l.Name(), "name", name, "stream", sid, "writeSize", writeSize)
	return types.CombineIDs(l.ID(), sid), nil
}

// CloseStream 关闭流的本端写方向
//
// 本端仍有未被对端释放的数据时阻塞，直到数据被释放。
// 对端缓冲非空时返回 ErrCommunicationFail，对端稍后释放完毕即完成关闭。
// 对已关闭的流重复调用返回 nil。
func (h *Host) CloseStream(ctx context.Context, id types.StreamID) error {
	l, sid, err := h.streamLink(id)
	if err != nil {
		return err
	}
	ev, err := l.Call(ctx, protocol.Header{Type: protocol.CloseStreamReq, StreamID: sid}, nil)
	return callError(ev, err)
}

// ════════════════════════════════════════════════════════════════════════════
//                              数据读写
// ════════════════════════════════════════════════════════════════════════════

// WriteData 写出一个包
//
// 对端缓冲不足时阻塞，直到对端释放足够的空间或链路终止。
// 返回时对端已确认收到，p 可被复用。
func (h *Host) WriteData(id types.StreamID, p []byte) error {
	l, sid, err := h.streamLink(id)
	if err != nil {
		return err
	}

	start := h.clock.Now()
	ev, err := l.Call(context.Background(), protocol.Header{
		Type:     protocol.WriteReq,
		StreamID: sid,
		Size:     uint32(len(p)),
	}, p)
	if err := callError(ev, err); err != nil {
		return err
	}
	h.prof.addWrite(len(p), h.clock.Since(start))
	return nil
}

// ReadData 读取下一个包
//
// 没有缓冲的包时阻塞，直到对端写入或链路终止。
// 返回的包在 ReleaseData 之前一直占用流缓冲。
func (h *Host) ReadData(id types.StreamID) (types.Packet, error) {
	l, sid, err := h.streamLink(id)
	if err != nil {
		return types.Packet{}, err
	}

	start := h.clock.Now()
	ev, err := l.Call(context.Background(), protocol.Header{Type: protocol.ReadReq, StreamID: sid}, nil)
	if err := callError(ev, err); err != nil {
		return types.Packet{}, err
	}
	h.prof.addRead(int(ev.Header.Size), h.clock.Since(start))
	return types.Packet{Data: ev.Data, Length: ev.Header.Size}, nil
}

// ReleaseData 释放最早读出的包，对端据此归还写容量
func (h *Host) ReleaseData(id types.StreamID) error {
	l, sid, err := h.streamLink(id)
	if err != nil {
		return err
	}
	ev, err := l.Call(context.Background(), protocol.Header{Type: protocol.ReadRelReq, StreamID: sid}, nil)
	return callError(ev, err)
}

// ════════════════════════════════════════════════════════════════════════════
//                              查询
// ════════════════════════════════════════════════════════════════════════════

// FillLevel 返回流的填充量
//
// remote 为 false 时返回本地已缓冲未释放的字节数；
// 为 true 时返回已写出、对端尚未释放的字节数。
func (h *Host) FillLevel(id types.StreamID, remote bool) (uint32, error) {
	l, sid, err := h.streamLink(id)
	if err != nil {
		return 0, err
	}
	s := l.Streams().FindByID(sid)
	if s == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchStream, id)
	}
	defer l.Streams().Release(s)

	if remote {
		return s.RemoteFill, nil
	}
	return s.LocalFill, nil
}

// AvailableStreams 返回链路上全部活跃流的快照
//
// 快照中的 ID 为链路内流 ID，可用 types.CombineIDs 组合成跨链路流 ID。
func (h *Host) AvailableStreams(id types.LinkID) ([]types.StreamInfo, error) {
	l, err := h.upLink(id)
	if err != nil {
		return nil, err
	}
	return l.Streams().Snapshot(), nil
}

// streamLink 拆分跨链路流 ID 并返回所属的可用链路
func (h *Host) streamLink(id types.StreamID) (*link.Link, types.StreamID, error) {
	linkID, sid := types.SplitIDs(id)
	if !sid.IsValid() {
		return nil, types.InvalidStreamID, fmt.Errorf("%w: %s", ErrNoSuchStream, id)
	}
	l, err := h.upLink(linkID)
	if err != nil {
		return nil, types.InvalidStreamID, err
	}
	return l, sid, nil
}

// alignUp 将 n 向上对齐到 align（2 的幂），调用方保证结果不溢出
func alignUp(n, align uint32) uint32 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}
