package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-devlink/internal/core/stream"
	"github.com/dep2p/go-devlink/pkg/types"
)

const testMaxPackets = 4

func newTable(t *testing.T) *stream.Registry {
	t.Helper()
	return stream.NewRegistry(8, testMaxPackets)
}

func localEvent(typ EventType, id types.StreamID, size uint32) *Event {
	return &Event{
		Header: Header{ID: 0xa, Type: typ, StreamID: id, Size: size, Flags: FlagAck},
		Origin: types.OriginLocal,
	}
}

func remoteEvent(typ EventType, id types.StreamID, size uint32) *Event {
	return &Event{
		Header: Header{ID: 0x20, Type: typ, StreamID: id, Size: size, Flags: FlagAck},
		Origin: types.OriginRemote,
	}
}

func fill(t *testing.T, reg *stream.Registry, id types.StreamID, fn func(s *stream.Stream)) {
	t.Helper()
	s := reg.FindByID(id)
	require.NotNil(t, s)
	fn(s)
	reg.Release(s)
}

// ============================================================================
// 本地解析
// ============================================================================

func TestResolveLocal_WriteWithinCapacity(t *testing.T) {
	reg := newTable(t)
	id := reg.Allocate("telemetry", 1024, 0, types.InvalidStreamID)

	ev := localEvent(WriteReq, id, 1024)
	r, err := ResolveLocal(reg, ev)
	require.NoError(t, err)

	assert.Equal(t, OutcomePending, r.Outcome)
	assert.True(t, r.Send)
	assert.True(t, ev.Header.Flags.Acked())

	fill(t, reg, id, func(s *stream.Stream) {
		assert.Equal(t, uint32(1024), s.RemoteFill)
		assert.Equal(t, uint32(1), s.RemoteFillPackets)
	})
}

func TestResolveLocal_WriteBlocksWhenFull(t *testing.T) {
	reg := newTable(t)
	id := reg.Allocate("telemetry", 1024, 0, types.InvalidStreamID)

	_, err := ResolveLocal(reg, localEvent(WriteReq, id, 1024))
	require.NoError(t, err)

	ev := localEvent(WriteReq, id, 1024)
	r, err := ResolveLocal(reg, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, r.Outcome)
	assert.False(t, r.Send)
	assert.True(t, ev.Header.Flags.Has(FlagBlock|FlagLocalServe))

	// 阻塞不改变远端填充量
	fill(t, reg, id, func(s *stream.Stream) {
		assert.Equal(t, uint32(1024), s.RemoteFill)
	})

	// 对端释放后重新解析即可发送
	rr, err := ResolveRemote(reg, remoteEvent(ReadRelReq, id, 1024))
	require.NoError(t, err)
	assert.Contains(t, rr.Wake, Wake{Type: WriteReq, StreamID: id})

	r, err = ResolveLocal(reg, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, r.Outcome)
	assert.True(t, r.Send)
	assert.False(t, ev.Header.Flags.Has(FlagBlock))
}

func TestResolveLocal_WriteBlocksOnPacketCount(t *testing.T) {
	reg := newTable(t)
	id := reg.Allocate("small", 1<<20, 0, types.InvalidStreamID)

	for i := 0; i < testMaxPackets; i++ {
		r, err := ResolveLocal(reg, localEvent(WriteReq, id, 1))
		require.NoError(t, err)
		require.Equal(t, OutcomePending, r.Outcome)
	}
	r, err := ResolveLocal(reg, localEvent(WriteReq, id, 1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, r.Outcome)
}

func TestResolveLocal_WriteFailures(t *testing.T) {
	reg := newTable(t)
	readOnly := reg.Allocate("in", 0, 64, types.InvalidStreamID)
	small := reg.Allocate("out", 64, 0, types.InvalidStreamID)

	tests := []struct {
		name   string
		ev     *Event
		reason Flags
	}{
		{"closed for write", localEvent(WriteReq, readOnly, 8), 0},
		{"too big", localEvent(WriteReq, small, 65), FlagSizeTooBig},
		{"no such stream", localEvent(WriteReq, 99, 8), FlagNoSuchStream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ResolveLocal(reg, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, OutcomeServed, r.Outcome)
			assert.False(t, r.Send)
			assert.True(t, tt.ev.Header.Flags.Has(FlagNack|tt.reason))
			assert.False(t, tt.ev.Header.Flags.Has(FlagAck))
		})
	}
}

func TestResolveLocal_Read(t *testing.T) {
	reg := newTable(t)
	id := reg.Allocate("in", 0, 1024, types.InvalidStreamID)

	ev := localEvent(ReadReq, id, 0)
	r, err := ResolveLocal(reg, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, r.Outcome)
	assert.False(t, r.Send)
	assert.True(t, ev.Header.Flags.Has(FlagLocalServe))

	fill(t, reg, id, func(s *stream.Stream) {
		require.NoError(t, s.AddPacket([]byte("hello")))
	})

	r, err = ResolveLocal(reg, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeServed, r.Outcome)
	assert.False(t, r.Send)
	assert.True(t, ev.Header.Flags.Acked())
	assert.Equal(t, []byte("hello"), ev.Data)
	assert.Equal(t, uint32(5), ev.Header.Size)
}

func TestResolveLocal_Release(t *testing.T) {
	reg := newTable(t)
	id := reg.Allocate("in", 0, 1024, types.InvalidStreamID)

	// 没有已交付的包
	ev := localEvent(ReadRelReq, id, 0)
	r, err := ResolveLocal(reg, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeServed, r.Outcome)
	assert.True(t, ev.Header.Flags.Has(FlagNack))

	fill(t, reg, id, func(s *stream.Stream) {
		require.NoError(t, s.AddPacket(make([]byte, 300)))
		_, ok := s.TakePacket()
		require.True(t, ok)
	})

	ev = localEvent(ReadRelReq, id, 0)
	r, err = ResolveLocal(reg, ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, r.Outcome)
	assert.True(t, r.Send)
	assert.Equal(t, uint32(300), ev.Header.Size)

	fill(t, reg, id, func(s *stream.Stream) {
		assert.Zero(t, s.LocalFill)
	})
}

func TestResolveLocal_CloseDeferredUntilDrained(t *testing.T) {
	reg := newTable(t)
	id := reg.Allocate("out", 1024, 0, types.InvalidStreamID)

	_, err := ResolveLocal(reg, localEvent(WriteReq, id, 512))
	require.NoError(t, err)

	closeEv := localEvent(CloseStreamReq, id, 0)
	r, err := ResolveLocal(reg, closeEv)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBlocked, r.Outcome)

	rr, err := ResolveRemote(reg, remoteEvent(ReadRelReq, id, 512))
	require.NoError(t, err)
	assert.Contains(t, rr.Wake, Wake{Type: CloseStreamReq, StreamID: id})

	r, err = ResolveLocal(reg, closeEv)
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, r.Outcome)
	assert.True(t, r.Send)
}

func TestResolveLocal_CloseUnknownStreamIsSent(t *testing.T) {
	reg := newTable(t)
	r, err := ResolveLocal(reg, localEvent(CloseStreamReq, 42, 0))
	require.NoError(t, err)
	assert.True(t, r.Send)
}

func TestResolveLocal_RejectsResponse(t *testing.T) {
	reg := newTable(t)
	_, err := ResolveLocal(reg, localEvent(WriteResp, 0, 0))
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

// ============================================================================
// 远端解析
// ============================================================================

func TestResolveRemote_Write(t *testing.T) {
	reg := newTable(t)
	ev := remoteEvent(WriteReq, 3, 128)

	r, err := ResolveRemote(reg, ev)
	require.NoError(t, err)
	assert.True(t, r.Send)
	assert.Equal(t, WriteResp, r.Response.Type)
	assert.Equal(t, ev.Header.ID, r.Response.ID)
	assert.Equal(t, uint32(128), r.Response.Size)
	assert.Equal(t, FlagAck, r.Response.Flags)
	assert.Equal(t, []Wake{{Type: ReadReq, StreamID: 3}}, r.Wake)
}

func TestResolveRemote_CreateStream(t *testing.T) {
	reg := newTable(t)
	ev := remoteEvent(CreateStreamReq, types.InvalidStreamID, 1024)
	ev.Header.Name = "telemetry"

	r, err := ResolveRemote(reg, ev)
	require.NoError(t, err)
	assert.Equal(t, CreateStreamResp, r.Response.Type)
	assert.Equal(t, "telemetry", r.Response.Name)
	assert.Equal(t, types.StreamID(0), r.Response.StreamID)
	assert.True(t, r.Response.Flags.Acked())

	fill(t, reg, 0, func(s *stream.Stream) {
		assert.Equal(t, uint32(1024), s.ReadSize)
		assert.Zero(t, s.WriteSize)
	})

	// 扩大已提交的读容量被拒绝
	ev = remoteEvent(CreateStreamReq, types.InvalidStreamID, 2048)
	ev.Header.Name = "telemetry"
	r, err = ResolveRemote(reg, ev)
	require.NoError(t, err)
	assert.Equal(t, types.InvalidStreamID, r.Response.StreamID)
	assert.True(t, r.Response.Flags.Has(FlagNack))
}

func TestResolveRemote_CreateStreamResponse(t *testing.T) {
	reg := newTable(t)
	ev := remoteEvent(CreateStreamResp, 5, 1024)
	ev.Header.Name = "telemetry"

	r, err := ResolveRemote(reg, ev)
	require.NoError(t, err)
	assert.False(t, r.Send)
	assert.False(t, r.Reject)
	assert.Equal(t, types.StreamID(5), reg.IDByName("telemetry"))

	// 本端已提交更小的写容量
	ev = remoteEvent(CreateStreamResp, 5, 4096)
	ev.Header.Name = "telemetry"
	r, err = ResolveRemote(reg, ev)
	require.NoError(t, err)
	assert.True(t, r.Reject)

	// 对端拒绝时不分配
	ev = remoteEvent(CreateStreamResp, types.InvalidStreamID, 64)
	ev.Header.Name = "other"
	ev.Header.Flags = FlagNack
	_, err = ResolveRemote(reg, ev)
	require.NoError(t, err)
	assert.Equal(t, types.InvalidStreamID, reg.IDByName("other"))

	// 对端分配的 ID 与本端另一条活跃流冲突
	ev = remoteEvent(CreateStreamResp, 5, 64)
	ev.Header.Name = "clash"
	r, err = ResolveRemote(reg, ev)
	require.NoError(t, err)
	assert.True(t, r.Reject)
	assert.Equal(t, types.InvalidStreamID, reg.IDByName("clash"))
}

func TestResolveRemote_CloseStream(t *testing.T) {
	reg := newTable(t)
	id := reg.Allocate("in", 0, 1024, types.InvalidStreamID)

	fill(t, reg, id, func(s *stream.Stream) {
		require.NoError(t, s.AddPacket(make([]byte, 10)))
	})

	// 本地缓冲非空
	r, err := ResolveRemote(reg, remoteEvent(CloseStreamReq, id, 0))
	require.NoError(t, err)
	assert.True(t, r.Response.Flags.Has(FlagNack))
	fill(t, reg, id, func(s *stream.Stream) {
		assert.True(t, s.CloseRequested)
		_, ok := s.TakePacket()
		require.True(t, ok)
		_, err := s.ReleasePacket()
		require.NoError(t, err)
	})

	// 缓冲清空后确认并释放 ID（写方向本就为 0）
	r, err = ResolveRemote(reg, remoteEvent(CloseStreamReq, id, 0))
	require.NoError(t, err)
	assert.True(t, r.Response.Flags.Acked())
	assert.Nil(t, reg.FindByID(id))

	// 再次关闭：流已不存在，仍然确认
	r, err = ResolveRemote(reg, remoteEvent(CloseStreamReq, id, 0))
	require.NoError(t, err)
	assert.True(t, r.Response.Flags.Acked())
}

func TestResolveRemote_CloseKeepsWritableStream(t *testing.T) {
	reg := newTable(t)
	id := reg.Allocate("duplex", 64, 64, types.InvalidStreamID)

	r, err := ResolveRemote(reg, remoteEvent(CloseStreamReq, id, 0))
	require.NoError(t, err)
	assert.True(t, r.Response.Flags.Acked())

	fill(t, reg, id, func(s *stream.Stream) {
		assert.Zero(t, s.ReadSize)
		assert.Equal(t, uint32(64), s.WriteSize)
	})
}

func TestResolveRemote_CloseStreamResponse(t *testing.T) {
	reg := newTable(t)
	id := reg.Allocate("out", 64, 0, types.InvalidStreamID)

	_, err := ResolveRemote(reg, remoteEvent(CloseStreamResp, id, 0))
	require.NoError(t, err)
	assert.Nil(t, reg.FindByID(id))

	duplex := reg.Allocate("duplex", 64, 64, types.InvalidStreamID)
	_, err = ResolveRemote(reg, remoteEvent(CloseStreamResp, duplex, 0))
	require.NoError(t, err)
	fill(t, reg, duplex, func(s *stream.Stream) {
		assert.Zero(t, s.WriteSize)
		assert.Equal(t, uint32(64), s.ReadSize)
	})
}

func TestResolveRemote_Violations(t *testing.T) {
	reg := newTable(t)
	id := reg.Allocate("out", 64, 0, types.InvalidStreamID)

	_, err := ResolveRemote(reg, remoteEvent(ReadRelReq, 77, 8))
	assert.ErrorIs(t, err, ErrProtocolViolation)

	// 释放量超过远端填充量
	_, err = ResolveRemote(reg, remoteEvent(ReadRelReq, id, 8))
	assert.ErrorIs(t, err, ErrProtocolViolation)

	_, err = ResolveRemote(reg, remoteEvent(ReadReq, id, 0))
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestResolveRemote_PingAndReset(t *testing.T) {
	reg := newTable(t)

	r, err := ResolveRemote(reg, remoteEvent(PingReq, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, PingResp, r.Response.Type)
	assert.False(t, r.Terminate)

	r, err = ResolveRemote(reg, remoteEvent(ResetReq, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, ResetResp, r.Response.Type)
	assert.True(t, r.Response.Flags.Acked())
	assert.True(t, r.Terminate)

	r, err = ResolveRemote(reg, remoteEvent(ResetResp, 0, 0))
	require.NoError(t, err)
	assert.False(t, r.Send)
	assert.True(t, r.Terminate)
}
