package devlink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/dispatcher"
	"github.com/dep2p/go-devlink/internal/core/transport/pipe"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/types"
)

const testTimeout = 5 * time.Second

// testPair 经进程内 pipe 相连的主机与设备
type testPair struct {
	host    *Host
	device  *Host
	link    types.LinkID
	devLink types.LinkID
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func newTestHost(t *testing.T, network *pipe.Network, opts ...Option) *Host {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Channel.Scheme = config.SchemePipe

	all := append([]Option{WithConfig(cfg), WithPipes(network)}, opts...)
	h, err := New(all...)
	require.NoError(t, err)
	require.NoError(t, h.Start(testContext(t)))
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func newTestPair(t *testing.T, opts ...Option) *testPair {
	t.Helper()
	ctx := testContext(t)
	network := pipe.NewNetwork()

	device := newTestHost(t, network)
	ln, err := device.Listen("pipe://dev")
	require.NoError(t, err)

	accepted := make(chan types.LinkID, 1)
	go func() {
		handle, err := ln.Accept(ctx)
		if err != nil {
			return
		}
		id, err := device.Attach(handle)
		if err == nil {
			accepted <- id
		}
	}()

	host := newTestHost(t, network, opts...)
	id, err := host.Connect(ctx, "pipe://dev", "")
	require.NoError(t, err)

	p := &testPair{host: host, device: device, link: id}
	select {
	case p.devLink = <-accepted:
	case <-time.After(testTimeout):
		t.Fatal("设备侧未接管链路")
	}
	return p
}

// openBoth 主机以 size 打开可写流，设备打开同名的只读端
func (p *testPair) openBoth(t *testing.T, name string, size uint32) (types.StreamID, types.StreamID) {
	t.Helper()
	ctx := testContext(t)
	hs, err := p.host.OpenStream(ctx, p.link, name, size)
	require.NoError(t, err)
	ds, err := p.device.OpenStream(ctx, p.devLink, name, 0)
	require.NoError(t, err)
	return hs, ds
}

func startWrite(h *Host, id types.StreamID, data []byte) <-chan error {
	done := make(chan error, 1)
	go func() { done <- h.WriteData(id, data) }()
	return done
}

func requireBlocked(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("调用应当阻塞，实际返回 %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func requireDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(testTimeout):
		t.Fatal("调用未返回")
		return nil
	}
}

// ============================================================================
//                              建链
// ============================================================================

func TestHost_Connect(t *testing.T) {
	p := newTestPair(t)
	ctx := testContext(t)

	assert.Equal(t, types.LinkUp, p.host.LinkState(p.link))
	assert.Equal(t, types.LinkUp, p.device.LinkState(p.devLink))
	assert.Equal(t, []types.LinkID{p.link}, p.host.Links())

	require.NoError(t, p.host.Ping(ctx, p.link))
	require.NoError(t, p.device.Ping(ctx, p.devLink))
}

func TestHost_ConnectAlreadyOpen(t *testing.T) {
	p := newTestPair(t)

	id, err := p.host.Connect(testContext(t), "pipe://dev", "")
	assert.ErrorIs(t, err, ErrAlreadyOpen)
	assert.Equal(t, StatusAlreadyOpen, StatusOf(err))
	assert.Equal(t, p.link, id)
}

func TestHost_ConnectDeviceNotFound(t *testing.T) {
	h := newTestHost(t, pipe.NewNetwork())

	id, err := h.Connect(testContext(t), "pipe://missing", "")
	assert.Equal(t, StatusDeviceNotFound, StatusOf(err))
	assert.Equal(t, types.InvalidLinkID, id)
	assert.Empty(t, h.Links())
}

func TestHost_ConnectUnsupportedScheme(t *testing.T) {
	h := newTestHost(t, pipe.NewNetwork())

	_, err := h.Connect(testContext(t), "usb://0", "")
	assert.Equal(t, StatusError, StatusOf(err))
}

func TestHost_NotStarted(t *testing.T) {
	h, err := New(WithChannel(config.SchemePipe))
	require.NoError(t, err)

	_, err = h.Connect(context.Background(), "pipe://dev", "")
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, h.Close())
	assert.ErrorIs(t, h.Start(context.Background()), ErrHostClosed)
	assert.NoError(t, h.Close())
}

func TestHost_InvalidConfig(t *testing.T) {
	_, err := New(WithMaxLinks(0))
	assert.Error(t, err)

	_, err = New(WithChannel("usb"))
	assert.Error(t, err)
}

func TestHost_UnknownLink(t *testing.T) {
	h := newTestHost(t, pipe.NewNetwork())

	err := h.Ping(testContext(t), 3)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.Equal(t, StatusNotOpen, StatusOf(err))
	assert.Equal(t, types.LinkDown, h.LinkState(3))

	err = h.WriteData(types.CombineIDs(3, 0), []byte("x"))
	assert.Equal(t, StatusNotOpen, StatusOf(err))
}

// ============================================================================
//                              流
// ============================================================================

func TestHost_OpenStream(t *testing.T) {
	p := newTestPair(t)
	ctx := testContext(t)

	id, err := p.host.OpenStream(ctx, p.link, "telemetry", 1000)
	require.NoError(t, err)

	linkID, local := types.SplitIDs(id)
	assert.Equal(t, p.link, linkID)

	infos, err := p.host.AvailableStreams(p.link)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "telemetry", infos[0].Name)
	assert.Equal(t, local, infos[0].ID)
	// 向上对齐到 64 字节
	assert.Equal(t, uint32(1024), infos[0].WriteSize)
	assert.True(t, infos[0].Writable())
	assert.False(t, infos[0].Readable())

	// 设备侧的同名流只读
	infos, err = p.device.AvailableStreams(p.devLink)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, uint32(1024), infos[0].ReadSize)
	assert.False(t, infos[0].Writable())
}

func TestHost_OpenStreamRejected(t *testing.T) {
	p := newTestPair(t)
	ctx := testContext(t)

	_, err := p.host.OpenStream(ctx, p.link, "a-name-that-is-far-too-long", 64)
	assert.ErrorIs(t, err, ErrStreamRejected)

	// 名称含 NUL 时在本端拒绝，对端不会留下截断名称的流
	_, err = p.host.OpenStream(ctx, p.link, "ab\x00c", 64)
	assert.ErrorIs(t, err, ErrStreamRejected)
	streams, err := p.device.AvailableStreams(p.devLink)
	require.NoError(t, err)
	assert.Empty(t, streams)

	// 对齐后会溢出的容量
	_, err = p.host.OpenStream(ctx, p.link, "huge", 0xFFFFFFF0)
	assert.ErrorIs(t, err, ErrStreamRejected)

	// 只查找时对端尚未创建
	_, err = p.host.OpenStream(ctx, p.link, "nothing", 0)
	assert.ErrorIs(t, err, ErrNoSuchStream)

	_, err = p.host.OpenStream(ctx, p.link, "s", 64)
	require.NoError(t, err)
	// 已提交的写容量不能增长
	_, err = p.host.OpenStream(ctx, p.link, "s", 4096)
	assert.ErrorIs(t, err, ErrStreamRejected)
}

func TestHost_WriteReadRelease(t *testing.T) {
	p := newTestPair(t)
	hs, ds := p.openBoth(t, "data", 256)

	require.NoError(t, p.host.WriteData(hs, []byte("hello")))

	pkt, err := p.device.ReadData(ds)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pkt.Data))
	assert.Equal(t, uint32(5), pkt.Length)

	fill, err := p.device.FillLevel(ds, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), fill)
	fill, err = p.host.FillLevel(hs, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), fill)

	require.NoError(t, p.device.ReleaseData(ds))

	fill, err = p.device.FillLevel(ds, false)
	require.NoError(t, err)
	assert.Zero(t, fill)
	fill, err = p.host.FillLevel(hs, true)
	require.NoError(t, err)
	assert.Zero(t, fill)
}

func TestHost_ReadBlocksUntilWrite(t *testing.T) {
	p := newTestPair(t)
	hs, ds := p.openBoth(t, "data", 64)

	type result struct {
		pkt types.Packet
		err error
	}
	read := make(chan result, 1)
	go func() {
		pkt, err := p.device.ReadData(ds)
		read <- result{pkt, err}
	}()

	select {
	case <-read:
		t.Fatal("读请求应当阻塞")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, p.host.WriteData(hs, []byte("late")))
	select {
	case r := <-read:
		require.NoError(t, r.err)
		assert.Equal(t, "late", string(r.pkt.Data))
	case <-time.After(testTimeout):
		t.Fatal("读请求未被唤醒")
	}
}

func TestHost_WriteTooBig(t *testing.T) {
	p := newTestPair(t)
	hs, _ := p.openBoth(t, "data", 64)

	err := p.host.WriteData(hs, make([]byte, 65))
	assert.ErrorIs(t, err, ErrSizeTooBig)
	assert.Equal(t, StatusCommunicationFail, StatusOf(err))
}

func TestHost_ReleaseWithoutRead(t *testing.T) {
	p := newTestPair(t)
	_, ds := p.openBoth(t, "data", 64)

	err := p.device.ReleaseData(ds)
	assert.Equal(t, StatusCommunicationFail, StatusOf(err))
}

func TestHost_CloseStreamIdempotent(t *testing.T) {
	p := newTestPair(t)
	ctx := testContext(t)
	hs, _ := p.openBoth(t, "data", 64)

	require.NoError(t, p.host.CloseStream(ctx, hs))
	require.NoError(t, p.host.CloseStream(ctx, hs))

	err := p.host.WriteData(hs, []byte("x"))
	assert.ErrorIs(t, err, ErrNoSuchStream)

	infos, err := p.device.AvailableStreams(p.devLink)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestHost_CloseWaitsForRelease(t *testing.T) {
	p := newTestPair(t)
	ctx := testContext(t)
	hs, ds := p.openBoth(t, "data", 64)

	require.NoError(t, p.host.WriteData(hs, []byte("pending")))

	closed := make(chan error, 1)
	go func() { closed <- p.host.CloseStream(ctx, hs) }()
	requireBlocked(t, closed)

	_, err := p.device.ReadData(ds)
	require.NoError(t, err)
	require.NoError(t, p.device.ReleaseData(ds))
	assert.NoError(t, requireDone(t, closed))
}

// ============================================================================
//                              场景
// ============================================================================

// 写满对端缓冲后第二次写阻塞，对端释放后同一请求完成
func TestScenario_TelemetryFlowControl(t *testing.T) {
	p := newTestPair(t)
	hs, ds := p.openBoth(t, "telemetry", 1024)

	first := bytes.Repeat([]byte{1}, 1024)
	second := bytes.Repeat([]byte{2}, 1024)

	require.NoError(t, p.host.WriteData(hs, first))
	fill, err := p.host.FillLevel(hs, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), fill)

	done := startWrite(p.host, hs, second)
	requireBlocked(t, done)

	pkt, err := p.device.ReadData(ds)
	require.NoError(t, err)
	assert.Equal(t, first, pkt.Data)
	require.NoError(t, p.device.ReleaseData(ds))

	require.NoError(t, requireDone(t, done))

	pkt, err = p.device.ReadData(ds)
	require.NoError(t, err)
	assert.Equal(t, second, pkt.Data)
	require.NoError(t, p.device.ReleaseData(ds))

	fill, err = p.host.FillLevel(hs, true)
	require.NoError(t, err)
	assert.Zero(t, fill)
}

// 同一链路上两条流的写方互不阻塞
func TestScenario_ConcurrentStreams(t *testing.T) {
	p := newTestPair(t)
	const packets = 50

	names := []string{"left", "right"}
	var wg sync.WaitGroup
	errs := make(chan error, 2*len(names))

	for _, name := range names {
		name := name
		hs, ds := p.openBoth(t, name, 256)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < packets; i++ {
				if err := p.host.WriteData(hs, bytes.Repeat([]byte{byte(i)}, 64)); err != nil {
					errs <- fmt.Errorf("write %s: %w", name, err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < packets; i++ {
				pkt, err := p.device.ReadData(ds)
				if err != nil {
					errs <- fmt.Errorf("read %s: %w", name, err)
					return
				}
				if pkt.Data[0] != byte(i) {
					errs <- fmt.Errorf("read %s: packet %d out of order", name, i)
					return
				}
				if err := p.device.ReleaseData(ds); err != nil {
					errs <- fmt.Errorf("release %s: %w", name, err)
					return
				}
			}
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(testTimeout):
		t.Fatal("并发读写未完成")
	}
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// 链路复位时被阻塞的写请求全部以通信失败结束
func TestScenario_ResetFailsWaiters(t *testing.T) {
	p := newTestPair(t)
	ctx := testContext(t)
	hs, _ := p.openBoth(t, "data", 64)

	require.NoError(t, p.host.WriteData(hs, make([]byte, 64)))

	waiters := make([]<-chan error, 3)
	for i := range waiters {
		waiters[i] = startWrite(p.host, hs, make([]byte, 64))
	}

	l, err := p.host.links.Get(p.link)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		local, _ := l.Dispatcher().Stats()
		return local[dispatcher.StateBlocked] == len(waiters)
	}, testTimeout, 10*time.Millisecond)

	require.NoError(t, p.host.ResetRemote(ctx, p.link))

	for _, w := range waiters {
		err := requireDone(t, w)
		assert.ErrorIs(t, err, ErrCommunicationFail)
		assert.Equal(t, StatusCommunicationFail, StatusOf(err))
	}

	assert.Equal(t, types.LinkDown, p.host.LinkState(p.link))
	assert.Empty(t, p.host.Links())
	require.Eventually(t, func() bool {
		return len(p.device.Links()) == 0
	}, testTimeout, 10*time.Millisecond)

	err = p.host.Ping(ctx, p.link)
	assert.ErrorIs(t, err, ErrNotOpen)
}

// 设备侧通道断开时主机侧阻塞的读请求返回
func TestScenario_PeerLost(t *testing.T) {
	p := newTestPair(t)
	_, ds := p.openBoth(t, "data", 64)

	read := make(chan error, 1)
	go func() {
		_, err := p.device.ReadData(ds)
		read <- err
	}()
	requireBlocked(t, read)

	require.NoError(t, p.host.Close())

	err := requireDone(t, read)
	assert.Equal(t, StatusCommunicationFail, StatusOf(err))
	require.Eventually(t, func() bool {
		return p.device.LinkState(p.devLink) == types.LinkDown
	}, testTimeout, 10*time.Millisecond)
}

func TestHost_ResetAll(t *testing.T) {
	p := newTestPair(t)
	p.openBoth(t, "a", 64)
	p.openBoth(t, "b", 128)

	require.NoError(t, p.host.ResetAll(testContext(t)))
	assert.Empty(t, p.host.Links())
}

// ============================================================================
//                              统计
// ============================================================================

func TestHost_Profile(t *testing.T) {
	p := newTestPair(t, WithClock(clock.NewMock()))
	hs, ds := p.openBoth(t, "data", 256)

	p.host.ProfStart()
	require.NoError(t, p.host.WriteData(hs, make([]byte, 100)))
	require.NoError(t, p.host.WriteData(hs, make([]byte, 28)))
	p.host.ProfStop()
	require.NoError(t, p.host.WriteData(hs, make([]byte, 16)))

	prof := p.host.Profile()
	assert.Equal(t, uint64(128), prof.TotalWriteBytes)
	assert.Zero(t, prof.TotalReadBytes)
	// 模拟时钟不前进
	assert.Zero(t, prof.WriteMBps())

	for i := 0; i < 3; i++ {
		_, err := p.device.ReadData(ds)
		require.NoError(t, err)
		require.NoError(t, p.device.ReleaseData(ds))
	}

	p.host.ProfStart()
	assert.Equal(t, types.Profile{}, p.host.Profile())
}

func TestHost_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := newTestPair(t, WithRegisterer(reg))
	hs, _ := p.openBoth(t, "data", 64)

	require.NoError(t, p.host.WriteData(hs, []byte("payload")))
	totals := p.host.Totals()
	assert.Positive(t, totals.TotalOut)
	assert.Positive(t, totals.TotalIn)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "devlink_events_processed_total")
	assert.Contains(t, names, "devlink_active_links")
}

func TestHost_MetricsDisabled(t *testing.T) {
	p := newTestPair(t, WithMetrics(false))
	hs, _ := p.openBoth(t, "data", 64)

	require.NoError(t, p.host.WriteData(hs, []byte("payload")))
	assert.Equal(t, Stats{}, p.host.Totals())
}

// ============================================================================
//                              状态码
// ============================================================================

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusSuccess},
		{ErrAlreadyOpen, StatusAlreadyOpen},
		{fmt.Errorf("wrap: %w", ErrNotOpen), StatusNotOpen},
		{fmt.Errorf("%w: %w", ErrCommunicationFail, ErrNoSuchStream), StatusCommunicationFail},
		{channel.ErrTimeout, StatusTimeout},
		{context.DeadlineExceeded, StatusTimeout},
		{channel.ErrDeviceNotFound, StatusDeviceNotFound},
		{errors.New("boom"), StatusError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "communication-fail", StatusCommunicationFail.String())
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint32(64), alignUp(1, 64))
	assert.Equal(t, uint32(64), alignUp(64, 64))
	assert.Equal(t, uint32(128), alignUp(65, 64))
	assert.Equal(t, uint32(7), alignUp(7, 1))
}
