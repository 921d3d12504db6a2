package link

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/protocol"
	"github.com/dep2p/go-devlink/internal/core/transport/conn"
	"github.com/dep2p/go-devlink/pkg/types"
)

func testParams(t *testing.T) Params {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return Params{
		Role:   RoleHost,
		Addr:   "pipe",
		Handle: conn.Wrap(a, "test"),
		Config: config.DefaultLinkConfig(),
	}
}

func TestTable_MonotonicIDs(t *testing.T) {
	tbl := NewTable(4)

	l0, err := tbl.Add(testParams(t))
	require.NoError(t, err)
	l1, err := tbl.Add(testParams(t))
	require.NoError(t, err)
	assert.Equal(t, types.LinkID(0), l0.ID())
	assert.Equal(t, types.LinkID(1), l1.ID())

	// 移除后 ID 不会立即复用
	tbl.Remove(l0)
	l2, err := tbl.Add(testParams(t))
	require.NoError(t, err)
	assert.Equal(t, types.LinkID(2), l2.ID())

	assert.Equal(t, 2, tbl.Len())
	_, err = tbl.Get(0)
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestTable_WrapSkipsLive(t *testing.T) {
	tbl := NewTable(4)

	l0, err := tbl.Add(testParams(t))
	require.NoError(t, err)
	require.Equal(t, types.LinkID(0), l0.ID())

	tbl.nextID = 0xFE
	l, err := tbl.Add(testParams(t))
	require.NoError(t, err)
	assert.Equal(t, types.LinkID(0xFE), l.ID())

	// 跳过无效 ID 0xFF 和仍在使用的 0
	l, err = tbl.Add(testParams(t))
	require.NoError(t, err)
	assert.Equal(t, types.LinkID(1), l.ID())
}

func TestTable_Full(t *testing.T) {
	tbl := NewTable(2)
	for i := 0; i < 2; i++ {
		_, err := tbl.Add(testParams(t))
		require.NoError(t, err)
	}
	_, err := tbl.Add(testParams(t))
	assert.ErrorIs(t, err, ErrTooManyLinks)
}

func TestTable_RemoveStale(t *testing.T) {
	tbl := NewTable(2)
	l, err := tbl.Add(testParams(t))
	require.NoError(t, err)

	tbl.Remove(l)
	tbl.Remove(l)
	assert.Zero(t, tbl.Len())
}

func TestTable_AllSorted(t *testing.T) {
	tbl := NewTable(4)
	for i := 0; i < 3; i++ {
		_, err := tbl.Add(testParams(t))
		require.NoError(t, err)
	}
	all := tbl.All()
	require.Len(t, all, 3)
	for i, l := range all {
		assert.Equal(t, types.LinkID(i), l.ID())
	}
}

func TestLink_Lifecycle(t *testing.T) {
	a, b := net.Pipe()
	cfg := config.DefaultLinkConfig()

	terminated := make(chan error, 1)
	tbl := NewTable(4)
	host, err := tbl.Add(Params{
		Role:   RoleHost,
		Addr:   "pipe://dev",
		Handle: conn.Wrap(a, "host"),
		Config: cfg,
		OnTerminate: func(l *Link, cause error) {
			tbl.Remove(l)
			terminated <- cause
		},
	})
	require.NoError(t, err)
	device, err := tbl.Add(Params{Role: RoleDevice, Handle: conn.Wrap(b, "device"), Config: cfg})
	require.NoError(t, err)

	assert.Equal(t, types.LinkNotInit, host.State())
	host.Start()
	device.Start()
	host.MarkUp()
	device.MarkUp()
	assert.Equal(t, types.LinkUp, host.State())
	assert.Same(t, host, tbl.FindByAddr("pipe://dev"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := host.Call(ctx, protocol.Header{Type: protocol.PingReq}, nil)
	require.NoError(t, err)
	assert.True(t, ev.Header.Flags.Acked())

	require.NoError(t, host.Close())
	assert.Equal(t, types.LinkDown, host.State())
	assert.Error(t, <-terminated)
	assert.Nil(t, tbl.FindByAddr("pipe://dev"))

	select {
	case <-device.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("对端链路未终止")
	}
	assert.Equal(t, types.LinkDown, device.State())
}
