package conn

import (
	"context"
	"errors"
	"sync"

	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
)

// ErrListenerClosed 监听器已关闭
var ErrListenerClosed = errors.New("listener closed")

// Backlog 已接受但尚未被取走的句柄队列
type Backlog struct {
	ch     chan channel.Handle
	closed chan struct{}
	once   sync.Once
}

// NewBacklog 创建容量为 n 的队列
func NewBacklog(n int) *Backlog {
	return &Backlog{
		ch:     make(chan channel.Handle, n),
		closed: make(chan struct{}),
	}
}

// Push 放入句柄，队列关闭或 ctx 结束时复位句柄并返回 false
func (b *Backlog) Push(ctx context.Context, h channel.Handle) bool {
	select {
	case <-b.closed:
		_ = h.Reset()
		return false
	default:
	}
	select {
	case b.ch <- h:
		return true
	case <-b.closed:
	case <-ctx.Done():
	}
	_ = h.Reset()
	return false
}

// Accept 取出下一个句柄
func (b *Backlog) Accept(ctx context.Context) (channel.Handle, error) {
	select {
	case h := <-b.ch:
		return h, nil
	case <-b.closed:
		return nil, ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Closed 返回关闭通知通道
func (b *Backlog) Closed() <-chan struct{} {
	return b.closed
}

// Close 关闭队列并复位所有未取走的句柄
func (b *Backlog) Close() {
	b.once.Do(func() {
		close(b.closed)
		for {
			select {
			case h := <-b.ch:
				_ = h.Reset()
			default:
				return
			}
		}
	})
}
