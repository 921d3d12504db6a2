package dispatcher

import (
	"context"

	"github.com/dep2p/go-devlink/internal/core/protocol"
)

// Ticket 一次本地调用的完成凭据
//
// 事件完成时调度器写入最终事件（含对端回传的标志位）并关闭 done。
// 槽位随即可被复用，Ticket 持有的是副本。
type Ticket struct {
	done chan struct{}
	ev   protocol.Event
	err  error
}

func newTicket() *Ticket {
	return &Ticket{done: make(chan struct{})}
}

// complete 只能调用一次，调用方持有调度器锁
func (t *Ticket) complete(ev protocol.Event, err error) {
	t.ev = ev
	t.err = err
	close(t.done)
}

// Done 返回完成通知通道
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait 等待事件完成
//
// 链路终止导致的完成返回 ErrLinkDown，事件标志位为 nack。
// ctx 取消只结束等待，不撤销已入队的事件。
func (t *Ticket) Wait(ctx context.Context) (protocol.Event, error) {
	select {
	case <-t.done:
		return t.ev, t.err
	case <-ctx.Done():
		return protocol.Event{}, ctx.Err()
	}
}
