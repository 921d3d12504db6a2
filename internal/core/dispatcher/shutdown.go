package dispatcher

import (
	"errors"
)

// shutdown 完成链路终止
//
// 在读取协程和工作协程都退出后执行：以失败结束所有未完成的本地事件，
// 丢弃远端事件，使流表失效并复位字节通道。
func (d *Dispatcher) shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if !d.stopping {
		d.stopping = true
		close(d.stop)
	}
	d.closed = true
	if d.cause == nil {
		d.cause = ErrLinkDown
	}
	cause := d.cause

	failed := 0
	d.local.Range(func(i int, _ State, e *entry) {
		e.ev.Header.Flags = e.ev.Header.Flags.Fail(0)
		d.local.Free(i)
		e.ticket.complete(e.ev, ErrLinkDown)
		failed++
	})
	d.remote.Range(func(i int, _ State, _ *entry) {
		d.remote.Free(i)
	})
	d.space.Broadcast()
	d.mu.Unlock()

	d.streams.Invalidate()
	if err := d.handle.Reset(); err != nil {
		logger.Debug("复位字节通道失败", "link", d.cfg.Name, "error", err)
	}
	if d.running {
		d.reporter.LinkDown(downReason(cause))
	}
	logger.Info("链路已关闭", "link", d.cfg.Name, "cause", cause, "failedEvents", failed)

	if d.cfg.OnTerminate != nil {
		d.cfg.OnTerminate(cause)
	}
	close(d.done)
}

func downReason(cause error) string {
	switch {
	case errors.Is(cause, ErrLinkReset):
		return "reset"
	case errors.Is(cause, ErrClosed):
		return "closed"
	default:
		return "error"
	}
}
