package dispatcher

import (
	"fmt"
	"time"

	"github.com/dep2p/go-devlink/internal/core/protocol"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/lib/log"
	"github.com/dep2p/go-devlink/pkg/types"
)

// ============================================================================
//                              工作协程
// ============================================================================

// workLoop 逐个处理事件，直到链路终止
//
// 返回非 nil 错误即为终止原因。
func (d *Dispatcher) workLoop() error {
	for {
		ok, err := d.processNext()
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		select {
		case <-d.notify:
		case <-d.stop:
			return nil
		}
	}
}

// processNext 取出并处理下一个事件
//
// 顺序：就绪的本地事件（从上次位置轮转）> 新本地事件 > 新远端事件。
// 选中的槽位只由工作协程处理，解析期间不持有 mu。
func (d *Dispatcher) processNext() (bool, error) {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return false, nil
	}
	if i, ok := d.local.Scan(StateReady, d.readyFrom); ok {
		d.readyFrom = i + 1
		e := d.local.Get(i)
		d.mu.Unlock()
		return true, d.processLocal(i, e)
	}
	if i, ok := d.local.NextQueued(); ok {
		e := d.local.Get(i)
		d.mu.Unlock()
		return true, d.processLocal(i, e)
	}
	if i, ok := d.remote.NextQueued(); ok {
		e := d.remote.Get(i)
		d.mu.Unlock()
		return true, d.processRemote(i, e)
	}
	d.mu.Unlock()
	return false, nil
}

// processLocal 处理一个本地事件
func (d *Dispatcher) processLocal(i int, e *entry) error {
	res, err := protocol.ResolveLocal(d.streams, &e.ev)
	if err != nil {
		return err
	}

	h := e.ev.Header
	d.mu.Lock()
	switch res.Outcome {
	case protocol.OutcomeBlocked:
		d.local.Set(i, StateBlocked)
		d.reporter.EventBlocked(h.Type.String())
	case protocol.OutcomeServed:
		d.serveLocalLocked(i)
	case protocol.OutcomePending:
		d.local.Set(i, StatePending)
	}
	data := e.ev.Data
	d.mu.Unlock()

	if !res.Send {
		return nil
	}
	// 响应只会由本协程在发送完成后处理
	return d.send(h, data)
}

// processRemote 处理一个远端事件
func (d *Dispatcher) processRemote(i int, e *entry) error {
	h := e.ev.Header

	res, err := protocol.ResolveRemote(d.streams, &e.ev)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if h.Type.IsResponse() {
		if err := d.matchResponseLocked(h, res.Reject); err != nil {
			d.mu.Unlock()
			return err
		}
	}
	for _, w := range res.Wake {
		d.unblockLocked(AnyID, w.Type, w.StreamID)
	}
	d.remote.Free(i)
	d.reporter.EventProcessed(types.OriginRemote.String(), h.Type.String())
	d.mu.Unlock()

	if res.Send {
		if err := d.send(res.Response, nil); err != nil {
			return err
		}
	}
	if res.Terminate {
		return ErrLinkReset
	}
	return nil
}

// matchResponseLocked 以响应完成配对的本地请求
//
// 请求的标志位取自响应；建流请求同时取得对端分配的流 ID。
func (d *Dispatcher) matchResponseLocked(h protocol.Header, reject bool) error {
	reqType, _ := h.Type.Request()
	for i := 0; i < d.local.Cap(); i++ {
		if d.local.State(i) != StatePending {
			continue
		}
		e := d.local.Get(i)
		if e.ev.Header.ID != h.ID || e.ev.Header.Type != reqType {
			continue
		}

		e.ev.Header.Flags = h.Flags
		if reject {
			e.ev.Header.Flags = h.Flags.Fail(0)
		}
		if reqType == protocol.CreateStreamReq {
			e.ev.Header.StreamID = h.StreamID
		}
		d.serveLocalLocked(i)
		return nil
	}
	return fmt.Errorf("%w: %w: %s", protocol.ErrProtocolViolation, ErrNoRequest, h)
}

// serveLocalLocked 完成本地事件并释放槽位
func (d *Dispatcher) serveLocalLocked(i int) {
	e := d.local.Get(i)
	d.local.Free(i)
	d.space.Broadcast()

	typ := e.ev.Header.Type.String()
	d.reporter.EventProcessed(types.OriginLocal.String(), typ)
	if !e.ev.Header.Flags.Acked() {
		d.reporter.EventFailed(typ)
	}
	e.ticket.complete(e.ev, nil)
}

// send 写出事件头，写请求随后写出负载
func (d *Dispatcher) send(h protocol.Header, data []byte) error {
	if err := d.codec.Encode(d.wbuf, h); err != nil {
		return err
	}
	if err := d.handle.Write(d.wbuf, channel.Infinite); err != nil {
		return fmt.Errorf("write %s header: %w", h.Type, err)
	}
	n := len(d.wbuf)

	if h.Type == protocol.WriteReq && h.Size > 0 {
		if err := d.handle.Write(data[:h.Size], d.dataTimeout()); err != nil {
			return fmt.Errorf("write %s payload: %w", h.Type, err)
		}
		n += int(h.Size)
	}
	d.reporter.BytesSent(n)

	if logger.Enabled(log.LevelDebug) {
		logger.Debug("发送事件", "link", d.cfg.Name, "header", h.String())
	}
	return nil
}

// dataTimeout 负载读写超时，未配置时无限等待
func (d *Dispatcher) dataTimeout() time.Duration {
	if d.cfg.DataTimeout <= 0 {
		return channel.Infinite
	}
	return d.cfg.DataTimeout
}
