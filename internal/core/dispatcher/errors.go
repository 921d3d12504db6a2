package dispatcher

import "errors"

// 调度器错误定义
var (
	// ErrLinkDown 链路已终止，事件未被处理
	ErrLinkDown = errors.New("dispatcher: link is down")

	// ErrLinkReset 链路经复位请求/响应正常终止
	ErrLinkReset = errors.New("dispatcher: link reset")

	// ErrClosed 调度器被本端关闭
	ErrClosed = errors.New("dispatcher: closed")

	// ErrDuplicateEvent 收到与上一事件 ID 和类型相同的事件
	ErrDuplicateEvent = errors.New("dispatcher: duplicate event")

	// ErrNoRequest 响应没有对应的等待中请求
	ErrNoRequest = errors.New("dispatcher: no pending request for response")

	// ErrRemoteQueueFull 远端事件环溢出
	ErrRemoteQueueFull = errors.New("dispatcher: remote event queue overflow")
)
