package devlink

import (
	"context"
	"errors"

	"github.com/dep2p/go-devlink/internal/core/link"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// Host 生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted Host 未启动
	ErrNotStarted = errors.New("host not started")

	// ErrAlreadyStarted Host 已启动
	ErrAlreadyStarted = errors.New("host already started")

	// ErrHostClosed Host 已关闭
	ErrHostClosed = errors.New("host closed")

	// ────────────────────────────────────────────────────────────────────────
	// 链路错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrAlreadyOpen 地址上已有可用链路
	ErrAlreadyOpen = errors.New("link already open")

	// ErrNotOpen 链路不存在或不可用
	ErrNotOpen = errors.New("link not open")

	// ErrCommunicationFail 请求未被对端确认，或链路在请求完成前终止
	ErrCommunicationFail = errors.New("communication failure")

	// ErrTimeout 字节通道或等待超时
	ErrTimeout = errors.New("timeout")

	// ErrDeviceNotFound 设备不存在
	ErrDeviceNotFound = errors.New("device not found")

	// ErrTooManyLinks 链路数达到上限
	ErrTooManyLinks = link.ErrTooManyLinks

	// ────────────────────────────────────────────────────────────────────────
	// 流错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNoSuchStream 流不存在
	ErrNoSuchStream = errors.New("no such stream")

	// ErrStreamRejected 建流被拒绝（名称过长、流表已满或容量冲突）
	ErrStreamRejected = errors.New("stream rejected")

	// ErrSizeTooBig 负载超过流的写容量
	ErrSizeTooBig = errors.New("size exceeds stream capacity")
)

// Status 调用结果分类
type Status int

const (
	// StatusSuccess 成功
	StatusSuccess Status = iota
	// StatusAlreadyOpen 链路已打开
	StatusAlreadyOpen
	// StatusNotOpen 链路未打开
	StatusNotOpen
	// StatusCommunicationFail 通信失败
	StatusCommunicationFail
	// StatusTimeout 超时
	StatusTimeout
	// StatusDeviceNotFound 设备不存在
	StatusDeviceNotFound
	// StatusError 其他错误
	StatusError
)

// String 返回状态名称
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAlreadyOpen:
		return "already-open"
	case StatusNotOpen:
		return "not-open"
	case StatusCommunicationFail:
		return "communication-fail"
	case StatusTimeout:
		return "timeout"
	case StatusDeviceNotFound:
		return "device-not-found"
	default:
		return "error"
	}
}

// StatusOf 将错误归类为 Status
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrAlreadyOpen):
		return StatusAlreadyOpen
	case errors.Is(err, ErrNotOpen):
		return StatusNotOpen
	case errors.Is(err, ErrCommunicationFail):
		return StatusCommunicationFail
	case errors.Is(err, ErrTimeout),
		errors.Is(err, channel.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, ErrDeviceNotFound), errors.Is(err, channel.ErrDeviceNotFound):
		return StatusDeviceNotFound
	default:
		return StatusError
	}
}
