package protocol

import "errors"

// 协议模块错误定义
var (
	// ErrProtocolViolation 对端违反协议（未知流、无请求的响应、重复事件等）
	ErrProtocolViolation = errors.New("protocol: protocol violation")

	// ErrShortHeader 头部长度不足
	ErrShortHeader = errors.New("protocol: short event header")

	// ErrUnknownEventType 未知事件类型
	ErrUnknownEventType = errors.New("protocol: unknown event type")

	// ErrNameTooLong 流名称超过头部名称字段长度
	ErrNameTooLong = errors.New("protocol: stream name too long")

	// ErrInvalidName 流名称含有 NUL 字节
	ErrInvalidName = errors.New("protocol: invalid stream name")
)
