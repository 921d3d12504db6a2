package stream

import "errors"

// 流注册表错误定义
var (
	// ErrRingFull 包环形缓冲已满
	ErrRingFull = errors.New("stream: packet ring is full")

	// ErrNoPacket 没有可交付或可释放的包
	ErrNoPacket = errors.New("stream: no packet")
)
