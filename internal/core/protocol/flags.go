package protocol

import "strings"

// Flags 事件标志位
//
// 位布局即线上编码，必须保持稳定。
type Flags uint32

const (
	// FlagAck 请求成功
	FlagAck Flags = 1 << iota
	// FlagNack 请求失败
	FlagNack
	// FlagBlock 请求需等待流状态变化
	FlagBlock
	// FlagLocalServe 请求在本端完成，不发送
	FlagLocalServe
	// FlagTerminate 链路即将终止
	FlagTerminate
	// FlagBufferFull 接收缓冲已满
	FlagBufferFull
	// FlagSizeTooBig 负载超过流容量
	FlagSizeTooBig
	// FlagNoSuchStream 流不存在
	FlagNoSuchStream
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagAck, "ack"},
	{FlagNack, "nack"},
	{FlagBlock, "block"},
	{FlagLocalServe, "localServe"},
	{FlagTerminate, "terminate"},
	{FlagBufferFull, "bufferFull"},
	{FlagSizeTooBig, "sizeTooBig"},
	{FlagNoSuchStream, "noSuchStream"},
}

// Has 是否设置了全部指定标志
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// Acked 是否为成功结果（ack 且非 nack）
func (f Flags) Acked() bool {
	return f.Has(FlagAck) && !f.Has(FlagNack)
}

// Fail 清除 ack 并设置 nack 与附加原因
func (f Flags) Fail(reason Flags) Flags {
	return (f &^ FlagAck) | FlagNack | reason
}

// String 返回标志位的可读形式
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	parts := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}
