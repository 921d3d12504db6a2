package protocol

import (
	"github.com/dep2p/go-devlink/internal/core/stream"
	"github.com/dep2p/go-devlink/pkg/types"
)

// Event 一个排队中的协议事件
type Event struct {
	Header Header

	// Origin 事件来源
	Origin types.Origin

	// Data 写请求的负载（调用方缓冲），或读请求交付的包数据
	Data []byte
}

// Outcome 本地请求的解析结果
type Outcome uint8

const (
	// OutcomePending 已发送，等待配对响应
	OutcomePending Outcome = iota
	// OutcomeBlocked 等待流状态变化后重新解析
	OutcomeBlocked
	// OutcomeServed 已在本端完成（成功或失败）
	OutcomeServed
)

// String 返回解析结果名称
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeServed:
		return "served"
	default:
		return "unknown"
	}
}

// Wake 唤醒键：同一流上指定类型的首个阻塞本地请求
type Wake struct {
	Type     EventType
	StreamID types.StreamID
}

// Resolution 解析器输出
//
// 调度器据此发送事件、更新队列状态、唤醒阻塞事件。
type Resolution struct {
	// Outcome 本地请求的去向
	Outcome Outcome

	// Send 是否需要发送
	//
	// 本地请求发送事件本身；远端请求发送 Response。
	Send bool

	// Response 远端请求的响应头
	Response Header

	// Wake 需要唤醒的阻塞本地请求
	Wake []Wake

	// Reject 远端响应已确认但本端记账失败，配对的请求应以失败结束
	Reject bool

	// Terminate 处理完本事件后终止链路
	Terminate bool
}

// StreamTable 解析器访问的流表
//
// *stream.Registry 实现该接口。
type StreamTable interface {
	Allocate(name string, writeSize, readSize uint32, forced types.StreamID) types.StreamID
	FindByID(id types.StreamID) *stream.Stream
	Release(s *stream.Stream)
	Free(s *stream.Stream)
	MaxPackets() int
}

var _ StreamTable = (*stream.Registry)(nil)
