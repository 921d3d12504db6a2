package types

import "fmt"

// ============================================================================
//                              LinkID - 链路标识
// ============================================================================

// LinkID 链路标识
//
// 单调分配的小整数，活跃期间不会复用。
type LinkID uint8

// InvalidLinkID 无效链路 ID
const InvalidLinkID LinkID = 0xFF

// IsValid 检查链路 ID 是否有效
func (id LinkID) IsValid() bool {
	return id != InvalidLinkID
}

// String 返回链路 ID 的字符串表示
func (id LinkID) String() string {
	if !id.IsValid() {
		return "link(invalid)"
	}
	return fmt.Sprintf("link(%d)", uint8(id))
}

// ============================================================================
//                              StreamID - 流标识
// ============================================================================

// StreamID 流标识
//
// 链路内的流 ID 占用低 24 位；经 CombineIDs 组合后最高字节携带链路 ID。
type StreamID uint32

const (
	// InvalidStreamID 无效流 ID（哨兵值）
	InvalidStreamID StreamID = 0xDEADDEAD

	// MaxLocalStreamID 链路内流 ID 的上限
	MaxLocalStreamID StreamID = 0xFFFFFF

	linkShift = 24
)

// IsValid 检查流 ID 是否有效
func (id StreamID) IsValid() bool {
	return id != InvalidStreamID
}

// String 返回流 ID 的字符串表示
func (id StreamID) String() string {
	if !id.IsValid() {
		return "stream(invalid)"
	}
	return fmt.Sprintf("stream(0x%x)", uint32(id))
}

// CombineIDs 组合链路 ID 和链路内流 ID
//
// 高字节 = 链路 ID，低 24 位 = 流 ID。
func CombineIDs(link LinkID, stream StreamID) StreamID {
	if !stream.IsValid() {
		return InvalidStreamID
	}
	return (stream & MaxLocalStreamID) | StreamID(link)<<linkShift
}

// SplitIDs 拆分跨链路流标识
func SplitIDs(combined StreamID) (LinkID, StreamID) {
	if !combined.IsValid() {
		return InvalidLinkID, InvalidStreamID
	}
	return LinkID(combined >> linkShift), combined & MaxLocalStreamID
}
