package types

// ============================================================================
//                              LinkState - 链路状态
// ============================================================================

// LinkState 对端状态
type LinkState int

const (
	// LinkNotInit 未初始化
	LinkNotInit LinkState = iota
	// LinkUp 链路可用
	LinkUp
	// LinkDown 链路已关闭
	LinkDown
)

// String 返回链路状态的字符串表示
func (s LinkState) String() string {
	switch s {
	case LinkUp:
		return "up"
	case LinkDown:
		return "down"
	default:
		return "not-init"
	}
}

// ============================================================================
//                              Origin - 事件来源
// ============================================================================

// Origin 事件来源
type Origin int

const (
	// OriginLocal 本地调用方发起
	OriginLocal Origin = iota
	// OriginRemote 从字节通道读到的对端事件
	OriginRemote
)

// String 返回事件来源的字符串表示
func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}
