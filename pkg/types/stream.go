package types

// Packet 已接收但未释放的数据包
//
// Data 的所有权属于调度器，调用 ReleaseData 之后不得再访问。
type Packet struct {
	Data   []byte
	Length uint32
}

// StreamInfo 流的只读快照
type StreamInfo struct {
	// Name 流名称
	Name string

	// ID 链路内流 ID
	ID StreamID

	// WriteSize 对端声明的写容量
	WriteSize uint32

	// ReadSize 本地读容量
	ReadSize uint32

	// LocalFillLevel 本地已缓冲但未释放的字节数
	LocalFillLevel uint32

	// RemoteFillLevel 认为仍滞留在对端的字节数
	RemoteFillLevel uint32

	// RemoteFillPackets 认为仍滞留在对端的包数
	RemoteFillPackets uint32

	// BufferedPackets 本地环形缓冲中的包数（含已交付未释放的包）
	BufferedPackets int

	// CloseRequested 关闭请求因缓冲非空被推迟
	CloseRequested bool
}

// Writable 流是否可写
func (s StreamInfo) Writable() bool {
	return s.WriteSize != 0
}

// Readable 流是否可读
func (s StreamInfo) Readable() bool {
	return s.ReadSize != 0
}
