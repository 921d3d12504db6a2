package stream

import (
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-devlink/pkg/types"
)

// Stream 链路内的一个命名流
//
// 导出字段受流锁保护，只能在 Find*/Release 之间访问。
// Name 创建后不变。
type Stream struct {
	mu sync.Mutex
	id atomic.Uint32

	// Name 流名称，链路内唯一
	Name string

	// WriteSize 对端提交的接收容量，即本端可写容量；0 表示不可写
	WriteSize uint32

	// ReadSize 本端提交的接收容量；0 表示不可读
	ReadSize uint32

	// LocalFill 本地已缓冲、尚未释放的字节数
	LocalFill uint32

	// RemoteFill 已写出、对端尚未释放的字节数
	RemoteFill uint32

	// RemoteFillPackets 已写出、对端尚未释放的包数
	RemoteFillPackets uint32

	// CloseRequested 关闭请求因缓冲非空被推迟
	CloseRequested bool

	ring packetRing
}

func newStream(name string, id types.StreamID, maxPackets int) *Stream {
	s := &Stream{
		Name: name,
		ring: newPacketRing(maxPackets),
	}
	s.id.Store(uint32(id))
	return s
}

// ID 返回流 ID，流已释放时返回 InvalidStreamID
func (s *Stream) ID() types.StreamID {
	return types.StreamID(s.id.Load())
}

// AddPacket 追加一个收到的包，本地填充量随之增加
func (s *Stream) AddPacket(data []byte) error {
	p := types.Packet{Data: data, Length: uint32(len(data))}
	if err := s.ring.push(p); err != nil {
		return err
	}
	s.LocalFill += p.Length
	return nil
}

// TakePacket 交付最早的未交付包
//
// 交付的包仍占用槽位与本地填充量，直到 ReleasePacket。
func (s *Stream) TakePacket() (types.Packet, bool) {
	return s.ring.take()
}

// ReleasePacket 释放最早的已交付包，返回其长度
func (s *Stream) ReleasePacket() (uint32, error) {
	p, ok := s.ring.release()
	if !ok {
		return 0, ErrNoPacket
	}
	s.LocalFill -= p.Length
	return p.Length, nil
}

// HasRemoteSpace 对端剩余容量是否足以接收 size 字节
func (s *Stream) HasRemoteSpace(size uint32, maxPackets int) bool {
	if int(s.RemoteFillPackets) >= maxPackets {
		return false
	}
	return uint64(s.RemoteFill)+uint64(size) <= uint64(s.WriteSize)
}

// Info 返回流的快照
func (s *Stream) Info() types.StreamInfo {
	return types.StreamInfo{
		Name:              s.Name,
		ID:                s.ID(),
		WriteSize:         s.WriteSize,
		ReadSize:          s.ReadSize,
		LocalFillLevel:    s.LocalFill,
		RemoteFillLevel:   s.RemoteFill,
		RemoteFillPackets: s.RemoteFillPackets,
		BufferedPackets:   s.ring.len(),
		CloseRequested:    s.CloseRequested,
	}
}
