package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dep2p/go-devlink/pkg/types"
)

// fixedHeaderSize 头部除名称字段外的长度
const fixedHeaderSize = 4 * 5

// Header 事件头部
type Header struct {
	// ID 事件 ID，由发起请求的一端单调分配
	ID int32

	// Type 事件类型
	Type EventType

	// Name 流名称，仅建流请求/响应使用
	Name string

	// StreamID 链路内流 ID
	StreamID types.StreamID

	// Size 负载或容量大小
	Size uint32

	// Flags 标志位
	Flags Flags
}

// String 返回头部的可读形式
func (h Header) String() string {
	return fmt.Sprintf("%s id=%d stream=%s size=%d flags=%s",
		h.Type, h.ID, h.StreamID, h.Size, h.Flags)
}

// Codec 头部编解码器
//
// 名称字段长度可配置，同一链路两端必须一致。
type Codec struct {
	nameLen int
}

// NewCodec 创建编解码器
func NewCodec(nameLen int) *Codec {
	return &Codec{nameLen: nameLen}
}

// NameLength 返回名称字段长度
func (c *Codec) NameLength() int {
	return c.nameLen
}

// HeaderSize 返回编码后的头部长度
func (c *Codec) HeaderSize() int {
	return fixedHeaderSize + c.nameLen
}

// Encode 将头部编码到 buf，buf 长度必须不小于 HeaderSize
//
// 名称超出字段长度时被截断，不足时补零。
func (c *Codec) Encode(buf []byte, h Header) error {
	if len(buf) < c.HeaderSize() {
		return ErrShortHeader
	}
	le := binary.LittleEndian
	le.PutUint32(buf[0:], uint32(h.ID))
	le.PutUint32(buf[4:], uint32(h.Type))

	name := buf[8 : 8+c.nameLen]
	n := copy(name, h.Name)
	clear(name[n:])

	off := 8 + c.nameLen
	le.PutUint32(buf[off:], uint32(h.StreamID))
	le.PutUint32(buf[off+4:], h.Size)
	le.PutUint32(buf[off+8:], uint32(h.Flags))
	return nil
}

// Marshal 编码头部并返回新分配的缓冲
func (c *Codec) Marshal(h Header) []byte {
	buf := make([]byte, c.HeaderSize())
	// 长度已保证
	_ = c.Encode(buf, h)
	return buf
}

// Decode 从 buf 解码头部
func (c *Codec) Decode(buf []byte) (Header, error) {
	if len(buf) < c.HeaderSize() {
		return Header{}, ErrShortHeader
	}
	le := binary.LittleEndian

	h := Header{
		ID:   int32(le.Uint32(buf[0:])),
		Type: EventType(le.Uint32(buf[4:])),
	}
	if !h.Type.Valid() {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownEventType, uint32(h.Type))
	}

	name := buf[8 : 8+c.nameLen]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	h.Name = string(name)

	off := 8 + c.nameLen
	h.StreamID = types.StreamID(le.Uint32(buf[off:]))
	h.Size = le.Uint32(buf[off+4:])
	h.Flags = Flags(le.Uint32(buf[off+8:]))
	return h, nil
}

// CheckName 检查流名称能否放入名称字段
//
// 名称字段以 NUL 结尾，含 NUL 的名称解码后会被截断。
func (c *Codec) CheckName(name string) error {
	if len(name) > c.nameLen {
		return fmt.Errorf("%w: %d > %d", ErrNameTooLong, len(name), c.nameLen)
	}
	if i := strings.IndexByte(name, 0); i >= 0 {
		return fmt.Errorf("%w: NUL at offset %d", ErrInvalidName, i)
	}
	return nil
}
