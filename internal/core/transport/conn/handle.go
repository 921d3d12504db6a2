package conn

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
)

// pollWindow Poll 超时的实际等待窗口
const pollWindow = time.Millisecond

// Stream 可设置读写超时的字节流
//
// net.Conn、yamux 流和 QUIC 流都满足该接口。
type Stream interface {
	io.Reader
	io.Writer
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Handle 基于字节流的通道句柄
type Handle struct {
	stream Stream
	name   string

	reset     func() error
	resetOnce sync.Once
	resetErr  error
	closed    atomic.Bool
}

var _ channel.Handle = (*Handle)(nil)

// NewHandle 创建句柄，reset 在第一次 Reset 时调用
func NewHandle(s Stream, name string, reset func() error) *Handle {
	return &Handle{
		stream: s,
		name:   name,
		reset:  reset,
	}
}

// Wrap 将 net.Conn 包装为句柄，Reset 关闭连接
func Wrap(c net.Conn, name string) *Handle {
	return NewHandle(c, name, c.Close)
}

// Write 写出全部字节
func (h *Handle) Write(p []byte, timeout time.Duration) error {
	if h.closed.Load() {
		return fmt.Errorf("%w: %s is reset", channel.ErrGeneric, h.name)
	}
	if err := h.stream.SetWriteDeadline(deadline(timeout)); err != nil {
		return mapError(err)
	}
	for len(p) > 0 {
		n, err := h.stream.Write(p)
		p = p[n:]
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

// Read 读满 p
func (h *Handle) Read(p []byte, timeout time.Duration) error {
	if h.closed.Load() {
		return fmt.Errorf("%w: %s is reset", channel.ErrGeneric, h.name)
	}
	if err := h.stream.SetReadDeadline(deadline(timeout)); err != nil {
		return mapError(err)
	}
	_, err := io.ReadFull(h.stream, p)
	return mapError(err)
}

// Reset 使句柄失效，重复调用返回第一次的结果
func (h *Handle) Reset() error {
	h.resetOnce.Do(func() {
		h.closed.Store(true)
		if h.reset != nil {
			h.resetErr = h.reset()
		}
	})
	return h.resetErr
}

// String 返回句柄描述
func (h *Handle) String() string {
	return h.name
}

func deadline(timeout time.Duration) time.Time {
	switch {
	case timeout < 0:
		return time.Time{}
	case timeout == channel.Poll:
		return time.Now().Add(pollWindow)
	default:
		return time.Now().Add(timeout)
	}
}

// mapError 将传输错误映射为通道哨兵错误，保留原始错误链
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %w", channel.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", channel.ErrGeneric, err)
}
