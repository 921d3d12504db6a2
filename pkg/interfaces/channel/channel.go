// Package channel 定义字节通道接口
//
// 字节通道是链路层之下的物理传输抽象（USB bulk、PCIe、串口、TCP 桥接等）。
// 调度器只依赖本包定义的契约：
//   - Connect 建立连接并返回句柄，每条链路恰好一个句柄
//   - Write 全有或全无地写入，超时之前内部重试部分写
//   - Read 填满整个缓冲区，超时或无限阻塞
//   - Reset 使句柄失效
package channel

import (
	"context"
	"errors"
	"time"
)

// Infinite 无限超时哨兵值
const Infinite time.Duration = -1

// Poll 非阻塞轮询
const Poll time.Duration = 0

// 字节通道错误
//
// 成功以 nil 表示，其余结果对应以下哨兵错误之一。
var (
	// ErrDeviceNotFound 设备不存在
	ErrDeviceNotFound = errors.New("channel: device not found")

	// ErrGeneric 通用 I/O 错误
	ErrGeneric = errors.New("channel: generic error")

	// ErrTimeout 超时
	ErrTimeout = errors.New("channel: timeout")

	// ErrDriverNotLoaded 驱动未加载
	ErrDriverNotLoaded = errors.New("channel: driver not loaded")
)

// ============================================================================
//                              Handle 接口
// ============================================================================

// Handle 已建立的字节通道连接
type Handle interface {
	// Write 写出全部字节
	//
	// timeout 为 Infinite 时无限阻塞，为 Poll 时立即返回。
	Write(p []byte, timeout time.Duration) error

	// Read 读满 p
	Read(p []byte, timeout time.Duration) error

	// Reset 复位对端并使句柄失效
	//
	// 重复调用是安全的。
	Reset() error

	// String 返回用于日志的描述
	String() string
}

// ============================================================================
//                              Connector 接口
// ============================================================================

// Connector 建立字节通道连接
type Connector interface {
	// Connect 连接到设备
	//
	// addrA/addrB 的含义由具体传输决定（例如读/写两个设备路径，或桥接地址与设备名）。
	Connect(ctx context.Context, addrA, addrB string) (Handle, error)

	// Scheme 返回传输名称（"pipe"、"tcp"、"yamux"、"quic"）
	Scheme() string
}

// Listener 设备侧接受连接
//
// 由模拟器和回环测试使用。
type Listener interface {
	// Accept 等待下一条连接
	Accept(ctx context.Context) (Handle, error)

	// Addr 返回监听地址
	Addr() string

	// Close 停止监听
	Close() error
}
