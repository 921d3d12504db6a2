// Package tcp 提供基于 TCP 桥接的字节通道
//
// 每条链路占用一条 TCP 连接。设备侧由模拟器或桥接程序监听。
//
// # 地址格式
//
//	127.0.0.1:7000
//	tcp://127.0.0.1:7000
//
// # 使用示例
//
//	c := tcp.New(cfg.Channel)
//
//	// 设备侧
//	l, err := c.Listen("127.0.0.1:0")
//
//	// 主机侧
//	h, err := c.Connect(ctx, l.Addr(), "")
package tcp
