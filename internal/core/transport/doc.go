// Package transport 管理字节通道连接器
//
// Registry 按传输名称（scheme）登记连接器。地址可以带 "scheme://" 前缀，
// 不带前缀时使用配置的默认传输：
//
//	reg.Connect(ctx, "tcp://127.0.0.1:7000", "")
//	reg.Connect(ctx, "dev0", "")              // 默认 scheme
//
// 内置传输：
//   - pipe：进程内 net.Pipe，用于模拟与测试
//   - tcp：每条链路一条 TCP 连接
//   - yamux：同一桥接地址上的链路复用一条 TCP 连接
//   - quic：每条链路一个 QUIC 流
package transport
