// Package conn 将字节流适配为字节通道句柄
//
// 具体传输（管道、TCP、yamux 流、QUIC 流）只需提供带读写超时的字节流，
// 由 Handle 实现 Infinite/Poll 超时语义、全量读写与错误映射。
// Backlog 为监听器提供带 ctx 的 Accept。
package conn
