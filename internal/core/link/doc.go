// Package link 管理链路
//
// 每条链路绑定一个字节通道句柄、一个流注册表和一个调度器。
// Table 是固定上限的链路表：链路 ID 为单调分配的小整数，
// 回绕时跳过仍在使用的 ID，链路终止后从表中移除。
package link
