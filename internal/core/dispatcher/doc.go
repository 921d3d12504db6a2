// Package dispatcher 实现每条链路的事件调度器
//
// # 结构
//
// 每条链路一个 Dispatcher，包含：
//   - 两个固定容量的事件环（本地发起 / 远端发起）
//   - 读取协程：从字节通道读取事件头与负载，放入远端事件环
//   - 工作协程：按 就绪 > 新本地 > 新远端 的顺序取事件，
//     交给 protocol 解析器，并根据解析结果发送、阻塞或完成事件
//
// 本地调用方通过 Enqueue 得到 Ticket，在 Ticket.Wait 上等待自己的事件完成。
// 每次调用拥有独立的一次性完成信号，不存在跨调用共享的信号量。
//
// # 终止
//
// 以下任一情况使链路终止：
//   - 收到远端复位请求（发送响应之后）
//   - 本地复位请求得到响应
//   - 字节通道读写失败
//   - 对端违反协议
//
// 终止时依次：等待读取协程退出、以失败结束所有未完成的本地事件、
// 使流表全部失效、复位字节通道。
package dispatcher
