// Package protocol 实现链路事件协议状态机
//
// # 核心功能
//
// 1. 事件类型 (EventType)
//   - 写、读、释放、建流、关流、ping、复位七种请求
//   - 每种请求恰好对应一种响应，配对关系由显式表给出
//
// 2. 线上头部 (Header / Codec)
//   - 固定长度、小端序：id | type | name[NameLength] | streamId | size | flags
//   - 仅写请求在头部之后携带 size 字节负载
//
// 3. 解析器 (ResolveLocal / ResolveRemote)
//   - 只根据流状态决定协议结果：要发送的响应、是否发送、
//     阻塞/已服务/等待响应，以及需要唤醒的阻塞事件
//   - 不涉及任何并发原语，阻塞语义由调度器解释
//
// # 事件生命周期
//
//	本地请求:  Queued -> Pending  -> Served   (收到配对响应)
//	          Queued -> Blocked  -> Ready -> (重新解析)
//	          Queued -> Served             (本地直接服务或失败)
//	远端事件:  Queued -> Served             (处理后立即释放槽位)
package protocol
