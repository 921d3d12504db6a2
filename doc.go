// Package devlink 在单条字节通道上复用多条带流控的命名数据流
//
// 每条链路由一个调度器驱动：读取协程从字节通道取出事件，工作协程按
// 协议状态机解析本地与远端事件，在流控条件变化时阻塞或唤醒调用方。
//
// # 核心概念
//
//   - Host: 链路表的持有者，用户交互的主入口
//   - Link: 一条字节通道连接，由 LinkID 标识
//   - Stream: 链路内的命名流，读写容量分别协商
//
// # 快速开始
//
//	import "github.com/dep2p/go-devlink"
//
//	host, err := devlink.Start(ctx, devlink.WithChannel("tcp"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close()
//
//	link, err := host.Connect(ctx, "tcp://127.0.0.1:7000", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	id, err := host.OpenStream(ctx, link, "telemetry", 1024)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = host.WriteData(id, payload)
//
// # 调用语义
//
// 流数据操作（WriteData、ReadData、ReleaseData）同步阻塞，直到请求被服务
// 或链路终止；调度器本身不附加超时。链路终止时所有未完成的调用以
// ErrCommunicationFail 返回。
//
// 建链与控制操作（Connect、Ping、OpenStream、CloseStream、ResetRemote）
// 接受 context，取消只结束等待，已入队的事件仍会被处理。
//
// # 错误
//
// 所有错误都可以用 StatusOf 归类到 Status 枚举。
//
// # 文件组织
//
//   - host.go     - Host 构造与生命周期
//   - link.go     - 建链、握手、复位
//   - streams.go  - 流的打开、关闭与数据读写
//   - profile.go  - 吞吐统计
//   - options.go  - 配置选项
//   - errors.go   - 错误与状态码
//   - fx.go       - 依赖注入装配
package devlink
