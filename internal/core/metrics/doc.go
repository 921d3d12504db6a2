// Package metrics 提供链路监控指标
//
// metrics 模块为分发器和链路提供事件级别的计数：
//   - 事件处理计数（按来源和事件类型）
//   - 阻塞与失败计数
//   - 收发字节数与滑动窗口速率
//   - 链路上线/下线
//
// # 快速开始
//
//	reg := prometheus.NewRegistry()
//	reporter, err := metrics.NewPromReporter("devlink", reg, clock.New())
//	if err != nil {
//	    return err
//	}
//
//	reporter.EventProcessed("local", "WRITE_REQ")
//	reporter.BytesSent(1024)
//
//	stats := reporter.Totals()
//	fmt.Printf("Out: %d, RateOut: %.2f B/s\n", stats.TotalOut, stats.RateOut)
//
// 指标关闭时使用 NopReporter，所有方法为空操作。
//
// # Fx 集成
//
//	app := fx.New(
//	    fx.Supply(cfg),
//	    metrics.Module,
//	)
package metrics
