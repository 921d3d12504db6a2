package metrics

// Reporter 记录链路事件指标
//
// 所有方法必须并发安全，分发器在持锁路径上调用它们，实现不得阻塞。
type Reporter interface {
	// EventProcessed 记录一个已处理事件
	EventProcessed(origin, eventType string)

	// EventBlocked 记录一个被阻塞的本地请求
	EventBlocked(eventType string)

	// EventFailed 记录一个以 nack 结束的请求
	EventFailed(eventType string)

	// DuplicateEvent 记录一个被丢弃的重复远端事件
	DuplicateEvent()

	// BytesSent 记录写入传输层的字节数
	BytesSent(n int)

	// BytesReceived 记录从传输层读取的字节数
	BytesReceived(n int)

	// LinkUp 记录链路上线
	LinkUp()

	// LinkDown 记录链路下线
	LinkDown(reason string)

	// Totals 返回收发统计
	Totals() Stats
}

// NopReporter 不记录任何指标
type NopReporter struct{}

func (NopReporter) EventProcessed(string, string) {}
func (NopReporter) EventBlocked(string)           {}
func (NopReporter) EventFailed(string)            {}
func (NopReporter) DuplicateEvent()               {}
func (NopReporter) BytesSent(int)                 {}
func (NopReporter) BytesReceived(int)             {}
func (NopReporter) LinkUp()                       {}
func (NopReporter) LinkDown(string)               {}
func (NopReporter) Totals() Stats                 { return Stats{} }

var (
	_ Reporter = NopReporter{}
	_ Reporter = (*PromReporter)(nil)
)
