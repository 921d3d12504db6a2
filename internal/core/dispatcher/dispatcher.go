package dispatcher

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-devlink/config"
	"github.com/dep2p/go-devlink/internal/core/metrics"
	"github.com/dep2p/go-devlink/internal/core/protocol"
	"github.com/dep2p/go-devlink/pkg/interfaces/channel"
	"github.com/dep2p/go-devlink/pkg/lib/log"
	"github.com/dep2p/go-devlink/pkg/types"
)

var logger = log.Logger("core/dispatcher")

// firstEventID 本地事件 ID 的起始值
const firstEventID int32 = 0xa

// AnyID 匹配任意事件 ID
const AnyID int32 = -1

// Streams 调度器使用的流表
type Streams interface {
	protocol.StreamTable

	// Invalidate 使全部流失效
	Invalidate()
}

// Config 调度器配置
type Config struct {
	// Name 日志中的链路名称
	Name string

	// MaxEvents 本地事件环容量，远端事件环为其两倍
	MaxEvents int

	// DataTimeout 负载读写超时
	DataTimeout time.Duration

	// DuplicatePolicy 重复事件处理策略
	DuplicatePolicy string

	// DuplicateLogRate 重复事件告警的每秒上限
	DuplicateLogRate float64

	// Codec 头部编解码器
	Codec *protocol.Codec

	// Reporter 指标上报，为空时不上报
	Reporter metrics.Reporter

	// OnTerminate 链路终止后回调，参数为终止原因
	OnTerminate func(cause error)
}

// ConfigFromLink 从链路配置生成调度器配置
func ConfigFromLink(name string, lc config.LinkConfig) Config {
	return Config{
		Name:             name,
		MaxEvents:        lc.MaxEvents,
		DataTimeout:      lc.DataTimeout.Duration(),
		DuplicatePolicy:  lc.DuplicatePolicy,
		DuplicateLogRate: lc.DuplicateLogRate,
		Codec:            protocol.NewCodec(lc.NameLength),
	}
}

// entry 事件环中的一个事件
type entry struct {
	ev protocol.Event
	// ticket 本地事件的完成凭据，远端事件为空
	ticket *Ticket
}

// Dispatcher 单条链路的事件调度器
type Dispatcher struct {
	cfg      Config
	handle   channel.Handle
	streams  Streams
	codec    *protocol.Codec
	reporter metrics.Reporter
	limiter  *rate.Limiter

	mu sync.Mutex
	// space 本地事件环出现空位或链路终止
	space  *sync.Cond
	local  *Ring[*entry]
	remote *Ring[*entry]

	readyFrom int
	nextID    int32

	// stopping 终止已开始，不再接受新事件
	stopping bool
	// closed 终止已完成
	closed bool
	cause  error

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}

	startOnce sync.Once
	running   bool

	// wbuf 头部发送缓冲，仅工作协程使用
	wbuf []byte
}

// New 创建调度器
func New(handle channel.Handle, streams Streams, cfg Config) *Dispatcher {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = config.DefaultLinkConfig().MaxEvents
	}
	if cfg.Codec == nil {
		cfg.Codec = protocol.NewCodec(config.DefaultLinkConfig().NameLength)
	}
	if cfg.DuplicatePolicy == "" {
		cfg.DuplicatePolicy = config.DuplicateLog
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = metrics.NopReporter{}
	}
	limit := rate.Limit(cfg.DuplicateLogRate)
	if cfg.DuplicateLogRate <= 0 {
		limit = rate.Inf
	}

	d := &Dispatcher{
		cfg:      cfg,
		handle:   handle,
		streams:  streams,
		codec:    cfg.Codec,
		reporter: reporter,
		limiter:  rate.NewLimiter(limit, 1),
		local:    NewRing[*entry](cfg.MaxEvents),
		remote:   NewRing[*entry](2 * cfg.MaxEvents),
		nextID:   firstEventID,
		notify:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		wbuf:     make([]byte, cfg.Codec.HeaderSize()),
	}
	d.space = sync.NewCond(&d.mu)
	return d
}

// Start 启动读取协程和工作协程
//
// 重复调用无效。
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.running = true
		d.reporter.LinkUp()
		logger.Debug("调度器启动", "link", d.cfg.Name, "channel", d.handle.String())

		var g errgroup.Group
		g.Go(func() error {
			err := d.readLoop()
			if err != nil {
				d.terminate(err)
			}
			return err
		})
		g.Go(func() error {
			err := d.workLoop()
			if err != nil {
				d.terminate(err)
			}
			return err
		})
		go func() {
			_ = g.Wait()
			d.shutdown()
		}()
	})
}

// Enqueue 放入一个本地事件并返回其完成凭据
//
// 事件 ID 在此分配，标志位预置 ack。本地事件环满时阻塞，
// 直到出现空位或链路终止。
func (d *Dispatcher) Enqueue(h protocol.Header, data []byte) (*Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		if d.stopping || d.closed {
			return nil, ErrLinkDown
		}
		h.ID = d.nextID
		h.Flags |= protocol.FlagAck
		e := &entry{
			ev:     protocol.Event{Header: h, Origin: types.OriginLocal, Data: data},
			ticket: newTicket(),
		}
		if _, ok := d.local.TryClaim(e); ok {
			d.nextID++
			d.wakeWorker()
			return e.ticket, nil
		}
		d.space.Wait()
	}
}

// enqueueRemote 放入一个从通道读到的事件
func (d *Dispatcher) enqueueRemote(ev protocol.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopping || d.closed {
		return ErrLinkDown
	}
	if _, ok := d.remote.TryClaim(&entry{ev: ev}); !ok {
		return ErrRemoteQueueFull
	}
	d.wakeWorker()
	return nil
}

// Unblock 将首个匹配的阻塞本地事件置为就绪
//
// id 为 AnyID 时不比较事件 ID。
func (d *Dispatcher) Unblock(id int32, typ protocol.EventType, sid types.StreamID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.unblockLocked(id, typ, sid) {
		d.wakeWorker()
		return true
	}
	return false
}

func (d *Dispatcher) unblockLocked(id int32, typ protocol.EventType, sid types.StreamID) bool {
	for i := 0; i < d.local.Cap(); i++ {
		if d.local.State(i) != StateBlocked {
			continue
		}
		h := d.local.Get(i).ev.Header
		if h.Type == typ && h.StreamID == sid && (id == AnyID || h.ID == id) {
			d.local.Set(i, StateReady)
			return true
		}
	}
	return false
}

// wakeWorker 通知工作协程有新事件，调用方持有锁
func (d *Dispatcher) wakeWorker() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// terminate 开始终止链路，只有第一次调用生效
func (d *Dispatcher) terminate(cause error) {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return
	}
	d.stopping = true
	d.cause = cause
	close(d.stop)
	d.space.Broadcast()
	d.mu.Unlock()

	if errors.Is(cause, ErrLinkReset) || errors.Is(cause, ErrClosed) {
		logger.Debug("链路终止", "link", d.cfg.Name, "cause", cause)
	} else {
		logger.Warn("链路异常终止", "link", d.cfg.Name, "cause", cause)
	}
	// 解除读取协程的阻塞
	if err := d.handle.Reset(); err != nil {
		logger.Debug("复位字节通道失败", "link", d.cfg.Name, "error", err)
	}
}

// Close 终止链路并等待终止完成
//
// 未启动的调度器直接完成终止。
func (d *Dispatcher) Close() error {
	d.terminate(ErrClosed)

	started := true
	d.startOnce.Do(func() { started = false })
	if !started {
		d.shutdown()
	}
	<-d.done
	return nil
}

// Done 返回终止完成通知通道
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Err 返回终止原因，链路未终止时返回 nil
func (d *Dispatcher) Err() error {
	select {
	case <-d.done:
		return d.cause
	default:
		return nil
	}
}

// Stats 返回两个事件环中各状态的事件数
func (d *Dispatcher) Stats() (local, remote map[State]int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	local = make(map[State]int)
	remote = make(map[State]int)
	d.local.Range(func(_ int, s State, _ *entry) { local[s]++ })
	d.remote.Range(func(_ int, s State, _ *entry) { remote[s]++ })
	return local, remote
}
