package dispatcher

// State 事件槽位状态
type State uint8

const (
	// StateServed 已完成，槽位空闲
	StateServed State = iota
	// StateQueued 已入队，尚未处理
	StateQueued
	// StatePending 已发送，等待对端响应
	StatePending
	// StateBlocked 等待流状态变化
	StateBlocked
	// StateReady 已唤醒，等待重新解析
	StateReady
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateServed:
		return "served"
	case StateQueued:
		return "queued"
	case StatePending:
		return "pending"
	case StateBlocked:
		return "blocked"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

type slot[T any] struct {
	state State
	value T
}

// Ring 固定容量的事件环
//
// 空闲槽位即 StateServed 槽位。新认领的槽位按认领顺序记录，
// 工作协程据此按入队顺序处理新事件。Ring 本身不加锁。
type Ring[T any] struct {
	slots []slot[T]
	// claimFrom 下一次认领的扫描起点
	claimFrom int

	// 新认领槽位的 FIFO
	order []int
	head  int
	count int
}

// NewRing 创建容量为 n 的事件环
func NewRing[T any](n int) *Ring[T] {
	return &Ring[T]{
		slots: make([]slot[T], n),
		order: make([]int, n),
	}
}

// Cap 返回容量
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}

func (r *Ring[T]) next(i int) int {
	i++
	if i == len(r.slots) {
		return 0
	}
	return i
}

// TryClaim 认领一个空闲槽位存放 v，环满时返回 false
func (r *Ring[T]) TryClaim(v T) (int, bool) {
	i, ok := r.Scan(StateServed, r.claimFrom)
	if !ok {
		return 0, false
	}
	r.slots[i] = slot[T]{state: StateQueued, value: v}
	r.claimFrom = r.next(i)

	r.order[(r.head+r.count)%len(r.order)] = i
	r.count++
	return i, true
}

// NextQueued 按认领顺序取出下一个新槽位
func (r *Ring[T]) NextQueued() (int, bool) {
	for r.count > 0 {
		i := r.order[r.head]
		r.head = (r.head + 1) % len(r.order)
		r.count--
		// 排队期间可能已被强制完成
		if r.slots[i].state == StateQueued {
			return i, true
		}
	}
	return 0, false
}

// Scan 从 from 开始环形查找第一个处于 state 的槽位
func (r *Ring[T]) Scan(state State, from int) (int, bool) {
	n := len(r.slots)
	if n == 0 {
		return 0, false
	}
	from %= n
	for k := 0; k < n; k++ {
		i := (from + k) % n
		if r.slots[i].state == state {
			return i, true
		}
	}
	return 0, false
}

// State 返回槽位状态
func (r *Ring[T]) State(i int) State {
	return r.slots[i].state
}

// Set 设置槽位状态
func (r *Ring[T]) Set(i int, state State) {
	r.slots[i].state = state
}

// Get 返回槽位中的值
func (r *Ring[T]) Get(i int) T {
	return r.slots[i].value
}

// Free 释放槽位
func (r *Ring[T]) Free(i int) {
	var zero T
	r.slots[i] = slot[T]{state: StateServed, value: zero}
}

// Count 统计处于 state 的槽位数
func (r *Ring[T]) Count(state State) int {
	n := 0
	for i := range r.slots {
		if r.slots[i].state == state {
			n++
		}
	}
	return n
}

// Range 遍历所有非空闲槽位
func (r *Ring[T]) Range(fn func(i int, state State, v T)) {
	for i := range r.slots {
		if r.slots[i].state != StateServed {
			fn(i, r.slots[i].state, r.slots[i].value)
		}
	}
}
