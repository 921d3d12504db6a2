package stream

import (
	"sync"

	"github.com/dep2p/go-devlink/pkg/lib/log"
	"github.com/dep2p/go-devlink/pkg/types"
)

var logger = log.Logger("core/stream")

// Registry 链路的流注册表
//
// 槽位表由 mu 保护；每个流有独立的锁。
// allocMu 串行化分配，保证同名流不会被重复创建。
type Registry struct {
	mu      sync.RWMutex
	allocMu sync.Mutex

	slots      []*Stream
	nextID     types.StreamID
	maxPackets int
}

// NewRegistry 创建流注册表
func NewRegistry(maxStreams, maxPackets int) *Registry {
	return &Registry{
		slots:      make([]*Stream, maxStreams),
		maxPackets: maxPackets,
	}
}

// MaxPackets 返回每个流的包环形缓冲容量
func (r *Registry) MaxPackets() int {
	return r.maxPackets
}

// Allocate 按名称分配流，或为已有流补充容量
//
// writeSize/readSize 为 0 表示不设置该方向。已设置的方向只接受不大于
// 已提交值的请求，否则返回 InvalidStreamID。forced 不为 InvalidStreamID
// 时新流使用该 ID（对端分配的 ID），该 ID 已被活跃流占用时返回 InvalidStreamID；
// 无论是否使用，内部 ID 计数都会前进，以便两端的计数保持一致。
func (r *Registry) Allocate(name string, writeSize, readSize uint32, forced types.StreamID) types.StreamID {
	r.allocMu.Lock()
	defer r.allocMu.Unlock()

	s := r.FindByName(name)
	if s != nil {
		if (writeSize > s.WriteSize && s.WriteSize != 0) ||
			(readSize > s.ReadSize && s.ReadSize != 0) {
			logger.Debug("拒绝扩大已提交的流容量",
				"stream", name,
				"writeSize", writeSize,
				"committedWrite", s.WriteSize,
				"readSize", readSize,
				"committedRead", s.ReadSize)
			r.Release(s)
			return types.InvalidStreamID
		}
	} else {
		r.mu.Lock()
		idx := r.freeSlotLocked()
		if idx < 0 {
			r.mu.Unlock()
			logger.Debug("没有空闲的流槽位", "stream", name)
			return types.InvalidStreamID
		}
		id := r.nextID
		if forced.IsValid() {
			if r.liveLocked(forced) {
				r.mu.Unlock()
				logger.Warn("对端分配的流 ID 已被占用", "stream", name, "id", forced)
				return types.InvalidStreamID
			}
			id = forced
		}
		r.nextID++
		s = newStream(name, id, r.maxPackets)
		s.mu.Lock()
		r.slots[idx] = s
		r.mu.Unlock()
	}

	if readSize != 0 && s.ReadSize == 0 {
		s.ReadSize = readSize
	}
	if writeSize != 0 && s.WriteSize == 0 {
		s.WriteSize = writeSize
	}
	id := s.ID()
	r.Release(s)
	return id
}

// liveLocked 报告 id 是否已被活跃流占用，调用方持有 mu
func (r *Registry) liveLocked(id types.StreamID) bool {
	for _, s := range r.slots {
		if s != nil && s.ID() == id {
			return true
		}
	}
	return false
}

func (r *Registry) freeSlotLocked() int {
	for i, s := range r.slots {
		if s == nil || !s.ID().IsValid() {
			return i
		}
	}
	return -1
}

// FindByID 按 ID 查找流并加锁
//
// 未找到时返回 nil；找到时调用方必须调用 Release。
func (r *Registry) FindByID(id types.StreamID) *Stream {
	if !id.IsValid() {
		return nil
	}
	return r.lock(func(s *Stream) bool { return s.ID() == id }, func(s *Stream) bool { return s.ID() == id })
}

// FindByName 按名称查找流并加锁
//
// 未找到时返回 nil；找到时调用方必须调用 Release。
func (r *Registry) FindByName(name string) *Stream {
	return r.lock(
		func(s *Stream) bool { return s.ID().IsValid() && s.Name == name },
		func(s *Stream) bool { return s.ID().IsValid() })
}

// lock 在槽位表中查找匹配的流，释放表锁后获取流锁并复核
func (r *Registry) lock(match, recheck func(*Stream) bool) *Stream {
	r.mu.RLock()
	var found *Stream
	for _, s := range r.slots {
		if s != nil && match(s) {
			found = s
			break
		}
	}
	r.mu.RUnlock()

	if found == nil {
		return nil
	}
	found.mu.Lock()
	if !recheck(found) {
		// 等锁期间流已被释放
		found.mu.Unlock()
		return nil
	}
	return found
}

// Release 释放 Find*/Allocate 获取的流锁
func (r *Registry) Release(s *Stream) {
	if s != nil {
		s.mu.Unlock()
	}
}

// Free 使流 ID 失效，槽位可被复用
//
// 调用方必须持有流锁，之后仍需调用 Release。
func (r *Registry) Free(s *Stream) {
	s.id.Store(uint32(types.InvalidStreamID))
}

// IDByName 按名称查询流 ID，未找到时返回 InvalidStreamID
func (r *Registry) IDByName(name string) types.StreamID {
	s := r.FindByName(name)
	if s == nil {
		return types.InvalidStreamID
	}
	id := s.ID()
	r.Release(s)
	return id
}

// Invalidate 使全部流失效并重置 ID 计数
func (r *Registry) Invalidate() {
	r.allocMu.Lock()
	defer r.allocMu.Unlock()

	r.mu.RLock()
	live := make([]*Stream, 0, len(r.slots))
	for _, s := range r.slots {
		if s != nil {
			live = append(live, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range live {
		s.mu.Lock()
		s.id.Store(uint32(types.InvalidStreamID))
		s.mu.Unlock()
	}
	r.nextID = 0
}

// Snapshot 返回全部活跃流的快照
func (r *Registry) Snapshot() []types.StreamInfo {
	r.mu.RLock()
	live := make([]*Stream, 0, len(r.slots))
	for _, s := range r.slots {
		if s != nil && s.ID().IsValid() {
			live = append(live, s)
		}
	}
	r.mu.RUnlock()

	infos := make([]types.StreamInfo, 0, len(live))
	for _, s := range live {
		s.mu.Lock()
		if s.ID().IsValid() {
			infos = append(infos, s.Info())
		}
		s.mu.Unlock()
	}
	return infos
}

// Len 返回活跃流数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.slots {
		if s != nil && s.ID().IsValid() {
			n++
		}
	}
	return n
}
