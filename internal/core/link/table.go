package link

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dep2p/go-devlink/pkg/types"
)

// Table 链路表
type Table struct {
	mu     sync.RWMutex
	max    int
	links  map[types.LinkID]*Link
	nextID types.LinkID
}

// NewTable 创建最多容纳 max 条链路的表
func NewTable(max int) *Table {
	return &Table{
		max:   max,
		links: make(map[types.LinkID]*Link, max),
	}
}

// Add 分配链路 ID 并创建链路
//
// ID 单调递增，回绕时跳过仍在使用的 ID 和无效 ID。
func (t *Table) Add(p Params) (*Link, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.links) >= t.max {
		return nil, fmt.Errorf("%w: %d", ErrTooManyLinks, t.max)
	}
	id := t.nextID
	for {
		if _, used := t.links[id]; !used && id.IsValid() {
			break
		}
		id++
	}
	t.nextID = id + 1

	l := newLink(id, p)
	t.links[id] = l
	return l, nil
}

// Get 返回链路
func (t *Table) Get(id types.LinkID) (*Link, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	l, ok := t.links[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLinkNotFound, id)
	}
	return l, nil
}

// FindByAddr 返回建链地址为 addr 且可用的链路
func (t *Table) FindByAddr(addr string) *Link {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, l := range t.links {
		if l.addr == addr && l.State() == types.LinkUp {
			return l
		}
	}
	return nil
}

// Remove 移除链路，仅当表中仍是同一条链路时生效
func (t *Table) Remove(l *Link) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.links[l.id] == l {
		delete(t.links, l.id)
	}
}

// All 按 ID 顺序返回全部链路
func (t *Table) All() []*Link {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Link, 0, len(t.links))
	for _, l := range t.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Len 返回链路数
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.links)
}
