package devlink

import (
	"sync"
	"time"

	"github.com/dep2p/go-devlink/pkg/types"
)

// profiler 读写吞吐统计
//
// 只统计成功完成的 WriteData / ReadData，耗时包含排队与流控阻塞。
type profiler struct {
	mu      sync.Mutex
	enabled bool
	data    types.Profile
}

func (p *profiler) addWrite(n int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.data.TotalWriteBytes += uint64(n)
	p.data.TotalWriteTime += d
}

func (p *profiler) addRead(n int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.data.TotalReadBytes += uint64(n)
	p.data.TotalReadTime += d
}

// ProfStart 清零并开始统计
func (h *Host) ProfStart() {
	h.prof.mu.Lock()
	defer h.prof.mu.Unlock()
	h.prof.enabled = true
	h.prof.data = types.Profile{}
}

// ProfStop 停止统计，已有数据保留
func (h *Host) ProfStop() {
	h.prof.mu.Lock()
	defer h.prof.mu.Unlock()
	h.prof.enabled = false
}

// Profile 返回统计数据
func (h *Host) Profile() types.Profile {
	h.prof.mu.Lock()
	defer h.prof.mu.Unlock()
	return h.prof.data
}
