package types

import (
	"fmt"
	"strings"
	"time"
)

// Profile 读写吞吐统计
type Profile struct {
	TotalReadBytes  uint64
	TotalWriteBytes uint64
	TotalReadTime   time.Duration
	TotalWriteTime  time.Duration
}

// ReadMBps 平均读速率（MB/s），无数据时返回 0
func (p Profile) ReadMBps() float64 {
	return mbps(p.TotalReadBytes, p.TotalReadTime)
}

// WriteMBps 平均写速率（MB/s），无数据时返回 0
func (p Profile) WriteMBps() float64 {
	return mbps(p.TotalWriteBytes, p.TotalWriteTime)
}

// String 返回可打印的统计摘要
func (p Profile) String() string {
	var b strings.Builder
	b.WriteString("link profiling results:\n")
	if p.TotalWriteTime > 0 {
		fmt.Fprintf(&b, "average write speed: %f MB/Sec\n", p.WriteMBps())
	}
	if p.TotalReadTime > 0 {
		fmt.Fprintf(&b, "average read speed: %f MB/Sec\n", p.ReadMBps())
	}
	return b.String()
}

func mbps(bytes uint64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(bytes) / d.Seconds() / 1024.0 / 1024.0
}
