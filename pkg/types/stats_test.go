package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfile(t *testing.T) {
	p := Profile{
		TotalWriteBytes: 2 * 1024 * 1024,
		TotalWriteTime:  time.Second,
	}

	assert.InDelta(t, 2.0, p.WriteMBps(), 1e-9)
	assert.Zero(t, p.ReadMBps())
	assert.Contains(t, p.String(), "average write speed")
	assert.NotContains(t, p.String(), "average read speed")
}

func TestStreamInfo(t *testing.T) {
	info := StreamInfo{WriteSize: 64}
	assert.True(t, info.Writable())
	assert.False(t, info.Readable())
}
