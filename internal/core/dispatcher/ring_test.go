package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_ClaimOrder(t *testing.T) {
	r := NewRing[string](3)
	assert.Equal(t, 3, r.Cap())

	for _, v := range []string{"a", "b", "c"} {
		_, ok := r.TryClaim(v)
		require.True(t, ok)
	}
	_, ok := r.TryClaim("d")
	assert.False(t, ok, "环满时认领失败")

	i, ok := r.NextQueued()
	require.True(t, ok)
	assert.Equal(t, "a", r.Get(i))
	r.Set(i, StatePending)

	// 释放后的槽位可被重新认领，且排在已入队事件之后
	r.Free(i)
	j, ok := r.TryClaim("d")
	require.True(t, ok)
	assert.Equal(t, i, j)

	var got []string
	for {
		k, ok := r.NextQueued()
		if !ok {
			break
		}
		got = append(got, r.Get(k))
		r.Set(k, StatePending)
	}
	assert.Equal(t, []string{"b", "c", "d"}, got)
}

func TestRing_NextQueuedSkipsFreed(t *testing.T) {
	r := NewRing[int](2)
	i, _ := r.TryClaim(1)
	r.TryClaim(2)

	r.Free(i)
	k, ok := r.NextQueued()
	require.True(t, ok)
	assert.Equal(t, 2, r.Get(k))

	_, ok = r.NextQueued()
	assert.False(t, ok)
}

func TestRing_Scan(t *testing.T) {
	r := NewRing[int](4)
	for v := 0; v < 4; v++ {
		r.TryClaim(v)
	}
	r.Set(1, StateReady)
	r.Set(3, StateReady)

	i, ok := r.Scan(StateReady, 0)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	i, ok = r.Scan(StateReady, 2)
	require.True(t, ok)
	assert.Equal(t, 3, i)

	// 环形回绕
	i, ok = r.Scan(StateReady, 4)
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = r.Scan(StateBlocked, 0)
	assert.False(t, ok)

	assert.Equal(t, 2, r.Count(StateReady))
	assert.Equal(t, 2, r.Count(StateQueued))
}

func TestRing_Range(t *testing.T) {
	r := NewRing[int](3)
	r.TryClaim(10)
	r.TryClaim(20)
	r.Free(0)

	var seen []int
	r.Range(func(_ int, s State, v int) {
		assert.Equal(t, StateQueued, s)
		seen = append(seen, v)
	})
	assert.Equal(t, []int{20}, seen)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "served", StateServed.String())
	assert.Equal(t, "blocked", StateBlocked.String())
	assert.Equal(t, "unknown", State(99).String())
}
