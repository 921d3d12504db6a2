package stream

import "github.com/dep2p/go-devlink/pkg/types"

// packetRing 固定容量的包环形缓冲
//
// 槽位按到达顺序排列，分为三段：
//
//	[first, firstUnused)      已交付给读者、尚未释放
//	[firstUnused, firstFree)  已到达、尚未交付
//	[firstFree, first)        空闲
type packetRing struct {
	packets     []types.Packet
	first       int
	firstUnused int
	firstFree   int
	available   int
	handedOut   int
}

func newPacketRing(capacity int) packetRing {
	return packetRing{packets: make([]types.Packet, capacity)}
}

func (r *packetRing) next(i int) int {
	i++
	if i == len(r.packets) {
		return 0
	}
	return i
}

func (r *packetRing) len() int {
	return r.available + r.handedOut
}

func (r *packetRing) push(p types.Packet) error {
	if r.len() >= len(r.packets) {
		return ErrRingFull
	}
	r.packets[r.firstFree] = p
	r.firstFree = r.next(r.firstFree)
	r.available++
	return nil
}

// take 交付最早的未交付包
func (r *packetRing) take() (types.Packet, bool) {
	if r.available == 0 {
		return types.Packet{}, false
	}
	p := r.packets[r.firstUnused]
	r.firstUnused = r.next(r.firstUnused)
	r.available--
	r.handedOut++
	return p, true
}

// release 弹出最早的已交付包
func (r *packetRing) release() (types.Packet, bool) {
	if r.handedOut == 0 {
		return types.Packet{}, false
	}
	p := r.packets[r.first]
	r.packets[r.first] = types.Packet{}
	r.first = r.next(r.first)
	r.handedOut--
	return p, true
}
