package swapchain

import (
	"github.com/cassia-project/compositor/internal/gpu"
)

// VirtualSwapchain is a per-client logical image ring. Its fields are
// only ever touched with the owning Engine's mutex held.
type VirtualSwapchain struct {
	Handle uint32

	Extent         gpu.Extent2D
	Format         gpu.Format
	Usage          gpu.UsageFlags
	CompositeAlpha gpu.CompositeAlpha

	buffers            []*buffer
	pendingQueue       *ringQueue
	lastPresentedIndex uint32
	cursor             uint32
	closed             bool

	rate rateCounter
}

func newVirtualSwapchain(handle uint32, extent gpu.Extent2D, format gpu.Format, usage gpu.UsageFlags, alpha gpu.CompositeAlpha, buffers []*buffer) *VirtualSwapchain {
	return &VirtualSwapchain{
		Handle:         handle,
		Extent:         extent,
		Format:         format,
		Usage:          usage,
		CompositeAlpha: alpha,
		buffers:        buffers,
		pendingQueue:   newRingQueue(len(buffers)),
	}
}

// selectFreeBuffer implements the dequeue selector: advance the rotating
// cursor, take it if Free, otherwise scan linearly from the cursor. The
// rotation alone is what deprioritizes last_presented_index — it is
// visited last among equally-Free candidates, never skipped outright.
func (vs *VirtualSwapchain) selectFreeBuffer() (uint32, bool) {
	n := uint32(len(vs.buffers))
	if vs.buffers[vs.cursor].state == BufferFree {
		idx := vs.cursor
		vs.cursor = (vs.cursor + 1) % n
		return idx, true
	}
	for i := uint32(1); i <= n; i++ {
		idx := (vs.cursor + i) % n
		if vs.buffers[idx].state == BufferFree {
			vs.cursor = (idx + 1) % n
			return idx, true
		}
	}
	return 0, false
}
