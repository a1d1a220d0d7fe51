package pmm

import (
	"github.com/nickkray/nachvm/internal/bitmap"
	"github.com/nickkray/nachvm/internal/config"
	kernelerr "github.com/nickkray/nachvm/internal/kernel"
)

// Allocator hands out and reclaims physical frame indices over
// [0, NumPhysPages). It holds the slice of bytes that back every frame so
// that Free can zero a frame's contents before it is handed to a different
// owner — a fresh allocation must never leak another address space's data.
type Allocator struct {
	bm         *bitmap.Bitmap
	pageSize   uint32
	mainMemory []byte
}

// New constructs an Allocator over mainMemory, which must be exactly
// cfg.NumPhysPages*cfg.PageSize bytes — the shared "physical memory" that
// the instruction simulator would otherwise own (spec.md §6); modeling it as
// a plain slice owned by the allocator/manager keeps the fault path testable
// without a running simulator (spec.md §9).
func New(cfg config.Config, mainMemory []byte) *Allocator {
	kernelerr.Assert(uint32(len(mainMemory)) == cfg.NumPhysPages*cfg.PageSize, "pmm", "mainMemory size must equal NumPhysPages*PageSize")

	return &Allocator{
		bm:         bitmap.New(int(cfg.NumPhysPages)),
		pageSize:   cfg.PageSize,
		mainMemory: mainMemory,
	}
}

// Alloc reserves and returns the lowest free frame index. It only fails
// when every frame is already allocated; the VM manager's fault handler
// never calls Alloc in that state (it falls back to the second-chance
// clock instead, per spec.md §4.F).
func (a *Allocator) Alloc() (Frame, bool) {
	idx, ok := a.bm.FindAndSet()
	if !ok {
		return NoFrame, false
	}
	return Frame(idx), true
}

// Free reclaims frame f, zeroing its backing bytes in mainMemory so a
// subsequent allocation never observes the previous owner's data.
func (a *Allocator) Free(f Frame) {
	a.bm.Clear(int(f))

	start := uint64(f) * uint64(a.pageSize)
	clear(a.mainMemory[start : start+uint64(a.pageSize)])
}

// FreeCount returns the number of frames not currently allocated.
func (a *Allocator) FreeCount() uint32 {
	return uint32(a.bm.Len() - a.bm.Count())
}

// NumFrames returns the total number of frames this allocator manages.
func (a *Allocator) NumFrames() uint32 {
	return uint32(a.bm.Len())
}
