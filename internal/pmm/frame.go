// Package pmm implements the physical frame allocator (spec.md §4.B): a
// bitmap allocator scoped to config.NumPhysPages, handing out and reclaiming
// frame indices and zeroing a frame's contents in mainMemory on release.
package pmm

import "math"

// Frame is a physical frame index. It is a plain integer, not a pointer —
// per the Design Notes in spec.md §9, a page table entry refers to its frame
// only through this index, so the page table and the frame table never hold
// raw references in both directions (the frame table's pointer to its owning
// address space runs one way only; see internal/vmm).
type Frame uint32

// NoFrame is the sentinel value stored in a page table entry's
// physical_frame field when the entry is not resident.
const NoFrame = Frame(math.MaxUint32)

// IsValid reports whether f is an allocated frame rather than the sentinel.
func (f Frame) IsValid() bool {
	return f != NoFrame
}
