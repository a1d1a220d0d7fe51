// Package addrspace implements spec.md §4.E — a per-process page table and
// its parallel swap-slot array, built from a NOFF-compatible executable.
// Grounded on original_source/userprog/addrspace.cc's AddrSpace constructor,
// restructured so that swap_slot is the single source of truth for where a
// page's authoritative bytes live on disk rather than duplicating it onto
// each PageTableEntry (see spec.md §9's Design Notes).
package addrspace

import (
	"io"

	"github.com/nickkray/nachvm/internal/kfmt"
	"github.com/nickkray/nachvm/internal/pmm"
	"github.com/nickkray/nachvm/internal/swap"
)

// PCB is the opaque process descriptor threaded through for logging only;
// the VM core never interprets it beyond reading the PID.
type PCB struct {
	PID int
}

// PageTableEntry describes the residency state of one virtual page.
type PageTableEntry struct {
	VirtualPage   int
	PhysicalFrame pmm.Frame
	Valid         bool
	Use           bool
	Dirty         bool
	ReadOnly      bool
}

// setDirty enforces invariant I5: a read-only page is never marked dirty.
func (e *PageTableEntry) setDirty(v bool) {
	if e.ReadOnly {
		return
	}
	e.Dirty = v
}

// SetDirty is called by the simulator on every successful store translation.
func (e *PageTableEntry) SetDirty(v bool) { e.setDirty(v) }

// SetUse is called by the simulator on every successful translation.
func (e *PageTableEntry) SetUse(v bool) { e.Use = v }

// AddressSpace is a process's translation environment: a page table plus
// the swap slots backing each page, per spec.md §3.
type AddressSpace struct {
	NumPages  int
	PageTable []PageTableEntry

	// swapSlot holds each page's byte offset into the swap file. Assigned
	// exactly once at construction and never reassigned afterward, per
	// spec.md §4.E's invariants; it is the sole record of a page's on-disk
	// location (no duplicate field lives on PageTableEntry).
	swapSlot []int64

	PCB PCB

	store *swap.Store
}

// SwapSlot returns the byte offset backing virtual page p. It is exposed as
// a read accessor rather than a public field so the manager never caches a
// raw index across calls, per spec.md §5.
func (as *AddressSpace) SwapSlot(p int) int64 {
	return as.swapSlot[p]
}

// Segment describes one NOFF segment to scatter into a freshly constructed
// address space's swap slots.
type Segment struct {
	VirtualAddr int
	FileOffset  int
	Size        int
	ReadOnly    bool
}

// New constructs an address space of numPages pages, reserving one swap slot
// per page and zero-filling every slot so that pages with no backing segment
// read as zero on first fault, per spec.md §4.E step 3. Segments are then
// scattered into their slots via loadSegment, which reads readAt one
// PageSize-sized chunk at a time rather than pulling an entire segment into
// memory at once. On swap exhaustion, every slot already reserved is
// released before returning the error, per spec.md §8's failure semantics
// (no partial address space survives a failed construction).
func New(store *swap.Store, pcb PCB, numPages int, segments []Segment, readAt func(buf []byte, fileOffset int64) (int, error), log *kfmt.Logger) (*AddressSpace, error) {
	as := &AddressSpace{
		NumPages:  numPages,
		PageTable: make([]PageTableEntry, numPages),
		swapSlot:  make([]int64, numPages),
		PCB:       pcb,
		store:     store,
	}

	zero := make([]byte, store.PageSize())
	for i := 0; i < numPages; i++ {
		slot, err := store.AllocSector()
		if err != nil {
			as.rollback(i)
			return nil, err
		}
		as.swapSlot[i] = slot
		as.PageTable[i] = PageTableEntry{VirtualPage: i, PhysicalFrame: pmm.NoFrame}

		if log != nil {
			log.SlotAllocated(pcb.PID, int(slot/int64(store.PageSize())))
		}

		if err := store.WritePage(zero, len(zero), slot); err != nil {
			as.rollback(i + 1)
			return nil, err
		}
	}

	for _, seg := range segments {
		if err := as.loadSegment(seg, readAt); err != nil {
			as.rollback(numPages)
			return nil, err
		}
	}

	return as, nil
}

// rollback frees the first n reserved swap slots. Used when construction
// fails partway through, per spec.md §8's rollback requirement.
func (as *AddressSpace) rollback(n int) {
	for i := 0; i < n; i++ {
		as.store.FreeSector(as.swapSlot[i])
	}
}

// loadSegment reads seg.Size bytes from the executable, starting at
// seg.FileOffset, and scatters them into the swap slots spanning seg's
// virtual address range, per spec.md §4.E. Rather than reading the whole
// segment into memory at once — the original's ReadFile declares a
// variable-length stack array sized to an entire segment, which can be
// hundreds of KB — this streams the segment through a single
// PageSize-sized heap buffer, one scatter-chunk at a time, per spec.md §9's
// Design Notes. It tolerates a short read from readAt: the rest of a
// segment's pages are not refilled with zeros here, since step 3's
// background zero-fill already covers every slot.
func (as *AddressSpace) loadSegment(seg Segment, readAt func(buf []byte, fileOffset int64) (int, error)) error {
	pageSize := int(as.store.PageSize())
	buf := make([]byte, pageSize)

	virt := seg.VirtualAddr
	fileOff := seg.FileOffset
	remaining := seg.Size

	for remaining > 0 {
		page := virt / pageSize
		pageOff := virt % pageSize
		chunk := pageSize - pageOff
		if chunk > remaining {
			chunk = remaining
		}

		as.PageTable[page].ReadOnly = seg.ReadOnly

		n, err := readAt(buf[:chunk], int64(fileOff))
		if err != nil && err != io.EOF {
			return err
		}

		if n > 0 {
			if err := as.store.WritePage(buf, n, as.swapSlot[page]+int64(pageOff)); err != nil {
				return err
			}
		}

		if n < chunk {
			return nil
		}

		virt += chunk
		fileOff += chunk
		remaining -= chunk
	}

	return nil
}
