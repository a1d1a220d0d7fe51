// Package vmm implements spec.md §4.F — the virtual memory manager that
// owns the frame table, the swap store, the frame allocator, and the
// second-chance clock hand, and services page faults against them.
// Grounded on original_source/vm/virtualmemorymanager.cc's swapPageIn, with
// the cyclic page_table/frame_table pointers replaced by one-directional
// pointers from the frame table to *addrspace.AddressSpace (spec.md §9's
// Design Notes; see SPEC_FULL.md §5 for why no process-table indirection
// layer was introduced).
package vmm

import "github.com/nickkray/nachvm/internal/addrspace"

// frameInfo is one entry of the global frame table, per spec.md §3.
type frameInfo struct {
	owner *addrspace.AddressSpace
	vpage int
}

// unowned reports whether this frame is not currently backing any page.
func (fi frameInfo) unowned() bool {
	return fi.owner == nil
}
