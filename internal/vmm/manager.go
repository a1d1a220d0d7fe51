package vmm

import (
	"sync"

	"github.com/nickkray/nachvm/internal/addrspace"
	"github.com/nickkray/nachvm/internal/config"
	kernelerr "github.com/nickkray/nachvm/internal/kernel"
	"github.com/nickkray/nachvm/internal/kfmt"
	"github.com/nickkray/nachvm/internal/pmm"
	"github.com/nickkray/nachvm/internal/swap"
)

// Manager owns every piece of global VM state: the frame table, the swap
// store, the frame allocator, and the clock hand. The hosting simulator is
// single-CPU cooperative (spec.md §5), so in principle no locking is
// required between calls; mu is the "big VM lock" hook point a future
// multi-CPU host would need, grounded on the reference corpus's
// Lock_pmap/Unlock_pmap/Lockassert_pmap pattern for a virtual-memory
// subsystem's single coarse lock.
type Manager struct {
	mu sync.Mutex

	alloc      *pmm.Allocator
	store      *swap.Store
	mainMemory []byte
	frameTable []frameInfo
	clockHand  int
	pageSize   uint32
	log        *kfmt.Logger
}

// New assembles a Manager over a freshly sized mainMemory buffer and a
// freshly created swap store, per spec.md §6.
func New(cfg config.Config, mainMemory []byte, store *swap.Store, log *kfmt.Logger) *Manager {
	kernelerr.Assert(uint32(len(mainMemory)) == cfg.NumPhysPages*cfg.PageSize, "vmm", "mainMemory size must equal NumPhysPages*PageSize")
	return &Manager{
		alloc:      pmm.New(cfg, mainMemory),
		store:      store,
		mainMemory: mainMemory,
		frameTable: make([]frameInfo, cfg.NumPhysPages),
		pageSize:   cfg.PageSize,
		log:        log,
	}
}

func (m *Manager) lock()   { m.mu.Lock() }
func (m *Manager) unlock() { m.mu.Unlock() }

// frame returns the byte slice of mainMemory backing physical frame f.
func (m *Manager) frame(f pmm.Frame) []byte {
	start := uint64(f) * uint64(m.pageSize)
	return m.mainMemory[start : start+uint64(m.pageSize)]
}

// PageIn services a page fault at faultingVirtAddr within space, per
// spec.md §4.F. It implements the free-frame fast path and, failing that,
// the textbook second-chance clock: the clock hand advances on every frame
// visited, whether or not it is evicted, which is the variant spec.md §9
// specifies over the advance-only-on-eviction variant found elsewhere in
// the reference implementation.
func (m *Manager) PageIn(space *addrspace.AddressSpace, faultingVirtAddr int) error {
	m.lock()
	defer m.unlock()

	kernelerr.Assert(!m.store.Tampered(), "vmm", "swap file was removed or renamed outside this process")

	p := faultingVirtAddr / int(m.pageSize)
	kernelerr.Assert(p >= 0 && p < space.NumPages, "vmm", "faulting virtual address out of range")
	kernelerr.Assert(!space.PageTable[p].Valid, "vmm", "page_in called on an already-resident page")

	if m.alloc.FreeCount() > 0 {
		frame, ok := m.alloc.Alloc()
		kernelerr.Assert(ok, "vmm", "FreeCount() > 0 but Alloc() failed")
		return m.load(space, p, frame)
	}

	return m.evictAndLoad(space, p)
}

// load reads page p of space into physical frame, publishes the frame-table
// and page-table state, and returns once both are consistent.
func (m *Manager) load(space *addrspace.AddressSpace, p int, frame pmm.Frame) error {
	if err := m.store.ReadPage(m.frame(frame), space.SwapSlot(p)); err != nil {
		m.alloc.Free(frame)
		return err
	}

	m.frameTable[frame] = frameInfo{owner: space, vpage: p}
	space.PageTable[p].PhysicalFrame = frame
	space.PageTable[p].Valid = true

	return nil
}

// evictAndLoad runs the second-chance clock until it finds a victim frame,
// writes it back if dirty, reads the faulting page in, and only then
// publishes the frame-table reassignment and both page-table entries. Per
// spec.md §5 ("the frame-table reassignment is published only after both
// I/Os succeed") and §7 ("no partial page-table update is published on
// failure"), nothing about the victim or the faulting page is mutated until
// writeback and read-in have both succeeded — mirroring load's behavior of
// leaving the allocator/page-table state untouched on a failed read.
func (m *Manager) evictAndLoad(space *addrspace.AddressSpace, p int) error {
	n := len(m.frameTable)

	for iterations := 0; iterations < 2*n; iterations++ {
		i := m.clockHand
		info := m.frameTable[i]
		kernelerr.Assert(!info.unowned(), "vmm", "free_count() was 0 but frame table holds an unowned frame")

		victimEntry := &info.owner.PageTable[info.vpage]

		kernelerr.Assert(!(info.owner == space && info.vpage == p), "vmm", "the faulting page must not be chosen as its own victim")

		if victimEntry.Use {
			victimEntry.Use = false
			m.clockHand = (i + 1) % n
			continue
		}

		if victimEntry.Valid && victimEntry.Dirty && !victimEntry.ReadOnly {
			if err := m.store.WritePage(m.frame(pmm.Frame(i)), int(m.pageSize), info.owner.SwapSlot(info.vpage)); err != nil {
				return err
			}
		}

		buf := m.frame(pmm.Frame(i))
		if err := m.store.ReadPage(buf, space.SwapSlot(p)); err != nil {
			return err
		}

		victimEntry.Valid = false
		victimEntry.PhysicalFrame = pmm.NoFrame

		m.frameTable[i] = frameInfo{owner: space, vpage: p}
		space.PageTable[p].PhysicalFrame = pmm.Frame(i)
		space.PageTable[p].Valid = true

		m.clockHand = (i + 1) % n

		return nil
	}

	kernelerr.Assert(false, "vmm", "second-chance clock failed to find a victim")
	return nil
}

// Release frees every resident frame and swap slot owned by space, per
// spec.md §4.F. After Release returns, space is destroyed and no further
// method on it is legal.
func (m *Manager) Release(space *addrspace.AddressSpace) error {
	m.lock()
	defer m.unlock()

	kernelerr.Assert(!m.store.Tampered(), "vmm", "swap file was removed or renamed outside this process")

	for i := 0; i < space.NumPages; i++ {
		entry := &space.PageTable[i]
		if entry.Valid {
			m.alloc.Free(entry.PhysicalFrame)
			m.frameTable[entry.PhysicalFrame] = frameInfo{}
			entry.Valid = false
			entry.PhysicalFrame = pmm.NoFrame
			if m.log != nil {
				m.log.FrameReleased(space.PCB.PID, i)
			}
		}
		m.store.FreeSector(space.SwapSlot(i))
	}
	return nil
}

// FreeFrameCount exposes the allocator's free-frame count for tests
// checking invariant I2.
func (m *Manager) FreeFrameCount() uint32 {
	return m.alloc.FreeCount()
}
