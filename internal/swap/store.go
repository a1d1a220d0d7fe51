// Package swap implements spec.md §6's backing store — a flat, page-sliced
// file on the hosted file system, with a bitmap tracking which slots are in
// use. It is built directly from original_source/vm/virtualmemorymanager.cc's
// allocSwapSector/writeToSwap/copySwapSector, restructured around a single
// bitmap.Bitmap of slot occupancy instead of that file's second, unused
// swapSectorInfo array (see DESIGN.md's internal/swap entry).
package swap

import (
	"github.com/fsnotify/fsnotify"
	"github.com/nickkray/nachvm/internal/bitmap"
	"github.com/nickkray/nachvm/internal/config"
	"github.com/nickkray/nachvm/internal/hostfs"
	kernelerr "github.com/nickkray/nachvm/internal/kernel"
)

// Store is the VM core's swap-backed page store. A slot is addressed by its
// byte offset into the backing file, which is always a multiple of
// pageSize; slot index i lives at offset i*pageSize.
type Store struct {
	disk     hostfs.Disk
	bm       *bitmap.Bitmap
	pageSize uint32
	path     string
	watch    *hostfs.TamperWatch
}

// Create sizes and opens a fresh swap file of exactly
// cfg.SwapSectors*cfg.PageSize bytes, per spec.md §6, and returns a Store
// with every slot initially free. The file is also opened under a
// TamperWatch (see Tampered) so an external remove/rename of the swap file
// while a simulation is running surfaces as a loud Assertion instead of
// silently corrupting page contents on the next swap read or write.
func Create(cfg config.Config) (*Store, error) {
	size := int64(cfg.SwapSectors) * int64(cfg.PageSize)
	f, err := hostfs.Create(cfg.SwapFilename, size)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindIoError, "swap", "create swap file", err)
	}

	watch, err := hostfs.WatchFile(cfg.SwapFilename)
	if err != nil {
		f.Close()
		hostfs.Remove(cfg.SwapFilename)
		return nil, kernelerr.Wrap(kernelerr.KindIoError, "swap", "watch swap file", err)
	}

	return &Store{
		disk:     f,
		bm:       bitmap.New(int(cfg.SwapSectors)),
		pageSize: cfg.PageSize,
		path:     cfg.SwapFilename,
		watch:    watch,
	}, nil
}

// PageSize returns the configured page/slot size in bytes.
func (s *Store) PageSize() uint32 {
	return s.pageSize
}

// Close closes the backing file and removes it from the host file system.
// The swap file's content never needs to survive past a single simulation
// run, per spec.md §6.
func (s *Store) Close() error {
	s.watch.Close()
	if err := s.disk.Close(); err != nil {
		return kernelerr.Wrap(kernelerr.KindIoError, "swap", "close swap file", err)
	}
	return hostfs.Remove(s.path)
}

// Tampered drains pending file-system-change events for the swap file and
// reports whether any of them indicate the file was removed or renamed out
// from under this process. Plain Write events are not treated as tampering
// — this process's own positional pwrite calls raise them continuously as
// part of normal operation — so only Remove/Rename are checked.
func (s *Store) Tampered() bool {
	for {
		select {
		case ev, ok := <-s.watch.Events:
			if !ok {
				return false
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return true
			}
		default:
			return false
		}
	}
}

// AllocSector reserves the lowest free slot and returns its byte offset.
// It reports KindSwapExhausted if every slot is already in use, mirroring
// allocSwapSector's failure mode in the original implementation.
func (s *Store) AllocSector() (int64, error) {
	i, ok := s.bm.FindAndSet()
	if !ok {
		return 0, kernelerr.New(kernelerr.KindSwapExhausted, "swap", "no free swap slot")
	}
	return int64(i) * int64(s.pageSize), nil
}

// FreeSector releases the slot at byteOffset back to the pool.
func (s *Store) FreeSector(byteOffset int64) {
	s.bm.Clear(int(byteOffset / int64(s.pageSize)))
}

// ReadPage reads exactly one page-sized slot at byteOffset into buf.
// len(buf) must equal the configured page size.
func (s *Store) ReadPage(buf []byte, byteOffset int64) error {
	kernelerr.Assert(uint32(len(buf)) == s.pageSize, "swap", "ReadPage buffer must be exactly one page")
	n, err := s.disk.ReadAt(buf, byteOffset)
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindIoError, "swap", "read swap slot", err)
	}
	kernelerr.Assert(n == len(buf), "swap", "short read from swap file")
	return nil
}

// WritePage writes the first n bytes of buf to the slot at byteOffset. n may
// be less than a full page — the original implementation streams a segment's
// tail into a slot without repadding it to a full page first (see
// SPEC_FULL.md §4), so writes here are sized by the caller rather than
// always covering len(buf).
func (s *Store) WritePage(buf []byte, n int, byteOffset int64) error {
	kernelerr.Assert(n >= 0 && n <= len(buf) && uint32(n) <= s.pageSize, "swap", "WritePage length out of range")
	written, err := s.disk.WriteAt(buf[:n], byteOffset)
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindIoError, "swap", "write swap slot", err)
	}
	kernelerr.Assert(written == n, "swap", "short write to swap file")
	return nil
}

// CopySector copies the full page-sized contents of the slot at from to the
// slot at to. It mirrors copySwapSector from the original implementation; no
// component in this repo calls it yet — see SPEC_FULL.md §4 — but it is kept
// as tested, exercised-by-test API surface rather than dropped.
func (s *Store) CopySector(to, from int64) error {
	buf := make([]byte, s.pageSize)
	if err := s.ReadPage(buf, from); err != nil {
		return err
	}
	return s.WritePage(buf, len(buf), to)
}
