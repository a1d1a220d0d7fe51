// Package config holds the simulator-wide constants that spec.md treats as
// compile-time constants of the host (PageSize, NumPhysPages, SWAP_SECTORS,
// UserStackSize, SWAP_FILENAME). Modeling them as an explicit, validated
// value instead of package-level globals keeps every constructor in this
// module testable in isolation, per spec.md §9's Design Notes.
package config

import "fmt"

// Config carries every tunable of the VM core.
type Config struct {
	// PageSize is the size, in bytes, of a page/frame/swap slot. Must be
	// a power of two.
	PageSize uint32

	// NumPhysPages is the number of physical frames backing mainMemory.
	NumPhysPages uint32

	// SwapSectors is the number of page-sized slots in the swap file.
	SwapSectors uint32

	// UserStackSize is the number of bytes reserved for a fresh address
	// space's user stack.
	UserStackSize uint32

	// SwapFilename is the path of the backing swap file in the hosted
	// file system.
	SwapFilename string
}

// Default returns a valid Config with 4 KiB pages, 256 frames, 4096 swap
// slots and a 1 MiB user stack. The cmd/vmsim flags carry their own,
// smaller defaults, and most tests build their own Config.
func Default() Config {
	return Config{
		PageSize:      4096,
		NumPhysPages:  256,
		SwapSectors:   4096,
		UserStackSize: 1024 * 1024,
		SwapFilename:  "SWAP.nachvm",
	}
}

// Validate rejects configurations that would make the rest of the core
// misbehave (e.g. a PageSize that is not a power of two, so page-number
// arithmetic done by shifting would silently be wrong).
func (c Config) Validate() error {
	if c.PageSize == 0 || c.PageSize&(c.PageSize-1) != 0 {
		return fmt.Errorf("config: PageSize must be a power of two; got %d", c.PageSize)
	}
	if c.NumPhysPages == 0 {
		return fmt.Errorf("config: NumPhysPages must be positive")
	}
	if c.SwapSectors == 0 {
		return fmt.Errorf("config: SwapSectors must be positive")
	}
	if c.SwapFilename == "" {
		return fmt.Errorf("config: SwapFilename must not be empty")
	}
	return nil
}

// DivRoundUp returns ceil(size / PageSize), the number of pages needed to
// hold size bytes.
func (c Config) DivRoundUp(size uint64) uint32 {
	ps := uint64(c.PageSize)
	return uint32((size + ps - 1) / ps)
}
