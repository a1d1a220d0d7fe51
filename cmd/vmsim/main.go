// Command vmsim is a small harness that assembles the VM core over a real
// NOFF executable and drives a scripted page-fault trace against it, for
// demonstration and integration testing outside the unit-test suite.
// Grounded on kernel/kmain/kmain.go's role as the single assembly point for
// the whole kernel, adapted from a freestanding entrypoint with inline
// assembly stack setup to a normal hosted func main().
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nickkray/nachvm/internal/addrspace"
	"github.com/nickkray/nachvm/internal/config"
	"github.com/nickkray/nachvm/internal/kfmt"
	"github.com/nickkray/nachvm/internal/loader"
	"github.com/nickkray/nachvm/internal/swap"
	"github.com/nickkray/nachvm/internal/vmm"
)

// kernel is the single assembled context threaded through a simulation run,
// per spec.md §9's Design Notes ("model as a single Kernel context
// assembled at startup... threaded explicitly into every operation").
type kernel struct {
	cfg     config.Config
	store   *swap.Store
	manager *vmm.Manager
	log     *kfmt.Logger
}

func newKernel(cfg config.Config) (*kernel, error) {
	store, err := swap.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("create swap store: %w", err)
	}

	logger := kfmt.New(os.Stdout)
	mainMemory := make([]byte, cfg.NumPhysPages*cfg.PageSize)
	manager := vmm.New(cfg, mainMemory, store, logger)

	return &kernel{cfg: cfg, store: store, manager: manager, log: logger}, nil
}

func (k *kernel) close() {
	k.store.Close()
}

func main() {
	pageSize := flag.Uint("pagesize", 128, "page/frame/swap-slot size in bytes")
	numPhysPages := flag.Uint("physpages", 8, "number of physical frames")
	swapSectors := flag.Uint("swapsectors", 64, "number of swap-file slots")
	userStackSize := flag.Uint("stacksize", 1024, "bytes reserved for the user stack")
	swapFilename := flag.String("swapfile", "SWAP.nachvm", "path to the backing swap file")
	exePath := flag.String("exe", "", "path to a NOFF-format executable to load")
	flag.Parse()

	cfg := config.Config{
		PageSize:      uint32(*pageSize),
		NumPhysPages:  uint32(*numPhysPages),
		SwapSectors:   uint32(*swapSectors),
		UserStackSize: uint32(*userStackSize),
		SwapFilename:  *swapFilename,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if *exePath == "" {
		log.Fatal("-exe is required")
	}

	k, err := newKernel(cfg)
	if err != nil {
		log.Fatalf("assemble kernel: %v", err)
	}
	defer k.close()

	f, err := os.Open(*exePath)
	if err != nil {
		log.Fatalf("open %s: %v", *exePath, err)
	}
	defer f.Close()

	space, err := loader.Load(f, cfg, k.store, addrspace.PCB{PID: 1}, k.log)
	if err != nil {
		log.Fatalf("load %s: %v", *exePath, err)
	}

	fmt.Printf("loaded %s: %d pages\n", *exePath, space.NumPages)

	for p := 0; p < space.NumPages; p++ {
		if err := k.manager.PageIn(space, p*int(cfg.PageSize)); err != nil {
			log.Fatalf("page_in(%d): %v", p, err)
		}
	}
	fmt.Printf("resident after trace: %d/%d frames in use\n", cfg.NumPhysPages-k.manager.FreeFrameCount(), cfg.NumPhysPages)

	if err := k.manager.Release(space); err != nil {
		log.Fatalf("release: %v", err)
	}
	fmt.Printf("released: %d/%d frames free\n", k.manager.FreeFrameCount(), cfg.NumPhysPages)
}
