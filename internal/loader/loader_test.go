package loader

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/nickkray/nachvm/internal/addrspace"
	"github.com/nickkray/nachvm/internal/config"
	"github.com/nickkray/nachvm/internal/swap"
)

func buildNOFF(order binary.ByteOrder, code, initData []byte) []byte {
	const headerSize = 40
	buf := make([]byte, headerSize+len(code)+len(initData))

	order.PutUint32(buf[0:4], noffMagic)

	codeOff := headerSize
	initOff := headerSize + len(code)

	order.PutUint32(buf[4:8], uint32(len(code)))
	order.PutUint32(buf[8:12], 0)
	order.PutUint32(buf[12:16], uint32(codeOff))

	order.PutUint32(buf[16:20], uint32(len(initData)))
	order.PutUint32(buf[20:24], uint32(len(code)))
	order.PutUint32(buf[24:28], uint32(initOff))

	order.PutUint32(buf[28:32], 0)
	order.PutUint32(buf[32:36], 0)
	order.PutUint32(buf[36:40], 0)

	copy(buf[codeOff:], code)
	copy(buf[initOff:], initData)
	return buf
}

func testStore(t *testing.T, pageSize, sectors uint32) *swap.Store {
	t.Helper()
	cfg := config.Config{PageSize: pageSize, SwapSectors: sectors}
	cfg.SwapFilename = filepath.Join(t.TempDir(), "swap.test")
	s, err := swap.Create(cfg)
	if err != nil {
		t.Fatalf("swap.Create: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestColdStartFromExecutable reproduces spec.md §8 scenario 1 end to end:
// Load parses a real NOFF image and produces the expected 34-page space.
func TestColdStartFromExecutable(t *testing.T) {
	const pageSize = 128
	store := testStore(t, pageSize, 64)

	code := make([]byte, 200)
	for i := range code {
		code[i] = byte(i)
	}
	initData := make([]byte, 50)
	for i := range initData {
		initData[i] = byte(0x80 + i)
	}

	img := buildNOFF(binary.LittleEndian, code, initData)

	cfg := config.Config{PageSize: pageSize, UserStackSize: 4096}
	as, err := Load(bytes.NewReader(img), cfg, store, addrspace.PCB{PID: 1}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if as.NumPages != 34 {
		t.Fatalf("expected 34 pages; got %d", as.NumPages)
	}

	got := make([]byte, 200)
	off := 0
	for off < 200 {
		page := off / pageSize
		pageOff := off % pageSize
		chunk := pageSize - pageOff
		if chunk > 200-off {
			chunk = 200 - off
		}
		buf := make([]byte, pageSize)
		if err := store.ReadPage(buf, as.SwapSlot(page)); err != nil {
			t.Fatalf("ReadPage: %v", err)
		}
		copy(got[off:off+chunk], buf[pageOff:pageOff+chunk])
		off += chunk
	}
	if !bytes.Equal(got, code) {
		t.Fatalf("expected code bytes round-tripped through swap to match; got mismatch")
	}

	if !as.PageTable[0].ReadOnly {
		t.Fatal("expected the code segment's first page to be marked read-only")
	}
}

func TestBoundaryEmptySegments(t *testing.T) {
	const pageSize = 128
	store := testStore(t, pageSize, 64)

	img := buildNOFF(binary.LittleEndian, nil, nil)
	cfg := config.Config{PageSize: pageSize, UserStackSize: 4096}

	as, err := Load(bytes.NewReader(img), cfg, store, addrspace.PCB{PID: 1}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if exp := int(cfg.DivRoundUp(uint64(cfg.UserStackSize))); as.NumPages != exp {
		t.Fatalf("expected num_pages %d; got %d", exp, as.NumPages)
	}
}

func TestBadMagicRejected(t *testing.T) {
	store := testStore(t, 128, 8)

	img := make([]byte, 40)
	binary.LittleEndian.PutUint32(img[0:4], 0xdeadbeef)

	cfg := config.Config{PageSize: 128, UserStackSize: 128}
	_, err := Load(bytes.NewReader(img), cfg, store, addrspace.PCB{PID: 1}, nil)
	if err == nil {
		t.Fatal("expected BadExecutable for an unrecognized magic word")
	}
}

func TestOppositeEndianHeader(t *testing.T) {
	const pageSize = 128
	store := testStore(t, pageSize, 64)

	code := []byte{1, 2, 3, 4}
	img := buildNOFF(binary.BigEndian, code, nil)

	cfg := config.Config{PageSize: pageSize, UserStackSize: 128}
	as, err := Load(bytes.NewReader(img), cfg, store, addrspace.PCB{PID: 1}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	buf := make([]byte, pageSize)
	if err := store.ReadPage(buf, as.SwapSlot(0)); err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if !bytes.Equal(buf[:len(code)], code) {
		t.Fatalf("expected code bytes preserved across a byte-swapped header; got %v", buf[:len(code)])
	}
}
