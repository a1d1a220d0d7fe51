package bitmap

import "testing"

func TestFindAndSetLowestClearBit(t *testing.T) {
	b := New(4)

	for i := 0; i < 4; i++ {
		idx, ok := b.FindAndSet()
		if !ok {
			t.Fatalf("expected FindAndSet to succeed for allocation %d", i)
		}
		if idx != i {
			t.Fatalf("expected FindAndSet to return lowest clear bit %d; got %d", i, idx)
		}
	}

	if exp, got := 4, b.Count(); exp != got {
		t.Fatalf("expected Count() to be %d; got %d", exp, got)
	}

	if _, ok := b.FindAndSet(); ok {
		t.Fatal("expected FindAndSet to fail once every bit is set")
	}
}

func TestClearReopensLowestBit(t *testing.T) {
	b := New(8)

	for i := 0; i < 8; i++ {
		if _, ok := b.FindAndSet(); !ok {
			t.Fatalf("expected FindAndSet to succeed for allocation %d", i)
		}
	}

	b.Clear(3)
	if exp, got := 7, b.Count(); exp != got {
		t.Fatalf("expected Count() to be %d after Clear; got %d", exp, got)
	}

	idx, ok := b.FindAndSet()
	if !ok {
		t.Fatal("expected FindAndSet to succeed after Clear")
	}
	if idx != 3 {
		t.Fatalf("expected FindAndSet to reuse index 3; got %d", idx)
	}
}

func TestClearAlreadyClearPanics(t *testing.T) {
	b := New(4)

	defer func() {
		if recover() == nil {
			t.Fatal("expected Clear of an already-clear bit to panic")
		}
	}()

	b.Clear(0)
}

func TestCrossWordBoundary(t *testing.T) {
	b := New(130)

	for i := 0; i < 130; i++ {
		idx, ok := b.FindAndSet()
		if !ok || idx != i {
			t.Fatalf("allocation %d: expected idx %d, ok true; got idx %d, ok %v", i, i, idx, ok)
		}
	}

	if _, ok := b.FindAndSet(); ok {
		t.Fatal("expected bitmap to be exhausted at its exact Len()")
	}
}

func TestIsSet(t *testing.T) {
	b := New(4)
	if b.IsSet(0) {
		t.Fatal("expected index 0 to start clear")
	}

	idx, _ := b.FindAndSet()
	if !b.IsSet(idx) {
		t.Fatalf("expected index %d to be set after FindAndSet", idx)
	}
}
