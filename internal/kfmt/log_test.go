package kfmt

import (
	"bytes"
	"testing"
)

func TestSlotAllocatedFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.SlotAllocated(3, 7)

	if exp, got := "Z 3: 7\n", buf.String(); exp != got {
		t.Fatalf("expected %q; got %q", exp, got)
	}
}

func TestFrameReleasedFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.FrameReleased(3, 12)

	if exp, got := "E 3: 12\n", buf.String(); exp != got {
		t.Fatalf("expected %q; got %q", exp, got)
	}
}

func TestEventsAppearInOrder(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.SlotAllocated(1, 0)
	l.SlotAllocated(1, 1)
	l.FrameReleased(1, 0)

	exp := "Z 1: 0\nZ 1: 1\nE 1: 0\n"
	if got := buf.String(); exp != got {
		t.Fatalf("expected %q; got %q", exp, got)
	}
}
