package kernel

import (
	"bytes"
	"strings"
	"testing"
)

func TestAssert(t *testing.T) {
	defer func() { panicFn = func(v interface{}) { panic(v) } }()

	var buf bytes.Buffer
	panicSink = &buf
	defer func() { panicSink = nil }()

	var panicked interface{}
	panicFn = func(v interface{}) { panicked = v }

	Assert(true, "vmm", "should not fire")
	if panicked != nil {
		t.Fatalf("expected Assert(true, ...) not to invoke panicFn; got %v", panicked)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output when the condition holds; got %q", buf.String())
	}

	Assert(false, "vmm", "frame table disagreement")
	if panicked == nil {
		t.Fatal("expected Assert(false, ...) to invoke panicFn")
	}

	err, ok := panicked.(*Error)
	if !ok {
		t.Fatalf("expected panicFn to receive *Error; got %T", panicked)
	}
	if exp, got := "vmm", err.Module; exp != got {
		t.Errorf("expected Module %q; got %q", exp, got)
	}
	if err.Kind != KindAssertion {
		t.Errorf("expected Kind %v; got %v", KindAssertion, err.Kind)
	}
	if !strings.Contains(buf.String(), "frame table disagreement") {
		t.Errorf("expected panic sink to contain the failure message; got %q", buf.String())
	}
}
