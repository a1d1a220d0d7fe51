package kernel

import (
	"fmt"
	"io"
	"os"
)

// panicSink is where Assert writes its message before calling
// panicFn. Tests redirect it to a buffer; production code leaves it as
// os.Stderr.
var panicSink io.Writer = os.Stderr

// panicFn is called after the fatal message has been written. It is a
// variable, mocked by tests, so that TestAssert does not actually abort the
// test binary — mirrors the teacher's cpuHaltFn indirection, substituting a
// halt-the-CPU call for a halt-the-process one.
var panicFn = func(v interface{}) { panic(v) }

// Assert terminates the process with an Assertion-kind Error when cond is
// false. Per spec.md §7, Assertion violations are internal invariant
// violations (frame-table/page-table disagreement, an unreachable clock
// fallthrough) and are always fatal; there is no recoverable path.
func Assert(cond bool, module, message string) {
	if cond {
		return
	}

	err := &Error{Kind: KindAssertion, Module: module, Message: message}
	fmt.Fprintf(panicSink, "\n*** assertion failed: %s ***\n", err.Error())
	panicFn(err)
}
