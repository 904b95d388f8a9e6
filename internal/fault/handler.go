// Package fault detects and responds to memory access beyond a gstack's
// committed region.
//
// Go gives no portable, cgo-free way to install a custom SIGSEGV/SIGBUS
// disposition (the runtime owns it), so a literal catch-the-fault,
// commit-more, resume-the-faulting-instruction page-fault handler is not
// available here. Instead growth is proactive: GrowFor is called before
// every switch onto a gstack (enter, resume, tail-resume, and the unwind
// wake-ups) and commits generously ahead of the stack pointer
// using the same capped-quadratic formula a reactive handler would have
// used. Guard wraps actual execution on a gstack with
// runtime/debug.SetPanicOnFault's recoverable-fault mode purely as a
// backstop: if proactive growth still undershoots and a real access
// violation happens mid-function, Guard reports it as a stack overflow
// instead of letting the process die, but a recovered panic cannot resume
// the faulting instruction, so the computation itself is lost.
package fault

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/koka-lang/gstack-go/internal/errs"
	"github.com/koka-lang/gstack-go/internal/gstack"
	"github.com/koka-lang/gstack-go/internal/platform"
)

var log = logrus.WithField("component", "fault")

var installed bool

// Install registers the process-wide fault decision function. Idempotent;
// called once by internal/rt during process init. Per-goroutine fault
// trapping is separate: see InstallOnThread.
func Install() {
	if installed {
		return
	}
	platform.InstallFaultHandler(func(addr uintptr) bool {
		// Reached only via platform.Fault, which nothing in this Go-only
		// backend currently calls (see the package doc); kept so a future
		// cgo-backed build of platform can plug in a real handler without
		// changing this package's contract.
		return false
	})
	installed = true
}

// InstallOnThread opts the calling goroutine into recoverable-fault mode.
// SetPanicOnFault is per goroutine, so internal/rt calls this from every
// Thread's own goroutine during per-thread setup; without it a fault on
// that goroutine kills the process before Guard ever sees it.
func InstallOnThread() {
	platform.InstallThreadFaultHandler()
}

// GrowFor ensures g is committed generously below sp, invoked proactively
// at a suspension point rather than reactively from a trap.
func GrowFor(g *gstack.Gstack, sp uintptr) error {
	if sp < g.Limit() {
		return errs.ErrStackOverflow
	}
	// Commit one page further below sp than strictly necessary so a
	// typical function's local frames between here and the next
	// suspension point don't immediately re-fault.
	target := sp
	if target >= g.Limit()+platform.PageSize() {
		target -= platform.PageSize()
	}
	return g.Grow(target)
}

// Guard runs fn with invalid-memory-access panics converted into
// errs.ErrStackOverflow. Any other panic (a propagated exception or a
// genuine programming bug) passes through unchanged so internal/prompt's
// exception-propagation path still sees it.
func Guard(fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if rerr, ok := r.(runtime.Error); ok && looksLikeFault(rerr) {
			log.WithError(rerr).Warn("access violation on gstack, treating as stack overflow")
			err = errs.ErrStackOverflow
			return
		}
		panic(r)
	}()
	fn()
	return nil
}

// looksLikeFault identifies the runtime.Error shape SetPanicOnFault
// produces for a hardware-trapped invalid access. The runtime does not
// export a structured type for this, only a message; matching it by
// substring is the documented limitation referenced in the package doc.
// Ordinary nil-pointer dereferences report "invalid memory address" and
// deliberately do not match: those are program bugs, not stack growth.
func looksLikeFault(err runtime.Error) bool {
	return strings.Contains(err.Error(), "unexpected fault address")
}
