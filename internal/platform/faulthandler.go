package platform

import "runtime/debug"

// FaultFunc is invoked with the page-rounded faulting address. It returns
// true if it handled the fault (and execution may continue) or false if
// the fault should propagate as a stack overflow.
type FaultFunc func(addr uintptr) (handled bool)

// InstallFaultHandler registers the process-wide decision function for
// page faults touching a gstack's reservation.
//
// Go offers no portable way to register a custom SIGSEGV disposition
// without cgo (the runtime's own signal handler owns SIGSEGV). Instead
// each thread that runs prompt bodies opts into
// runtime/debug.SetPanicOnFault via InstallThreadFaultHandler, which
// turns an invalid memory access into a recoverable *runtime.Error, and
// internal/fault's proactive growth check runs ahead of every
// resume/enter so the hardware fault path is the rare fallback rather
// than the common one — mirroring how Go's own stack-growth prologue
// avoids ever taking a real page fault on the happy path.
func InstallFaultHandler(fn FaultFunc) {
	faultFunc = fn
}

// InstallThreadFaultHandler makes invalid memory accesses on the calling
// goroutine surface as recoverable runtime errors instead of killing the
// process. debug.SetPanicOnFault applies only to the goroutine that sets
// it, so this must run on every goroutine that will execute prompt
// bodies — internal/rt calls it during per-thread setup.
func InstallThreadFaultHandler() {
	debug.SetPanicOnFault(true)
}

var faultFunc FaultFunc

// Fault hands the page-rounded addr to the registered FaultFunc. Nothing in
// this module calls it: internal/fault.Guard converts a faulting access
// into errs.ErrStackOverflow without going through here.
func Fault(addr uintptr) bool {
	if faultFunc == nil {
		return false
	}
	return faultFunc(RoundDownPage(addr))
}
