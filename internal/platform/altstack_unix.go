//go:build linux || darwin

package platform

// InstallAltSignalStack is a no-op under the pure-Go backend.
//
// The Go runtime already installs its own alternate stack for every OS
// thread and owns SIGSEGV/SIGBUS disposition, so a second, competing
// sigaltstack(2) call from application code is unsafe — which is also why
// golang.org/x/sys/unix leaves that syscall unwrapped. gstack's overflow
// detection instead runs via runtime/debug.SetPanicOnFault on the faulting
// goroutine (see faulthandler.go) and never needs its own signal stack.
// The function is kept so a host that does own signal disposition (e.g. a
// cgo-backed build of this package) has a place to hang a real
// installation.
func InstallAltSignalStack() error {
	return nil
}
