//go:build windows

package platform

// InstallAltSignalStack is a no-op on Windows: vectored exception handlers
// run on the faulting thread's own stack, there is no sigaltstack concept.
func InstallAltSignalStack() error { return nil }
