// Package errs holds the sentinel error kinds shared across the gstack
// runtime; callers wrap them with extra context via %w.
package errs

import "errors"

var (
	// ErrOutOfMemory is returned when a platform reserve/commit call fails.
	// Callers surface it as a nil gstack or a nil prompt; it is never fatal
	// on its own.
	ErrOutOfMemory = errors.New("gstack: out of memory")

	// ErrStackOverflow means an access landed in a no-access gap region, or
	// growth was requested below a stacklet's limit. It is not fatal:
	// internal/fault returns it from GrowFor and Guard, and internal/prompt
	// raises it as a panic at the Enter or Resume call site.
	ErrStackOverflow = errors.New("gstack: stack overflow")

	// ErrMisuse covers prompt contract violations. Entering a prompt twice
	// and resuming a prompt that was never entered or is not suspended are
	// always checked; using a prompt from a thread other than the one that
	// created it is checked only when that thread has debug enabled.
	// Yielding to a prompt that is not an active ancestor is not checked.
	ErrMisuse = errors.New("gstack: misuse of prompt contract")

	// ErrSaveFailed means a multi-shot stack snapshot could not allocate
	// its backing buffer. Unlike ErrOutOfMemory during alloc, this is fatal:
	// a yield is already in flight and there is no safe place to unwind to.
	ErrSaveFailed = errors.New("gstack: stack save failed")

	// ErrPoolExhausted means a freshly created gpool had no free slot left
	// when AllocSlot popped from it. A failure to reserve a new pool is
	// reported as ErrOutOfMemory instead.
	ErrPoolExhausted = errors.New("gstack: pool exhausted")
)
