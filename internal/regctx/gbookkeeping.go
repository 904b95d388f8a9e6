package regctx

import "unsafe"

// Go goroutine stacks move: the runtime's own stack-growth prologue checks
// and its copying garbage collector relocate a goroutine's stack whenever
// it likes, because every moving decision is keyed off the bookkeeping
// kept in that goroutine's own runtime.g — g.stack.{lo,hi} and
// g.stackguard0. A gstack is a fixed-address, self-managed mmap region the
// runtime has never heard of; the moment EnterStack or Restore moves the
// hardware SP onto one, the g struct's idea of "my stack" becomes wrong
// unless we correct it first.
//
// This file updates that bookkeeping directly, by pointer arithmetic at
// known struct offsets, the same technique github.com/petermattis/goid
// uses (via its own get_tls/g(CX) assembly) to read the current g from
// arbitrary Go code without the runtime exporting an accessor. g.stack is
// g's first field, immediately followed by stackguard0 — stable across
// many Go releases. Like goid's own caveat, these offsets are
// Go-version-specific and must be rechecked against a new release's
// runtime/runtime2.go before upgrading the toolchain.
const (
	gStackLoOffset     = 0
	gStackHiOffset     = unsafe.Sizeof(uintptr(0))
	gStackguard0Offset = 2 * unsafe.Sizeof(uintptr(0))
)

// getg returns the current goroutine's *runtime.g as a uintptr. Defined in
// gbookkeeping_amd64.s / gbookkeeping_arm64.s.
func getg() uintptr

func readWord(g, off uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(g + off))
}

func writeWord(g, off, v uintptr) {
	*(*uintptr)(unsafe.Pointer(g + off)) = v
}

// captureGBookkeeping stashes the calling stack's current g.stack bounds
// and stackguard0 into ctx, so a later call to Restore(ctx, ...) can put
// this exact stack's bookkeeping back once control returns here.
func captureGBookkeeping(ctx *Context) {
	g := getg()
	ctx.gStackLo = readWord(g, gStackLoOffset)
	ctx.gStackHi = readWord(g, gStackHiOffset)
	ctx.gStackguard0 = readWord(g, gStackguard0Offset)
}

// restoreGBookkeeping writes ctx's stashed bounds back into the running
// goroutine's g, immediately before Restore jumps to ctx.
func restoreGBookkeeping(ctx *Context) {
	g := getg()
	writeWord(g, gStackLoOffset, ctx.gStackLo)
	writeWord(g, gStackHiOffset, ctx.gStackHi)
	writeWord(g, gStackguard0Offset, ctx.gStackguard0)
}

// switchToStack points the running goroutine's g.stack bookkeeping at a
// foreign gstack's [lo, hi) range before EnterStack jumps the hardware SP
// there for the first time (no prior Save exists to restore from).
//
// stackguard0 is pinned to lo, the true floor, rather than computed with
// the usual margin the runtime's own morestack prologue check expects.
// Overflow detection on a gstack is the hardware trap into the unmapped
// gap page below lo, backstopped by internal/fault.Guard; letting Go's
// software check fire here would send the runtime down its normal
// morestack path, which copies to a freshly allocated Go stack — a
// meaningless operation on memory the Go allocator never owned. Pinning
// to lo disarms that software check in favor of the hardware one.
func switchToStack(lo, hi uintptr) {
	g := getg()
	writeWord(g, gStackLoOffset, lo)
	writeWord(g, gStackHiOffset, hi)
	writeWord(g, gStackguard0Offset, lo)
}
