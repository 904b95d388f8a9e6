// Package regctx implements architecture-specific save and restore of
// callee-saved registers plus a controlled jump onto a foreign stack. It
// is the only package in this module containing hand-written assembly;
// everything above it (gstack, fault, prompt) is plain Go.
package regctx

import (
	"reflect"
	"unsafe"
)

// Save captures the caller's register context, including the instruction
// and stack pointer, into ctx. It returns 0 on the direct call. If some
// later Restore(ctx, v) targets this same ctx, control returns from this
// same Save call a second time — with the stack pointer, every
// callee-saved register, and the program counter restored exactly as they
// were at the moment of the first call — and Save returns v instead of 0.
//
// This is the entire suspension primitive the prompt engine needs: yield
// calls Save on the stack being suspended, resume calls Save on the
// parent stack (to remember where to come back to) and then Restore on
// the target.
func Save(ctx *Context) int32 {
	captureGBookkeeping(ctx)
	return rawSave(ctx)
}

// Restore transfers control to the point captured in ctx, as if the Save
// call that produced it had just returned val. Never returns to its
// caller. Reinstates the goroutine's g.stack bookkeeping to what it was
// when ctx was captured before jumping (see gbookkeeping.go).
func Restore(ctx *Context, val int32) {
	restoreGBookkeeping(ctx)
	rawRestore(ctx, val)
}

// entryArg is the payload handed from EnterStack, through the assembly
// trampoline, to entryTrampoline. Keeping it a single heap-allocated
// struct means the assembly only ever has to pass one pointer-sized value
// across the stack switch.
type entryArg struct {
	fn  func(unsafe.Pointer)
	arg unsafe.Pointer
}

// EnterStack switches the stack pointer to sp and calls fn(arg) there.
// sp must point at the top (base) of an already-committed region of a
// gstack whose full usable range is [stackLo, stackHi); it is the
// caller's job (internal/gstack) to have sized and committed that region
// first. fn is expected to never return in the ordinary Go sense — the
// prompt engine's bootstrap always ends the call by invoking Restore
// against the prompt's return point — and if it does return, the
// assembly trampoline executes an illegal instruction and the process
// crashes; EnterStack itself never returns to its caller.
func EnterStack(sp, stackLo, stackHi uintptr, fn func(unsafe.Pointer), arg unsafe.Pointer) {
	switchToStack(stackLo, stackHi)
	payload := &entryArg{fn: fn, arg: arg}
	rawEnterStack(sp, entryTrampolinePC(), uintptr(unsafe.Pointer(payload)))
}

// entryTrampoline is the one plain (non-closure) function the assembly
// ever calls directly. It unpacks the real callback and invokes it with
// normal Go calling convention, keeping every closure/interface detail
// out of the hand-written assembly.
//
//go:noinline
func entryTrampoline(raw uintptr) {
	payload := (*entryArg)(unsafe.Pointer(raw))
	payload.fn(payload.arg)
}

// entryTrampolinePC returns entryTrampoline's code entry point, the way
// reflect itself resolves a func value's address for Value.Pointer.
func entryTrampolinePC() uintptr {
	return reflect.ValueOf(entryTrampoline).Pointer()
}

// SP reads the captured stack pointer out of ctx, used by internal/prompt
// to snapshot the part of a stacklet a suspended prompt's resume point is
// still using.
func (c *Context) SP() uintptr { return c.sp }

// PC reads the captured program counter out of ctx.
func (c *Context) PC() uintptr { return c.pc }
