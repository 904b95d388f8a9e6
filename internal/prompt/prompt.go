// Package prompt implements prompt objects, the prompt chain, and the
// yield/resume/tail-resume/multi-shot-resume state machine. It is the only
// package that understands the return-kind protocol carried across a
// Save/Restore boundary; internal/regctx knows nothing about prompts, and
// internal/gstack knows nothing about the chain.
package prompt

import (
	"fmt"

	"github.com/koka-lang/gstack-go/internal/errs"
	"github.com/koka-lang/gstack-go/internal/fault"
	"github.com/koka-lang/gstack-go/internal/gstack"
	"github.com/koka-lang/gstack-go/internal/platform"
	"github.com/koka-lang/gstack-go/internal/regctx"
)

// state tracks whether a Prompt is fresh, on the active chain, or
// suspended. Resume and TailResume consult it for their not-suspended
// misuse check, which runs whether or not debug is enabled.
type state int

const (
	stateFresh state = iota
	stateActive
	stateSuspended
)

// Prompt is a resumable delimiter. The zero value is never valid; use
// Create.
type Prompt struct {
	parent   *Prompt // towards the outer prompt, set only while active
	top      *Prompt // non-nil while suspended: the root of the detached chain
	refcount int

	stack *gstack.Gstack
	owner *Thread // the thread this prompt is pinned to

	returnPoint regctx.Context // on the parent's stack; valid once entered
	resumePoint regctx.Context // on this prompt's own stack; valid while suspended

	st      state
	entered bool // set by Enter; resumePoint is valid only after a suspension

	carrier carrier

	// multi is non-nil once this prompt has yielded multi-shot (MYield),
	// naming whichever MultiResumption currently owns its gstack. A
	// multi-owned prompt survives an ordinary return from dispatchUp
	// instead of being freed immediately, since a later MultiResume may
	// still replay it from its saved template; see multishot.go.
	multi *MultiResumption
}

// carrier is the small two-slot mailbox attached to a Prompt, written by
// one side of its boundary and read by the other immediately after the
// matching Save returns non-zero. It never needs to be laid out for
// assembly access — only Context does — so it is an ordinary Go struct
// with interface{} payloads.
type carrier struct {
	// downArg is written by the side calling Resume/Enter, before
	// Restore/EnterStack, and read by the woken prompt right after its own
	// Save call returns non-zero.
	downArg interface{}

	// upKind/upArg/upFn/upExc are written by the suspending side (a yield,
	// or the start function returning) before Restore, and read by the
	// resuming side right after its Save call returns non-zero.
	upKind returnKind
	upArg  interface{}
	upFn   interface{} // func(Resumption, interface{}) interface{}, or the multi-shot equivalent
	upExc  interface{}
}

type returnKind int

const (
	kindReturn returnKind = iota
	kindException
	kindYieldOnce
	kindYieldMulti
)

// Thread is the per-OS-thread prompt chain: the root of the active chain
// plus the gstack cache and delayed-free list that belong to the same
// thread. Callers are responsible for creating exactly one Thread per OS
// thread (after runtime.LockOSThread) and never sharing it — see
// internal/rt, which owns Thread's lifecycle. Go gives application code no
// hidden TLS to hang this off of, so the thread state is an explicit
// handle instead.
type Thread struct {
	currentTop *Prompt
	cache      *gstack.Cache
	debug      bool
}

// NewThread creates an empty prompt chain backed by a gstack cache of the
// given capacity.
func NewThread(cacheCap int, debug bool) *Thread {
	return &Thread{cache: gstack.NewCache(cacheCap), debug: debug}
}

// Close drains the thread's gstack cache and delayed-free list. Tearing a
// thread down with prompts still active is a caller bug: debug builds
// panic on it, release builds abandon the stacklets (Drain still runs, so
// anything cached or delayed is returned to the platform).
func (t *Thread) Close() {
	if t.debug && t.currentTop != nil {
		panic("gstack: thread torn down with active prompts")
	}
	t.cache.Drain()
}

// Current returns the innermost active prompt on t, or nil if none is
// active.
func Current(t *Thread) *Prompt { return t.currentTop }

// ClearCache flushes t's delayed-free list and free cache back to the
// platform.
func (t *Thread) ClearCache() { t.cache.Drain() }

// Stack exposes p's underlying gstack, for package handler's foreign
// stack-state save/restore surface.
func (p *Prompt) Stack() *gstack.Gstack { return p.stack }

// Create allocates a fresh, never-entered Prompt: top == self, no parent,
// no resume point.
func Create(owner *Thread, extraBytes uintptr) (*Prompt, error) {
	st, err := gstack.Alloc(owner.cache, extraBytes)
	if err != nil {
		return nil, err
	}
	p := &Prompt{stack: st, owner: owner, refcount: 1, st: stateFresh}
	p.top = p
	return p, nil
}

// assertOwner is the debug-build check for cross-thread use.
func (p *Prompt) assertOwner(t *Thread) {
	if p.owner.debug && p.owner != t {
		panic(fmt.Errorf("%w: prompt used from a different thread than it was created on", errs.ErrMisuse))
	}
}

// drop destroys p (and, if it still has suspended descendants via top,
// destroys them bottom-up first) once its refcount reaches zero. The
// owning gstack is returned to the thread's cache; delay defers that
// return while an exception is still unwinding through the stack.
func (p *Prompt) drop(delay bool) {
	p.refcount--
	if p.refcount > 0 {
		return
	}
	if p.top != nil && p.top != p {
		p.top.drop(delay)
	}
	gstack.Free(p.owner.cache, p.stack, delay)
}

// growBeforeSwitch grows p's stacklet one quadratic step ahead of its
// current watermark. Called before every switch onto a gstack (Enter,
// Resume, TailResume, and the unwind wake-ups in exception.go), since
// internal/fault cannot grow reactively from a hardware trap; see its
// package doc for why. Yield and MYield, which switch off a gstack, do not
// call it.
//
// guarantee is 0 outside an unwind wake-up. When non-zero, the usual
// one-step target is pushed guarantee bytes further down (floored just
// above Limit) so the defers a forced unwind is about to run have that
// much committed room without needing a further suspension point to grow
// again. See dropSuspended and RunUnwindHook, the two wake-ups that exist
// purely to force an unwind.
func growBeforeSwitch(p *Prompt, guarantee uintptr) error {
	target := p.stack.Committed()
	if target > p.stack.Limit() {
		target--
	}
	if guarantee > 0 {
		if target > p.stack.Limit()+guarantee {
			target -= guarantee
		} else {
			target = p.stack.Limit() + platform.PageSize()
		}
	}
	return fault.GrowFor(p.stack, target)
}
