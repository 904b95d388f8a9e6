package prompt

import (
	"fmt"
	"unsafe"

	"github.com/koka-lang/gstack-go/internal/errs"
	"github.com/koka-lang/gstack-go/internal/fault"
	"github.com/koka-lang/gstack-go/internal/regctx"
)

// StartFunc is the body a freshly created Prompt runs once entered.
type StartFunc func(p *Prompt, arg interface{}) interface{}

// OpFunc is what a single-shot yield hands control to: the resumption
// capability plus the yield's argument.
type OpFunc func(r Resumption, arg interface{}) interface{}

// Resumption is a single-shot resumption: the capacity to resume the
// prompt it came from exactly once, via Resume or TailResume, or to give
// it up via Drop.
type Resumption struct {
	p *Prompt
}

// Resume consumes r, resuming its prompt with arg.
func (r Resumption) Resume(owner *Thread, arg interface{}) interface{} {
	return Resume(owner, r.p, arg)
}

// TailResume consumes r like Resume, but reuses the caller's own return
// point (see the package-level TailResume).
func (r Resumption) TailResume(owner *Thread, arg interface{}) interface{} {
	return TailResume(owner, r.p, arg)
}

// Drop consumes r without resuming, unwinding p's stack by running its
// pending deferred cleanups as a Go panic/recover pass and then releasing
// its stacklet. See exception.go.
func (r Resumption) Drop(owner *Thread) {
	dropSuspended(owner, r.p)
}

// enterPayload crosses the EnterStack boundary as a single heap pointer.
type enterPayload struct {
	p   *Prompt
	fn  StartFunc
	arg interface{}
}

// Enter runs fn(p, arg) on p's own stacklet for the first time. p must
// never have been entered before.
func Enter(owner *Thread, p *Prompt, fn StartFunc, arg interface{}) interface{} {
	p.assertOwner(owner)
	if p.entered {
		panic(fmt.Errorf("%w: Enter called on an already-entered prompt", errs.ErrMisuse))
	}
	link(owner, p)

	var returnCtx regctx.Context
	val := regctx.Save(&returnCtx)
	if val == 0 {
		p.returnPoint = returnCtx
		p.entered = true
		if err := growBeforeSwitch(p, 0); err != nil {
			unlink(owner, p)
			panic(err)
		}
		payload := &enterPayload{p: p, fn: fn, arg: arg}
		regctx.EnterStack(p.stack.Base(), p.stack.Limit(), p.stack.Base(), bootstrapEntry, unsafe.Pointer(payload))
		panic("gstack: unreachable: prompt bootstrap returned to EnterStack's caller")
	}
	return dispatchUp(owner, p)
}

// bootstrapEntry is the first Go frame ever run on a gstack. It is always
// called through regctx.EnterStack, never directly.
//
//go:noinline
func bootstrapEntry(raw unsafe.Pointer) {
	payload := (*enterPayload)(raw)
	p := payload.p
	result, exc := runGuarded(func() interface{} {
		var out interface{}
		if err := fault.Guard(func() { out = payload.fn(p, payload.arg) }); err != nil {
			// An access violation proactive growth did not cover: carry it
			// across the boundary as a stack overflow, not a generic panic.
			panic(err)
		}
		return out
	})
	if exc != nil {
		p.carrier.upKind = kindException
		p.carrier.upExc = exc
	} else {
		p.carrier.upKind = kindReturn
		p.carrier.upArg = result
	}
	regctx.Restore(&p.returnPoint, 1)
}

// Resume wakes a previously suspended (not fresh) prompt with arg.
func Resume(owner *Thread, p *Prompt, arg interface{}) interface{} {
	p.assertOwner(owner)
	if !p.entered {
		panic(fmt.Errorf("%w: Resume called on a prompt that was never entered; use Enter", errs.ErrMisuse))
	}
	if p.st == stateActive {
		panic(fmt.Errorf("%w: Resume called on a prompt that is not suspended", errs.ErrMisuse))
	}
	link(owner, p)

	var returnCtx regctx.Context
	val := regctx.Save(&returnCtx)
	if val == 0 {
		p.returnPoint = returnCtx
		p.carrier.downArg = arg
		if err := growBeforeSwitch(p, 0); err != nil {
			unlink(owner, p)
			panic(err)
		}
		regctx.Restore(&p.resumePoint, 1)
		panic("gstack: unreachable: resumed prompt's Restore returned")
	}
	return dispatchUp(owner, p)
}

// TailResume wakes p exactly like Resume but leaves p's existing return
// point in place instead of capturing a fresh one. The caller must be in
// tail position under that return point (the usual shape is `return
// r.TailResume(...)` from a yield handler): the caller's frame is
// abandoned, and when p next yields or returns, control lands directly at
// the original resume site, exactly as if this handler had returned the
// value the ordinary way. A chain of N tail-resumes therefore consumes
// O(1) parent stack instead of nesting N resume frames.
//
// TailResume never returns; its result type exists so the tail call
// `return r.TailResume(...)` typechecks in a handler.
func TailResume(owner *Thread, p *Prompt, arg interface{}) interface{} {
	p.assertOwner(owner)
	if !p.entered {
		panic(fmt.Errorf("%w: TailResume called on a prompt that was never entered", errs.ErrMisuse))
	}
	if p.st == stateActive {
		panic(fmt.Errorf("%w: TailResume called on a prompt that is not suspended", errs.ErrMisuse))
	}
	link(owner, p)
	p.carrier.downArg = arg
	if err := growBeforeSwitch(p, 0); err != nil {
		unlink(owner, p)
		panic(err)
	}
	regctx.Restore(&p.resumePoint, 1)
	panic("gstack: unreachable: tail-resumed prompt's Restore returned")
}

// Yield suspends the currently active prompt p, running fn(Resumption, arg)
// in the context of p's parent once control has unwound there.
func Yield(owner *Thread, p *Prompt, fn OpFunc, arg interface{}) interface{} {
	p.assertOwner(owner)
	var resumeCtx regctx.Context
	val := regctx.Save(&resumeCtx)
	if val == 0 {
		p.resumePoint = resumeCtx
		unlink(owner, p)
		p.carrier.upKind = kindYieldOnce
		p.carrier.upArg = arg
		p.carrier.upFn = fn
		regctx.Restore(&p.returnPoint, 1)
		panic("gstack: unreachable: yield's Restore to the parent returned")
	}
	// Resumed: read what the resumer sent down.
	return checkDownSignal(p.carrier.downArg)
}

// PromptParent returns the prompt that was active immediately outside p,
// or nil if p is the outermost prompt on its thread.
func PromptParent(p *Prompt) *Prompt { return p.parent }

// link attaches p to the head of owner's active chain, re-absorbing
// whatever sub-chain p carried with it while suspended (p.top).
func link(owner *Thread, p *Prompt) {
	top := p.top
	if top == nil {
		top = p
	}
	p.parent = owner.currentTop
	owner.currentTop = top
	p.top = nil
	p.st = stateActive
}

// unlink detaches p from the head of owner's active chain, stashing the
// chain below it into p.top so a later Resume can re-attach the whole
// thing at once, and returns p's parent.
func unlink(owner *Thread, p *Prompt) *Prompt {
	parent := p.parent
	p.top = owner.currentTop
	p.parent = nil
	p.st = stateSuspended
	owner.currentTop = parent
	return parent
}

// dispatchUp is run by Enter/Resume immediately after their Save call
// returns non-zero: something suspended or returned below p, and
// p.carrier now says what.
func dispatchUp(owner *Thread, p *Prompt) interface{} {
	switch p.carrier.upKind {
	case kindReturn:
		arg := p.carrier.upArg
		owner.currentTop = p.parent
		if p.multi != nil {
			// A multi-owned prompt stays alive across an ordinary return:
			// a later MultiResume may still replay this same gstack from
			// its saved template (see multishot.go). Park it back in the
			// suspended state so the replay passes the resume-side checks,
			// and release only this replay's own reference — the live
			// resumptions keep theirs.
			p.parent = nil
			p.top = p
			p.st = stateSuspended
			p.drop(false)
			return arg
		}
		p.drop(false)
		return arg
	case kindException:
		exc := p.carrier.upExc
		owner.currentTop = p.parent
		if _, isDrop := exc.(dropSignal); isDrop {
			p.drop(true)
			panic(exc)
		}
		if p.multi != nil {
			// This replay is permanently dead; block any further
			// MultiResume on it (see multiResumeCommon's nil-template
			// check) rather than leaving a stale pointer to a freed stack.
			p.multi.template = nil
		}
		p.drop(true)
		panic(wrapException(exc))
	case kindYieldOnce:
		fn := p.carrier.upFn.(OpFunc)
		arg := p.carrier.upArg
		return fn(Resumption{p: p}, arg)
	case kindYieldMulti:
		fn := p.carrier.upFn.(MultiOpFunc)
		arg := p.carrier.upArg
		return fn(newMultiResumption(p), arg)
	default:
		panic(fmt.Errorf("%w: unknown return kind from prompt boundary", errs.ErrMisuse))
	}
}

// runGuarded runs fn, converting any panic into an exception payload
// instead of letting it cross the raw stack-switch boundary as a live Go
// panic: unwinding through foreign-stack Restore points is not something
// the Go runtime's panic machinery understands, so the payload is carried
// explicitly through the carrier instead and re-raised as a genuine panic
// only once control is back on a normal stack (see dispatchUp's
// kindException case).
func runGuarded(fn func() interface{}) (result interface{}, exc interface{}) {
	defer func() {
		if r := recover(); r != nil {
			exc = r
		}
	}()
	result = fn()
	return result, nil
}
