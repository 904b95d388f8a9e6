package prompt

import (
	"github.com/koka-lang/gstack-go/internal/gstack"
	"github.com/koka-lang/gstack-go/internal/regctx"
)

// PropagatedException wraps a panic value that crossed one or more prompt
// boundaries via dispatchUp's kindException case. A caller recovering a
// panic from Enter or Resume can type-switch on this to distinguish "the
// prompt body panicked" from a genuine misuse error raised by this module
// itself.
type PropagatedException struct {
	Value      interface{}
	CrossedOne bool // set once by the first boundary that re-panics it
}

func (e *PropagatedException) Error() string {
	if err, ok := e.Value.(error); ok {
		return "gstack: propagated exception: " + err.Error()
	}
	return "gstack: propagated exception"
}

// wrapException marks a raw recovered panic value as having crossed a
// prompt boundary, wrapping it on its first crossing only so repeated
// re-panics up a chain of nested prompts do not grow a tower of wrappers.
func wrapException(v interface{}) interface{} {
	if pe, ok := v.(*PropagatedException); ok {
		pe.CrossedOne = true
		return pe
	}
	return &PropagatedException{Value: v, CrossedOne: true}
}

// dropSignal is the sentinel sent down to a suspended prompt to make it
// unwind via a genuine Go panic (running every defer in its frames)
// instead of returning normally from Yield. This is how Resumption.Drop
// and a last-reference MultiResumeDrop run the captured chain's cleanups.
type dropSignal struct{}

// unwindSignal is the sentinel sent down to a suspended prompt to run a
// host-supplied cleanup function inside its own frame before unwinding —
// the primitive package handler exposes as RunUnwindHook.
type unwindSignal struct{ fn func() }

// checkDownSignal is Yield/MYield's first action upon waking: dispatch a
// control sentinel sent down instead of an ordinary resume argument, or
// pass the argument through unchanged.
func checkDownSignal(downArg interface{}) interface{} {
	switch v := downArg.(type) {
	case dropSignal:
		panic(v)
	case unwindSignal:
		v.fn()
		panic(dropSignal{})
	default:
		return downArg
	}
}

// RunUnwindHook wakes a suspended p one last time purely to run fn inside
// its own suspended frame, then continues unwinding it exactly like
// dropSuspended. An aborting handler uses this to run scoped cleanups
// that live on the target frame.
func RunUnwindHook(owner *Thread, p *Prompt, fn func()) {
	if !p.entered {
		fn()
		return
	}
	link(owner, p)
	var returnCtx regctx.Context
	val := regctx.Save(&returnCtx)
	if val == 0 {
		p.returnPoint = returnCtx
		p.carrier.downArg = unwindSignal{fn: fn}
		if err := growBeforeSwitch(p, gstack.ExnGuaranteed()); err != nil {
			unlink(owner, p)
			return
		}
		regctx.Restore(&p.resumePoint, 1)
		panic("gstack: unreachable: unwind-hook prompt's Restore returned")
	}
	owner.currentTop = p.parent
	if p.carrier.upKind == kindException {
		if _, isDrop := p.carrier.upExc.(dropSignal); !isDrop {
			p.drop(true)
			panic(wrapException(p.carrier.upExc))
		}
	}
	p.drop(false)
}

// dropSuspended unwinds and frees a suspended, never-to-be-resumed-again
// prompt. If it was never entered there is nothing to unwind and it is
// freed directly; otherwise it is woken one last time with dropSignal,
// which Yield turns into a panic so the prompt's own defers run before its
// stack is released.
func dropSuspended(owner *Thread, p *Prompt) {
	if !p.entered {
		p.drop(false)
		return
	}

	link(owner, p)
	var returnCtx regctx.Context
	val := regctx.Save(&returnCtx)
	if val == 0 {
		p.returnPoint = returnCtx
		p.carrier.downArg = dropSignal{}
		if err := growBeforeSwitch(p, gstack.ExnGuaranteed()); err != nil {
			unlink(owner, p)
			p.drop(false)
			return
		}
		regctx.Restore(&p.resumePoint, 1)
		panic("gstack: unreachable: dropped prompt's Restore returned")
	}

	owner.currentTop = p.parent
	if p.carrier.upKind == kindException {
		if _, isDrop := p.carrier.upExc.(dropSignal); !isDrop {
			p.drop(true)
			panic(wrapException(p.carrier.upExc))
		}
	}
	p.drop(false)
}
