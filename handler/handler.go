// Package handler exposes the small surface a higher-level algebraic
// effect/handler shadow stack would consume. That layer itself lives
// outside this module; this package only provides what it would need to
// be built on top of the core: access to the current prompt, foreign
// stack save/restore, and an abort hook that runs a user-supplied unwind
// function inside the target frame.
package handler

import (
	"github.com/koka-lang/gstack-go/internal/gstack"
	"github.com/koka-lang/gstack-go/internal/prompt"
)

// Thread and Prompt mirror the root package's handles rather than
// importing it directly: the root package is, in turn, what most callers
// of this package also import, so handler's dependency goes straight to
// internal/prompt to avoid an import cycle.
type Thread struct{ inner *prompt.Thread }

// WrapThread adapts an internal/prompt.Thread (obtained via the root
// package's Thread.Inner, were it exported — in practice callers get a
// handler.Thread from the root package's Thread.HandlerThread).
func WrapThread(inner *prompt.Thread) *Thread { return &Thread{inner: inner} }

// Prompt wraps the prompt a handler-layer frame is currently bound to.
type Prompt struct{ inner *prompt.Prompt }

// WrapPrompt adapts an internal/prompt.Prompt for handler-layer use.
func WrapPrompt(inner *prompt.Prompt) *Prompt { return &Prompt{inner: inner} }

// Current returns the innermost active prompt on t, or nil if none is
// active.
func Current(t *Thread) *Prompt {
	p := prompt.Current(t.inner)
	if p == nil {
		return nil
	}
	return &Prompt{inner: p}
}

// SavedState is a snapshot of a prompt's live stack bytes, taken and
// restored by handler-layer bookkeeping that needs to checkpoint stack
// contents outside the core's own yield/resume protocol.
type SavedState struct {
	saved *gstack.Saved
}

// Save captures p's stack contents from sp upward.
func Save(p *Prompt, sp uintptr) *SavedState {
	return &SavedState{saved: p.inner.Stack().Save(sp)}
}

// Restore writes a previously captured SavedState back to its original
// address range.
func (s *SavedState) Restore() { s.saved.Restore() }

// SP returns the stack pointer this snapshot was captured from.
func (s *SavedState) SP() uintptr { return s.saved.SP() }

// RunUnwindHook runs fn inside p's own suspended frame before p is
// unwound and released. A handler layer uses this to run scoped `finally`
// blocks that live on a prompt's stack when an enclosing handler aborts
// past it.
func RunUnwindHook(t *Thread, p *Prompt, fn func()) {
	prompt.RunUnwindHook(t.inner, p.inner, fn)
}
