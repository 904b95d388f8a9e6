package gstack

import (
	"runtime"

	"github.com/koka-lang/gstack-go/handler"
	"github.com/koka-lang/gstack-go/internal/prompt"
	"github.com/koka-lang/gstack-go/internal/rt"
)

// Thread is a handle to one OS thread's gstack/prompt state. Create
// exactly one per OS thread, after calling runtime.LockOSThread, and
// never share it across goroutines.
type Thread struct {
	rt *rt.Thread
}

// NewThread locks the calling goroutine to its current OS thread and
// creates a Thread for it. Callers own the LockOSThread pairing: call
// Close (which does not unlock) followed by runtime.UnlockOSThread when
// done, in that order.
func NewThread() *Thread {
	runtime.LockOSThread()
	return &Thread{rt: rt.NewThread()}
}

// Close tears down t's gstack cache and, in debug mode, asserts no prompt
// was left active.
func (t *Thread) Close() { t.rt.Close() }

// ClearCache flushes t's stacklet cache and delayed-free list back to the
// platform, for callers that want the resident set trimmed immediately
// instead of waiting for Close.
func (t *Thread) ClearCache() { t.rt.Inner().ClearCache() }

func (t *Thread) inner() *prompt.Thread { return t.rt.Inner() }

// HandlerThread adapts t for use with the handler package, which a
// higher-level effect/handler layer built on top of this module consumes.
func (t *Thread) HandlerThread() *handler.Thread { return handler.WrapThread(t.inner()) }

// Prompt is a resumable delimiter created with NewPrompt and run with
// EnterPrompt.
type Prompt struct {
	p *prompt.Prompt
}

// HandlerPrompt adapts p for use with the handler package.
func (p *Prompt) HandlerPrompt() *handler.Prompt { return handler.WrapPrompt(p.p) }

// NewPrompt allocates a fresh, never-entered Prompt on t.
func NewPrompt(t *Thread) (*Prompt, error) {
	p, err := prompt.Create(t.inner(), 0)
	if err != nil {
		return nil, err
	}
	return &Prompt{p: p}, nil
}

// RunPrompt creates a prompt and immediately enters it with start(p, arg),
// the common single-call shape. The error is non-nil only when the
// stacklet allocation itself failed.
func RunPrompt(t *Thread, start func(p *Prompt, arg interface{}) interface{}, arg interface{}) (interface{}, error) {
	p, err := NewPrompt(t)
	if err != nil {
		return nil, err
	}
	return EnterPrompt(t, p, start, arg), nil
}

// PromptParent returns the prompt that was active immediately outside p on
// thread t, or nil if p is outermost. A nil p asks for the innermost
// active prompt itself, so the whole chain can be walked starting from
// PromptParent(t, nil).
func PromptParent(t *Thread, p *Prompt) *Prompt {
	var parent *prompt.Prompt
	if p == nil {
		parent = prompt.Current(t.inner())
	} else {
		parent = prompt.PromptParent(p.p)
	}
	if parent == nil {
		return nil
	}
	return &Prompt{p: parent}
}

// EnterPrompt runs start(p, arg) on p's own stacklet, returning whatever
// the computation eventually returns — either start's own return value,
// or the value a yield's handler function produces when start yields and
// is never resumed again.
func EnterPrompt(t *Thread, p *Prompt, start func(p *Prompt, arg interface{}) interface{}, arg interface{}) interface{} {
	return prompt.Enter(t.inner(), p.p, func(inner *prompt.Prompt, a interface{}) interface{} {
		return start(&Prompt{p: inner}, a)
	}, arg)
}

// Resumption is a single-shot capability to resume the prompt a Yield
// suspended, consuming it with exactly one of Resume, ResumeTail or Drop.
type Resumption struct {
	r prompt.Resumption
}

// Resume wakes p's suspended prompt with arg.
func (r Resumption) Resume(t *Thread, arg interface{}) interface{} {
	return r.r.Resume(t.inner(), arg)
}

// ResumeTail wakes p's suspended prompt like Resume but reuses the
// caller's own return point, giving a chain of tail-resumes O(1) stack
// usage.
func (r Resumption) ResumeTail(t *Thread, arg interface{}) interface{} {
	return r.r.TailResume(t.inner(), arg)
}

// Drop gives up r without resuming, unwinding the suspended prompt's
// pending defers before releasing its stacklet.
func (r Resumption) Drop(t *Thread) { r.r.Drop(t.inner()) }

// Yield suspends the currently active prompt p, running fn(resumption,
// arg) once control has unwound to p's parent.
func Yield(t *Thread, p *Prompt, fn func(r Resumption, arg interface{}) interface{}, arg interface{}) interface{} {
	return prompt.Yield(t.inner(), p.p, func(inner prompt.Resumption, a interface{}) interface{} {
		return fn(Resumption{r: inner}, a)
	}, arg)
}

// MultiResumption is a multi-shot resumption: unlike Resumption it may be
// resumed any number of times (MResume), duplicated (MResumeDup) to hand
// out independent resume rights, or dropped (MResumeDrop).
type MultiResumption struct {
	r *prompt.MultiResumption
}

// MResumeDup increments mr's refcount and returns mr itself.
func MResumeDup(mr MultiResumption) MultiResumption {
	return MultiResumption{r: prompt.MultiResumeDup(mr.r)}
}

// MResumeDrop releases one reference to mr.
func MResumeDrop(mr MultiResumption) { prompt.MultiResumeDrop(mr.r) }

// MResumeResumeCount reports how many times mr has been resumed so far.
func MResumeResumeCount(mr MultiResumption) int { return prompt.MultiResumeResumeCount(mr.r) }

// MResumeShouldUnwind reports whether mr has exactly one outstanding
// reference left.
func MResumeShouldUnwind(mr MultiResumption) bool { return prompt.MultiResumeShouldUnwind(mr.r) }

// MResume resumes mr's prompt with arg, replaying the snapshot captured at
// yield time so every resume starts from the same suspended state.
func MResume(t *Thread, mr MultiResumption, arg interface{}) interface{} {
	return prompt.MultiResume(t.inner(), mr.r, arg)
}

// MResumeTail resumes mr like MResume but reuses the caller's own return
// point.
func MResumeTail(t *Thread, mr MultiResumption, arg interface{}) interface{} {
	return prompt.MultiResumeTail(t.inner(), mr.r, arg)
}

// MYield suspends p for multi-shot resumption, running fn(resumption, arg)
// in p's parent once control unwinds there.
func MYield(t *Thread, p *Prompt, fn func(r MultiResumption, arg interface{}) interface{}, arg interface{}) interface{} {
	return prompt.MYield(t.inner(), p.p, func(inner *prompt.MultiResumption, a interface{}) interface{} {
		return fn(MultiResumption{r: inner}, a)
	}, arg)
}
