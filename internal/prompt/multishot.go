package prompt

import (
	"fmt"

	"github.com/koka-lang/gstack-go/internal/errs"
	"github.com/koka-lang/gstack-go/internal/gstack"
	"github.com/koka-lang/gstack-go/internal/regctx"
)

// MYield suspends the currently active prompt p for multi-shot resumption,
// running fn(*MultiResumption, arg) in p's parent once control unwinds
// there.
func MYield(owner *Thread, p *Prompt, fn MultiOpFunc, arg interface{}) interface{} {
	p.assertOwner(owner)
	var resumeCtx regctx.Context
	val := regctx.Save(&resumeCtx)
	if val == 0 {
		p.resumePoint = resumeCtx
		unlink(owner, p)
		p.carrier.upKind = kindYieldMulti
		p.carrier.upArg = arg
		p.carrier.upFn = fn
		regctx.Restore(&p.returnPoint, 1)
		panic("gstack: unreachable: multi-shot yield's Restore to the parent returned")
	}
	return checkDownSignal(p.carrier.downArg)
}

// MultiOpFunc is what a multi-shot yield hands control to.
type MultiOpFunc func(r *MultiResumption, arg interface{}) interface{}

// MultiResumption is a multi-shot resumption: unlike Resumption it
// may be resumed any number of times (MultiResume), duplicated
// (MultiResumeDup) to hand out independent resume rights, or dropped
// (MultiResumeDrop). Because only one physical gstack backs it, every
// resume after the first replays from a saved snapshot of the suspended
// stack bytes rather than continuing the live memory in place — the copy
// a single-shot resume never has to pay for.
type MultiResumption struct {
	p        *Prompt
	refcount int32

	resumeCount int

	// template is the stack content captured the moment this resumption
	// was created (i.e. the moment of yield), replayed onto p.stack before
	// every MultiResume so each resume starts from the same suspended
	// state regardless of what an earlier resume did to the live memory.
	template *gstack.Saved

	// resumeCtx is the matching copy of p.resumePoint from the same
	// moment. A replayed body that yields again overwrites p.resumePoint,
	// so every resume writes this copy back alongside the template —
	// restoring the stack bytes without the register context that belongs
	// to them would jump into a frame the bytes no longer describe.
	resumeCtx regctx.Context
}

// newMultiResumption captures p at its yield point. The suspended
// computation's reference on p transfers to the resumption, so no
// refcount change happens here; every replay takes its own reference in
// multiResumeCommon and releases it when the replay returns.
func newMultiResumption(p *Prompt) *MultiResumption {
	saved := p.stack.Save(p.resumePoint.SP())
	mr := &MultiResumption{p: p, refcount: 1, template: saved, resumeCtx: p.resumePoint}
	p.multi = mr
	return mr
}

// MultiResumeDup increments r's refcount and returns r itself, so callers
// can hand out an additional independent right to resume without a second
// yield.
func MultiResumeDup(r *MultiResumption) *MultiResumption {
	r.refcount++
	return r
}

// MultiResumeResumeCount reports how many times r has been resumed so far.
func MultiResumeResumeCount(r *MultiResumption) int { return r.resumeCount }

// MultiResumeShouldUnwind reports whether this is the last outstanding
// reference to r (refcount == 1): a handler about to resume for what it
// knows is the final time can skip bookkeeping it would otherwise need for
// a future resume.
func MultiResumeShouldUnwind(r *MultiResumption) bool { return r.refcount == 1 }

// MultiResumeDrop releases one reference to r. Once the refcount reaches
// zero, the prompt reference r has held since its yield is released too:
// if r was never resumed, the prompt's stack is first unwound so its
// pending defers run; otherwise the reference is dropped directly, and
// the prompt is freed once no other resumption or in-flight replay still
// holds one.
func MultiResumeDrop(r *MultiResumption) {
	r.refcount--
	if r.refcount > 0 {
		return
	}
	r.template = nil
	if r.resumeCount == 0 {
		dropSuspended(r.p.owner, r.p)
		return
	}
	if r.p.multi == r {
		r.p.multi = nil
	}
	r.p.drop(false)
}

// MultiResume resumes r's prompt with arg, replaying the saved template
// onto the stack first so this resume starts from the same suspended
// state every previous (and future) resume of r did.
func MultiResume(owner *Thread, r *MultiResumption, arg interface{}) interface{} {
	return multiResumeCommon(owner, r, arg, Resume)
}

// MultiResumeTail resumes r like MultiResume but reuses the caller's own
// return point (see the single-shot TailResume).
func MultiResumeTail(owner *Thread, r *MultiResumption, arg interface{}) interface{} {
	return multiResumeCommon(owner, r, arg, TailResume)
}

func multiResumeCommon(owner *Thread, r *MultiResumption, arg interface{}, resumeFn func(*Thread, *Prompt, interface{}) interface{}) interface{} {
	if r.template == nil {
		panic(fmt.Errorf("%w: MultiResume called after the resumption was fully dropped", errs.ErrMisuse))
	}
	if err := r.p.stack.Grow(r.template.SP()); err != nil {
		panic(err)
	}
	r.template.Restore()
	r.p.resumePoint = r.resumeCtx
	r.resumeCount++
	// The replay about to start holds its own reference on the prompt,
	// released by dispatchUp when the replay returns or panics. r's own
	// reference stays untouched so a nested resumption's drop can never
	// free the stack out from under an outer one.
	r.p.refcount++
	return resumeFn(owner, r.p, arg)
}
