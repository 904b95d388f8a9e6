// Package gstack implements allocation, caching, growth and save/restore
// of growable stacklets. A Gstack never moves once allocated; growth only
// ever extends how much of its reservation is committed.
package gstack

import (
	"unsafe"

	"github.com/koka-lang/gstack-go/internal/errs"
	"github.com/koka-lang/gstack-go/internal/gpool"
	"github.com/koka-lang/gstack-go/internal/platform"
)

// canaryValue is written at the initial commit boundary at alloc time. If
// it is still intact on free, the stack never reached its initial commit
// boundary and decommitting it is unnecessary.
const canaryValue uint64 = 0xC0FFEE15DEADBEEF

// Geometry is the fixed per-stacklet layout every Gstack in the process
// shares, derived once from Config at process init. A single constant
// reservation size per stacklet keeps the pool layout predictable.
type Geometry struct {
	MaxSize       uintptr
	InitialCommit uintptr
	GapSize       uintptr
	UseGpool      bool
	GpoolMaxSize  uintptr
	ResetPolicy   platform.ResetPolicy

	// ExnGuaranteed is how far ahead of the immediate need internal/fault
	// pre-commits before waking a prompt solely to unwind it
	// (dropSuspended, RunUnwindHook), so the defers an in-flight exception
	// runs on the way out have committed room without depending on a
	// further suspension point to grow again.
	ExnGuaranteed uintptr
}

var geo Geometry

// Configure installs the process-wide stacklet geometry. Called once by
// internal/rt during process init.
func Configure(g Geometry) {
	geo = g
	gpool.Configure(g.MaxSize, g.GapSize)
}

// ExnGuaranteed returns the process-wide unwind headroom from Geometry, for
// internal/prompt's growBeforeSwitch to consult without internal/fault
// needing to know about Config directly.
func ExnGuaranteed() uintptr { return geo.ExnGuaranteed }

// Gstack is one growable stacklet.
type Gstack struct {
	reservation platform.Range // raw OS range when not pool-backed
	usable      platform.Range // [limit, base of usable region)
	extra       platform.Range // inline region for the prompt header
	pooled      bool
	poolBase    uintptr

	committed  uintptr // watermark: lowest committed address so far
	canaryAddr uintptr // address of the canary word; committed < canaryAddr iff the stack grew since alloc

	// next links this Gstack into exactly one of: a Cache's free list, or
	// a Cache's delayed-free list. Never both.
	next *Gstack
}

// Base returns the stack pointer value a fresh entry onto this Gstack
// should start from: the highest usable address, sitting directly below
// the extra region so stack frames never overwrite a header stored there.
// Only down-growing architectures are supported.
func (g *Gstack) Base() uintptr { return g.usable.End() }

// Limit returns the lowest legal address; anything below it is the gap.
func (g *Gstack) Limit() uintptr { return g.usable.Addr }

// Extra returns the inline region above Base reserved for the caller's
// header, so a prompt header needs no second allocation.
func (g *Gstack) Extra() unsafe.Pointer { return unsafe.Pointer(g.extra.Addr) }

// Committed reports the current watermark: bytes below it, down to Limit,
// are readable/writable.
func (g *Gstack) Committed() uintptr { return g.committed }

// Alloc returns a Gstack with at least extraBytes of inline extra space,
// serving it from cache first and falling back to a fresh allocation.
func Alloc(cache *Cache, extraBytes uintptr) (*Gstack, error) {
	if cache != nil {
		// Any stack parked during an exception unwind is safe to retire
		// now: allocation only happens from ordinary (non-unwinding) code.
		cache.drainDelayed()
		if g := cache.pop(); g != nil && g.extra.Len >= extraBytes {
			return g, nil
		} else if g != nil {
			// Cached stack's inline region is too small for this caller;
			// release it rather than silently under-sizing the header.
			release(g)
		}
	}
	return allocFresh(extraBytes)
}

func allocFresh(extraBytes uintptr) (*Gstack, error) {
	extra := platform.RoundUpPage(extraBytes)
	if extra == 0 {
		extra = platform.PageSize()
	}
	usableLen := geo.MaxSize
	g := &Gstack{}

	if geo.UseGpool {
		base, slot, err := gpool.AllocSlot(geo.GpoolMaxSize)
		if err != nil {
			return nil, err
		}
		g.pooled = true
		g.poolBase = base
		// The slot already excludes its own trailing gap (gpool.slotRange);
		// usable sits below extra at the low end of the slot.
		g.usable = slot.Sub(0, slot.Len-extra)
		g.extra = slot.Sub(slot.Len-extra, extra)
	} else {
		gap := geo.GapSize
		total := gap + usableLen + extra + gap
		r, err := platform.Reserve(total)
		if err != nil {
			return nil, err
		}
		g.reservation = r
		g.usable = r.Sub(gap, usableLen)
		g.extra = r.Sub(gap+usableLen, extra)
		// both gap regions are left PROT_NONE from Reserve; nothing to do.
	}

	initial := geo.InitialCommit
	if initial == 0 {
		initial = platform.PageSize()
	}
	if initial > usableLen {
		initial = usableLen
	}
	commitStart := g.usable.End() - initial
	if err := platform.Commit(platform.Range{Addr: commitStart, Len: initial + g.extra.Len}); err != nil {
		release(g)
		return nil, err
	}
	g.committed = commitStart
	g.canaryAddr = commitStart
	*(*uint64)(unsafe.Pointer(g.canaryAddr)) = canaryValue

	return g, nil
}

// Grow extends the committed watermark so that addr (an address that
// faulted or is about to be touched) becomes committed, following the
// quadratic-growth policy: double the currently used region, capped at
// 1MiB per call and never past Limit() plus a guard page.
func (g *Gstack) Grow(addr uintptr) error {
	if addr >= g.committed {
		return nil // already committed
	}
	if addr < g.Limit() {
		return errs.ErrStackOverflow
	}
	used := g.Base() - g.committed
	extra := used
	const cap1MiB = 1 << 20
	if extra > cap1MiB {
		extra = cap1MiB
	}
	extra = platform.RoundUpPage(extra)

	newWatermark := g.committed - extra
	if newWatermark > addr {
		newWatermark = platform.RoundDownPage(addr)
	}
	if newWatermark <= g.Limit() {
		// Never commit the guard page itself.
		newWatermark = g.Limit() + platform.PageSize()
		if newWatermark > g.committed {
			return errs.ErrStackOverflow
		}
	}
	r := platform.Range{Addr: newWatermark, Len: g.committed - newWatermark}
	if err := platform.Commit(r); err != nil {
		return err
	}
	g.committed = newWatermark
	return nil
}

// Free releases g. If delay is true it is pushed onto the cache's
// delayed-free list instead, staying alive while an exception unwinds
// through it; otherwise it is cached (up to the configured cap) or
// released to the platform.
func Free(cache *Cache, g *Gstack, delay bool) {
	if delay && cache != nil {
		cache.delay(g)
		return
	}
	if cache != nil && cache.push(g) {
		g.shrinkForReuse()
		return
	}
	release(g)
}

// shrinkForReuse resets any pages dirtied past the initial commit and
// rewinds the watermark, so a cached stacklet holds no more resident
// memory than a fresh one. The canary word is rewritten so the next free
// of the same stacklet can again skip the syscall when it never grew.
func (g *Gstack) shrinkForReuse() {
	if g.committed >= g.canaryAddr && *(*uint64)(unsafe.Pointer(g.canaryAddr)) == canaryValue {
		return
	}
	if g.committed < g.canaryAddr {
		_ = platform.Reset(platform.Range{Addr: g.committed, Len: g.canaryAddr - g.committed}, geo.ResetPolicy)
		g.committed = g.canaryAddr
	}
	*(*uint64)(unsafe.Pointer(g.canaryAddr)) = canaryValue
}

func release(g *Gstack) {
	// Skip the reset/decommit syscall entirely if the canary word is
	// still where alloc put it: the stack never reached its initial
	// commit boundary, so there is nothing dirty worth reclaiming. A zero
	// canaryAddr means the initial commit itself failed and nothing was
	// ever written.
	if g.canaryAddr != 0 &&
		(g.committed < g.canaryAddr || *(*uint64)(unsafe.Pointer(g.canaryAddr)) != canaryValue) {
		_ = platform.Reset(platform.Range{Addr: g.committed, Len: g.usable.End() - g.committed}, geo.ResetPolicy)
	}
	if g.pooled {
		gpool.FreeSlot(g.poolBase)
		return
	}
	_ = platform.Free(g.reservation)
}
