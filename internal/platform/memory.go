// Package platform wraps the virtual-memory primitives the gstack allocator
// is built on: reserve, commit, decommit, reset and free of raw address
// ranges, plus the page size and fault-handler install points. Every OS
// backend implements the same five functions over a Range, which carries
// its own length alongside its address.
package platform

import (
	"fmt"

	"github.com/koka-lang/gstack-go/internal/errs"
)

// Range is a contiguous virtual address range returned by Reserve. It
// carries its own length so callers never need to separately track it.
type Range struct {
	Addr uintptr
	Len  uintptr
}

// End returns Addr+Len.
func (r Range) End() uintptr { return r.Addr + r.Len }

// Sub returns the sub-range [Addr+off, Addr+off+n).
func (r Range) Sub(off, n uintptr) Range {
	if off+n > r.Len {
		panic("platform: sub-range out of bounds")
	}
	return Range{Addr: r.Addr + off, Len: n}
}

// ResetPolicy controls what Reset does to a range of pages that is no
// longer needed but whose reservation is kept.
type ResetPolicy int

const (
	// ResetAdvise hints to the OS that the pages may be reclaimed lazily
	// (MADV_FREE on Linux). Falls back to ResetDecommit where the OS has
	// no lazy-reclaim hint reachable without raw syscall numbers (Darwin).
	ResetAdvise ResetPolicy = iota
	// ResetDecommit eagerly returns the physical pages to the OS.
	ResetDecommit
)

// backend is implemented once per GOOS in memory_<goos>.go.
type backend interface {
	reserve(size uintptr) (Range, error)
	commit(r Range) error
	decommit(r Range) error
	advise(r Range) error
	free(r Range) error
	pageSize() uintptr
}

var impl backend = newBackend()

// PageSize returns the OS page size, queried once at package init.
func PageSize() uintptr { return impl.pageSize() }

// RoundUpPage rounds n up to the next multiple of the page size.
func RoundUpPage(n uintptr) uintptr {
	ps := PageSize()
	return (n + ps - 1) &^ (ps - 1)
}

// RoundDownPage rounds n down to a multiple of the page size.
func RoundDownPage(n uintptr) uintptr {
	ps := PageSize()
	return n &^ (ps - 1)
}

// Reserve reserves size bytes of address space with no access. size is
// rounded up to a page. Returns errs.ErrOutOfMemory on failure; whether
// that is fatal is the caller's decision, not this package's.
func Reserve(size uintptr) (Range, error) {
	r, err := impl.reserve(RoundUpPage(size))
	if err != nil {
		return Range{}, fmt.Errorf("%w: reserve %d bytes: %v", errs.ErrOutOfMemory, size, err)
	}
	return r, nil
}

// Commit makes r readable/writable. On a system with a VMA-count limit
// (Linux's vm.max_map_count), a failure here is reported as out-of-memory
// with advice to raise that limit, since each mprotect can split a VMA.
func Commit(r Range) error {
	if err := impl.commit(r); err != nil {
		return fmt.Errorf("%w: commit [%#x,%#x): %v (consider raising vm.max_map_count)",
			errs.ErrOutOfMemory, r.Addr, r.End(), err)
	}
	return nil
}

// Decommit returns the physical pages backing r to the OS while keeping
// the reservation (and its no-access-by-default state) intact.
func Decommit(r Range) error {
	if err := impl.decommit(r); err != nil {
		return fmt.Errorf("platform: decommit [%#x,%#x): %w", r.Addr, r.End(), err)
	}
	return nil
}

// Reset hints that r can be reclaimed, per the configured ResetPolicy.
func Reset(r Range, policy ResetPolicy) error {
	if policy == ResetDecommit {
		return Decommit(r)
	}
	if err := impl.advise(r); err != nil {
		// Fall back to an eager decommit; losing the "lazy" property is
		// safe, just slower to re-fault in.
		return Decommit(r)
	}
	return nil
}

// Free releases the entire reservation r back to the OS.
func Free(r Range) error {
	if err := impl.free(r); err != nil {
		return fmt.Errorf("platform: free [%#x,%#x): %w", r.Addr, r.End(), err)
	}
	return nil
}
