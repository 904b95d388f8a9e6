package gstack

import "unsafe"

// Saved is a heap copy of the live bytes of a suspended Gstack, taken from
// a given stack pointer up to the base plus the inline extra region.
// Multi-shot resume replays one of these before every wake-up.
type Saved struct {
	from uintptr // the sp the slice was captured from; Restore writes back here
	data []byte
}

// Save copies [sp, g.extra.End()) into a freshly allocated buffer. A
// failure to allocate that buffer is fatal: a yield is already in flight
// and there is no safe frame to unwind to, so there is no error return
// here.
func (g *Gstack) Save(sp uintptr) *Saved {
	n := g.extra.End() - sp
	data := make([]byte, n)
	src := unsafe.Slice((*byte)(unsafe.Pointer(sp)), int(n))
	copy(data, src)
	return &Saved{from: sp, data: data}
}

// Restore writes a previously captured slice back to its original
// address. The Gstack must have at least as much committed from s.from
// upward as it did when Save was taken; callers are responsible for
// calling Grow first if the watermark has since receded (it never does in
// practice, since a multi-shot resume restores the chain before reusing
// any of it).
func (s *Saved) Restore() {
	dst := unsafe.Slice((*byte)(unsafe.Pointer(s.from)), len(s.data))
	copy(dst, s.data)
}

// SP returns the stack pointer this snapshot was captured from.
func (s *Saved) SP() uintptr { return s.from }
