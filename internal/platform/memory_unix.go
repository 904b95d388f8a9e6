//go:build linux || darwin

package platform

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// unixBackend implements backend on top of golang.org/x/sys/unix. No cgo is
// required: mmap, mprotect, munmap and madvise are all plain syscalls.
type unixBackend struct {
	ps uintptr
}

func newBackend() backend {
	return &unixBackend{ps: uintptr(unix.Getpagesize())}
}

func (b *unixBackend) pageSize() uintptr { return b.ps }

// reserve maps size bytes PROT_NONE so the range is address-space-only:
// touching it faults until commit runs mprotect over a sub-range.
func (b *unixBackend) reserve(size uintptr) (Range, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return Range{}, err
	}
	return Range{Addr: uintptr(unsafe.Pointer(&data[0])), Len: size}, nil
}

func (b *unixBackend) commit(r Range) error {
	return unix.Mprotect(bytesOf(r), unix.PROT_READ|unix.PROT_WRITE)
}

func (b *unixBackend) decommit(r Range) error {
	if err := unix.Mprotect(bytesOf(r), unix.PROT_NONE); err != nil {
		return err
	}
	return unix.Madvise(bytesOf(r), unix.MADV_DONTNEED)
}

func (b *unixBackend) advise(r Range) error {
	return madviseFree(bytesOf(r))
}

func (b *unixBackend) free(r Range) error {
	return unix.Munmap(bytesOf(r))
}

// bytesOf builds a []byte header over r without copying, for the unix
// package calls that take a []byte rather than a raw pointer.
func bytesOf(r Range) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(r.Addr)), int(r.Len))
}
