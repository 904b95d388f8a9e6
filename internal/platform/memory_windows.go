//go:build windows

package platform

import (
	"golang.org/x/sys/windows"
)

// windowsBackend implements backend with VirtualAlloc and VirtualFree, the
// Windows analogues of mmap/mprotect/munmap. Reservation
// and commit are two explicit steps on Windows already (MEM_RESERVE vs
// MEM_COMMIT), which maps directly onto Reserve/Commit without needing the
// PROT_NONE trick memory_unix.go uses.
type windowsBackend struct {
	ps uintptr
}

func newBackend() backend {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return &windowsBackend{ps: uintptr(si.PageSize)}
}

func (b *windowsBackend) pageSize() uintptr { return b.ps }

func (b *windowsBackend) reserve(size uintptr) (Range, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return Range{}, err
	}
	return Range{Addr: addr, Len: size}, nil
}

func (b *windowsBackend) commit(r Range) error {
	_, err := windows.VirtualAlloc(r.Addr, r.Len, windows.MEM_COMMIT, windows.PAGE_READWRITE)
	return err
}

func (b *windowsBackend) decommit(r Range) error {
	return windows.VirtualFree(r.Addr, r.Len, windows.MEM_DECOMMIT)
}

// advise uses MEM_RESET, Windows's equivalent of MADV_FREE: the kernel may
// discard the physical pages but the VA range and its committed status
// stay intact, matching the POSIX advise() path.
func (b *windowsBackend) advise(r Range) error {
	_, err := windows.VirtualAlloc(r.Addr, r.Len, windows.MEM_RESET, windows.PAGE_READWRITE)
	return err
}

func (b *windowsBackend) free(r Range) error {
	return windows.VirtualFree(r.Addr, 0, windows.MEM_RELEASE)
}
