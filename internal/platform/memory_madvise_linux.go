//go:build linux

package platform

import "golang.org/x/sys/unix"

// madviseFree issues MADV_FREE, Linux's lazy-reclaim hint: the pages stay
// mapped and readable-as-zero until the kernel needs the memory elsewhere,
// which is cheaper than an eager MADV_DONTNEED when the cache expects to
// reuse the same gstack soon.
func madviseFree(b []byte) error {
	return unix.Madvise(b, unix.MADV_FREE)
}
