//go:build darwin

package platform

import "golang.org/x/sys/unix"

// madviseFree has no MADV_FREE equivalent reachable from x/sys/unix on
// Darwin without raw syscall numbers (MADV_FREE_REUSABLE is unexported
// there), so Darwin falls back to an eager decommit instead of a lazy
// hint.
func madviseFree(b []byte) error {
	if err := unix.Mprotect(b, unix.PROT_NONE); err != nil {
		return err
	}
	return unix.Madvise(b, unix.MADV_DONTNEED)
}
