//go:build amd64

package regctx

// Context holds the callee-saved register set for amd64 plus the
// instruction and stack pointer. Field order and size are load-bearing:
// context_amd64.s reads and writes these exact byte offsets. Update the
// offsets below together with the .s file if this changes.
type Context struct {
	rbx uintptr
	rbp uintptr
	r12 uintptr
	r13 uintptr
	r14 uintptr
	r15 uintptr
	sp  uintptr
	pc  uintptr

	// xmm holds XMM6-XMM15, callee-saved only under the Windows x64
	// calling convention; zero and unused on System V targets
	// (Linux/Darwin) but kept in the struct so a Windows build of the .s
	// file does not need a second Context layout.
	xmm [10][2]uint64

	// tibStackBase/tibStackLimit mirror the Windows TIB's stack fields so
	// the OS unwinder can find a coherent range across a stack switch.
	// Unused on POSIX.
	tibStackBase  uintptr
	tibStackLimit uintptr

	// gStackLo/gStackHi/gStackguard0 hold the running goroutine's own
	// g.stack.{lo,hi} and g.stackguard0, as they stood at the moment Save
	// captured this context. Restore writes them back before jumping
	// here, so the Go runtime's own bookkeeping for "which memory belongs
	// to this goroutine's stack" stays coherent across a switch onto or
	// off of a gstack. Never touched by the assembly; see
	// gbookkeeping_amd64.s and gbookkeeping.go.
	gStackLo     uintptr
	gStackHi     uintptr
	gStackguard0 uintptr
}

// Offsets referenced from context_amd64.s. Keep in sync with the struct
// above.
const (
	ctxRBXOffset = 0
	ctxRBPOffset = 8
	ctxR12Offset = 16
	ctxR13Offset = 24
	ctxR14Offset = 32
	ctxR15Offset = 40
	ctxSPOffset  = 48
	ctxPCOffset  = 56
)

func rawSave(ctx *Context) int32

func rawRestore(ctx *Context, val int32)

func rawEnterStack(sp uintptr, fnPC uintptr, arg uintptr)
