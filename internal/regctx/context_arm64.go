//go:build arm64

package regctx

// Context holds the callee-saved register set for arm64 (x19-x28, the
// frame pointer x29, the link register x30 and d8-d15) plus the captured
// SP and PC. Offsets below are load-bearing for context_arm64.s.
type Context struct {
	x19, x20, x21, x22, x23 uintptr
	x24, x25, x26, x27, x28 uintptr
	fp                      uintptr // x29
	lr                      uintptr // x30, the return address at capture time
	sp                      uintptr
	pc                      uintptr

	// d holds d8-d15, the callee-saved floating point registers.
	d [8]uint64

	// gStackLo/gStackHi/gStackguard0: see the amd64 Context doc comment.
	gStackLo     uintptr
	gStackHi     uintptr
	gStackguard0 uintptr
}

const (
	ctxX19Offset = 0
	ctxFPOffset  = 80
	ctxLROffset  = 88
	ctxSPOffset  = 96
	ctxPCOffset  = 104
	ctxDOffset   = 112
)

func rawSave(ctx *Context) int32

func rawRestore(ctx *Context, val int32)

func rawEnterStack(sp uintptr, fnPC uintptr, arg uintptr)
