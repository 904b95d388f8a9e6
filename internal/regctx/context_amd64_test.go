//go:build amd64

package regctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test_Save_Restore_returnsSecondTimeWithVal exercises rawSave/rawRestore's
// core contract directly on the calling goroutine's own stack (no foreign
// gstack involved): a later Restore(ctx, v) makes the original Save call
// return a second time with v instead of 0.
func Test_Save_Restore_returnsSecondTimeWithVal(t *testing.T) {
	var ctx Context
	var calls int

	val := Save(&ctx)
	calls++
	if val == 0 && calls == 1 {
		Restore(&ctx, 7)
		t.Fatal("unreachable: Restore never returns to its caller")
	}

	assert.Equal(t, 2, calls)
	assert.Equal(t, int32(7), val)
}
