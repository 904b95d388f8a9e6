package rt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Init_idempotentAndThreadLifecycle(t *testing.T) {
	Init(Settings{
		GpoolEnable:        false,
		StackMaxSize:       1 << 20,
		StackInitialCommit: 1 << 16,
		StackGapSize:       1 << 16,
		StackCacheCount:    2,
		Debug:              true,
	})
	// A second call must not panic or re-run side effects.
	Init(Settings{StackMaxSize: 1})

	th := NewThread()
	require.NotNil(t, th.Inner())
	th.Close()
}
