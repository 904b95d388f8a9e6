package gstack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_NewConfig_matchesDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, defaultConfig.gpoolEnable, c.gpoolEnable)
	assert.Equal(t, defaultConfig.stackMaxSize, c.stackMaxSize)
	assert.Equal(t, defaultConfig.stackCacheCount, c.stackCacheCount)
}

func Test_With_returnsIndependentClone(t *testing.T) {
	base := NewConfig()
	derived := base.WithGpoolEnable(false).WithStackCacheCount(99)

	assert.NotSame(t, base, derived)
	assert.True(t, base.gpoolEnable, "the base Config must be untouched by deriving from it")
	assert.Equal(t, defaultConfig.stackCacheCount, base.stackCacheCount)

	assert.False(t, derived.gpoolEnable)
	assert.Equal(t, 99, derived.stackCacheCount)
}

func Test_With_chaining(t *testing.T) {
	c := NewConfig().
		WithStackMaxSize(1 << 20).
		WithStackGapSize(4096).
		WithStackInitialCommit(8192).
		WithDebug(true).
		WithStackExnGuaranteed(64 << 10).
		WithStackResetDecommits(true)

	assert.Equal(t, uintptr(1<<20), c.stackMaxSize)
	assert.Equal(t, uintptr(4096), c.stackGapSize)
	assert.Equal(t, uintptr(8192), c.stackInitialCommit)
	assert.True(t, c.debug)
	assert.Equal(t, uintptr(64<<10), c.stackExnGuaranteed)
	assert.True(t, c.stackResetDecommits)
}

func Test_compatibilityOnly_withersStillCloneButDontPanic(t *testing.T) {
	base := NewConfig()
	derived := base.WithStackUseOvercommit(true).WithStackGrowFast(false)
	assert.NotSame(t, base, derived)
}
