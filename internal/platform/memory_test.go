package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RoundUpPage(t *testing.T) {
	ps := PageSize()
	assert.Equal(t, ps, RoundUpPage(1))
	assert.Equal(t, ps, RoundUpPage(ps))
	assert.Equal(t, 2*ps, RoundUpPage(ps+1))
	assert.Equal(t, uintptr(0), RoundUpPage(0))
}

func Test_RoundDownPage(t *testing.T) {
	ps := PageSize()
	assert.Equal(t, uintptr(0), RoundDownPage(1))
	assert.Equal(t, ps, RoundDownPage(ps))
	assert.Equal(t, ps, RoundDownPage(ps+1))
}

func Test_Range_Sub(t *testing.T) {
	r := Range{Addr: 0x1000, Len: 0x100}
	s := r.Sub(0x10, 0x20)
	assert.Equal(t, Range{Addr: 0x1010, Len: 0x20}, s)
	assert.Equal(t, uintptr(0x1100), r.End())
}

func Test_Range_Sub_outOfBounds_panics(t *testing.T) {
	r := Range{Addr: 0x1000, Len: 0x100}
	assert.Panics(t, func() { r.Sub(0x90, 0x90) })
}

func Test_ReserveCommitDecommitFree_roundTrip(t *testing.T) {
	ps := PageSize()
	r, err := Reserve(4 * ps)
	require.NoError(t, err)
	defer Free(r)

	require.NoError(t, Commit(r.Sub(0, ps)))
	require.NoError(t, Decommit(r.Sub(0, ps)))
	require.NoError(t, Reset(r.Sub(ps, ps), ResetAdvise))
	require.NoError(t, Reset(r.Sub(2*ps, ps), ResetDecommit))
}

func Test_Reserve_oneByteRoundsToOnePage(t *testing.T) {
	r, err := Reserve(1)
	require.NoError(t, err)
	defer Free(r)
	assert.Equal(t, PageSize(), r.Len)
}
