package fault

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koka-lang/gstack-go/internal/errs"
	"github.com/koka-lang/gstack-go/internal/gstack"
	"github.com/koka-lang/gstack-go/internal/platform"
)

func Test_Guard_passesThroughOrdinaryPanics(t *testing.T) {
	sentinel := errors.New("boom")
	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.Same(t, sentinel, r)
	}()
	_ = Guard(func() { panic(sentinel) })
}

func Test_Guard_noPanicReturnsNil(t *testing.T) {
	err := Guard(func() {})
	assert.NoError(t, err)
}

func Test_GrowFor_commitsAheadOfSP(t *testing.T) {
	ps := platform.PageSize()
	gstack.Configure(gstack.Geometry{
		MaxSize:       16 * ps,
		InitialCommit: ps,
		GapSize:       ps,
		UseGpool:      false,
		ResetPolicy:   platform.ResetAdvise,
	})
	g, err := gstack.Alloc(nil, 0)
	require.NoError(t, err)
	defer gstack.Free(nil, g, false)

	target := g.Limit() + ps
	require.NoError(t, GrowFor(g, target))
	assert.True(t, g.Committed() <= target)
}

func Test_GrowFor_pastLimit(t *testing.T) {
	ps := platform.PageSize()
	gstack.Configure(gstack.Geometry{
		MaxSize:       16 * ps,
		InitialCommit: ps,
		GapSize:       ps,
		UseGpool:      false,
		ResetPolicy:   platform.ResetAdvise,
	})
	g, err := gstack.Alloc(nil, 0)
	require.NoError(t, err)
	defer gstack.Free(nil, g, false)

	err = GrowFor(g, g.Limit()-1)
	assert.ErrorIs(t, err, errs.ErrStackOverflow)
}
