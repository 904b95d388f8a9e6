package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koka-lang/gstack-go/internal/gstack"
	"github.com/koka-lang/gstack-go/internal/platform"
	"github.com/koka-lang/gstack-go/internal/prompt"
)

func configureForTest(t *testing.T) {
	t.Helper()
	ps := platform.PageSize()
	gstack.Configure(gstack.Geometry{
		MaxSize:       16 * ps,
		InitialCommit: 4 * ps,
		GapSize:       ps,
		UseGpool:      false,
		ResetPolicy:   platform.ResetAdvise,
	})
}

func Test_Current_tracksActivePrompt(t *testing.T) {
	configureForTest(t)
	inner := prompt.NewThread(2, true)
	th := WrapThread(inner)

	p, err := prompt.Create(inner, 0)
	require.NoError(t, err)

	assert.Nil(t, Current(th))
	prompt.Enter(inner, p, func(ip *prompt.Prompt, arg interface{}) interface{} {
		cur := Current(th)
		require.NotNil(t, cur)
		assert.Same(t, ip, cur.inner)
		return nil
	}, nil)
	assert.Nil(t, Current(th))
}

func Test_SaveRestore(t *testing.T) {
	configureForTest(t)
	inner := prompt.NewThread(2, true)
	p, err := prompt.Create(inner, 0)
	require.NoError(t, err)
	wrapped := WrapPrompt(p)

	sp := p.Stack().Committed()
	s := Save(wrapped, sp)
	assert.Equal(t, sp, s.SP())
	s.Restore()
}

func Test_RunUnwindHook_neverEntered_runsDirectly(t *testing.T) {
	configureForTest(t)
	inner := prompt.NewThread(2, true)
	p, err := prompt.Create(inner, 0)
	require.NoError(t, err)
	th := WrapThread(inner)
	wp := WrapPrompt(p)

	ran := false
	RunUnwindHook(th, wp, func() { ran = true })
	assert.True(t, ran)
}
