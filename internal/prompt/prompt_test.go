package prompt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koka-lang/gstack-go/internal/gstack"
	"github.com/koka-lang/gstack-go/internal/platform"
)

func configureForTest(t *testing.T) {
	t.Helper()
	ps := platform.PageSize()
	gstack.Configure(gstack.Geometry{
		MaxSize:       32 * ps,
		InitialCommit: 4 * ps,
		GapSize:       ps,
		UseGpool:      false,
		ResetPolicy:   platform.ResetAdvise,
	})
}

func newTestThread() *Thread {
	return NewThread(4, true)
}

func Test_Enter_plainReturn(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)

	got := Enter(th, p, func(p *Prompt, arg interface{}) interface{} {
		return arg.(int) + 1
	}, 41)
	assert.Equal(t, 42, got)
	assert.Nil(t, Current(th), "a plain-return prompt must not remain on the active chain")
}

func Test_Enter_twiceOnSamePrompt_misuse(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)

	Enter(th, p, func(p *Prompt, arg interface{}) interface{} { return nil }, nil)
	assert.Panics(t, func() {
		Enter(th, p, func(p *Prompt, arg interface{}) interface{} { return nil }, nil)
	})
}

func Test_Yield_Resume_roundTrip(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)

	got := Enter(th, p, func(p *Prompt, arg interface{}) interface{} {
		return Yield(th, p, func(r Resumption, yieldArg interface{}) interface{} {
			// Runs in the parent's frame, one level up from the yield.
			return r.Resume(th, yieldArg.(int)*2)
		}, 21)
	}, nil)
	assert.Equal(t, 42, got)
}

func Test_TailResume_chainDoesNotGrowReturnPoints(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)

	// Every yield below is answered by a handler that tail-resumes: each
	// handler frame is abandoned, so the next yield lands back at the
	// original Enter site no matter how many rounds have gone by.
	const chainLen = 50
	got := Enter(th, p, func(p *Prompt, arg interface{}) interface{} {
		total := 0
		for i := 0; i < chainLen; i++ {
			v := Yield(th, p, func(r Resumption, yieldArg interface{}) interface{} {
				return r.TailResume(th, yieldArg.(int)+1)
			}, i)
			total += v.(int)
		}
		return total
	}, nil)
	// sum of (i+1) for i in [0,chainLen)
	assert.Equal(t, chainLen*(chainLen+1)/2, got)
}

func Test_Drop_runsDefersInSuspendedFrame(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)

	cleaned := false
	Enter(th, p, func(p *Prompt, arg interface{}) interface{} {
		defer func() { cleaned = true }()
		return Yield(th, p, func(r Resumption, yieldArg interface{}) interface{} {
			r.Drop(th)
			return "dropped"
		}, nil)
	}, nil)
	assert.True(t, cleaned, "Resumption.Drop must run the suspended frame's defers")
}

func Test_Resume_neverEntered_misuse(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)
	assert.Panics(t, func() { Resume(th, p, nil) })
}

func Test_TailResume_onActivePrompt_misuse(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)
	assert.Panics(t, func() {
		Enter(th, p, func(inner *Prompt, arg interface{}) interface{} {
			return TailResume(th, inner, nil) // inner is active, not suspended
		}, nil)
	})
}

func Test_panicInsidePrompt_propagatesToEnterCaller(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)

	sentinel := errors.New("boom inside prompt")
	cleanups := 0
	defer func() {
		r := recover()
		require.NotNil(t, r, "the panic must surface at the Enter call site")
		pe, ok := r.(*PropagatedException)
		require.True(t, ok, "a panic crossing a prompt boundary arrives wrapped")
		assert.Same(t, sentinel, pe.Value)
		assert.True(t, pe.CrossedOne)
		assert.Equal(t, 1, cleanups, "the prompt body's defers run exactly once")
		assert.Nil(t, Current(th), "the failed prompt must not remain on the active chain")
	}()
	Enter(th, p, func(p *Prompt, arg interface{}) interface{} {
		defer func() { cleanups++ }()
		panic(sentinel)
	}, nil)
	t.Fatal("unreachable: Enter must panic")
}

func Test_panicCrossesNestedPrompts_wrappedOnce(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	outer, err := Create(th, 0)
	require.NoError(t, err)
	inner, err := Create(th, 0)
	require.NoError(t, err)

	sentinel := errors.New("deep failure")
	cleanups := 0
	defer func() {
		r := recover()
		require.NotNil(t, r)
		pe, ok := r.(*PropagatedException)
		require.True(t, ok)
		assert.Same(t, sentinel, pe.Value, "crossing a second boundary must not nest a second wrapper")
		assert.Equal(t, 2, cleanups, "both bodies' defers run, once each")
	}()
	Enter(th, outer, func(op *Prompt, arg interface{}) interface{} {
		defer func() { cleanups++ }()
		return Enter(th, inner, func(ip *Prompt, arg interface{}) interface{} {
			defer func() { cleanups++ }()
			panic(sentinel)
		}, nil)
	}, nil)
	t.Fatal("unreachable: Enter must panic")
}

func Test_panicAcrossYieldedPrompt_reachesResumer(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)

	sentinel := errors.New("post-resume failure")
	cleanups := 0
	caught := false
	Enter(th, p, func(p *Prompt, arg interface{}) interface{} {
		defer func() { cleanups++ }()
		Yield(th, p, func(r Resumption, yieldArg interface{}) interface{} {
			defer func() {
				rec := recover()
				require.NotNil(t, rec)
				pe, ok := rec.(*PropagatedException)
				require.True(t, ok)
				assert.Same(t, sentinel, pe.Value)
				assert.Equal(t, 1, cleanups, "the body's defers ran before the exception crossed")
				caught = true
			}()
			return r.Resume(th, nil) // the resumed body panics below
		}, nil)
		panic(sentinel)
	}, nil)
	assert.True(t, caught, "the resume call site must observe the exception")
}

func Test_MultiResume_canBeResumedMoreThanOnce(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)

	seen := []int{}
	Enter(th, p, func(p *Prompt, arg interface{}) interface{} {
		x := MYield(th, p, func(r *MultiResumption, yieldArg interface{}) interface{} {
			MultiResume(th, r, 1)
			MultiResume(th, r, 2)
			MultiResumeDrop(r)
			return nil
		}, nil).(int)
		seen = append(seen, x)
		return nil
	}, nil)
	assert.ElementsMatch(t, []int{1, 2}, seen)
}

// Test_MultiResume_nQueens drives the multi-shot machinery the way a
// nondeterminism handler would: choose(k) yields multi-shot, and the
// handler replays the suspended computation once per alternative, summing
// the solutions each branch finds. Every replay re-yields at the next
// row, so resumptions nest recursively and each replay overwrites the
// prompt's live resume point — the snapshot taken at each yield must be
// what later replays of the *outer* resumption restore.
func Test_MultiResume_nQueens(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)

	const n = 8

	choose := func(pp *Prompt, k int) int {
		return MYield(th, pp, func(r *MultiResumption, _ interface{}) interface{} {
			total := 0
			for i := 0; i < k; i++ {
				total += MultiResume(th, r, i).(int)
			}
			MultiResumeDrop(r)
			return total
		}, nil).(int)
	}

	safe := func(rows []int, row, col int) bool {
		for r0, c0 := range rows {
			if c0 == col || row-r0 == col-c0 || row-r0 == c0-col {
				return false
			}
		}
		return true
	}

	var place func(pp *Prompt, rows []int) int
	place = func(pp *Prompt, rows []int) int {
		row := len(rows)
		if row == n {
			return 1 // a full board is one solution
		}
		col := choose(pp, n)
		if !safe(rows, row, col) {
			return 0 // this branch fails
		}
		next := make([]int, row+1)
		copy(next, rows)
		next[row] = col
		return place(pp, next)
	}

	got := Enter(th, p, func(pp *Prompt, arg interface{}) interface{} {
		return place(pp, nil)
	}, nil)
	assert.Equal(t, 92, got)
}

func Test_MultiResumeDup_incrementsRefcount(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	p, err := Create(th, 0)
	require.NoError(t, err)

	Enter(th, p, func(p *Prompt, arg interface{}) interface{} {
		return MYield(th, p, func(r *MultiResumption, yieldArg interface{}) interface{} {
			dup := MultiResumeDup(r)
			assert.False(t, MultiResumeShouldUnwind(r))
			MultiResumeDrop(dup)
			assert.True(t, MultiResumeShouldUnwind(r))
			MultiResumeDrop(r)
			return nil
		}, nil)
	}, nil)
}

func Test_PromptParent(t *testing.T) {
	configureForTest(t)
	th := newTestThread()
	outer, err := Create(th, 0)
	require.NoError(t, err)
	inner, err := Create(th, 0)
	require.NoError(t, err)

	Enter(th, outer, func(outerP *Prompt, arg interface{}) interface{} {
		return Enter(th, inner, func(innerP *Prompt, arg interface{}) interface{} {
			assert.Same(t, outerP, PromptParent(innerP))
			return nil
		}, nil)
	}, nil)
}
