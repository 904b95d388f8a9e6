// Package rt implements one-time process initialization and per-thread
// setup/teardown, merging the public gstack.Config into the lower
// package-level globals internal/platform, internal/gpool and
// internal/gstack each expect to be configured exactly once.
package rt

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/koka-lang/gstack-go/internal/fault"
	"github.com/koka-lang/gstack-go/internal/gstack"
	"github.com/koka-lang/gstack-go/internal/platform"
	"github.com/koka-lang/gstack-go/internal/prompt"
)

var log = logrus.WithField("component", "rt")

// Settings is rt's view of gstack.Config: the handful of fields process
// init actually consumes, kept independent of the root package so
// internal/rt never imports it (the root package imports internal/rt, not
// the other way around).
type Settings struct {
	GpoolEnable         bool
	GpoolMaxSize        uintptr
	StackMaxSize        uintptr
	StackInitialCommit  uintptr
	StackGapSize        uintptr
	StackResetDecommits bool
	StackExnGuaranteed  uintptr
	StackCacheCount     int
	Debug               bool
}

var (
	initOnce sync.Once
	settings Settings
)

// Init performs the one-time process initialization: merge cfg into the
// package-level geometry every Gstack allocation reads, install the fault
// backstop, and (on POSIX) the alternate signal stack. Safe to call more
// than once; only the first call takes effect.
func Init(cfg Settings) {
	initOnce.Do(func() {
		settings = cfg
		resetPolicy := platform.ResetAdvise
		if cfg.StackResetDecommits {
			resetPolicy = platform.ResetDecommit
		}
		gstack.Configure(gstack.Geometry{
			MaxSize:       cfg.StackMaxSize,
			InitialCommit: cfg.StackInitialCommit,
			GapSize:       cfg.StackGapSize,
			UseGpool:      cfg.GpoolEnable,
			GpoolMaxSize:  cfg.GpoolMaxSize,
			ResetPolicy:   resetPolicy,
			ExnGuaranteed: cfg.StackExnGuaranteed,
		})
		fault.Install()
		if err := platform.InstallAltSignalStack(); err != nil {
			log.WithError(err).Warn("failed to install alternate signal stack")
		}
		log.WithFields(logrus.Fields{
			"gpool":     cfg.GpoolEnable,
			"stack_max": cfg.StackMaxSize,
			"gap":       cfg.StackGapSize,
			"cache_cap": cfg.StackCacheCount,
		}).Info("gstack process initialized")
	})
}

// Thread owns the per-OS-thread state a single goroutine must hold after
// calling runtime.LockOSThread: its prompt chain and gstack cache. See
// internal/prompt.Thread's doc comment for why this is explicit rather
// than hidden in TLS.
type Thread struct {
	inner *prompt.Thread
}

// NewThread creates a Thread using the cache capacity process init was
// configured with. Callers must have called runtime.LockOSThread on the
// calling goroutine first and must not move the goroutine across OS
// threads (runtime.UnlockOSThread) while the Thread is in use.
func NewThread() *Thread {
	// Recoverable-fault mode is per goroutine; it must be armed on the
	// goroutine that will actually run prompt bodies, not the one that
	// happened to call Init.
	fault.InstallOnThread()
	t := &Thread{inner: prompt.NewThread(settings.StackCacheCount, settings.Debug)}
	log.Debug("thread initialized")
	return t
}

// Inner exposes the underlying internal/prompt.Thread for package gstack
// and package handler, which both sit above internal/prompt directly.
func (t *Thread) Inner() *prompt.Thread { return t.inner }

// Close tears the thread down: drains its gstack cache and, in debug
// builds, asserts no prompt was left active. Release builds abandon any
// prompt still alive rather than guessing at how to unwind it.
func (t *Thread) Close() {
	t.inner.Close()
	log.Debug("thread torn down")
}
