// Package gstack is the public API for the gstack/prompt runtime: growable
// stacklets and multi-prompt delimited control built on them.
package gstack

import "github.com/koka-lang/gstack-go/internal/rt"

// Config controls process-wide behavior, built with NewConfig and the
// With* methods below. Every With* returns a new, independent Config, so
// a base Config can be safely reused to derive several variants.
type Config struct {
	gpoolEnable         bool
	gpoolMaxSize        uintptr
	stackMaxSize        uintptr
	stackInitialCommit  uintptr
	stackGapSize        uintptr
	stackResetDecommits bool
	stackGrowFast       bool
	stackExnGuaranteed  uintptr
	stackCacheCount     int
	debug               bool
}

// defaultConfig holds every default in one place, cloned by NewConfig so
// later callers never copy/paste the wrong values.
var defaultConfig = &Config{
	gpoolEnable:         true,
	gpoolMaxSize:        64 << 20, // 64 MiB of address space per gpool
	stackMaxSize:        8 << 20,  // 8 MiB, a conventional OS thread stack size
	stackInitialCommit:  64 << 10, // 64 KiB
	stackGapSize:        64 << 10, // 64 KiB, comfortably larger than one page
	stackResetDecommits: false,    // MADV_FREE-style lazy reclaim by default
	stackGrowFast:       true,
	stackExnGuaranteed:  32 << 10, // 32 KiB
	stackCacheCount:     4,
	debug:               false,
}

// NewConfig returns a Config with every option at its default.
func NewConfig() *Config {
	return defaultConfig.clone()
}

func (c *Config) clone() *Config {
	ret := *c
	return &ret
}

// WithGpoolEnable toggles C2's fixed-stride slot pool allocator. Disabling
// it makes every Gstack its own independent mmap reservation instead (see
// internal/gpool's doc comment for the O(pools)-accessibility-check tradeoff
// this buys).
func (c *Config) WithGpoolEnable(enable bool) *Config {
	ret := c.clone()
	ret.gpoolEnable = enable
	return ret
}

// WithGpoolMaxSize sets the address space reserved per gpool.
func (c *Config) WithGpoolMaxSize(n uintptr) *Config {
	ret := c.clone()
	ret.gpoolMaxSize = n
	return ret
}

// WithStackUseOvercommit is accepted for configuration compatibility; the
// platform backend always reserves with PROT_NONE and commits on demand
// (the only behavior golang.org/x/sys/unix's Mmap/Mprotect pair can
// express portably across Linux/Darwin/Windows), so eagerly resident
// "overcommit" stacks are not offered as an alternate mode.
func (c *Config) WithStackUseOvercommit(bool) *Config {
	return c.clone()
}

// WithStackMaxSize sets the fixed per-stacklet reservation size.
func (c *Config) WithStackMaxSize(n uintptr) *Config {
	ret := c.clone()
	ret.stackMaxSize = n
	return ret
}

// WithStackInitialCommit sets how much of a fresh stacklet is committed
// immediately at allocation time, before any growth.
func (c *Config) WithStackInitialCommit(n uintptr) *Config {
	ret := c.clone()
	ret.stackInitialCommit = n
	return ret
}

// WithStackGapSize sets the uncommitted, unmapped guard region kept below
// (and, for gpool slots, above) every stacklet's usable range.
func (c *Config) WithStackGapSize(n uintptr) *Config {
	ret := c.clone()
	ret.stackGapSize = n
	return ret
}

// WithStackResetDecommits selects eager platform.ResetDecommit over the
// default lazy platform.ResetAdvise when a grown stacklet is released back
// to its cache or the platform.
func (c *Config) WithStackResetDecommits(eager bool) *Config {
	ret := c.clone()
	ret.stackResetDecommits = eager
	return ret
}

// WithStackGrowFast is accepted for configuration compatibility. Growth
// always uses the capped-quadratic formula internal/gstack.Grow
// implements; there is no slower alternate policy to switch to, since the
// reactive fault-then-grow mechanism it would throttle is not available
// without cgo (see internal/fault's package doc).
func (c *Config) WithStackGrowFast(bool) *Config {
	return c.clone()
}

// WithStackExnGuaranteed sets the number of bytes pre-committed beyond
// the immediate need before waking a suspended prompt purely to force it
// to unwind (internal/prompt's dropSuspended and RunUnwindHook, the two
// operations that run an in-flight exception's defers down their stack),
// so the cleanups have committed room without a further growth step.
func (c *Config) WithStackExnGuaranteed(bytes uintptr) *Config {
	ret := c.clone()
	ret.stackExnGuaranteed = bytes
	return ret
}

// WithStackCacheCount sets how many freed stacklets a single Thread keeps
// around for reuse before returning them to the platform.
func (c *Config) WithStackCacheCount(n int) *Config {
	ret := c.clone()
	ret.stackCacheCount = n
	return ret
}

// WithDebug enables the extra misuse assertions in internal/prompt (owner
// checks, thread-teardown-with-active-prompts).
func (c *Config) WithDebug(debug bool) *Config {
	ret := c.clone()
	ret.debug = debug
	return ret
}

// Init performs the one-time process initialization from cfg. Safe to
// call more than once; only the first call takes effect.
func Init(cfg *Config) {
	if cfg == nil {
		cfg = NewConfig()
	}
	rt.Init(rt.Settings{
		GpoolEnable:         cfg.gpoolEnable,
		GpoolMaxSize:        cfg.gpoolMaxSize,
		StackMaxSize:        cfg.stackMaxSize,
		StackInitialCommit:  cfg.stackInitialCommit,
		StackGapSize:        cfg.stackGapSize,
		StackResetDecommits: cfg.stackResetDecommits,
		StackExnGuaranteed:  cfg.stackExnGuaranteed,
		StackCacheCount:     cfg.stackCacheCount,
		Debug:               cfg.debug,
	})
}
