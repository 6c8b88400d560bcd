// Package comm implements the distributed communication runtime: the
// Fork Engine, Memory Plane, Broadcast Plane, Progress Loop, and
// Diagnostics Plane described in SPEC_FULL.md, built on top of the
// Network Endpoint and AM Dispatch Table in package wire.
package comm

import (
	"fmt"
	"sync"

	"localecomm/internal/wire"
)

// Config is what every locale in the cluster must agree on at Init
// time: the full set of dial addresses (index == locale id) and the
// shared-heap segment size.
type Config struct {
	LocaleID   int32
	Addrs      []string
	MaxSegment int64
	// MaxAMMedium bounds how large a fork's inline (caller, ack,
	// handler, arg) payload may be before Fork falls back to
	// FORK_LARGE (§4.3). Defaults to 16KiB if zero.
	MaxAMMedium int
}

// Runtime ties every component together in the dependency order
// SPEC_FULL.md §2 specifies: Network Endpoint -> AM Dispatch Table ->
// Memory Plane -> Broadcast Plane -> Fork Engine -> Progress Loop ->
// Diagnostics Plane.
type Runtime struct {
	LocaleID   int32
	NumLocales int32

	ep          *wire.Endpoint
	maxAMMedium int

	handlers *HandlerRegistry

	arena         *Arena
	heapOffset    uint64
	scratchOffset uint64
	registryMu    sync.RWMutex
	registry      []GlobalRef

	diag diagCounters

	pendingAcks sync.Map // uuid.UUID -> chan forkResult

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	fingerprintMu  sync.Mutex
	fingerprintGot bool
}

// NewRuntime constructs a Runtime for one locale. It does not start
// listening or dial peers — call Init.
func NewRuntime(cfg Config) *Runtime {
	maxAM := cfg.MaxAMMedium
	if maxAM == 0 {
		maxAM = 16 * 1024
	}
	rt := &Runtime{
		LocaleID:    cfg.LocaleID,
		NumLocales:  int32(len(cfg.Addrs)),
		ep:          wire.NewEndpoint(cfg.LocaleID, cfg.Addrs, cfg.MaxSegment),
		maxAMMedium: maxAM,
		handlers:    newHandlerRegistry(),
		arena:       NewArena(cfg.MaxSegment),
		shutdownCh:  make(chan struct{}),
	}
	return rt
}

// RegisterHandler adds a named fork target (§4.8). Call before Init so
// the rollcall consistency check sees the full set.
func (rt *Runtime) RegisterHandler(name string, fn HandlerFunc) {
	rt.handlers.Register(name, fn)
}

// Init brings the runtime up: starts the local network endpoint,
// installs the AM Dispatch Table, attaches the local arena, and starts
// the progress loop (§2, §6: comm_init).
func (rt *Runtime) Init() error {
	if err := rt.ep.Init(); err != nil {
		return fatalInternal("comm_init", err)
	}
	table := map[uint8]wire.FrameHandler{
		wire.OpForkNB:    rt.onForkNB,
		wire.OpFork:      rt.onFork,
		wire.OpForkLarge: rt.onForkLarge,
		wire.OpSignal:    rt.onSignal,
		wire.OpPutData:   rt.onPutData,
	}
	if err := rt.ep.Attach(table, rt.arena); err != nil {
		return fatalInternal("comm_init", err)
	}
	rt.startProgressLoop()
	return nil
}

// Rollcall announces this locale and verifies that every locale
// registered the same fork handler names, the Go substitute for the
// symmetric-process-image assumption the original runtime makes
// silently (§6: comm_rollcall; §4.8). Locale 0 computes a fingerprint
// of its registered handler names and replicates it via
// BroadcastPrivate; every other locale blocks until it arrives, then
// compares it against its own fingerprint.
func (rt *Runtime) Rollcall() error {
	mine := rt.handlers.names()
	fmt.Printf("locale %d of %d: handler set %v\n", rt.LocaleID, rt.NumLocales, mine)

	if rt.LocaleID == 0 {
		fp := handlerFingerprint(mine)
		rt.arena.WriteAt(fingerprintOffset, fp[:])
		return rt.BroadcastPrivate(fingerprintOffset, fp[:])
	}

	rt.ep.BlockUntil(func() bool {
		rt.fingerprintMu.Lock()
		defer rt.fingerprintMu.Unlock()
		return rt.fingerprintGot
	})
	got := rt.arena.ReadAt(fingerprintOffset, fingerprintSize)
	want := handlerFingerprint(mine)
	if string(got) != string(want[:]) {
		return fmt.Errorf("chpl_internal_error: comm_rollcall: handler registry differs from locale 0")
	}
	return nil
}

// MaxThreads and MaxThreadsLimit stand in for
// _chpl_comm_getMaxThreads/_chpl_comm_maxThreadsLimit (§6): the runtime
// itself owns no thread pool, so both report Go's own concurrency
// ceiling via GOMAXPROCS-derived capacity. Kept trivial and documented
// rather than invented, since the upstream of this runtime (the task
// scheduler) is explicitly out of scope (spec.md §1).
func (rt *Runtime) MaxThreads() int32      { return maxThreads() }
func (rt *Runtime) MaxThreadsLimit() int32 { return maxThreads() }

func fatalInternal(call string, err error) error {
	return fmt.Errorf("chpl_internal_error: %s: %w", call, err)
}
