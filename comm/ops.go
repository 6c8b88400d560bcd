package comm

import (
	"fmt"
	"runtime"
)

// Put writes data at a remote locale's logical address (§6: comm_put).
// A self-locale put degenerates to a direct arena write and never
// touches the substrate (§8 invariant); diagnostics and verbose tracing
// only apply to the genuinely remote path. The call site's file/line
// for the verbose trace is captured automatically via runtime.Caller,
// replacing the explicit source_line/source_file parameters the
// original C signature needed — idiomatic Go has no macro-expanded
// __FILE__/__LINE__, but it does have runtime.Caller.
func (rt *Runtime) Put(locale int32, addr uint64, data []byte) error {
	if locale == rt.LocaleID {
		rt.arena.WriteAt(addr, data)
		return nil
	}
	_, file, line, _ := runtime.Caller(1)
	rt.traceRemote("put", locale, file, line)
	rt.diag.incPuts()
	return rt.ep.Put(locale, addr, data)
}

// Get reads size bytes from a remote locale's logical address (§6:
// comm_get). Same self-locale short-circuit as Put.
func (rt *Runtime) Get(locale int32, addr uint64, size int32) ([]byte, error) {
	if locale == rt.LocaleID {
		return rt.arena.ReadAt(addr, size), nil
	}
	_, file, line, _ := runtime.Caller(1)
	rt.traceRemote("get", locale, file, line)
	rt.diag.incGets()
	return rt.ep.Get(locale, addr, size)
}

// Barrier blocks until every locale has reached the same named barrier
// (§6: comm_barrier). The verbose trace fires for every locale, unlike
// put/get, matching the original's unconditional barrier print.
func (rt *Runtime) Barrier(tag string) error {
	if rt.diag.isVerbose() {
		fmt.Printf("%d: barrier for '%s'\n", rt.LocaleID, tag)
	}
	if err := rt.ep.BarrierNotifyCluster(tag); err != nil {
		return err
	}
	return rt.ep.BarrierWaitCluster(tag)
}
