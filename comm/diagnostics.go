package comm

import (
	"fmt"
	"os"
	"sync"
)

// diagCounters holds the per-locale counters from spec.md §4.7, all
// guarded by one mutex (§5: "a single mutex" for counters + flags).
// The shape mirrors the teacher repo's mutex-guarded MetricsSnapshot:
// plain fields, lock around every mutation, a read that copies out.
type diagCounters struct {
	mu       sync.Mutex
	gets     int32
	puts     int32
	forks    int32
	nbForks  int32
	enabled  bool
	verbose  bool
	suppress bool
}

func (d *diagCounters) incGets() {
	d.mu.Lock()
	if d.enabled && !d.suppress {
		d.gets++
	}
	d.mu.Unlock()
}

func (d *diagCounters) incPuts() {
	d.mu.Lock()
	if d.enabled && !d.suppress {
		d.puts++
	}
	d.mu.Unlock()
}

func (d *diagCounters) incForks() {
	d.mu.Lock()
	if d.enabled && !d.suppress {
		d.forks++
	}
	d.mu.Unlock()
}

func (d *diagCounters) incNBForks() {
	d.mu.Lock()
	if d.enabled && !d.suppress {
		d.nbForks++
	}
	d.mu.Unlock()
}

func (d *diagCounters) read() (gets, puts, forks, nbForks int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gets, d.puts, d.forks, d.nbForks
}

func (d *diagCounters) isVerbose() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.verbose && !d.suppress
}

// NumCommGets, NumCommPuts, NumCommForks, NumCommNBForks are the public
// diagnostics counter readers (§6). Reads return local values only.
func (rt *Runtime) NumCommGets() int32    { g, _, _, _ := rt.diag.read(); return g }
func (rt *Runtime) NumCommPuts() int32    { _, p, _, _ := rt.diag.read(); return p }
func (rt *Runtime) NumCommForks() int32   { _, _, f, _ := rt.diag.read(); return f }
func (rt *Runtime) NumCommNBForks() int32 { _, _, _, n := rt.diag.read(); return n }

// StartCommDiagnosticsHere / StopCommDiagnosticsHere set only the local
// flag (§4.7: "*Here sets only the local flag").
func (rt *Runtime) StartCommDiagnosticsHere() { rt.setDiagEnabled(true) }
func (rt *Runtime) StopCommDiagnosticsHere()  { rt.setDiagEnabled(false) }

func (rt *Runtime) setDiagEnabled(v bool) {
	rt.diag.mu.Lock()
	rt.diag.enabled = v
	rt.diag.mu.Unlock()
}

// StartCommDiagnostics / StopCommDiagnostics set the local flag, then
// broadcast it cluster-wide (§4.7: unqualified setters broadcast).
func (rt *Runtime) StartCommDiagnostics() error { return rt.broadcastDiagFlag(&rt.diag.enabled, true) }
func (rt *Runtime) StopCommDiagnostics() error  { return rt.broadcastDiagFlag(&rt.diag.enabled, false) }

// StartVerboseCommHere / StopVerboseCommHere set only the local flag.
func (rt *Runtime) StartVerboseCommHere() { rt.setVerbose(true) }
func (rt *Runtime) StopVerboseCommHere()  { rt.setVerbose(false) }

func (rt *Runtime) setVerbose(v bool) {
	rt.diag.mu.Lock()
	rt.diag.verbose = v
	rt.diag.mu.Unlock()
}

// StartVerboseComm / StopVerboseComm set the local flag, then broadcast.
func (rt *Runtime) StartVerboseComm() error { return rt.broadcastDiagFlag(&rt.diag.verbose, true) }
func (rt *Runtime) StopVerboseComm() error  { return rt.broadcastDiagFlag(&rt.diag.verbose, false) }

// broadcastDiagFlag sets *field locally then replicates the new value
// to every other locale via the Broadcast Plane, with suppress_debug
// raised around the broadcast to avoid the broadcast itself generating
// verbose trace lines (§4.7).
func (rt *Runtime) broadcastDiagFlag(field *bool, v bool) error {
	rt.diag.mu.Lock()
	*field = v
	rt.diag.suppress = true
	rt.diag.mu.Unlock()

	defer func() {
		rt.diag.mu.Lock()
		rt.diag.suppress = false
		rt.diag.mu.Unlock()
	}()

	buf := []byte{0}
	if v {
		buf[0] = 1
	}
	offset := verboseOffset
	if field == &rt.diag.enabled {
		offset = diagEnabledOffset
	}
	return rt.BroadcastPrivate(offset, buf)
}

// traceRemote prints the one-line verbose trace spec.md §4.7 requires,
// tagged with locale id, source file, and line.
func (rt *Runtime) traceRemote(kind string, locale int32, file string, line int) {
	if !rt.diag.isVerbose() {
		return
	}
	fmt.Fprintf(os.Stderr, "%d: %s:%d: remote %s to/from %d\n", rt.LocaleID, file, line, kind, locale)
}
