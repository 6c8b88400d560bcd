package comm

// startProgressLoop starts the Progress Loop component (§4.6). Unlike
// the polling loop a GASNet-backed runtime needs to pump network
// progress by hand, this substrate's progress is already push-driven:
// every AM stream and unary RPC runs its own goroutine, and
// wire.Endpoint.notifyProgress wakes BlockUntil waiters the instant a
// handler completes. What remains for this loop to own is orderly
// shutdown: it just waits for ExitAll/ExitAny to close shutdownCh.
func (rt *Runtime) startProgressLoop() {
	go func() {
		<-rt.shutdownCh
	}()
}

// ExitAny tears the locale down without waiting for the rest of the
// cluster (§6: comm_exit_any). The two resolved differently here from
// the original runtime, where both exit paths were identical: ExitAny
// is the "something went wrong, leave now" path and must not risk
// blocking on a barrier a dead peer will never complete.
func (rt *Runtime) ExitAny(status int) {
	rt.shutdownOnce.Do(func() { close(rt.shutdownCh) })
	rt.ep.Exit(status)
}

// ExitAll performs a collective barrier before tearing down, so every
// locale is guaranteed to have reached the same exit point before any
// one of them stops serving requests (§6: comm_exit_all).
func (rt *Runtime) ExitAll(status int) error {
	if err := rt.Barrier("__exit_all__"); err != nil {
		return err
	}
	rt.shutdownOnce.Do(func() { close(rt.shutdownCh) })
	rt.ep.Exit(status)
	return nil
}
