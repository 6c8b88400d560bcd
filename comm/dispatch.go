package comm

import "localecomm/internal/wire"

// The AM Dispatch Table (§4.2): one method per opcode, installed into
// the Network Endpoint by (*Runtime).Init. Every handler here runs on
// its own goroutine (see wire.Endpoint.dispatch) so a slow fork target
// never stalls the AM stream.

func (rt *Runtime) onForkNB(from int32, payload []byte) {
	var desc wire.ForkDescriptor
	if err := wire.Decode(payload, &desc); err != nil {
		return
	}
	fn, ok := rt.handlers.lookup(desc.Handler)
	if !ok {
		return
	}
	arg := desc.Arg
	if desc.ArgSize == 0 {
		arg = nil
	}
	go fn(arg)
}

func (rt *Runtime) onFork(from int32, payload []byte) {
	var desc wire.ForkDescriptor
	if err := wire.Decode(payload, &desc); err != nil {
		return
	}
	fn, ok := rt.handlers.lookup(desc.Handler)
	if !ok {
		rt.sendSignal(desc.Caller, desc.AckID, nil)
		return
	}
	arg := desc.Arg
	if desc.ArgSize == 0 {
		arg = nil
	}
	go func() {
		result := fn(arg)
		rt.sendSignal(desc.Caller, desc.AckID, result)
	}()
}

func (rt *Runtime) onForkLarge(from int32, payload []byte) {
	var desc wire.ForkDescriptor
	if err := wire.Decode(payload, &desc); err != nil {
		return
	}
	var ptr wire.RemotePointer
	if err := wire.Decode(desc.Arg, &ptr); err != nil {
		rt.sendSignal(desc.Caller, desc.AckID, nil)
		return
	}
	fn, ok := rt.handlers.lookup(desc.Handler)
	if !ok {
		rt.sendSignal(desc.Caller, desc.AckID, nil)
		return
	}
	go func() {
		arg, err := rt.Get(ptr.Locale, ptr.Offset, ptr.Size)
		if err != nil {
			rt.sendSignal(desc.Caller, desc.AckID, nil)
			return
		}
		result := fn(arg)
		rt.sendSignal(desc.Caller, desc.AckID, result)
	}()
}

func (rt *Runtime) onSignal(from int32, payload []byte) {
	var sig wire.SignalPayload
	if err := wire.Decode(payload, &sig); err != nil {
		return
	}
	v, ok := rt.pendingAcks.Load(sig.AckID)
	if !ok {
		return
	}
	ch := v.(chan forkResult)
	ch <- forkResult{result: sig.Result}
}

// onPutData handles a replicated PUTDATA active message (§4.5, §4.7):
// an ordinary arena write, plus three reserved-offset special cases the
// Broadcast Plane uses to propagate diagnostics flags and the rollcall
// fingerprint without a dedicated opcode for each.
func (rt *Runtime) onPutData(from int32, payload []byte) {
	var desc wire.PutDescriptor
	if err := wire.Decode(payload, &desc); err != nil {
		return
	}
	rt.arena.WriteAt(desc.Addr, desc.Data)

	switch {
	case desc.Addr == diagEnabledOffset && len(desc.Data) == 1:
		rt.setDiagEnabled(desc.Data[0] != 0)
	case desc.Addr == verboseOffset && len(desc.Data) == 1:
		rt.setVerbose(desc.Data[0] != 0)
	case desc.Addr == fingerprintOffset:
		rt.fingerprintMu.Lock()
		rt.fingerprintGot = true
		rt.fingerprintMu.Unlock()
	}
}
