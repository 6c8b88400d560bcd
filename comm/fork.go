package comm

import (
	"fmt"

	"github.com/google/uuid"

	"localecomm/internal/wire"
)

// forkResult is what a pending blocking fork's completion channel
// carries once the remote signal arrives.
type forkResult struct {
	result []byte
	err    error
}

// Fork is the blocking remote task-spawn (§4.3: fork). A self-locale
// fork never touches the substrate and runs the handler inline on the
// caller's goroutine, matching the §8 short-circuit invariant. For a
// genuinely remote fork, the argument either travels inline (FORK) or,
// once it would no longer fit in one AM medium, as a RemotePointer the
// receiver fetches with a Get (FORK_LARGE, §4.3's pass_arg decision).
func (rt *Runtime) Fork(locale int32, handler string, arg []byte) ([]byte, error) {
	if locale == rt.LocaleID {
		fn, ok := rt.handlers.lookup(handler)
		if !ok {
			return nil, fmt.Errorf("chpl_internal_error: comm_fork: no handler %q", handler)
		}
		if len(arg) == 0 {
			arg = nil
		}
		return fn(arg), nil
	}

	rt.diag.incForks()
	ackID := uuid.New()
	done := make(chan forkResult, 1)
	rt.pendingAcks.Store(ackID, done)
	defer rt.pendingAcks.Delete(ackID)

	opcode := wire.OpFork
	inline := arg
	argSize := int32(len(arg))
	stashed := false
	var stashOffset uint64

	if forkDescriptorOverhead+len(arg) > rt.maxAMMedium {
		stashOffset = rt.stashArg(arg)
		stashed = true
		ptr := wire.RemotePointer{Locale: rt.LocaleID, Offset: stashOffset, Size: argSize}
		ptrBytes, err := wire.Encode(ptr)
		if err != nil {
			return nil, err
		}
		inline = ptrBytes
		opcode = wire.OpForkLarge
	}

	err := rt.sendForkRequest(locale, opcode, ackID, handler, argSize, inline)
	if err != nil {
		if stashed {
			rt.unstashArg(stashOffset, len(arg))
		}
		return nil, err
	}

	res := <-done
	// The receiver has Get'd the argument out of our arena (or never
	// needed to, for the inline case) by the time the signal comes
	// back, so the scratch region is safe to recycle here.
	if stashed {
		rt.unstashArg(stashOffset, len(arg))
	}
	return res.result, res.err
}

// ForkNB is the non-blocking remote task-spawn (§4.3: fork_nb). It
// never waits for completion and carries no ack id, the wire-level
// encoding of "caller does not care when this finishes" (§9's remark
// that FORK_NB's caller/ack fields exist only for a future blocking
// extension).
func (rt *Runtime) ForkNB(locale int32, handler string, arg []byte) error {
	if locale == rt.LocaleID {
		fn, ok := rt.handlers.lookup(handler)
		if !ok {
			return fmt.Errorf("chpl_internal_error: comm_fork_nb: no handler %q", handler)
		}
		if len(arg) == 0 {
			arg = nil
		}
		go fn(arg)
		return nil
	}
	rt.diag.incNBForks()
	return rt.sendForkRequest(locale, wire.OpForkNB, uuid.Nil, handler, int32(len(arg)), arg)
}

// sendForkRequest builds and ships a ForkDescriptor with an
// already-decided opcode and inline payload. ForkNB never escalates to
// FORK_LARGE (§9: fork_nb carries no ack, so there is nothing to stash
// scratch space for); only Fork's caller decides to stage a large
// argument and reclaim it afterward.
func (rt *Runtime) sendForkRequest(locale int32, opcode uint8, ackID uuid.UUID, handler string, argSize int32, inline []byte) error {
	desc := wire.ForkDescriptor{
		Caller:  rt.LocaleID,
		AckID:   ackID,
		Handler: handler,
		ArgSize: argSize,
		Arg:     inline,
	}
	payload, err := wire.Encode(desc)
	if err != nil {
		return err
	}
	return rt.ep.AMRequestMedium(locale, opcode, payload)
}

// forkDescriptorOverhead is a conservative estimate of everything in a
// ForkDescriptor besides Arg (caller, ack id, handler name, size),
// used only to decide FORK vs FORK_LARGE; it does not need to be exact.
const forkDescriptorOverhead = 64

// stashArg allocates scratch space in the caller's own arena and copies
// arg into it, so a FORK_LARGE receiver can Get it back out via the
// RemotePointer it was handed. Backed by ReserveScratch rather than a
// raw bump allocation so concurrent forks (permitted by §3/§5) never
// get handed overlapping regions, and so unstashArg's releases are
// actually recycled instead of leaking.
func (rt *Runtime) stashArg(arg []byte) uint64 {
	off := rt.arena.ReserveScratch(&rt.scratchOffset, len(arg))
	rt.arena.WriteAt(off, arg)
	return off
}

// unstashArg returns a FORK_LARGE scratch region to the arena's free
// list once the fork's result has come back and the receiver is done
// with it, so a long-lived locale issuing many large forks doesn't
// grow scratchOffset without bound.
func (rt *Runtime) unstashArg(offset uint64, size int) {
	rt.arena.ReleaseScratch(offset, size)
}

// sendSignal ships the result of a completed blocking fork back to its
// caller (§4.3: the SIGNAL active message).
func (rt *Runtime) sendSignal(caller int32, ackID uuid.UUID, result []byte) {
	if ackID == uuid.Nil {
		return
	}
	payload, err := wire.Encode(wire.SignalPayload{AckID: ackID, Result: result})
	if err != nil {
		return
	}
	if caller == rt.LocaleID {
		rt.onSignal(rt.LocaleID, payload)
		return
	}
	_ = rt.ep.AMRequestMedium(caller, wire.OpSignal, payload)
}
