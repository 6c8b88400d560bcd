// Package wire implements the Network Endpoint: a gRPC transport carrying
// active-message frames plus one-sided put/get and barrier calls between
// locales. There is no generated .proto/.pb.go pair here — see codec.go.
package wire

import "github.com/google/uuid"

// Active-message opcodes. Values match the wire protocol described for
// the GASNet-backed runtime this package replaces: 128-132, never reused
// for anything else.
const (
	OpForkNB    uint8 = 128
	OpFork      uint8 = 129
	OpSignal    uint8 = 130
	OpPutData   uint8 = 131
	OpForkLarge uint8 = 132
)

// Frame is an active-message envelope: an opcode plus a medium payload.
// The substrate (here, the gRPC stream) copies Payload, so callers may
// reuse their buffer immediately after a send returns.
type Frame struct {
	Opcode  uint8
	Payload []byte
}

// ForkDescriptor is the wire format of a remote task-spawn request. It is
// sent as the Payload of an OpFork/OpForkNB/OpForkLarge frame.
type ForkDescriptor struct {
	Caller      int32
	AckID       uuid.UUID // zero value means "no ack expected" (FORK_NB)
	SerialState bool
	Handler     string // resolved locally via the handler registry
	ArgSize     int32
	Arg         []byte // inline argument, or a single remote pointer (FORK_LARGE)
}

// RemotePointer is what a FORK_LARGE descriptor's Arg actually holds: a
// locale plus a logical offset into that locale's arena, standing in for
// the raw machine address the original protocol would inline.
type RemotePointer struct {
	Locale int32
	Offset uint64
	Size   int32
}

// PutDescriptor is the wire format for a PUTDATA active message, used by
// the Broadcast Plane.
type PutDescriptor struct {
	Addr uint64 // logical offset in the receiver's arena
	Data []byte
}

// SignalPayload is what travels in an OpSignal frame: the ack ID whose
// completion channel should be released, plus the fork's return value
// (nil for a handler that returns nothing).
type SignalPayload struct {
	AckID  uuid.UUID
	Result []byte
}
