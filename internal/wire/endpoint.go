package wire

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// LocalMemory is the Memory Plane's arena, as seen by the Network
// Endpoint: a flat byte space addressed by logical offset. Put/Get
// targeting the local locale degenerate to direct reads/writes here,
// exactly as spec.md requires ("degenerate to memmove-equivalent
// copies").
type LocalMemory interface {
	ReadAt(addr uint64, size int32) []byte
	WriteAt(addr uint64, data []byte)
}

// FrameHandler is one slot of the AM Dispatch Table. It must return
// quickly: any real work is the caller's responsibility to hand off to
// a goroutine.
type FrameHandler func(from int32, payload []byte)

// SegmentInfo mirrors GASNet's gasnet_seginfo_t: a per-locale base and
// size. Because every locale's arena addresses its own offset space
// independently (see SPEC_FULL.md §3), Base is always 0 here; it is
// kept in the struct so callers that loop over a segment table don't
// need a special case.
type SegmentInfo struct {
	Base uint64
	Size int64
}

// Endpoint is the Network Endpoint component: attach/init, one-sided
// put/get, active-message requests, barrier, exit, and the
// condition-variable-backed BlockUntil.
type Endpoint struct {
	localeID   int32
	numLocales int32
	addrs      []string
	maxSegment int64

	server *grpc.Server
	lis    net.Listener

	connsMu sync.Mutex
	conns   map[int32]*grpc.ClientConn
	streams map[int32]AMStream_Client
	sendMu  map[int32]*sync.Mutex

	handlersMu sync.RWMutex
	handlers   map[uint8]FrameHandler
	mem        LocalMemory

	progressMu   sync.Mutex
	progressCond *sync.Cond

	barrierMu      sync.Mutex
	barrierCond    *sync.Cond
	barrierArrived map[string]int32
	barrierGen     map[string]int32
	barrierWaitGen map[string]int32

	blocking bool
}

// NewEndpoint constructs the endpoint for one locale out of N, with
// addrs[i] the dial target for locale i. It does not yet listen or
// dial; call Init followed by Attach.
func NewEndpoint(localeID int32, addrs []string, maxSegment int64) *Endpoint {
	e := &Endpoint{
		localeID:       localeID,
		numLocales:     int32(len(addrs)),
		addrs:          addrs,
		maxSegment:     maxSegment,
		conns:          make(map[int32]*grpc.ClientConn),
		streams:        make(map[int32]AMStream_Client),
		sendMu:         make(map[int32]*sync.Mutex),
		handlers:       make(map[uint8]FrameHandler),
		barrierArrived: make(map[string]int32),
		barrierGen:     make(map[string]int32),
		barrierWaitGen: make(map[string]int32),
		blocking:       true,
	}
	e.progressCond = sync.NewCond(&e.progressMu)
	e.barrierCond = sync.NewCond(&e.barrierMu)
	return e
}

// Init starts the local gRPC server (§4.1: init(argc, argv)).
func (e *Endpoint) Init() error {
	lis, err := net.Listen("tcp", e.addrs[e.localeID])
	if err != nil {
		return fatalCall("net.Listen", err)
	}
	e.lis = lis
	e.server = grpc.NewServer()
	registerEndpointServer(e.server, endpointServer{e})
	go func() {
		// Serve's error is discarded: after a deliberate Exit it only
		// reports the closed listener, and other failures are not
		// reported either.
		_ = e.server.Serve(lis)
	}()
	return nil
}

// Attach installs the AM Dispatch Table and the local arena, then
// dials every peer and opens its persistent AM stream (§4.1: attach).
func (e *Endpoint) Attach(handlers map[uint8]FrameHandler, mem LocalMemory) error {
	e.handlersMu.Lock()
	for op, h := range handlers {
		e.handlers[op] = h
	}
	e.mem = mem
	e.handlersMu.Unlock()

	for locale, addr := range e.addrs {
		if int32(locale) == e.localeID {
			continue
		}
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fatalCall(fmt.Sprintf("grpc.NewClient(%s)", addr), err)
		}
		stream, err := newAMStreamClient(context.Background(), conn)
		if err != nil {
			return fatalCall("NewStream(AMStream)", err)
		}
		e.connsMu.Lock()
		e.conns[int32(locale)] = conn
		e.streams[int32(locale)] = stream
		e.sendMu[int32(locale)] = new(sync.Mutex)
		e.connsMu.Unlock()
	}
	return nil
}

// GetSegmentInfo returns the symmetric segment table: every locale
// shares the same arena size, each addressed from its own logical
// offset 0 (§4.1, §4.4).
func (e *Endpoint) GetSegmentInfo() []SegmentInfo {
	table := make([]SegmentInfo, e.numLocales)
	for i := range table {
		table[i] = SegmentInfo{Base: 0, Size: e.maxSegment}
	}
	return table
}

// SetWaitMode records whether BlockUntil should favor blocking over
// spinning. This endpoint always blocks on a condition variable; the
// flag is kept for parity with gasnet_set_waitmode callers.
func (e *Endpoint) SetWaitMode(block bool) { e.blocking = block }

// Put writes size bytes at a remote locale's logical address. Self-locale
// puts never touch the network (§8 invariant).
func (e *Endpoint) Put(locale int32, addr uint64, data []byte) error {
	if locale == e.localeID {
		e.mem.WriteAt(addr, data)
		return nil
	}
	conn := e.connFor(locale)
	_, err := callPut(context.Background(), conn, &PutArgs{Addr: addr, Data: data})
	if err != nil {
		return fatalCall("wire.Put", err)
	}
	return nil
}

// Get reads size bytes from a remote locale's logical address.
func (e *Endpoint) Get(locale int32, addr uint64, size int32) ([]byte, error) {
	if locale == e.localeID {
		return e.mem.ReadAt(addr, size), nil
	}
	conn := e.connFor(locale)
	reply, err := callGet(context.Background(), conn, &GetArgs{Addr: addr, Size: size})
	if err != nil {
		return nil, fatalCall("wire.Get", err)
	}
	return reply.Data, nil
}

// AMRequestMedium sends an active-message frame to a remote locale.
// Callers must already have filtered out the self-locale case (the
// Fork Engine and Broadcast Plane do); this is a defensive check, not
// the primary enforcement of the self-locale-short-circuit invariant.
func (e *Endpoint) AMRequestMedium(locale int32, opcode uint8, payload []byte) error {
	if locale == e.localeID {
		return fmt.Errorf("wire: AMRequestMedium called for self locale %d", locale)
	}
	e.connsMu.Lock()
	stream := e.streams[locale]
	mu := e.sendMu[locale]
	e.connsMu.Unlock()
	mu.Lock()
	defer mu.Unlock()
	if err := stream.Send(&Frame{Opcode: opcode, Payload: payload}); err != nil {
		return fatalCall("AMStream.Send", err)
	}
	return nil
}

// BlockUntil yields to network progress until pred is true, parking on
// a condition variable rather than busy-waiting (§4.1).
func (e *Endpoint) BlockUntil(pred func() bool) {
	e.progressMu.Lock()
	for !pred() {
		e.progressCond.Wait()
	}
	e.progressMu.Unlock()
}

// notifyProgress wakes every BlockUntil waiter so it can re-check its
// predicate; called after any event that might satisfy one (frame
// dispatched, put/get completed).
func (e *Endpoint) notifyProgress() {
	e.progressMu.Lock()
	e.progressCond.Broadcast()
	e.progressMu.Unlock()
}

// Exit tears the endpoint down and terminates the process (§4.1, §6).
func (e *Endpoint) Exit(status int) {
	e.connsMu.Lock()
	for _, c := range e.conns {
		_ = c.Close()
	}
	e.connsMu.Unlock()
	if e.server != nil {
		e.server.Stop()
	}
	os.Exit(status)
}

func (e *Endpoint) connFor(locale int32) *grpc.ClientConn {
	e.connsMu.Lock()
	defer e.connsMu.Unlock()
	return e.conns[locale]
}

// --- EndpointServer implementation (receiver side) ---

func (e *Endpoint) AMStream(stream AMStream_Server) error {
	for {
		frame, err := stream.Recv()
		if err != nil {
			return nil // peer closed or connection dropped; not fatal here
		}
		e.dispatch(frame)
	}
}

func (e *Endpoint) dispatch(frame *Frame) {
	e.handlersMu.RLock()
	h, ok := e.handlers[frame.Opcode]
	e.handlersMu.RUnlock()
	if !ok {
		return
	}
	// Handlers run on their own goroutine so a slow one never blocks
	// this stream's receive loop or another peer's handlers (§4.2,
	// §5 reentrancy requirement).
	go func() {
		h(e.localeID, frame.Payload)
		e.notifyProgress()
	}()
}

// endpointServer is what Init registers with the gRPC server. It takes
// AMStream and the barrier RPCs from the embedded *Endpoint and declares
// the unary Put/Get handlers itself, since *Endpoint's own Put/Get are
// the caller-side one-sided operations.
type endpointServer struct{ *Endpoint }

func (s endpointServer) Put(ctx context.Context, in *PutArgs) (*PutReply, error) {
	s.mem.WriteAt(in.Addr, in.Data)
	s.notifyProgress()
	return &PutReply{}, nil
}

func (s endpointServer) Get(ctx context.Context, in *GetArgs) (*GetReply, error) {
	return &GetReply{Data: s.mem.ReadAt(in.Addr, in.Size)}, nil
}

func (e *Endpoint) BarrierNotify(ctx context.Context, in *BarrierArgs) (*BarrierReply, error) {
	gen := e.barrierArrive(in.Tag)
	return &BarrierReply{Generation: gen}, nil
}

func (e *Endpoint) BarrierWait(ctx context.Context, in *BarrierArgs) (*BarrierReply, error) {
	e.barrierWaitLocal(in.Tag, in.Generation)
	return &BarrierReply{}, nil
}

// --- Barrier (collective, coordinated by locale 0) ---
//
// Arrivals for a tag are counted against a generation: the coordinator
// bumps barrierGen[tag] and resets the count in the same locked section
// once the Nth arrival lands, and a waiter blocks until barrierGen[tag]
// no longer equals the generation it captured at notify time. Unlike
// comparing the raw arrival count against numLocales, this lets a
// waiter that wakes up after the coordinator has already started the
// next round tell "my round finished" apart from "the round hasn't
// started" — the count alone can't, since both read as zero.

// barrierArrive records tag's arrival and returns the generation this
// arrival belongs to. Once every locale has arrived, it resets the
// count and starts the next generation before releasing waiters, so no
// caller can observe a reset count without also observing the bumped
// generation.
func (e *Endpoint) barrierArrive(tag string) int32 {
	e.barrierMu.Lock()
	defer e.barrierMu.Unlock()
	gen := e.barrierGen[tag]
	e.barrierArrived[tag]++
	if e.barrierArrived[tag] >= e.numLocales {
		e.barrierArrived[tag] = 0
		e.barrierGen[tag]++
		e.barrierCond.Broadcast()
	}
	return gen
}

// barrierWaitLocal blocks until tag's generation advances past gen,
// the one captured when this locale (or the remote caller) arrived.
func (e *Endpoint) barrierWaitLocal(tag string, gen int32) {
	e.barrierMu.Lock()
	for e.barrierGen[tag] == gen {
		e.barrierCond.Wait()
	}
	e.barrierMu.Unlock()
}

// BarrierNotifyCluster records this locale's arrival at the barrier
// (§4.1: barrier_notify). Locale 0 is the coordinator and updates its
// own counter directly; every other locale reports over the wire. The
// generation this arrival belongs to is stashed for the matching
// BarrierWaitCluster call to key its wait on.
func (e *Endpoint) BarrierNotifyCluster(tag string) error {
	var gen int32
	if e.localeID == 0 {
		gen = e.barrierArrive(tag)
	} else {
		reply, err := callBarrierNotify(context.Background(), e.connFor(0), &BarrierArgs{Tag: tag, Locale: e.localeID})
		if err != nil {
			return fatalCall("BarrierNotify", err)
		}
		gen = reply.Generation
	}
	e.barrierMu.Lock()
	e.barrierWaitGen[tag] = gen
	e.barrierMu.Unlock()
	return nil
}

// BarrierWaitCluster blocks until every locale has called
// BarrierNotifyCluster for tag (§4.1: barrier_wait). It waits on the
// generation captured by the matching BarrierNotifyCluster call rather
// than re-reading the arrival count, so a peer whose wait RPC arrives
// after the coordinator has already reset the count for the next round
// still sees its own round as complete.
func (e *Endpoint) BarrierWaitCluster(tag string) error {
	e.barrierMu.Lock()
	gen := e.barrierWaitGen[tag]
	e.barrierMu.Unlock()

	if e.localeID == 0 {
		e.barrierWaitLocal(tag, gen)
		return nil
	}
	_, err := callBarrierWait(context.Background(), e.connFor(0), &BarrierArgs{Tag: tag, Locale: e.localeID, Generation: gen})
	if err != nil {
		return fatalCall("BarrierWait", err)
	}
	return nil
}

func fatalCall(callText string, err error) error {
	return fmt.Errorf("%s: %w", callText, err)
}
