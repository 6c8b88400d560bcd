package wire

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memArena is the minimal LocalMemory a test needs: no reserved-offset
// semantics, just a flat buffer.
type memArena struct {
	mu  sync.Mutex
	buf []byte
}

func newMemArena(size int) *memArena { return &memArena{buf: make([]byte, size)} }

func (m *memArena) ReadAt(addr uint64, size int32) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, size)
	copy(out, m.buf[addr:addr+uint64(size)])
	return out
}

func (m *memArena) WriteAt(addr uint64, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.buf[addr:addr+uint64(len(data))], data)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

func twoEndpoints(t *testing.T) (*Endpoint, *Endpoint) {
	t.Helper()
	addrs := []string{freeAddr(t), freeAddr(t)}

	e0 := NewEndpoint(0, addrs, 1<<16)
	e1 := NewEndpoint(1, addrs, 1<<16)

	require.NoError(t, e0.Init())
	require.NoError(t, e1.Init())

	require.NoError(t, e0.Attach(map[uint8]FrameHandler{}, newMemArena(1<<16)))
	require.NoError(t, e1.Attach(map[uint8]FrameHandler{}, newMemArena(1<<16)))

	return e0, e1
}

func TestEndpointPutGet(t *testing.T) {
	e0, e1 := twoEndpoints(t)
	_ = e1

	require.NoError(t, e0.Put(1, 10, []byte("remote write")))
	got, err := e0.Get(1, 10, int32(len("remote write")))
	require.NoError(t, err)
	require.Equal(t, "remote write", string(got))
}

func TestEndpointAMRequestMediumDispatches(t *testing.T) {
	addrs := []string{freeAddr(t), freeAddr(t)}
	e0 := NewEndpoint(0, addrs, 1<<16)
	e1 := NewEndpoint(1, addrs, 1<<16)
	require.NoError(t, e0.Init())
	require.NoError(t, e1.Init())

	received := make(chan []byte, 1)
	require.NoError(t, e0.Attach(map[uint8]FrameHandler{}, newMemArena(1<<16)))
	require.NoError(t, e1.Attach(map[uint8]FrameHandler{
		OpPutData: func(from int32, payload []byte) { received <- payload },
	}, newMemArena(1<<16)))

	require.NoError(t, e0.AMRequestMedium(1, OpPutData, []byte("am-payload")))

	select {
	case got := <-received:
		require.Equal(t, "am-payload", string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("frame never dispatched")
	}
}

func TestBlockUntilWakesOnNotify(t *testing.T) {
	e0, _ := twoEndpoints(t)

	var flag bool
	var mu sync.Mutex
	go func() {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		flag = true
		mu.Unlock()
		e0.notifyProgress()
	}()

	done := make(chan struct{})
	go func() {
		e0.BlockUntil(func() bool {
			mu.Lock()
			defer mu.Unlock()
			return flag
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BlockUntil never woke")
	}
}

func TestBarrierClusterReleasesBothLocales(t *testing.T) {
	e0, e1 := twoEndpoints(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, e := range []*Endpoint{e0, e1} {
		wg.Add(1)
		go func(i int, e *Endpoint) {
			defer wg.Done()
			if err := e.BarrierNotifyCluster("tag"); err != nil {
				errs[i] = err
				return
			}
			errs[i] = e.BarrierWaitCluster("tag")
		}(i, e)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("barrier never completed")
	}
	for _, err := range errs {
		require.NoError(t, err)
	}
}
