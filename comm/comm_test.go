package comm

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	rts := newCluster(t, 2, nil)

	err := rts[0].Put(1, 4096, []byte("hello locale 1"))
	require.NoError(t, err)

	got, err := rts[0].Get(1, 4096, 14)
	require.NoError(t, err)
	require.Equal(t, "hello locale 1", string(got))
}

func TestSelfLocaleShortCircuit(t *testing.T) {
	rts := newCluster(t, 2, nil)

	require.NoError(t, rts[0].Put(0, 4096, []byte("local")))
	got, err := rts[0].Get(0, 4096, 5)
	require.NoError(t, err)
	require.Equal(t, "local", string(got))

	// A self-locale fork must not touch the substrate counters.
	rts[0].RegisterHandler("noop", func(arg []byte) []byte { return arg })
	before := rts[0].NumCommForks()
	_, err = rts[0].Fork(0, "noop", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, before, rts[0].NumCommForks())
}

func TestBlockingForkHappensBefore(t *testing.T) {
	var mu sync.Mutex
	ran := false

	register := func(rt *Runtime) {
		rt.RegisterHandler("mark", func(arg []byte) []byte {
			mu.Lock()
			ran = true
			mu.Unlock()
			return []byte("done")
		})
	}
	rts := newCluster(t, 2, register)

	result, err := rts[0].Fork(1, "mark", nil)
	require.NoError(t, err)
	require.Equal(t, "done", string(result))

	mu.Lock()
	defer mu.Unlock()
	require.True(t, ran, "handler must have run before Fork returned")
}

func TestNonBlockingForkEventuallyRuns(t *testing.T) {
	done := make(chan struct{}, 1)
	register := func(rt *Runtime) {
		rt.RegisterHandler("bg", func(arg []byte) []byte {
			done <- struct{}{}
			return nil
		})
	}
	rts := newCluster(t, 2, register)

	require.NoError(t, rts[0].ForkNB(1, "bg", nil))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fork_nb handler never ran")
	}
}

func TestForkLargeBoundary(t *testing.T) {
	var received int
	register := func(rt *Runtime) {
		rt.RegisterHandler("size", func(arg []byte) []byte {
			received = len(arg)
			return arg
		})
	}
	rts := newCluster(t, 2, register)
	rts[0].maxAMMedium = 128 // force the boundary to trip well within test sizes: 64+8 stays inline, 64+4096 goes FORK_LARGE

	small := make([]byte, 8)
	result, err := rts[0].Fork(1, "size", small)
	require.NoError(t, err)
	require.Len(t, result, 8)

	large := make([]byte, 4096)
	for i := range large {
		large[i] = byte(i)
	}
	result, err = rts[0].Fork(1, "size", large)
	require.NoError(t, err)
	require.Equal(t, large, result)
	require.Equal(t, len(large), received)
}

func TestForkNullArg(t *testing.T) {
	var sawNil bool
	register := func(rt *Runtime) {
		rt.RegisterHandler("nullcheck", func(arg []byte) []byte {
			sawNil = arg == nil
			return nil
		})
	}
	rts := newCluster(t, 2, register)

	_, err := rts[0].Fork(1, "nullcheck", nil)
	require.NoError(t, err)
	require.True(t, sawNil, "arg_size==0 must deliver a nil arg, not an empty non-nil slice")
}

func TestGlobalRegistryBroadcast(t *testing.T) {
	rts := newCluster(t, 3, nil)

	rts[0].SetGlobal(0, GlobalRef{Locale: 0, Offset: 9000})
	rts[0].SetGlobal(1, GlobalRef{Locale: 2, Offset: 9100})

	for _, rt := range rts[1:] {
		require.NoError(t, rt.BroadcastGlobalVars(2))
		require.Equal(t, GlobalRef{Locale: 0, Offset: 9000}, rt.Global(0))
		require.Equal(t, GlobalRef{Locale: 2, Offset: 9100}, rt.Global(1))
	}
}

func TestBroadcastGlobalVarsZeroIsNoop(t *testing.T) {
	rts := newCluster(t, 2, nil)
	require.NoError(t, rts[1].BroadcastGlobalVars(0))
}

func TestDiagnosticsCountersMonotonic(t *testing.T) {
	rts := newCluster(t, 2, nil)
	rts[0].StartCommDiagnosticsHere()

	require.Equal(t, int32(0), rts[0].NumCommPuts())
	require.NoError(t, rts[0].Put(1, 4096, []byte{1}))
	require.Equal(t, int32(1), rts[0].NumCommPuts())
	require.NoError(t, rts[0].Put(1, 4096, []byte{2}))
	require.Equal(t, int32(2), rts[0].NumCommPuts())

	_, err := rts[0].Get(1, 4096, 1)
	require.NoError(t, err)
	require.Equal(t, int32(1), rts[0].NumCommGets())
}

func TestDiagnosticsBroadcastPropagates(t *testing.T) {
	rts := newCluster(t, 3, nil)

	require.NoError(t, rts[0].StartCommDiagnostics())
	require.Eventually(t, func() bool {
		return rts[1].diag.enabled && rts[2].diag.enabled
	}, time.Second, 10*time.Millisecond)
}

func TestBarrierReleasesEveryLocale(t *testing.T) {
	rts := newCluster(t, 4, nil)

	var wg sync.WaitGroup
	errs := make([]error, len(rts))
	for i, rt := range rts {
		wg.Add(1)
		go func(i int, rt *Runtime) {
			defer wg.Done()
			errs[i] = rt.Barrier("round-1")
		}(i, rt)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("barrier never released all locales")
	}
	for _, err := range errs {
		require.NoError(t, err)
	}
}

func TestRollcallDetectsHandlerMismatch(t *testing.T) {
	addrs := freeAddrs(t, 2)

	rt0 := NewRuntime(Config{LocaleID: 0, Addrs: addrs, MaxSegment: 1 << 20})
	rt0.RegisterHandler("only-on-zero", func(arg []byte) []byte { return nil })
	require.NoError(t, rt0.Init())

	rt1 := NewRuntime(Config{LocaleID: 1, Addrs: addrs, MaxSegment: 1 << 20})
	require.NoError(t, rt1.Init())

	require.NoError(t, rt0.Rollcall())
	require.Error(t, rt1.Rollcall())
}

func TestMaxThreadsIsPositive(t *testing.T) {
	rts := newCluster(t, 1, nil)
	require.Greater(t, rts[0].MaxThreads(), int32(0))
	require.Equal(t, rts[0].MaxThreads(), rts[0].MaxThreadsLimit())
}
