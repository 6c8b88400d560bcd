package comm

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// freeAddrs reserves n ephemeral 127.0.0.1 ports and returns their
// addresses, releasing each listener immediately so the real Runtime
// can bind it. Good enough for a test harness; a real deployment picks
// fixed ports (see cmd/config.go's --locales flag).
func freeAddrs(t *testing.T, n int) []string {
	t.Helper()
	addrs := make([]string, n)
	for i := range addrs {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addrs[i] = lis.Addr().String()
		require.NoError(t, lis.Close())
	}
	return addrs
}

// newCluster builds and initializes n locales wired to each other, with
// every locale registering the same set of handlers before Rollcall so
// the consistency check passes. Callers must defer os.Exit-free
// cleanup themselves (ExitAny calls os.Exit, so tests never call it).
func newCluster(t *testing.T, n int, register func(*Runtime)) []*Runtime {
	t.Helper()
	addrs := freeAddrs(t, n)
	rts := make([]*Runtime, n)
	for i := range rts {
		rt := NewRuntime(Config{
			LocaleID:   int32(i),
			Addrs:      addrs,
			MaxSegment: 1 << 20,
		})
		if register != nil {
			register(rt)
		}
		require.NoError(t, rt.Init())
		rts[i] = rt
	}
	for _, rt := range rts {
		rt.InitSharedHeap(4)
		rt.AllocRegistry(4)
	}
	for _, rt := range rts {
		require.NoError(t, rt.Rollcall())
	}
	return rts
}
