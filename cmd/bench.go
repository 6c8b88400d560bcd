package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"localecomm/comm"
)

var (
	benchLocales []string
	benchSelf    int32
	benchSegment int64
	benchPeer    int32
	benchPeriod  time.Duration
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Join the cluster and run a put/get/fork round-trip smoke test on a timer",
	Run:   runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	addClusterFlags(benchCmd.Flags(), &benchLocales, &benchSelf, &benchSegment)
	benchCmd.Flags().Int32Var(&benchPeer, "peer", -1, "locale id to round-trip against (default: the next locale)")
	benchCmd.Flags().DurationVar(&benchPeriod, "period", time.Second, "round-trip interval")
}

// runBench is the teacher's runAggregate ticker-loop shape repointed at
// this runtime's put/get/fork path instead of CPU/mem/temp collectors:
// each tick does one put, one get, and one blocking fork against a
// peer locale, then prints the Diagnostics Plane's counters.
func runBench(cmd *cobra.Command, args []string) {
	rt, err := joinCluster(benchLocales, benchSelf, benchSegment, map[string]comm.HandlerFunc{
		"bench.echo": benchEchoHandler,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "join failed:", err)
		os.Exit(1)
	}
	rt.InitSharedHeap(0)
	rt.StartCommDiagnosticsHere()

	peer := benchPeer
	if peer < 0 {
		peer = (benchSelf + 1) % int32(len(benchLocales))
	}

	var snap BenchSnapshot
	ticker := time.NewTicker(benchPeriod)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("bench: locale %d round-tripping against locale %d every %s\n", benchSelf, peer, benchPeriod)

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			failed := false

			// offset 4096 is comfortably past the reserved diagnostics/
			// fingerprint/registry prefix (see comm/memory.go), so this
			// never stomps on those bytes.
			const scratchAddr = 4096
			if err := rt.Put(peer, scratchAddr, []byte{0}); err != nil {
				fmt.Fprintln(os.Stderr, "put failed:", err)
				failed = true
			}
			if _, err := rt.Get(peer, scratchAddr, 1); err != nil {
				fmt.Fprintln(os.Stderr, "get failed:", err)
				failed = true
			}
			if _, err := rt.Fork(peer, "bench.echo", []byte("ping")); err != nil {
				fmt.Fprintln(os.Stderr, "fork failed:", err)
				failed = true
			}

			snap.update(rt.NumCommPuts(), rt.NumCommGets(), rt.NumCommForks(), rt.NumCommNBForks(), time.Since(start), failed)
			s := snap.Read()
			fmt.Printf("[bench] puts=%d gets=%d forks=%d nb_forks=%d rtt=%s failures=%d\n",
				s.Puts, s.Gets, s.Forks, s.NBForks, s.LastRTT, s.Failures)

		case <-stop:
			fmt.Println("stopping bench...")
			rt.ExitAny(0)
			return
		}
	}
}
