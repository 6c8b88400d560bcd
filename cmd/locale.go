package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"localecomm/comm"
)

var (
	localeLocales []string
	localeSelf    int32
	localeSegment int64
)

var localeCmd = &cobra.Command{
	Use:   "locale",
	Short: "Boot a locale daemon: listen, join the cluster, serve forks/put/get until stopped",
	Run:   runLocale,
}

func init() {
	rootCmd.AddCommand(localeCmd)
	addClusterFlags(localeCmd.Flags(), &localeLocales, &localeSelf, &localeSegment)
}

// runLocale is the long-running server side of a locale: join the
// cluster, then block until interrupted. Adapted from the teacher's
// runPeer main loop — same signal handling, same "start, then serve
// forever" shape — but with no metrics ticker, since this runtime's
// progress is push-driven (see comm/progress.go).
func runLocale(cmd *cobra.Command, args []string) {
	rt, err := joinCluster(localeLocales, localeSelf, localeSegment, map[string]comm.HandlerFunc{
		"bench.echo": benchEchoHandler,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "locale start failed:", err)
		os.Exit(1)
	}
	rt.InitSharedHeap(0)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("locale %d listening, cluster size %d\n", localeSelf, len(localeLocales))
	<-stop
	fmt.Println("shutting down...")
	rt.ExitAny(0)
}
