package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	diagLocales []string
	diagSelf    int32
	diagSegment int64
	diagVerbose bool
	diagHere    bool
)

var diagCmd = &cobra.Command{
	Use:   "diag [on|off|query]",
	Short: "Toggle or query comm diagnostics/verbose tracing across the cluster",
	Args:  cobra.ExactArgs(1),
	Run:   runDiag,
}

func init() {
	rootCmd.AddCommand(diagCmd)
	addClusterFlags(diagCmd.Flags(), &diagLocales, &diagSelf, &diagSegment)
	diagCmd.Flags().BoolVar(&diagVerbose, "verbose-comm", false, "target verbose-comm tracing instead of the counters")
	diagCmd.Flags().BoolVar(&diagHere, "here", false, "set only the local flag instead of broadcasting (§4.7 *Here variants)")
}

// runDiag exercises the Diagnostics Plane's public surface (§4.7,
// §6): the teacher's leader.go is the closest analogue — a thin
// command whose entire job is printing one line of cluster state.
func runDiag(cmd *cobra.Command, args []string) {
	rt, err := joinCluster(diagLocales, diagSelf, diagSegment, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "join failed:", err)
		os.Exit(1)
	}
	rt.InitSharedHeap(0)

	switch args[0] {
	case "on":
		if diagHere {
			if diagVerbose {
				rt.StartVerboseCommHere()
			} else {
				rt.StartCommDiagnosticsHere()
			}
			return
		}
		var err error
		if diagVerbose {
			err = rt.StartVerboseComm()
		} else {
			err = rt.StartCommDiagnostics()
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "enable failed:", err)
			os.Exit(1)
		}
	case "off":
		if diagHere {
			if diagVerbose {
				rt.StopVerboseCommHere()
			} else {
				rt.StopCommDiagnosticsHere()
			}
			return
		}
		var err error
		if diagVerbose {
			err = rt.StopVerboseComm()
		} else {
			err = rt.StopCommDiagnostics()
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "disable failed:", err)
			os.Exit(1)
		}
	case "query":
		fmt.Printf("locale %d: gets=%d puts=%d forks=%d nb_forks=%d\n",
			diagSelf, rt.NumCommGets(), rt.NumCommPuts(), rt.NumCommForks(), rt.NumCommNBForks())
	default:
		fmt.Fprintln(os.Stderr, "unknown subcommand, expected on|off|query")
		os.Exit(1)
	}
}
