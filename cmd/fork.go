package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"localecomm/internal/workload"
)

var (
	forkLocales  []string
	forkSelf     int32
	forkSegment  int64
	forkTarget   int32
	forkHandler  string
	forkArg      string
	forkBlocking bool
	forkImage    string
	forkArgs     []string
)

var forkCmd = &cobra.Command{
	Use:   "fork",
	Short: "Join the cluster and fork a named handler on another locale",
	Run:   runFork,
}

func init() {
	rootCmd.AddCommand(forkCmd)
	addClusterFlags(forkCmd.Flags(), &forkLocales, &forkSelf, &forkSegment)
	forkCmd.Flags().Int32Var(&forkTarget, "target", 0, "locale id to fork onto")
	forkCmd.Flags().StringVar(&forkHandler, "handler", "docker.run", "registered handler name")
	forkCmd.Flags().StringVar(&forkArg, "arg", "", "raw argument bytes (ignored when --handler docker.run and --image is set)")
	forkCmd.Flags().BoolVar(&forkBlocking, "blocking", true, "use comm.Fork (wait for result) instead of comm.ForkNB")
	forkCmd.Flags().StringVar(&forkImage, "image", "", "docker.run convenience: image to run")
	forkCmd.Flags().StringSliceVar(&forkArgs, "cmd", nil, "docker.run convenience: container command args")
}

// runFork is the CLI-submission side of the Fork Engine: a direct
// adaptation of the teacher's runJob (connect, submit, print result),
// but the submitter is itself a locale in this cluster rather than a
// one-shot gRPC client, since the Fork Engine's ack path runs over the
// same AM stream every other locale uses.
func runFork(cmd *cobra.Command, args []string) {
	rt, err := joinCluster(forkLocales, forkSelf, forkSegment, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "join failed:", err)
		os.Exit(1)
	}
	rt.InitSharedHeap(0)

	arg := []byte(forkArg)
	if forkHandler == "docker.run" && forkImage != "" {
		job := workload.ContainerJob{Image: forkImage, Args: forkArgs}
		encoded, err := json.Marshal(job)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad job spec:", err)
			os.Exit(1)
		}
		arg = encoded
	}

	if forkBlocking {
		fmt.Printf("forking %q onto locale %d (blocking)...\n", forkHandler, forkTarget)
		result, err := rt.Fork(forkTarget, forkHandler, arg)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fork failed:", err)
			os.Exit(1)
		}
		fmt.Printf("result: %s\n", result)
		return
	}

	fmt.Printf("forking %q onto locale %d (non-blocking)...\n", forkHandler, forkTarget)
	if err := rt.ForkNB(forkTarget, forkHandler, arg); err != nil {
		fmt.Fprintln(os.Stderr, "fork_nb failed:", err)
		os.Exit(1)
	}
	fmt.Println("submitted.")
}
