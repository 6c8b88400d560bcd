package cmd

import (
	"fmt"
	"strings"

	"localecomm/comm"
	"localecomm/internal/workload"
)

// addClusterFlags installs the --locales/--self/--segment flags every
// subcommand that joins the cluster needs, mirroring the teacher's
// peerCmd.Flags().StringSliceVar(&targetPeers, "peers", ...) pattern.
func addClusterFlags(fs flagSet, locales *[]string, self *int32, segment *int64) {
	fs.StringSliceVar(locales, "locales", nil, "comma-separated host:port of every locale, index == locale id")
	fs.Int32Var(self, "self", 0, "this process's locale id (index into --locales)")
	fs.Int64Var(segment, "segment", 4<<20, "shared-heap arena size in bytes")
}

// flagSet is the subset of *pflag.FlagSet the helpers above need, kept
// narrow so it can be satisfied by either a command's own flag set or
// its persistent flags.
type flagSet interface {
	StringSliceVar(p *[]string, name string, value []string, usage string)
	Int32Var(p *int32, name string, value int32, usage string)
	Int64Var(p *int64, name string, value int64, usage string)
}

// joinCluster builds and initializes a Runtime from the parsed cluster
// flags, registers the demo "docker.run" and "bench.echo" handlers plus
// any caller-supplied extras (§4.9), and performs rollcall. Every subcommand that
// talks to the cluster goes through this single entry point.
//
// extra is registered before Init/Rollcall, same as "docker.run" —
// Rollcall's fingerprint check (comm/runtime.go) only passes when every
// locale registered the same handler names, so a demo handler a peer
// might be forked onto (e.g. bench's "bench.echo") needs registering
// here rather than after joinCluster returns, and on every locale that
// might serve as a fork target, not just the one invoking it.
func joinCluster(locales []string, self int32, segment int64, extra map[string]comm.HandlerFunc) (*comm.Runtime, error) {
	if len(locales) == 0 {
		return nil, fmt.Errorf("--locales is required")
	}
	rt := comm.NewRuntime(comm.Config{
		LocaleID:   self,
		Addrs:      locales,
		MaxSegment: segment,
	})
	rt.RegisterHandler("docker.run", workload.RunContainer)
	rt.RegisterHandler("bench.echo", benchEchoHandler)
	for name, fn := range extra {
		rt.RegisterHandler(name, fn)
	}
	if err := rt.Init(); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := rt.Rollcall(); err != nil {
		return nil, fmt.Errorf("rollcall: %w", err)
	}
	logDebug("[locale %d] joined cluster of %d: %s", self, len(locales), strings.Join(locales, ","))
	return rt, nil
}

// benchEchoHandler is "bench.echo", the fork target the bench ticker
// round-trips against. Registered by joinCluster for every subcommand
// (runBench and runLocale also pass it as an extra) so Rollcall's
// fingerprint check agrees regardless of which subcommand booted a
// given locale, and so a peer started with `locale` can actually serve
// as a bench target.
func benchEchoHandler(arg []byte) []byte { return arg }
