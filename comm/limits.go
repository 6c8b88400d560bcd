package comm

import "runtime"

// maxThreads backs MaxThreads/MaxThreadsLimit (§6). The runtime owns no
// thread pool of its own (task scheduling is out of scope, spec.md
// §1), so this simply reports Go's own scheduler parallelism.
func maxThreads() int32 {
	return int32(runtime.GOMAXPROCS(0))
}
