// Package workload holds sample Fork Engine handlers: concrete stand-ins
// for the "opaque function pointer" every comm.HandlerFunc represents.
package workload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// ContainerJob is the arg payload RunContainer expects, JSON-encoded
// by the caller before handing it to comm.Fork/comm.ForkNB.
type ContainerJob struct {
	Image string
	Args  []string
}

// RunContainer pulls, creates, starts, and waits on a container, then
// returns its short ID as the fork's result. Registered under handler
// name "docker.run"; the pull/create/start/wait sequence is carried
// over from the teacher's executeDockerContainer, now a plain
// comm.HandlerFunc instead of a scheduler-internal step.
func RunContainer(arg []byte) []byte {
	var job ContainerJob
	if err := json.Unmarshal(arg, &job); err != nil {
		return []byte(fmt.Sprintf("error: bad job spec: %v", err))
	}

	ctx := context.Background()
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return []byte(fmt.Sprintf("error: docker client: %v", err))
	}
	defer cli.Close()

	reader, err := cli.ImagePull(ctx, job.Image, types.ImagePullOptions{})
	if err != nil {
		return []byte(fmt.Sprintf("error: pull: %v", err))
	}
	_, _ = io.Copy(io.Discard, reader)
	_ = reader.Close()

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image: job.Image,
		Cmd:   job.Args,
	}, nil, nil, nil, "")
	if err != nil {
		return []byte(fmt.Sprintf("error: create: %v", err))
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return []byte(fmt.Sprintf("error: start: %v", err))
	}

	statusCh, errCh := cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return []byte(fmt.Sprintf("error: wait: %v", err))
	case <-statusCh:
		return []byte(resp.ID[:12])
	}
}
