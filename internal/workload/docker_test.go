package workload

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunContainerRejectsBadJobSpec(t *testing.T) {
	result := RunContainer([]byte("not json"))
	require.True(t, strings.HasPrefix(string(result), "error: bad job spec"))
}

func TestContainerJobRoundTrip(t *testing.T) {
	job := ContainerJob{Image: "alpine", Args: []string{"echo", "hi"}}
	encoded, err := json.Marshal(job)
	require.NoError(t, err)

	var got ContainerJob
	require.NoError(t, json.Unmarshal(encoded, &got))
	require.Equal(t, job, got)
}
