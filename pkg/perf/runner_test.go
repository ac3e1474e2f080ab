package perf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunParsesMetrics(t *testing.T) {
	runner := NewRunner()

	result, err := runner.Run(context.Background(), RunRequest{
		Command: `echo "PERF_METRICS ops=100 latency_ms=2.5"`,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"ops": 100, "latency_ms": 2.5}, result.Metrics)
	assert.False(t, result.StartedAt.IsZero())
	assert.Contains(t, result.Output, "PERF_METRICS")
}

func TestRunRequiresCommand(t *testing.T) {
	runner := NewRunner()

	_, err := runner.Run(context.Background(), RunRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command is required")
}

func TestRunRejectsNegativeConstraints(t *testing.T) {
	runner := NewRunner()

	_, err := runner.Run(context.Background(), RunRequest{Command: "true", MinDuration: -time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum duration")

	_, err = runner.Run(context.Background(), RunRequest{Command: "true", Timeout: -time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestRunEnforcesMinimumDuration(t *testing.T) {
	runner := NewRunner()

	_, err := runner.Run(context.Background(), RunRequest{
		Command:     `echo "PERF_METRICS ops=1"`,
		MinDuration: 30 * time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below the required minimum")
}

func TestRunCommandFailureIncludesOutput(t *testing.T) {
	runner := NewRunner()

	_, err := runner.Run(context.Background(), RunRequest{
		Command: `echo "disk on fire" >&2; exit 3`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestRunTimeout(t *testing.T) {
	runner := NewRunner()

	_, err := runner.Run(context.Background(), RunRequest{
		Command: "sleep 5",
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunNoMetricsInOutput(t *testing.T) {
	runner := NewRunner()

	_, err := runner.Run(context.Background(), RunRequest{Command: `echo "all done"`})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMetrics)
}

func TestOutputTailTruncates(t *testing.T) {
	long := make([]byte, outputTailLimit*2)
	for i := range long {
		long[i] = 'x'
	}

	tail := outputTail(long)
	assert.Len(t, tail, outputTailLimit+3)
	assert.Equal(t, "...", tail[:3])
}
