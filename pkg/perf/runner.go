package perf

import (
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/perfscope/perfscope/pkg/logger"
)

// outputTailLimit bounds the command output carried inside error messages.
const outputTailLimit = 2000

// RunRequest describes a single benchmark execution.
type RunRequest struct {
	// Command is the shell command to execute via `sh -c`.
	Command string
	// MinDuration rejects runs that complete too quickly to be a meaningful
	// measurement. Zero disables the check.
	MinDuration time.Duration
	// Timeout kills the command after the given duration. Zero disables it.
	Timeout time.Duration
}

// RunResult captures a completed benchmark run.
type RunResult struct {
	Command   string             `json:"command"`
	StartedAt time.Time          `json:"startedAt"`
	Duration  time.Duration      `json:"duration"`
	Metrics   map[string]float64 `json:"metrics"`
	Output    string             `json:"output"`
}

// Runner executes benchmark commands and scrapes their metrics. Runs are
// sequential by policy: benchmarks measure wall-clock time, and concurrent
// runs would contend for the machine. Callers must not invoke Run from
// multiple goroutines.
type Runner struct {
	shell string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithShell overrides the shell binary used to execute commands.
func WithShell(shell string) RunnerOption {
	return func(r *Runner) {
		r.shell = shell
	}
}

// NewRunner creates a benchmark runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{shell: "sh"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func validateRequest(req RunRequest) error {
	if req.Command == "" {
		return errors.New("command is required")
	}
	if req.MinDuration < 0 {
		return errors.New("minimum duration must not be negative")
	}
	if req.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// Run executes the benchmark command synchronously, enforces the minimum
// wall-clock duration, and parses metrics from the combined output.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	log := logger.G(ctx).WithField("command", req.Command)
	log.Debug("starting benchmark run")

	startedAt := time.Now()
	cmd := exec.CommandContext(ctx, r.shell, "-c", req.Command)
	output, err := cmd.CombinedOutput()
	duration := time.Since(startedAt)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrapf(ctx.Err(), "benchmark timed out after %s", req.Timeout)
		}
		return nil, errors.Wrapf(err, "benchmark command failed: %s", outputTail(output))
	}

	if req.MinDuration > 0 && duration < req.MinDuration {
		return nil, errors.Errorf(
			"benchmark completed in %s, below the required minimum of %s; results this short are noise",
			duration.Round(time.Millisecond), req.MinDuration)
	}

	metrics, err := ParseMetrics(string(output))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse benchmark metrics")
	}

	log.WithField("duration", duration).WithField("metrics", len(metrics)).Debug("benchmark run complete")

	return &RunResult{
		Command:   req.Command,
		StartedAt: startedAt,
		Duration:  duration,
		Metrics:   metrics,
		Output:    string(output),
	}, nil
}

func outputTail(output []byte) string {
	if len(output) <= outputTailLimit {
		return string(output)
	}
	return "..." + string(output[len(output)-outputTailLimit:])
}
