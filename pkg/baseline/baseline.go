// Package baseline records and stores benchmark baselines: a snapshot of the
// metrics a benchmark command produced for a given version, together with the
// environment it ran on. Baselines are flat JSON documents under the
// perfscope state directory, one file per sanitized version string.
package baseline

import (
	"regexp"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// Env describes the machine a baseline was recorded on. Comparing runs from
// different environments is usually meaningless, so the CLI surfaces this
// alongside every comparison.
type Env struct {
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	CPUCount    int    `json:"cpuCount"`
	TotalMemory uint64 `json:"totalMemory"`
	Hostname    string `json:"hostname"`
	GoVersion   string `json:"goVersion"`
}

// Baseline is a recorded snapshot of benchmark metrics for a version.
type Baseline struct {
	Version    string             `json:"version"`
	RecordedAt time.Time          `json:"recordedAt"`
	Command    string             `json:"command"`
	Metrics    map[string]float64 `json:"metrics"`
	Env        Env                `json:"env"`
}

// CaptureEnv collects the recording machine's environment. Probes that fail
// leave their field at the zero value rather than failing the capture.
func CaptureEnv() Env {
	env := Env{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
	}

	if count, err := cpu.Counts(true); err == nil {
		env.CPUCount = count
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		env.TotalMemory = vm.Total
	}
	if info, err := host.Info(); err == nil {
		env.Hostname = info.Hostname
	}

	return env
}

// New builds a baseline for the given version from a completed benchmark run.
func New(version, command string, metrics map[string]float64) Baseline {
	return Baseline{
		Version:    version,
		RecordedAt: time.Now().UTC(),
		Command:    command,
		Metrics:    metrics,
		Env:        CaptureEnv(),
	}
}

// Validate performs field-presence checks on a baseline document and reports
// every problem at once.
func (b Baseline) Validate() error {
	var result *multierror.Error

	if b.Version == "" {
		result = multierror.Append(result, errors.New("version is required"))
	}
	if b.RecordedAt.IsZero() {
		result = multierror.Append(result, errors.New("recordedAt is required"))
	}
	if b.Command == "" {
		result = multierror.Append(result, errors.New("command is required"))
	}
	if len(b.Metrics) == 0 {
		result = multierror.Append(result, errors.New("metrics must not be empty"))
	}

	return result.ErrorOrNil()
}

var unsafeVersionRunes = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeVersion maps a version string onto a filesystem-safe key: any rune
// outside [A-Za-z0-9._-] becomes "-".
func SanitizeVersion(version string) (string, error) {
	sanitized := unsafeVersionRunes.ReplaceAllString(version, "-")
	if sanitized == "" {
		return "", errors.New("version is empty after sanitization")
	}
	return sanitized, nil
}
