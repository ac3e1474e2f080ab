package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetRunFlags restores the run command's flags to their defaults and
// rebinds them, so leftover values never leak between tests.
func resetRunFlags(t *testing.T) {
	t.Cleanup(func() {
		runCmd.ResetFlags()
		initRunFlags()
		require.NoError(t, viper.BindPFlags(runCmd.Flags()))
	})
}

func TestGetRunConfig(t *testing.T) {
	require.NoError(t, runCmd.ParseFlags([]string{
		"--min-duration", "5s",
		"--timeout", "2m",
		"--baseline", "v1.0.0",
		"--filter", "latency_*",
	}))
	require.NoError(t, viper.BindPFlags(runCmd.Flags()))
	resetRunFlags(t)

	config := getRunConfig()
	assert.Equal(t, 5*time.Second, config.MinDuration)
	assert.Equal(t, 2*time.Minute, config.Timeout)
	assert.Equal(t, "v1.0.0", config.BaselineVersion)
	assert.Equal(t, "latency_*", config.Filter)
}

func TestGetRunConfigEnvOverridesFlagDefault(t *testing.T) {
	t.Setenv("PERFSCOPE_TIMEOUT", "90s")
	require.NoError(t, viper.BindPFlags(runCmd.Flags()))
	resetRunFlags(t)

	config := getRunConfig()
	assert.Equal(t, 90*time.Second, config.Timeout)
	assert.Equal(t, time.Duration(0), config.MinDuration)
}

func TestGetRunConfigFlagBeatsEnv(t *testing.T) {
	t.Setenv("PERFSCOPE_TIMEOUT", "90s")
	require.NoError(t, runCmd.ParseFlags([]string{"--timeout", "5s"}))
	require.NoError(t, viper.BindPFlags(runCmd.Flags()))
	resetRunFlags(t)

	config := getRunConfig()
	assert.Equal(t, 5*time.Second, config.Timeout)
}

func TestRunConfigDefaults(t *testing.T) {
	config := NewRunConfig()
	assert.Equal(t, time.Duration(0), config.MinDuration)
	assert.Equal(t, 10*time.Minute, config.Timeout)
	assert.Empty(t, config.BaselineVersion)
}
