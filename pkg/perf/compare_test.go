package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareUnionOfKeys(t *testing.T) {
	baseline := map[string]float64{"ops": 1000, "p99_ms": 20}
	current := map[string]float64{"ops": 900, "rss_mb": 128}

	deltas := Compare(baseline, current)

	require.Len(t, deltas, 3)
	// Sorted by name.
	assert.Equal(t, "ops", deltas[0].Name)
	assert.Equal(t, "p99_ms", deltas[1].Name)
	assert.Equal(t, "rss_mb", deltas[2].Name)
}

func TestCompareDeltaAndPercent(t *testing.T) {
	deltas := Compare(map[string]float64{"ops": 1000}, map[string]float64{"ops": 900})

	require.Len(t, deltas, 1)
	d := deltas[0]
	assert.Equal(t, -100.0, d.Delta)
	require.NotNil(t, d.Percent)
	assert.InDelta(t, -0.1, *d.Percent, 1e-9)
	assert.True(t, d.InBaseline)
	assert.True(t, d.InCurrent)
}

func TestComparePercentNilWhenBaselineZero(t *testing.T) {
	deltas := Compare(map[string]float64{"errors": 0}, map[string]float64{"errors": 5})

	require.Len(t, deltas, 1)
	assert.Equal(t, 5.0, deltas[0].Delta)
	assert.Nil(t, deltas[0].Percent)
}

func TestCompareMissingSidesReadAsZero(t *testing.T) {
	deltas := Compare(map[string]float64{"old_only": 7}, map[string]float64{"new_only": 3})

	require.Len(t, deltas, 2)

	newOnly := deltas[0]
	assert.Equal(t, "new_only", newOnly.Name)
	assert.Equal(t, 3.0, newOnly.Delta)
	assert.False(t, newOnly.InBaseline)
	assert.True(t, newOnly.InCurrent)
	assert.Nil(t, newOnly.Percent)

	oldOnly := deltas[1]
	assert.Equal(t, "old_only", oldOnly.Name)
	assert.Equal(t, -7.0, oldOnly.Delta)
	assert.True(t, oldOnly.InBaseline)
	assert.False(t, oldOnly.InCurrent)
	require.NotNil(t, oldOnly.Percent)
	assert.InDelta(t, -1.0, *oldOnly.Percent, 1e-9)
}

func TestCompareEmptyMaps(t *testing.T) {
	assert.Empty(t, Compare(nil, nil))
}

func TestFilterDeltas(t *testing.T) {
	deltas := Compare(
		map[string]float64{"latency_p50": 1, "latency_p99": 2, "ops": 3},
		map[string]float64{"latency_p50": 2, "latency_p99": 4, "ops": 3},
	)

	filtered, err := FilterDeltas(deltas, "latency_*")
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "latency_p50", filtered[0].Name)
	assert.Equal(t, "latency_p99", filtered[1].Name)
}

func TestFilterDeltasEmptyPatternKeepsAll(t *testing.T) {
	deltas := Compare(map[string]float64{"a": 1}, map[string]float64{"b": 2})

	filtered, err := FilterDeltas(deltas, "")
	require.NoError(t, err)
	assert.Equal(t, deltas, filtered)
}

func TestFilterDeltasInvalidPattern(t *testing.T) {
	_, err := FilterDeltas(nil, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid metric filter pattern")
}
