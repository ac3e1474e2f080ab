package perf

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thresholdProbe(breakAt int, calls *int) Probe {
	return func(_ context.Context, value int) (bool, error) {
		if calls != nil {
			*calls++
		}
		return value < breakAt, nil
	}
}

func TestFindBreakingPointFindsLowestFailure(t *testing.T) {
	ctx := context.Background()

	for breakAt := 1; breakAt <= 100; breakAt++ {
		got, err := FindBreakingPoint(ctx, 1, 100, thresholdProbe(breakAt, nil))
		require.NoError(t, err)
		require.NotNil(t, got, "breakAt=%d", breakAt)
		assert.Equal(t, breakAt, *got, "breakAt=%d", breakAt)
	}
}

func TestFindBreakingPointNilWhenPredicateHolds(t *testing.T) {
	got, err := FindBreakingPoint(context.Background(), 1, 64, thresholdProbe(1000, nil))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindBreakingPointSingleValueRange(t *testing.T) {
	got, err := FindBreakingPoint(context.Background(), 5, 5, thresholdProbe(5, nil))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, *got)

	got, err = FindBreakingPoint(context.Background(), 5, 5, thresholdProbe(6, nil))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindBreakingPointLogarithmicProbes(t *testing.T) {
	calls := 0
	_, err := FindBreakingPoint(context.Background(), 1, 1<<20, thresholdProbe(1234, &calls))
	require.NoError(t, err)
	assert.LessOrEqual(t, calls, 21)
}

func TestFindBreakingPointInvalidRange(t *testing.T) {
	_, err := FindBreakingPoint(context.Background(), 10, 1, thresholdProbe(5, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid range")
}

func TestFindBreakingPointNilProbe(t *testing.T) {
	_, err := FindBreakingPoint(context.Background(), 1, 10, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probe is required")
}

func TestFindBreakingPointProbeError(t *testing.T) {
	probe := func(_ context.Context, _ int) (bool, error) {
		return false, errors.New("bench harness crashed")
	}

	_, err := FindBreakingPoint(context.Background(), 1, 10, probe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bench harness crashed")
}

func TestFindBreakingPointCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindBreakingPoint(ctx, 1, 10, thresholdProbe(5, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}
