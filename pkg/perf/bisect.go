package perf

import (
	"context"

	"github.com/pkg/errors"

	"github.com/perfscope/perfscope/pkg/logger"
)

// Probe evaluates a candidate parameter value. It returns true while the
// system still holds up at that value and false once it breaks. Probes are
// expected to be monotonic: once false, false for every larger value.
type Probe func(ctx context.Context, value int) (bool, error)

// FindBreakingPoint binary-searches [min, max] for the lowest value at which
// the probe first returns false. It returns nil when the probe holds across
// the entire range. A probe error aborts the search and propagates.
func FindBreakingPoint(ctx context.Context, min, max int, probe Probe) (*int, error) {
	if probe == nil {
		return nil, errors.New("probe is required")
	}
	if min > max {
		return nil, errors.Errorf("invalid range: min %d > max %d", min, max)
	}

	log := logger.G(ctx)

	var breaking *int
	lo, hi := min, max
	for lo <= hi {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "breaking point search cancelled")
		}

		mid := lo + (hi-lo)/2
		holds, err := probe(ctx, mid)
		if err != nil {
			return nil, errors.Wrapf(err, "probe failed at value %d", mid)
		}
		log.WithField("value", mid).WithField("holds", holds).Debug("probed candidate")

		if holds {
			lo = mid + 1
		} else {
			v := mid
			breaking = &v
			hi = mid - 1
		}
	}

	return breaking, nil
}
