package perf

import (
	"sort"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// MetricDelta describes how one metric moved between a baseline and a
// current run.
type MetricDelta struct {
	Name     string   `json:"name"`
	Baseline float64  `json:"baseline"`
	Current  float64  `json:"current"`
	Delta    float64  `json:"delta"`
	// Percent is Delta/Baseline. Nil when the baseline value is 0, where the
	// ratio is undefined.
	Percent    *float64 `json:"percent"`
	InBaseline bool     `json:"inBaseline"`
	InCurrent  bool     `json:"inCurrent"`
}

// Compare diffs two flat metric maps. Every key present in either map appears
// in the result, sorted by name; keys missing on one side read as 0 and are
// flagged via InBaseline/InCurrent.
func Compare(baseline, current map[string]float64) []MetricDelta {
	names := make(map[string]struct{}, len(baseline)+len(current))
	for name := range baseline {
		names[name] = struct{}{}
	}
	for name := range current {
		names[name] = struct{}{}
	}

	deltas := make([]MetricDelta, 0, len(names))
	for name := range names {
		baseValue, inBaseline := baseline[name]
		currentValue, inCurrent := current[name]

		delta := MetricDelta{
			Name:       name,
			Baseline:   baseValue,
			Current:    currentValue,
			Delta:      currentValue - baseValue,
			InBaseline: inBaseline,
			InCurrent:  inCurrent,
		}
		if baseValue != 0 {
			percent := delta.Delta / baseValue
			delta.Percent = &percent
		}
		deltas = append(deltas, delta)
	}

	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].Name < deltas[j].Name
	})
	return deltas
}

// FilterDeltas keeps only the deltas whose metric name matches the glob
// pattern. An empty pattern keeps everything.
func FilterDeltas(deltas []MetricDelta, pattern string) ([]MetricDelta, error) {
	if pattern == "" {
		return deltas, nil
	}

	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid metric filter pattern: %s", pattern)
	}

	var filtered []MetricDelta
	for _, d := range deltas {
		if matcher.Match(d.Name) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}
