// Package perf implements the performance-investigation primitives behind
// perfscope's slash commands: running shell benchmarks, scraping metrics from
// their output, comparing runs against baselines, and binary-searching for
// breaking points.
package perf

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Benchmark commands report metrics on stdout in one of two conventions:
// a JSON object between marker lines, or standalone key=value lines.
const (
	MetricsStartMarker = "PERF_METRICS_START"
	MetricsEndMarker   = "PERF_METRICS_END"
	MetricsLinePrefix  = "PERF_METRICS"
)

// ErrNoMetrics is returned when the output carries neither a marker-delimited
// JSON block nor any PERF_METRICS key=value lines.
var ErrNoMetrics = errors.New("no metrics found in benchmark output")

// ParseMetrics extracts a flat numeric metric map from benchmark output.
// The marker-delimited JSON form takes precedence; when no start marker is
// present the line form is used. Non-numeric JSON fields and unparseable
// key=value pairs are skipped.
func ParseMetrics(output string) (map[string]float64, error) {
	lines := strings.Split(output, "\n")

	if hasStartMarker(lines) {
		return parseMarkerBlock(lines)
	}

	metrics := parseMetricLines(lines)
	if len(metrics) == 0 {
		return nil, ErrNoMetrics
	}
	return metrics, nil
}

func hasStartMarker(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) == MetricsStartMarker {
			return true
		}
	}
	return false
}

func parseMarkerBlock(lines []string) (map[string]float64, error) {
	var block []string
	inBlock := false
	closed := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == MetricsStartMarker:
			inBlock = true
		case trimmed == MetricsEndMarker:
			if inBlock {
				closed = true
			}
			inBlock = false
		case inBlock:
			block = append(block, line)
		}
		if closed {
			break
		}
	}

	if !closed {
		return nil, errors.Errorf("%s marker without matching %s", MetricsStartMarker, MetricsEndMarker)
	}

	doc := strings.TrimSpace(strings.Join(block, "\n"))
	parsed := gjson.Parse(doc)
	if !parsed.IsObject() {
		return nil, errors.New("metrics block is not a JSON object")
	}

	metrics := make(map[string]float64)
	parsed.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			metrics[key.String()] = value.Num
		}
		return true
	})

	if len(metrics) == 0 {
		return nil, errors.New("metrics block contains no numeric fields")
	}
	return metrics, nil
}

// parseMetricLines scans for "PERF_METRICS key=value [key=value ...]" lines.
func parseMetricLines(lines []string) map[string]float64 {
	metrics := make(map[string]float64)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		rest, found := strings.CutPrefix(trimmed, MetricsLinePrefix+" ")
		if !found {
			continue
		}

		for _, pair := range strings.Fields(rest) {
			key, raw, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				continue
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			metrics[key] = value
		}
	}

	return metrics
}
