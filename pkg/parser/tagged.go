package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel prefixes recognized by the tier-1 extractor. Code that follows
// the convention prints one metric per line, e.g. "ACCURACY: 0.87".
const (
	prefixDatasetInfo     = "DATASET_INFO:"
	prefixModelType       = "MODEL_TYPE:"
	prefixAccuracy        = "ACCURACY:"
	prefixPrecision       = "PRECISION:"
	prefixRecall          = "RECALL:"
	prefixF1Score         = "F1_SCORE:"
	prefixConfusionMatrix = "CONFUSION_MATRIX:"
)

// ParseTagged scans stdout line by line for sentinel-prefixed metrics.
// Deterministic and lossless for well-formed input; a malformed payload on
// any single line is skipped silently and parsing continues. Detected is
// true when at least one field was extracted.
func ParseTagged(stdout string) *DetectedModel {
	dm := &DetectedModel{}

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, prefixModelType):
			if v := payload(line, prefixModelType); v != "" {
				dm.ModelType = v
				dm.Detected = true
			}

		case strings.HasPrefix(line, prefixAccuracy):
			if v, ok := parseMetric(payload(line, prefixAccuracy)); ok {
				dm.Metrics.Accuracy = &v
				dm.Detected = true
			}

		case strings.HasPrefix(line, prefixPrecision):
			if v, ok := parseMetric(payload(line, prefixPrecision)); ok {
				dm.Metrics.Precision = &v
				dm.Detected = true
			}

		case strings.HasPrefix(line, prefixRecall):
			if v, ok := parseMetric(payload(line, prefixRecall)); ok {
				dm.Metrics.Recall = &v
				dm.Detected = true
			}

		case strings.HasPrefix(line, prefixF1Score):
			if v, ok := parseMetric(payload(line, prefixF1Score)); ok {
				dm.Metrics.F1Score = &v
				dm.Detected = true
			}

		case strings.HasPrefix(line, prefixDatasetInfo):
			var info DatasetInfo
			if err := json.Unmarshal([]byte(payload(line, prefixDatasetInfo)), &info); err == nil {
				dm.DatasetInfo = &info
				dm.Detected = true
			}

		case strings.HasPrefix(line, prefixConfusionMatrix):
			var matrix [][]int
			if err := json.Unmarshal([]byte(payload(line, prefixConfusionMatrix)), &matrix); err == nil && isSquare(matrix) {
				dm.ConfusionMatrix = matrix
				dm.Detected = true
			}
		}
	}

	if dm.Detected {
		dm.Summary = taggedSummary(dm)
	}
	return dm
}

func payload(line, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, prefix))
}

func parseMetric(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isSquare(matrix [][]int) bool {
	if len(matrix) == 0 {
		return false
	}
	for _, row := range matrix {
		if len(row) != len(matrix) {
			return false
		}
	}
	return true
}

func taggedSummary(dm *DetectedModel) string {
	name := dm.ModelType
	if name == "" {
		name = "Model"
	}
	if dm.Metrics.Accuracy != nil {
		return fmt.Sprintf("%s reported %.4f via tagged output.", name, *dm.Metrics.Accuracy)
	}
	return fmt.Sprintf("%s reported metrics via tagged output.", name)
}
