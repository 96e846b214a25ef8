// Package parser reconstructs structured ML run results from the raw
// stdout of executed notebook code. Two strategies populate the same
// DetectedModel shape: a deterministic tagged-line extractor and a
// remote heuristic detector used when code doesn't follow the sentinel
// convention.
package parser

// Metrics holds the canonical metric slots plus an open mapping for
// anything else a run reports (r2, mse, mae, ...).
type Metrics struct {
	Accuracy      *float64           `json:"accuracy,omitempty"`
	Precision     *float64           `json:"precision,omitempty"`
	Recall        *float64           `json:"recall,omitempty"`
	F1Score       *float64           `json:"f1Score,omitempty"`
	Loss          *float64           `json:"loss,omitempty"`
	CustomMetrics map[string]float64 `json:"customMetrics,omitempty"`
}

// DatasetInfo describes the dataset a run trained on.
type DatasetInfo struct {
	Rows     int      `json:"rows,omitempty"`
	Columns  int      `json:"columns,omitempty"`
	Features []string `json:"features,omitempty"`
}

// DetectedModel is a best-effort structured extraction from one cell's
// output. Regression-family runs carry R² in the accuracy slot by
// convention.
type DetectedModel struct {
	Detected        bool         `json:"detected"`
	ModelType       string       `json:"modelType,omitempty"`
	Metrics         Metrics      `json:"metrics"`
	ConfusionMatrix [][]int      `json:"confusionMatrix,omitempty"`
	DatasetInfo     *DatasetInfo `json:"datasetInfo,omitempty"`
	Summary         string       `json:"summary,omitempty"`
}

// EffectiveAccuracy returns the value used for ranking: the accuracy slot
// when present, else the r2/R2 custom metric. The second return is false
// when neither exists (the run does not qualify for the leaderboard).
func EffectiveAccuracy(dm *DetectedModel) (float64, bool) {
	if dm == nil || !dm.Detected {
		return 0, false
	}
	if dm.Metrics.Accuracy != nil {
		return *dm.Metrics.Accuracy, true
	}
	if v, ok := dm.Metrics.CustomMetrics["r2"]; ok {
		return v, true
	}
	if v, ok := dm.Metrics.CustomMetrics["R2"]; ok {
		return v, true
	}
	return 0, false
}
