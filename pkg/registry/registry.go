// Package registry derives leaderboard views from the current notebook
// state. It holds no state of its own: every view is recomputed from the
// cell snapshot it is handed, so there is no incremental cache to drift
// out of sync.
package registry

import (
	"sort"

	"github.com/modelpad/modelpad/pkg/parser"
)

// Entry pairs a cell with its detection result. Callers build the slice
// in cell order; position in the slice is what "latest" means here.
type Entry struct {
	CellID   string
	Detected *parser.DetectedModel
}

// Ranked is one qualifying entry with its ranking accuracy resolved.
type Ranked struct {
	CellID   string
	Accuracy float64
	Detected *parser.DetectedModel
}

// qualify filters entries down to those with a detection and a usable
// accuracy, preserving cell order.
func qualify(entries []Entry) []Ranked {
	var out []Ranked
	for _, e := range entries {
		acc, ok := parser.EffectiveAccuracy(e.Detected)
		if !ok {
			continue
		}
		out = append(out, Ranked{CellID: e.CellID, Accuracy: acc, Detected: e.Detected})
	}
	return out
}

// BestRun returns the qualifying entry with the highest accuracy. Ties go
// to the first-encountered entry. Returns nil when nothing qualifies.
func BestRun(entries []Entry) *Ranked {
	var best *Ranked
	for _, r := range qualify(entries) {
		r := r
		if best == nil || r.Accuracy > best.Accuracy {
			best = &r
		}
	}
	return best
}

// LatestRun returns the qualifying entry that appears last in cell order.
// Recency is positional, not temporal.
func LatestRun(entries []Entry) *Ranked {
	ranked := qualify(entries)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[len(ranked)-1]
}

// Leaderboard returns all qualifying entries sorted by accuracy
// descending. The sort is stable so equal accuracies keep cell order.
func Leaderboard(entries []Entry) []Ranked {
	ranked := qualify(entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Accuracy > ranked[j].Accuracy
	})
	return ranked
}

// TotalDetectedModels counts the qualifying entries.
func TotalDetectedModels(entries []Entry) int {
	return len(qualify(entries))
}
