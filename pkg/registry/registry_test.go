package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpad/modelpad/pkg/parser"
)

func detected(acc float64) *parser.DetectedModel {
	return &parser.DetectedModel{Detected: true, Metrics: parser.Metrics{Accuracy: &acc}}
}

func TestLeaderboardOrdering(t *testing.T) {
	entries := []Entry{
		{CellID: "a", Detected: detected(0.5)},
		{CellID: "b", Detected: detected(0.9)},
		{CellID: "c", Detected: detected(0.7)},
	}

	board := Leaderboard(entries)
	require.Len(t, board, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{board[0].CellID, board[1].CellID, board[2].CellID})

	best := BestRun(entries)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.CellID)

	latest := LatestRun(entries)
	require.NotNil(t, latest)
	assert.Equal(t, "c", latest.CellID)
	assert.Equal(t, 0.7, latest.Accuracy)

	assert.Equal(t, 3, TotalDetectedModels(entries))
}

func TestLeaderboardStableOnTies(t *testing.T) {
	entries := []Entry{
		{CellID: "first", Detected: detected(0.8)},
		{CellID: "second", Detected: detected(0.8)},
	}

	board := Leaderboard(entries)
	require.Len(t, board, 2)
	assert.Equal(t, "first", board[0].CellID)
	assert.Equal(t, "second", board[1].CellID)

	best := BestRun(entries)
	assert.Equal(t, "first", best.CellID)
}

func TestR2FallbackQualifies(t *testing.T) {
	entries := []Entry{
		{CellID: "reg", Detected: &parser.DetectedModel{
			Detected: true,
			Metrics:  parser.Metrics{CustomMetrics: map[string]float64{"r2": 0.81}},
		}},
	}

	board := Leaderboard(entries)
	require.Len(t, board, 1)
	assert.Equal(t, 0.81, board[0].Accuracy)
	assert.Equal(t, 1, TotalDetectedModels(entries))
}

func TestNonQualifyingEntriesSkipped(t *testing.T) {
	entries := []Entry{
		{CellID: "markdown", Detected: nil},
		{CellID: "undetected", Detected: &parser.DetectedModel{Detected: false}},
		{CellID: "no-accuracy", Detected: &parser.DetectedModel{Detected: true, ModelType: "KMeans"}},
	}

	assert.Nil(t, BestRun(entries))
	assert.Nil(t, LatestRun(entries))
	assert.Empty(t, Leaderboard(entries))
	assert.Zero(t, TotalDetectedModels(entries))
}
