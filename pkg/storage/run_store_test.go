package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestCreateRunRequiresSession(t *testing.T) {
	store := setupStore(t)

	_, err := store.CreateRun(&Run{SessionID: "missing", Name: "r", Code: "x", Accuracy: 0.5})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunSaveFetchRoundTrip(t *testing.T) {
	store := setupStore(t)

	session, err := store.CreateSession("round trip")
	require.NoError(t, err)

	submitted := &Run{
		SessionID:       session.ID,
		Name:            "RandomForest v1",
		Code:            "print('ACCURACY: 0.91')",
		Accuracy:        0.91,
		Precision:       floatPtr(0.9),
		Recall:          floatPtr(0.88),
		F1Score:         floatPtr(0.89),
		ModelType:       "RandomForestClassifier",
		DatasetRows:     intPtr(150),
		DatasetColumns:  intPtr(5),
		DatasetFeatures: []string{"sepal_length", "sepal_width", "petal_length", "petal_width"},
		ConfusionMatrix: [][]int{{48, 2}, {3, 47}},
		Stdout:          "ACCURACY: 0.91\n",
		IsImproved:      true,
		Explanation:     "more trees",
	}

	saved, err := store.CreateRun(submitted)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	runs, err := store.ListRunsBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, submitted.Name, got.Name)
	assert.Equal(t, submitted.Code, got.Code)
	assert.Equal(t, submitted.Accuracy, got.Accuracy)
	assert.Equal(t, *submitted.Precision, *got.Precision)
	assert.Equal(t, *submitted.Recall, *got.Recall)
	assert.Equal(t, *submitted.F1Score, *got.F1Score)
	assert.Equal(t, submitted.ModelType, got.ModelType)
	assert.Equal(t, *submitted.DatasetRows, *got.DatasetRows)
	assert.Equal(t, *submitted.DatasetColumns, *got.DatasetColumns)
	assert.Equal(t, submitted.DatasetFeatures, got.DatasetFeatures)
	assert.Equal(t, submitted.ConfusionMatrix, got.ConfusionMatrix)
	assert.Equal(t, submitted.Stdout, got.Stdout)
	assert.True(t, got.IsImproved)
	assert.Equal(t, submitted.Explanation, got.Explanation)

	// A second fetch with no intervening writes returns the same record.
	again, err := store.ListRunsBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, got, again[0])
}

func TestListRunsSortedByAccuracyDesc(t *testing.T) {
	store := setupStore(t)

	session, err := store.CreateSession("leaderboard")
	require.NoError(t, err)

	for _, acc := range []float64{0.5, 0.9, 0.7} {
		_, err := store.CreateRun(&Run{SessionID: session.ID, Name: "r", Code: "c", Accuracy: acc})
		require.NoError(t, err)
	}

	runs, err := store.ListRunsBySession(session.ID)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, 0.9, runs[0].Accuracy)
	assert.Equal(t, 0.7, runs[1].Accuracy)
	assert.Equal(t, 0.5, runs[2].Accuracy)
}

func TestListRunsUnknownSession(t *testing.T) {
	store := setupStore(t)

	_, err := store.ListRunsBySession("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRun(t *testing.T) {
	store := setupStore(t)

	session, err := store.CreateSession("get run")
	require.NoError(t, err)

	saved, err := store.CreateRun(&Run{SessionID: session.ID, Name: "r", Code: "c", Accuracy: 0.42})
	require.NoError(t, err)

	got, err := store.GetRun(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.42, got.Accuracy)

	_, err = store.GetRun("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
