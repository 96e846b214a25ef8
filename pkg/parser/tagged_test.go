package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaggedRoundTrip(t *testing.T) {
	stdout := `MODEL_TYPE: RandomForestClassifier
ACCURACY: 0.87
PRECISION: 0.85
RECALL: 0.84
F1_SCORE: 0.845
CONFUSION_MATRIX: [[1,2],[3,4]]
DATASET_INFO: {"rows": 150, "columns": 5, "features": ["a", "b"]}
`
	dm := ParseTagged(stdout)

	require.True(t, dm.Detected)
	assert.Equal(t, "RandomForestClassifier", dm.ModelType)
	require.NotNil(t, dm.Metrics.Accuracy)
	assert.Equal(t, 0.87, *dm.Metrics.Accuracy)
	assert.Equal(t, 0.85, *dm.Metrics.Precision)
	assert.Equal(t, 0.84, *dm.Metrics.Recall)
	assert.Equal(t, 0.845, *dm.Metrics.F1Score)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}}, dm.ConfusionMatrix)
	require.NotNil(t, dm.DatasetInfo)
	assert.Equal(t, 150, dm.DatasetInfo.Rows)
	assert.Equal(t, 5, dm.DatasetInfo.Columns)
	assert.Equal(t, []string{"a", "b"}, dm.DatasetInfo.Features)
	assert.NotEmpty(t, dm.Summary)
}

func TestTaggedMalformedLineTolerance(t *testing.T) {
	stdout := `MODEL_TYPE: LinearRegression
ACCURACY: 0.91
CONFUSION_MATRIX: [[1,2],[3,]]
DATASET_INFO: {"rows": 100, "columns": 3}
`
	dm := ParseTagged(stdout)

	require.True(t, dm.Detected)
	assert.Equal(t, "LinearRegression", dm.ModelType)
	assert.Equal(t, 0.91, *dm.Metrics.Accuracy)
	assert.Nil(t, dm.ConfusionMatrix) // malformed JSON skipped, parsing continued
	require.NotNil(t, dm.DatasetInfo)
	assert.Equal(t, 100, dm.DatasetInfo.Rows)
}

func TestTaggedNonNumericMetricSkipped(t *testing.T) {
	dm := ParseTagged("ACCURACY: ninety\nRECALL: 0.5\n")
	assert.Nil(t, dm.Metrics.Accuracy)
	require.NotNil(t, dm.Metrics.Recall)
	assert.True(t, dm.Detected)
}

func TestTaggedNonSquareMatrixSkipped(t *testing.T) {
	dm := ParseTagged("CONFUSION_MATRIX: [[1,2,3],[4,5,6]]\n")
	assert.Nil(t, dm.ConfusionMatrix)
	assert.False(t, dm.Detected)
}

func TestTaggedPlainOutputNotDetected(t *testing.T) {
	dm := ParseTagged("Training model...\nDone in 3.2s\n")
	assert.False(t, dm.Detected)
	assert.Empty(t, dm.Summary)
}

func TestEffectiveAccuracyDirect(t *testing.T) {
	acc := 0.9
	dm := &DetectedModel{Detected: true, Metrics: Metrics{Accuracy: &acc}}
	v, ok := EffectiveAccuracy(dm)
	require.True(t, ok)
	assert.Equal(t, 0.9, v)
}

func TestEffectiveAccuracyR2Fallback(t *testing.T) {
	dm := &DetectedModel{Detected: true, Metrics: Metrics{
		CustomMetrics: map[string]float64{"r2": 0.81},
	}}
	v, ok := EffectiveAccuracy(dm)
	require.True(t, ok)
	assert.Equal(t, 0.81, v)

	dm.Metrics.CustomMetrics = map[string]float64{"R2": 0.77}
	v, ok = EffectiveAccuracy(dm)
	require.True(t, ok)
	assert.Equal(t, 0.77, v)
}

func TestEffectiveAccuracyNone(t *testing.T) {
	_, ok := EffectiveAccuracy(&DetectedModel{Detected: true})
	assert.False(t, ok)

	_, ok = EffectiveAccuracy(nil)
	assert.False(t, ok)

	_, ok = EffectiveAccuracy(&DetectedModel{Detected: false})
	assert.False(t, ok)
}

// recordingDetector counts fallback invocations.
type recordingDetector struct {
	calls  int
	result *DetectedModel
	err    error
}

func (d *recordingDetector) Detect(_ context.Context, _, _ string) (*DetectedModel, error) {
	d.calls++
	return d.result, d.err
}

func TestTwoTierSkipsFallbackWhenTaggedHits(t *testing.T) {
	fallback := &recordingDetector{}
	detector := TwoTier{Fallback: fallback}

	dm, err := detector.Detect(context.Background(), "code", "ACCURACY: 0.87\n")
	require.NoError(t, err)
	assert.True(t, dm.Detected)
	assert.Zero(t, fallback.calls) // no AI gateway call for well-formed sentinel output
}

func TestTwoTierFallsThroughOnMiss(t *testing.T) {
	acc := 0.6
	fallback := &recordingDetector{result: &DetectedModel{Detected: true, Metrics: Metrics{Accuracy: &acc}}}
	detector := TwoTier{Fallback: fallback}

	dm, err := detector.Detect(context.Background(), "code", "epoch 1 done\n")
	require.NoError(t, err)
	assert.True(t, dm.Detected)
	assert.Equal(t, 1, fallback.calls)
}

func TestTwoTierPropagatesFallbackError(t *testing.T) {
	fallback := &recordingDetector{err: errors.New("provider down")}
	detector := TwoTier{Fallback: fallback}

	_, err := detector.Detect(context.Background(), "code", "plain output\n")
	assert.Error(t, err)
}

func TestTwoTierNilFallback(t *testing.T) {
	dm, err := TwoTier{}.Detect(context.Background(), "code", "plain output\n")
	require.NoError(t, err)
	assert.False(t, dm.Detected)
}
