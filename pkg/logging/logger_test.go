package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesSessionEvents(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "sess-1")
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Info(CategoryExecution, "cell_run", "ran cell", map[string]any{
		"cell_id": "c1",
	}))

	events := readEvents(t, filepath.Join(dir, "sessions", "sess-1.jsonl"))
	require.Len(t, events, 1)
	assert.Equal(t, LevelInfo, events[0].Level)
	assert.Equal(t, CategoryExecution, events[0].Category)
	assert.Equal(t, "sess-1", events[0].SessionID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestErrorsDuplicatedToErrorLog(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "sess-2")
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Error(CategoryGateway, "ai_request_failed", "boom", nil))
	require.NoError(t, logger.Info(CategoryGateway, "ai_request", "ok", nil))

	errEvents := readEvents(t, filepath.Join(dir, "errors.jsonl"))
	require.Len(t, errEvents, 1)
	assert.Equal(t, "ai_request_failed", errEvents[0].EventType)
}

func TestMinLevelFiltersDebug(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, "sess-3")
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Debug(CategoryDetection, "tier1_miss", "no sentinel lines", nil))

	events := readEvents(t, filepath.Join(dir, "sessions", "sess-3.jsonl"))
	assert.Empty(t, events)
}

func TestDiscardLoggerIsSafe(t *testing.T) {
	logger := NewDiscard()
	assert.NoError(t, logger.Info(CategoryNotebook, "noop", "", nil))

	var nilLogger *Logger
	assert.NoError(t, nilLogger.Log(Event{Level: LevelInfo}))
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	return events
}
