package execution

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *PythonEngine {
	t.Helper()
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	engine, err := NewPythonEngine(python, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestPythonEngineCapturesStdout(t *testing.T) {
	engine := newTestEngine(t)

	res, err := engine.Execute(context.Background(), "print('ACCURACY: 0.87')")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "ACCURACY: 0.87\n", res.Stdout)
	assert.Empty(t, res.Error)
}

func TestPythonEngineStatePersistsAcrossCalls(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Execute(context.Background(), "model = 'fitted'")
	require.NoError(t, err)

	res, err := engine.Execute(context.Background(), "print(model)")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "fitted\n", res.Stdout)
}

func TestPythonEnginePreservesPartialStdoutOnFailure(t *testing.T) {
	engine := newTestEngine(t)

	res, err := engine.Execute(context.Background(), "print('before')\nraise ValueError('bad fit')")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "before\n", res.Stdout)
	assert.Contains(t, res.Error, "ValueError")
	assert.Contains(t, res.Error, "bad fit")
}

func TestPythonEngineUndefinedNameFails(t *testing.T) {
	engine := newTestEngine(t)

	res, err := engine.Execute(context.Background(), "print(undefined_variable)")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "NameError")
}

func TestPythonEngineSurvivesUserError(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Execute(context.Background(), "raise RuntimeError('boom')")
	require.NoError(t, err)

	res, err := engine.Execute(context.Background(), "print('still alive')")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "still alive\n", res.Stdout)
}

func TestClosedEngineRejectsExecute(t *testing.T) {
	engine := newTestEngine(t)
	require.NoError(t, engine.Close())

	_, err := engine.Execute(context.Background(), "print(1)")
	assert.Error(t, err)
}
