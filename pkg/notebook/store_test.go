package notebook

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelpad/modelpad/pkg/execution"
	"github.com/modelpad/modelpad/pkg/logging"
	"github.com/modelpad/modelpad/pkg/parser"
)

// fakeExecutor records executed code and returns scripted results keyed
// by a substring of the code.
type fakeExecutor struct {
	executed []string
	results  map[string]*execution.Result
	fault    error
}

func (f *fakeExecutor) Execute(_ context.Context, code string) (*execution.Result, error) {
	f.executed = append(f.executed, code)
	if f.fault != nil {
		return nil, f.fault
	}
	for key, res := range f.results {
		if strings.Contains(code, key) {
			return res, nil
		}
	}
	return &execution.Result{Success: true, Stdout: ""}, nil
}

type fakeDetector struct {
	calls  int
	result *parser.DetectedModel
}

func (f *fakeDetector) Detect(_ context.Context, _, _ string) (*parser.DetectedModel, error) {
	f.calls++
	if f.result != nil {
		return f.result, nil
	}
	return &parser.DetectedModel{}, nil
}

func newTestStore(exec Executor, det parser.Detector) *Store {
	return NewStore(exec, det, logging.NewDiscard())
}

func TestStoreStartsWithOneCell(t *testing.T) {
	s := newTestStore(&fakeExecutor{}, nil)
	cells := s.Cells()
	require.Len(t, cells, 1)
	assert.Equal(t, KindCode, cells[0].Kind)
	assert.Equal(t, cells[0].ID, s.ActiveCellID())
}

func TestAddCellPlacement(t *testing.T) {
	s := newTestStore(&fakeExecutor{}, nil)
	first := s.Cells()[0].ID

	end := s.AddCell(KindMarkdown, "")
	mid := s.AddCell(KindCode, first)

	cells := s.Cells()
	require.Len(t, cells, 3)
	assert.Equal(t, []string{first, mid, end}, []string{cells[0].ID, cells[1].ID, cells[2].ID})
	assert.Equal(t, mid, s.ActiveCellID())

	// unknown afterID appends at the end
	tail := s.AddCell(KindCode, "no-such-cell")
	cells = s.Cells()
	assert.Equal(t, tail, cells[len(cells)-1].ID)
}

func TestAddCellWithContent(t *testing.T) {
	s := newTestStore(&fakeExecutor{}, nil)
	id := s.AddCellWithContent(KindCode, "print('hi')", "")
	cell, ok := s.Cell(id)
	require.True(t, ok)
	assert.Equal(t, "print('hi')", cell.Content)
}

func TestDeleteOnlyCellIsNoOp(t *testing.T) {
	s := newTestStore(&fakeExecutor{}, nil)
	only := s.Cells()[0].ID

	s.DeleteCell(only)

	cells := s.Cells()
	require.Len(t, cells, 1)
	assert.Equal(t, only, cells[0].ID)
}

func TestDeleteActiveCellMovesActiveUp(t *testing.T) {
	s := newTestStore(&fakeExecutor{}, nil)
	first := s.Cells()[0].ID
	second := s.AddCell(KindCode, "")
	third := s.AddCell(KindCode, "")
	require.Equal(t, third, s.ActiveCellID())

	s.DeleteCell(third)
	assert.Equal(t, second, s.ActiveCellID())
	assert.Len(t, s.Cells(), 2)

	s.DeleteCell(second)
	assert.Equal(t, first, s.ActiveCellID())
}

func TestDeleteInactiveCellKeepsActive(t *testing.T) {
	s := newTestStore(&fakeExecutor{}, nil)
	first := s.Cells()[0].ID
	second := s.AddCell(KindCode, "")

	s.DeleteCell(first)
	assert.Equal(t, second, s.ActiveCellID())
	assert.Len(t, s.Cells(), 1)
}

func TestMoveCellBoundaries(t *testing.T) {
	s := newTestStore(&fakeExecutor{}, nil)
	first := s.Cells()[0].ID
	second := s.AddCell(KindCode, "")

	s.MoveCell(first, DirectionUp) // boundary no-op
	assert.Equal(t, first, s.Cells()[0].ID)

	s.MoveCell(first, DirectionDown)
	cells := s.Cells()
	assert.Equal(t, []string{second, first}, []string{cells[0].ID, cells[1].ID})

	s.MoveCell(first, DirectionDown) // boundary no-op
	assert.Equal(t, first, s.Cells()[1].ID)
}

func TestRunCellStoresOutputAndDetection(t *testing.T) {
	exec := &fakeExecutor{results: map[string]*execution.Result{
		"train": {Success: true, Stdout: "ACCURACY: 0.9\n"},
	}}
	acc := 0.9
	det := &fakeDetector{result: &parser.DetectedModel{Detected: true, Metrics: parser.Metrics{Accuracy: &acc}}}
	s := newTestStore(exec, det)

	id := s.AddCellWithContent(KindCode, "train()", "")
	require.NoError(t, s.RunCell(context.Background(), id))

	cell, _ := s.Cell(id)
	assert.False(t, cell.IsRunning)
	assert.Equal(t, "ACCURACY: 0.9\n", cell.Output)
	assert.Empty(t, cell.ErrorText)
	require.NotNil(t, cell.Detected)
	assert.Equal(t, 1, det.calls)
}

func TestRunCellSkipsDetectionOnError(t *testing.T) {
	exec := &fakeExecutor{results: map[string]*execution.Result{
		"boom": {Success: false, Stdout: "partial\n", Error: "ValueError: boom"},
	}}
	det := &fakeDetector{}
	s := newTestStore(exec, det)

	id := s.AddCellWithContent(KindCode, "boom()", "")
	require.NoError(t, s.RunCell(context.Background(), id))

	cell, _ := s.Cell(id)
	assert.Equal(t, "partial\n", cell.Output)
	assert.Equal(t, "ValueError: boom", cell.ErrorText)
	assert.Nil(t, cell.Detected)
	assert.Zero(t, det.calls)
}

func TestRunCellSkipsDetectionOnEmptyStdout(t *testing.T) {
	exec := &fakeExecutor{results: map[string]*execution.Result{
		"silent": {Success: true, Stdout: "  \n"},
	}}
	det := &fakeDetector{}
	s := newTestStore(exec, det)

	id := s.AddCellWithContent(KindCode, "silent()", "")
	require.NoError(t, s.RunCell(context.Background(), id))
	assert.Zero(t, det.calls)
}

func TestRunCellClearsPriorState(t *testing.T) {
	exec := &fakeExecutor{results: map[string]*execution.Result{
		"ok": {Success: true, Stdout: "fresh\n"},
	}}
	s := newTestStore(exec, nil)

	id := s.AddCellWithContent(KindCode, "ok()", "")
	require.NoError(t, s.RunCell(context.Background(), id))

	require.NoError(t, s.UpdateContent(id, "ok() # again"))
	require.NoError(t, s.RunCell(context.Background(), id))

	cell, _ := s.Cell(id)
	assert.Equal(t, "fresh\n", cell.Output)
	assert.Nil(t, cell.Detected)
}

func TestRunCellEngineFaultClearsIsRunning(t *testing.T) {
	exec := &fakeExecutor{fault: errors.New("interpreter died")}
	s := newTestStore(exec, nil)

	id := s.AddCellWithContent(KindCode, "anything", "")
	err := s.RunCell(context.Background(), id)
	require.Error(t, err)

	cell, _ := s.Cell(id)
	assert.False(t, cell.IsRunning)
	assert.Contains(t, cell.ErrorText, "interpreter died")
}

func TestRunCellNoOpForMarkdown(t *testing.T) {
	exec := &fakeExecutor{}
	s := newTestStore(exec, nil)

	id := s.AddCellWithContent(KindMarkdown, "# notes", "")
	require.NoError(t, s.RunCell(context.Background(), id))
	assert.Empty(t, exec.executed)
}

func TestRunAllCellsSequentialOrder(t *testing.T) {
	exec := &fakeExecutor{}
	s := newTestStore(exec, nil)

	first := s.Cells()[0].ID
	require.NoError(t, s.UpdateContent(first, "step1"))
	s.AddCellWithContent(KindMarkdown, "# skip me", first)
	s.AddCellWithContent(KindCode, "step2", s.Cells()[1].ID)
	s.AddCellWithContent(KindCode, "step3", s.Cells()[2].ID)

	require.NoError(t, s.RunAllCells(context.Background()))
	assert.Equal(t, []string{"step1", "step2", "step3"}, exec.executed)
}

func TestClearAllOutputs(t *testing.T) {
	exec := &fakeExecutor{results: map[string]*execution.Result{
		"ok": {Success: true, Stdout: "out\n"},
	}}
	s := newTestStore(exec, nil)

	id := s.AddCellWithContent(KindCode, "ok()", "")
	require.NoError(t, s.RunCell(context.Background(), id))

	s.ClearAllOutputs()

	cell, _ := s.Cell(id)
	assert.Empty(t, cell.Output)
	assert.Empty(t, cell.ErrorText)
	assert.Nil(t, cell.Detected)
	assert.Equal(t, "ok()", cell.Content)
}

func TestEntriesPreserveCellOrder(t *testing.T) {
	s := newTestStore(&fakeExecutor{}, nil)
	second := s.AddCell(KindCode, "")

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[1].CellID)
	assert.Nil(t, entries[0].Detected)
}
