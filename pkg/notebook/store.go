package notebook

import (
	"context"
	"strings"
	"sync"

	"github.com/modelpad/modelpad/pkg/errors"
	"github.com/modelpad/modelpad/pkg/execution"
	"github.com/modelpad/modelpad/pkg/logging"
	"github.com/modelpad/modelpad/pkg/parser"
	"github.com/modelpad/modelpad/pkg/registry"
)

// Executor is the slice of the execution context the store needs.
type Executor interface {
	Execute(ctx context.Context, code string) (*execution.Result, error)
}

// Store is the ordered cell sequence for one notebook session. All
// mutations go through the store's mutex; cell runs themselves are
// serialized by the execution context, so the lock is never held across
// an interpreter call.
type Store struct {
	exec     Executor
	detector parser.Detector
	logger   *logging.Logger

	mu       sync.Mutex
	cells    []*Cell
	activeID string
}

// NewStore creates a store seeded with one empty code cell. The notebook
// is never empty.
func NewStore(exec Executor, detector parser.Detector, logger *logging.Logger) *Store {
	first := newCell(KindCode, "")
	return &Store{
		exec:     exec,
		detector: detector,
		logger:   logger,
		cells:    []*Cell{first},
		activeID: first.ID,
	}
}

// AddCell inserts a new empty cell immediately after afterID when given
// and found, else at the end. The new cell becomes active.
func (s *Store) AddCell(kind Kind, afterID string) string {
	return s.AddCellWithContent(kind, "", afterID)
}

// AddCellWithContent is AddCell with pre-populated content. AI-driven
// flows use it so generated code lands visibly in the notebook.
func (s *Store) AddCellWithContent(kind Kind, content, afterID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := newCell(kind, content)
	pos := len(s.cells)
	if afterID != "" {
		if i := s.indexOf(afterID); i >= 0 {
			pos = i + 1
		}
	}

	s.cells = append(s.cells, nil)
	copy(s.cells[pos+1:], s.cells[pos:])
	s.cells[pos] = cell
	s.activeID = cell.ID

	s.logger.Debug(logging.CategoryNotebook, "cell_added", "", map[string]any{
		"cell_id": cell.ID,
		"kind":    string(kind),
	})
	return cell.ID
}

// UpdateContent replaces a cell's content.
func (s *Store) UpdateContent(id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return errors.New(errors.ErrCodeNotFound, "cell not found")
	}
	s.cells[i].Content = content
	return nil
}

// DeleteCell removes a cell. Deleting the only remaining cell is a no-op
// so the notebook stays non-empty. When the deleted cell was active, the
// cell now at max(0, deletedIndex-1) becomes active.
func (s *Store) DeleteCell(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cells) <= 1 {
		return
	}
	i := s.indexOf(id)
	if i < 0 {
		return
	}

	wasActive := s.cells[i].ID == s.activeID
	s.cells = append(s.cells[:i], s.cells[i+1:]...)
	if wasActive {
		next := i - 1
		if next < 0 {
			next = 0
		}
		s.activeID = s.cells[next].ID
	}
}

// MoveCell swaps a cell with its neighbor in the given direction. No-op
// at either boundary or for an unknown id.
func (s *Store) MoveCell(id string, dir Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}

	j := i
	switch dir {
	case DirectionUp:
		j = i - 1
	case DirectionDown:
		j = i + 1
	}
	if j < 0 || j >= len(s.cells) || j == i {
		return
	}
	s.cells[i], s.cells[j] = s.cells[j], s.cells[i]
}

// RunCell executes a code cell and attaches its output. Markdown cells
// and unknown ids are no-ops. Prior output, error and detection are
// cleared up front; IsRunning is cleared on every exit path. Detection
// runs only when the cell produced stdout and no execution error.
func (s *Store) RunCell(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 || s.cells[i].Kind != KindCode || s.exec == nil {
		s.mu.Unlock()
		return nil
	}
	cell := s.cells[i]
	code := cell.Content
	cell.IsRunning = true
	cell.Output = ""
	cell.ErrorText = ""
	cell.Detected = nil
	s.mu.Unlock()

	defer s.setRunning(id, false)

	res, err := s.exec.Execute(ctx, code)
	if err != nil {
		s.storeOutcome(id, "", err.Error())
		s.logger.Error(logging.CategoryExecution, "engine_fault", err.Error(), map[string]any{"cell_id": id})
		return errors.Wrap(err, errors.ErrCodeExecution, "cell execution failed")
	}
	s.storeOutcome(id, res.Stdout, res.Error)

	if res.Success && res.Error == "" && strings.TrimSpace(res.Stdout) != "" && s.detector != nil {
		dm, derr := s.detector.Detect(ctx, code, res.Stdout)
		if derr != nil {
			s.logger.Warn(logging.CategoryDetection, "detect_failed", derr.Error(), map[string]any{"cell_id": id})
		} else if dm != nil && dm.Detected {
			s.attachDetection(id, dm)
			s.logger.Info(logging.CategoryDetection, "model_detected", dm.ModelType, map[string]any{"cell_id": id})
		}
	}
	return nil
}

// RunAllCells runs every code cell sequentially in notebook order. Later
// cells may depend on interpreter state left by earlier ones, so runs
// never overlap. The first engine fault stops the pass.
func (s *Store) RunAllCells(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.cells))
	for _, c := range s.cells {
		if c.Kind == KindCode {
			ids = append(ids, c.ID)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.RunCell(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ClearAllOutputs clears output, error and detection on every cell.
// Content and order are untouched.
func (s *Store) ClearAllOutputs() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.cells {
		c.Output = ""
		c.ErrorText = ""
		c.Detected = nil
	}
}

// Cells returns a snapshot copy of the cell sequence.
func (s *Store) Cells() []Cell {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Cell, len(s.cells))
	for i, c := range s.cells {
		out[i] = *c
	}
	return out
}

// Cell returns a snapshot of one cell by id.
func (s *Store) Cell(id string) (Cell, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Cell{}, false
	}
	return *s.cells[i], true
}

// ActiveCellID returns the currently active cell's id.
func (s *Store) ActiveCellID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Entries builds the registry snapshot in cell order.
func (s *Store) Entries() []registry.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]registry.Entry, len(s.cells))
	for i, c := range s.cells {
		out[i] = registry.Entry{CellID: c.ID, Detected: c.Detected}
	}
	return out
}

func (s *Store) indexOf(id string) int {
	for i, c := range s.cells {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) setRunning(id string, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.cells[i].IsRunning = running
	}
}

func (s *Store) storeOutcome(id, stdout, errText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.cells[i].Output = stdout
		s.cells[i].ErrorText = errText
	}
}

func (s *Store) attachDetection(id string, dm *parser.DetectedModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.cells[i].Detected = dm
	}
}
