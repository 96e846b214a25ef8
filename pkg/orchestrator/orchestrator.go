package orchestrator

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/modelpad/modelpad/pkg/logging"
	"github.com/modelpad/modelpad/pkg/notebook"
	"github.com/modelpad/modelpad/pkg/parser"
)

// Accuracy fallback patterns scanned against raw stdout when detection
// found nothing. R^2 is checked first so regression output is not
// shadowed by an incidental "accuracy" mention further down.
var (
	r2Pattern       = regexp.MustCompile(`(?i)R\^2 score:\s*([0-9.]+)`)
	accuracyPattern = regexp.MustCompile(`(?i)Accuracy:\s*([0-9.]+)`)
)

// ErrBatchInFlight is returned by Begin and RunAll while a previous
// batch is still executing.
var ErrBatchInFlight = errors.New("an experiment batch is already running")

// Orchestrator runs one batch of experiments strictly sequentially
// against a notebook store. Experiments share the interpreter, so later
// code may depend on state left by earlier code; runs never overlap, and
// only one batch may be in flight at a time.
type Orchestrator struct {
	store  *notebook.Store
	logger *logging.Logger

	// OnExperimentDone, when set, is called after each experiment
	// reaches a terminal state, while the rest of the batch is still
	// pending. Set it before the first Begin; it is invoked without the
	// orchestrator lock held.
	OnExperimentDone func(Experiment)

	stopped atomic.Bool

	mu          sync.Mutex
	running     bool
	experiments []*Experiment
	done        int
	total       int
}

// New creates an orchestrator bound to a notebook store.
func New(store *notebook.Store, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{store: store, logger: logger}
}

// Begin stages a batch as the current one and marks the orchestrator
// busy. It fails with ErrBatchInFlight while a previous batch is still
// executing, so a new batch can never clear a stop request aimed at the
// old one. A successfully staged batch discards the previous (finished)
// batch and resets the stop flag.
func (o *Orchestrator) Begin(experiments []*Experiment) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return ErrBatchInFlight
	}

	for _, exp := range experiments {
		if exp.ID == "" {
			exp.ID = ulid.Make().String()
		}
		exp.Status = StatusPending
	}
	o.experiments = experiments
	o.done = 0
	o.total = len(experiments)
	o.running = true
	o.stopped.Store(false)
	return nil
}

// Run executes the batch staged by Begin, in order. The stop flag is
// consulted before each experiment starts; an experiment already running
// is never interrupted, and stopped-over experiments stay pending.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	experiments := o.experiments
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	for i, exp := range experiments {
		if o.stopped.Load() {
			o.logger.Info(logging.CategoryOrchestrator, "batch_stopped", "", map[string]any{
				"completed": i,
				"total":     len(experiments),
			})
			break
		}
		if err := o.RunOne(ctx, exp); err != nil {
			o.notifyDone(exp)
			return err
		}
		o.mu.Lock()
		o.done = i + 1
		o.mu.Unlock()
		o.notifyDone(exp)
	}
	return nil
}

// RunAll stages and runs a batch in one call.
func (o *Orchestrator) RunAll(ctx context.Context, experiments []*Experiment) error {
	if err := o.Begin(experiments); err != nil {
		return err
	}
	return o.Run(ctx)
}

// RunOne runs a single experiment: its code is inserted as a visible
// notebook cell, executed, and the accuracy extracted from the cell's
// detection or from the stdout fallback patterns. A user-code failure
// transitions to failed; an engine fault is returned to the caller.
func (o *Orchestrator) RunOne(ctx context.Context, exp *Experiment) error {
	o.setStatus(exp, StatusRunning)

	cellID := o.store.AddCellWithContent(notebook.KindCode, exp.Code, "")

	o.mu.Lock()
	exp.CellID = cellID
	o.mu.Unlock()

	if err := o.store.RunCell(ctx, cellID); err != nil {
		o.mu.Lock()
		exp.Status = StatusFailed
		exp.Error = err.Error()
		o.mu.Unlock()
		return err
	}

	cell, ok := o.store.Cell(cellID)
	if !ok {
		o.setStatus(exp, StatusFailed)
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	exp.Output = cell.Output
	if cell.ErrorText != "" {
		exp.Status = StatusFailed
		exp.Error = cell.ErrorText
		o.logger.Info(logging.CategoryOrchestrator, "experiment_failed", exp.Name, map[string]any{
			"cell_id": cellID,
			"error":   cell.ErrorText,
		})
		return nil
	}

	acc, found := parser.EffectiveAccuracy(cell.Detected)
	if !found {
		acc, found = scanAccuracy(cell.Output)
	}
	exp.Accuracy = acc
	exp.Unparseable = !found
	exp.Status = StatusCompleted

	o.logger.Info(logging.CategoryOrchestrator, "experiment_completed", exp.Name, map[string]any{
		"cell_id":     cellID,
		"accuracy":    acc,
		"unparseable": exp.Unparseable,
	})
	return nil
}

// Stop requests cooperative cancellation of the current batch. It takes
// effect at the next iteration boundary; in-flight work is not preempted.
// The request survives until that batch drains, even if a new batch is
// attempted in the meantime.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
}

// Progress returns completed-count over batch size, in [0,1]. An empty
// batch reports 1.
func (o *Orchestrator) Progress() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.total == 0 {
		return 1
	}
	return float64(o.done) / float64(o.total)
}

// Experiments returns a snapshot of the current batch in run order.
func (o *Orchestrator) Experiments() []Experiment {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Experiment, len(o.experiments))
	for i, exp := range o.experiments {
		out[i] = *exp
	}
	return out
}

// Ranking returns the completed experiments sorted descending by
// accuracy. Pending and failed entries are excluded. The sort is stable
// so ties keep run order.
func (o *Orchestrator) Ranking() []Experiment {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []Experiment
	for _, exp := range o.experiments {
		if exp.Status == StatusCompleted {
			out = append(out, *exp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Accuracy > out[j].Accuracy
	})
	return out
}

func (o *Orchestrator) notifyDone(exp *Experiment) {
	if o.OnExperimentDone == nil {
		return
	}
	o.mu.Lock()
	snapshot := *exp
	o.mu.Unlock()
	o.OnExperimentDone(snapshot)
}

func (o *Orchestrator) setStatus(exp *Experiment, status Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	exp.Status = status
}

func scanAccuracy(stdout string) (float64, bool) {
	for _, re := range []*regexp.Regexp{r2Pattern, accuracyPattern} {
		m := re.FindStringSubmatch(stdout)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
