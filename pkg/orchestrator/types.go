// Package orchestrator drives batches of AI-suggested modeling
// experiments through the notebook, one at a time.
package orchestrator

// Status is the per-experiment state machine. Terminal states are left
// only by starting a brand-new batch; experiments are never retried in
// place.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Experiment is one candidate modeling approach: runnable code plus a
// rationale, tracked through the status machine above.
type Experiment struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Code        string  `json:"code"`
	Status      Status  `json:"status"`
	Accuracy    float64 `json:"accuracy"`
	Output      string  `json:"output,omitempty"`
	Error       string  `json:"error,omitempty"`
	CellID      string  `json:"cellId,omitempty"`

	// Unparseable marks a completed experiment whose output yielded no
	// accuracy by any detector. Accuracy stays 0 in that case, which
	// would otherwise be indistinguishable from a genuinely
	// zero-accuracy model.
	Unparseable bool `json:"unparseable,omitempty"`
}
