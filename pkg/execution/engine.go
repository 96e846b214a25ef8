// Package execution wraps the Python execution engine behind a small
// adapter. Interpreter state (imports, fitted models, globals) persists
// across calls: later cells and the model-export flow depend on state
// left by earlier runs.
package execution

import "context"

// Result is the outcome of executing one code block.
type Result struct {
	Success bool   `json:"success"`
	Stdout  string `json:"stdout"`
	Error   string `json:"error,omitempty"`
}

// Engine executes Python code blocks against one shared interpreter.
// Implementations are not safe for concurrent use; Context serializes
// access.
type Engine interface {
	// Execute runs a code block. A runtime failure in the user's code is
	// reported through Result (Success=false, partial Stdout preserved),
	// not through the error return; the error return signals an engine
	// fault (dead process, protocol breakage).
	//
	// Once started, a call is not cancellable and has no deadline: ctx is
	// only consulted before work begins.
	Execute(ctx context.Context, code string) (*Result, error)
	Close() error
}
