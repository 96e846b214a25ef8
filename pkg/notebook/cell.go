// Package notebook holds the ordered cell sequence and the run workflow
// that ties execution and output detection together.
package notebook

import (
	"github.com/google/uuid"

	"github.com/modelpad/modelpad/pkg/parser"
)

// Kind discriminates cell content.
type Kind string

const (
	KindCode     Kind = "code"
	KindMarkdown Kind = "markdown"
)

// Direction for MoveCell.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Cell is one unit of notebook content. Code cells own at most one
// detection result from their most recent run.
type Cell struct {
	ID        string                `json:"id"`
	Kind      Kind                  `json:"kind"`
	Content   string                `json:"content"`
	Output    string                `json:"output,omitempty"`
	ErrorText string                `json:"error,omitempty"`
	IsRunning bool                  `json:"isRunning"`
	Detected  *parser.DetectedModel `json:"detectedModel,omitempty"`
}

func newCell(kind Kind, content string) *Cell {
	return &Cell{
		ID:      uuid.NewString(),
		Kind:    kind,
		Content: content,
	}
}
