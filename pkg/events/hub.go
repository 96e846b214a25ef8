// Package events fan-outs notebook activity to subscribers, primarily
// the WebSocket endpoint.
package events

import (
	"sync"
	"time"
)

// Event types published by the server and workflow layers.
const (
	TypeCellStarted         = "cell.started"
	TypeCellCompleted       = "cell.completed"
	TypeModelDetected       = "model.detected"
	TypeExperimentStarted   = "experiment.started"
	TypeExperimentCompleted = "experiment.completed"
	TypeExperimentFailed    = "experiment.failed"
	TypeBatchProgress       = "batch.progress"
	TypeRunSaved            = "run.saved"
)

// Event is one notebook activity message.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	CellID    string    `json:"cellId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const subscriberBuffer = 64

// Hub fan-outs events to any number of subscribers. Publishing never
// blocks; a subscriber that cannot keep up loses events.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool
}

// NewHub constructs an event hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan Event]struct{})}
}

// Publish notifies all subscribers. Non-blocking; drops on full buffers.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a buffered channel of future events and a cleanup
// func. The channel is closed by the cleanup func or by Close.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Close shuts down the hub and closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}
