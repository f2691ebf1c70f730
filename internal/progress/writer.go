// Package progress streams pipeline progress as newline-delimited JSON.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/unalkalkan/pdf2epub/internal/pipeline"
	"github.com/unalkalkan/pdf2epub/pkg/types"
)

// ContentType is the media type of a progress stream
const ContentType = "application/x-ndjson"

// Event types
const (
	EventProgress = "progress"
	EventResult   = "result"
	EventError    = "error"
)

// Event is one line of the stream
type Event struct {
	Type       string            `json:"type"`
	Stage      pipeline.Stage    `json:"stage,omitempty"`
	Done       int               `json:"done,omitempty"`
	Total      int               `json:"total,omitempty"`
	Conversion *types.Conversion `json:"conversion,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Writer encodes events as NDJSON, flushing after every line when the
// underlying writer supports it. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	enc     *json.Encoder
	flusher http.Flusher
	err     error
}

// NewWriter creates a progress writer on top of w
func NewWriter(w io.Writer) *Writer {
	pw := &Writer{enc: json.NewEncoder(w)}
	if f, ok := w.(http.Flusher); ok {
		pw.flusher = f
	}
	return pw
}

// Progress writes a progress event. Its signature matches
// pipeline.ProgressCallback; write errors are kept for Err.
func (w *Writer) Progress(p pipeline.Progress) {
	w.write(Event{Type: EventProgress, Stage: p.Stage, Done: p.Done, Total: p.Total})
}

// Result writes the final event of a successful run
func (w *Writer) Result(c *types.Conversion) error {
	w.write(Event{Type: EventResult, Conversion: c})
	return w.Err()
}

// Error writes the final event of a failed run
func (w *Writer) Error(err error) error {
	w.write(Event{Type: EventError, Error: err.Error()})
	return w.Err()
}

// Err returns the first write error
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) write(e Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	if err := w.enc.Encode(e); err != nil {
		w.err = fmt.Errorf("failed to write progress event: %w", err)
		return
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
}
