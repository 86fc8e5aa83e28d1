package report

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/sawolford/onsub/internal/core/domain"
)

// Record is one line of the JSON result stream.
type Record struct {
	RunID    string `json:"run_id"`
	Phase    string `json:"phase"`
	Location string `json:"location"`
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
}

// JSONWriter streams results as JSON lines tagged with a run identifier.
type JSONWriter struct {
	mu    sync.Mutex
	enc   *json.Encoder
	runID string
	err   error
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(w io.Writer, runID string) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w), runID: runID}
}

// Write encodes one result. The first encoding error is kept and reported by Err.
func (j *JSONWriter) Write(r domain.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return
	}
	j.err = j.enc.Encode(Record{
		RunID:    j.runID,
		Phase:    string(r.Phase),
		Location: r.Location,
		Command:  r.Command,
		ExitCode: r.ExitCode,
		Output:   r.Output,
	})
}

// Err returns the first encoding error.
func (j *JSONWriter) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}
