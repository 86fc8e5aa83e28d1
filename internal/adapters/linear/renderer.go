// Package linear provides a line-oriented progress renderer. Lines from
// concurrent work items are interleaved in arrival order, each with a prefix.
package linear

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"github.com/sawolford/onsub/internal/ui/output"
	"github.com/sawolford/onsub/internal/ui/style"
)

// Verbosity levels that switch on progress lines.
const (
	VerboseStart    = 4
	VerboseComplete = 5
)

// Renderer implements ports.Renderer for the command line.
type Renderer struct {
	w      io.Writer
	out    *termenv.Output
	starts bool
	ends   bool
	stream bool

	mu      sync.Mutex
	tasks   map[string]*taskState
	buffers map[string]*bytes.Buffer
}

type taskState struct {
	name      string
	startTime time.Time
}

// NewRenderer creates a Renderer writing to w. Start and completion lines
// depend on verbose; stream echoes work item output line by line.
func NewRenderer(w io.Writer, profile func() termenv.Profile, verbose int, stream bool) *Renderer {
	if w == nil {
		w = os.Stderr
	}
	if profile == nil {
		profile = output.ColorProfileANSI
	}

	return &Renderer{
		w:       w,
		out:     output.NewWithProfile(w, profile),
		starts:  verbose >= VerboseStart,
		ends:    verbose >= VerboseComplete,
		stream:  stream,
		tasks:   make(map[string]*taskState),
		buffers: make(map[string]*bytes.Buffer),
	}
}

// Quiet reports whether the renderer would print nothing at all.
func (r *Renderer) Quiet() bool {
	return !r.starts && !r.ends && !r.stream
}

// Stop flushes all remaining partial lines.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for spanID := range r.buffers {
		r.flushBufferLocked(spanID)
	}
	return nil
}

// OnPlanEmit prints the number of planned work items.
func (r *Renderer) OnPlanEmit(names []string) {
	if !r.starts {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.w, "%s\n", r.out.String(fmt.Sprintf("planned %d work item(s)", len(names))).Faint())
}

// OnTaskStart registers a work item and prints its start line.
func (r *Renderer) OnTaskStart(spanID, _ string, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[spanID] = &taskState{name: name, startTime: startTime}
	r.buffers[spanID] = new(bytes.Buffer)

	if r.starts {
		_, _ = fmt.Fprintf(r.w, "%s %s\n", r.prefix(name), r.out.String(style.Circle+" started").Faint())
	}
}

// OnTaskLog buffers output and prints complete lines when streaming.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	if !r.stream {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	buf := r.buffers[spanID]
	buf.Write(data)

	for {
		i := bytes.IndexByte(buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		r.printLineLocked(task.name, buf.Next(i+1))
	}
}

// OnTaskComplete flushes remaining output and prints the completion line.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	r.flushBufferLocked(spanID)
	delete(r.tasks, spanID)
	delete(r.buffers, spanID)

	if !r.ends {
		return
	}

	duration := endTime.Sub(task.startTime).Round(time.Millisecond)
	if err != nil {
		symbol := r.out.String(style.Cross).Foreground(termenv.ANSIRed).String()
		_, _ = fmt.Fprintf(r.w, "%s %s failed after %v: %v\n", r.prefix(task.name), symbol, duration, err)
		return
	}
	symbol := r.out.String(style.Check).Foreground(termenv.ANSIGreen).String()
	_, _ = fmt.Fprintf(r.w, "%s %s completed in %v\n", r.prefix(task.name), symbol, duration)
}

func (r *Renderer) prefix(name string) string {
	return r.out.String("[" + name + "]").Faint().String()
}

// flushBufferLocked prints a pending partial line. Must be called with r.mu held.
func (r *Renderer) flushBufferLocked(spanID string) {
	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	buf := r.buffers[spanID]
	if buf.Len() > 0 {
		r.printLineLocked(task.name, buf.Bytes())
		buf.Reset()
	}
}

// printLineLocked prints one output line. Must be called with r.mu held.
func (r *Renderer) printLineLocked(name string, line []byte) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.w, "%s %s\n", r.prefix(name), line)
}
