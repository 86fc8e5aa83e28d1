package domain

import "fmt"

// Phase identifies the scheduler pass that produced a result.
type Phase string

const (
	// PhaseConstruct materializes missing directories.
	PhaseConstruct Phase = "construct"
	// PhaseRun executes the requested command.
	PhaseRun Phase = "run"
)

// Result is the outcome of one work item.
type Result struct {
	Location  string
	Command   string
	ExitCode  int
	Output    string
	Phase     Phase
	Cancelled bool
}

// Failed reports whether the result counts as a failure.
func (r Result) Failed() bool {
	return r.ExitCode != 0
}

// Location formats the header identifying a directory and its section.
func Location(path, section string) string {
	return fmt.Sprintf("%s (%s)", path, section)
}
