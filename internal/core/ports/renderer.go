package ports

import "time"

// Renderer presents work item progress as it happens.
// It is driven by span lifecycle events, decoupled from the final result report.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// OnPlanEmit is called once per phase with the names of the planned work items.
	OnPlanEmit(names []string)

	// OnTaskStart is called when a work item begins execution.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a work item emits output.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a work item finishes.
	OnTaskComplete(spanID string, endTime time.Time, err error)

	// Stop flushes any buffered output.
	Stop() error
}
