package domain

import (
	"time"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
)

type RunStatus string

const (
	RunStatusRunning          RunStatus = "running"
	RunStatusCompleted        RunStatus = "completed"
	RunStatusFailed           RunStatus = "failed"
	RunStatusAbortedLoopLimit RunStatus = "aborted_loop_limit"
)

func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusAbortedLoopLimit
}

// LogEntry records one executed step. State is a snapshot taken after the
// step returned; Next is the destination the engine resolved from it.
type LogEntry struct {
	Sequence   int        `json:"sequence"`
	Node       string     `json:"node"`
	State      core.State `json:"state"`
	Next       Target     `json:"next"`
	Error      string     `json:"error,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	DurationMs int64      `json:"duration_ms"`
}

type Run struct {
	ID           string     `json:"run_id"`
	GraphID      string     `json:"graph_id"`
	Status       RunStatus  `json:"status"`
	State        core.State `json:"state"`
	ExecutionLog []LogEntry `json:"execution_log"`
	Error        string     `json:"error,omitempty"`
	Iterations   int        `json:"iterations"`
	Created      time.Time  `json:"created"`
	Finished     *time.Time `json:"finished,omitempty"`
}

// Path returns the executed node names in order.
func (r *Run) Path() []string {
	out := make([]string, 0, len(r.ExecutionLog))
	for _, e := range r.ExecutionLog {
		out = append(out, e.Node)
	}
	return out
}

// LastEntry returns the most recent log entry, or nil for an empty log.
func (r *Run) LastEntry() *LogEntry {
	if len(r.ExecutionLog) == 0 {
		return nil
	}
	return &r.ExecutionLog[len(r.ExecutionLog)-1]
}

// Clone deep-copies the run so stored records cannot be mutated by callers.
func (r *Run) Clone() *Run {
	out := *r
	out.State = r.State.Clone()
	out.ExecutionLog = make([]LogEntry, len(r.ExecutionLog))
	for i, e := range r.ExecutionLog {
		e.State = e.State.Clone()
		out.ExecutionLog[i] = e
	}
	if r.Finished != nil {
		f := *r.Finished
		out.Finished = &f
	}
	return &out
}
