package execution

import "time"

// Status is a SessionExecution lifecycle state.
type Status string

const (
	StatusPending         Status = "pending"
	StatusRunning         Status = "running"
	StatusWaitingForInput Status = "waiting_for_input"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusCancelled       Status = "cancelled"
	// StatusDetached means the manager lost the ability to confirm the
	// process is alive without receiving a terminal signal. The session
	// may still be producing output; detached is recoverable, not failed.
	StatusDetached Status = "detached"
)

// Terminal reports whether the status is a one-way end state. Detached is
// not terminal: a later confirmed exit moves the execution to its true
// terminal state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// SessionExecution is one spawned run of the external agent process. The
// execution id is generated locally at spawn time and is always present.
// The session id belongs to the agent and stays empty until the agent's
// first structured response assigns it; it is set at most once.
type SessionExecution struct {
	ID          string    `json:"execution_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Project     string    `json:"project"`
	Skill       string    `json:"skill"`
	ResumedFrom string    `json:"resumed_from,omitempty"`
	Status      Status    `json:"status"`
	Started     time.Time `json:"started"`
	Updated     time.Time `json:"updated"`
	CostUSD     float64   `json:"cost_usd,omitempty"`
}
