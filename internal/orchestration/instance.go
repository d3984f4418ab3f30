package orchestration

import (
	"errors"
	"time"
)

// Status is the lifecycle state of an orchestration instance.
type Status string

const (
	StatusCreated         Status = "created"
	StatusRunning         Status = "running"
	StatusWaitingForEvent Status = "waiting_for_event"
	StatusCompleted       Status = "completed"
	StatusFaulted         Status = "faulted"
)

// EventKind classifies entries in an instance's history log.
type EventKind string

const (
	KindActivityCompleted EventKind = "activity_completed"
	KindEventReceived     EventKind = "event_received"
	KindSideEffect        EventKind = "side_effect"
)

// HistoryEvent is one recorded step of an instance. History is append-only
// and replaying it from empty state must reproduce the same decisions, so
// results of side-effecting or non-deterministic steps are stored here and
// reused instead of re-executed.
type HistoryEvent struct {
	Seq        int       `json:"seq"`
	Kind       EventKind `json:"kind"`
	Name       string    `json:"name"`
	Payload    string    `json:"payload"`
	RecordedAt time.Time `json:"recorded_at"`
}

// PendingEvent is an external event buffered for an instance that has not
// yet reached a matching wait point. Each is delivered to exactly one wait.
type PendingEvent struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Payload  string    `json:"payload"`
	RaisedAt time.Time `json:"raised_at"`
}

// Instance is one durable, resumable execution of a workflow. Owned and
// mutated exclusively by the Runtime; terminal instances are immutable.
type Instance struct {
	ID        string         `json:"id"`
	Workflow  string         `json:"workflow"`
	Input     string         `json:"input"`
	Status    Status         `json:"status"`
	WaitingOn string         `json:"waiting_on,omitempty"`
	Result    string         `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	History   []HistoryEvent `json:"history"`
	Pending   []PendingEvent `json:"pending"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsTerminal reports whether the instance has reached a final state.
func (in *Instance) IsTerminal() bool {
	return in.Status == StatusCompleted || in.Status == StatusFaulted
}

// InstanceStatus is the externally visible view of an instance.
type InstanceStatus struct {
	ID        string    `json:"instance_id"`
	Workflow  string    `json:"workflow"`
	Status    Status    `json:"status"`
	WaitingOn string    `json:"waiting_on,omitempty"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrInstanceNotFound is returned for an unknown instance identifier.
	ErrInstanceNotFound = errors.New("orchestration: instance not found")

	// ErrInstanceTerminal is returned when an event is raised against an
	// instance that already reached a final state.
	ErrInstanceTerminal = errors.New("orchestration: instance already terminal")

	// ErrSuspended is the sentinel a workflow returns when it reaches a
	// wait point with no matching event. The runtime persists progress and
	// parks the instance; it is never surfaced to callers.
	ErrSuspended = errors.New("orchestration: suspended awaiting event")

	// ErrNonDeterministic indicates the workflow code diverged from its
	// recorded history during replay.
	ErrNonDeterministic = errors.New("orchestration: workflow diverged from recorded history")
)
