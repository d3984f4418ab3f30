package orchestration

import (
	"errors"
	"fmt"
	"log/slog"
)

// CompensationScope ties cleanup activities to the outcome of a workflow
// run. A workflow registers a compensating activity as soon as the side
// effect it undoes has happened, and calls Commit on the success path.
// Finish, routed through a defer, runs every registered compensation on
// any other exit - business failure or unhandled error - before the
// runtime marks the instance terminal. Compensations execute through
// CallActivity, so they land in history and replay never re-issues them.
type CompensationScope struct {
	ctx       *Context
	actions   []compensationAction
	committed bool
}

type compensationAction struct {
	name  string
	input string
}

// NewCompensationScope creates a scope bound to this activation.
func (c *Context) NewCompensationScope() *CompensationScope {
	return &CompensationScope{ctx: c}
}

// Register arms a compensating activity. Call it immediately after the
// side effect it undoes has been performed.
func (s *CompensationScope) Register(activity, input string) {
	s.actions = append(s.actions, compensationAction{name: activity, input: input})
}

// Commit marks the run as fully successful; Finish becomes a no-op.
func (s *CompensationScope) Commit() {
	s.committed = true
}

// Finish runs the registered compensations in reverse order unless the
// scope was committed or the workflow is merely suspended at a wait
// point. It passes the workflow's result and error through, preserving
// the original error when a compensation itself fails.
func (s *CompensationScope) Finish(result string, err error) (string, error) {
	if s.committed || len(s.actions) == 0 || errors.Is(err, ErrSuspended) {
		return result, err
	}

	for i := len(s.actions) - 1; i >= 0; i-- {
		a := s.actions[i]
		if _, cerr := s.ctx.CallActivity(a.name, a.input); cerr != nil {
			compensationFailuresTotal.WithLabelValues(a.name).Inc()
			slog.Error("Compensation activity failed",
				slog.String("instance_id", s.ctx.InstanceID()),
				slog.String("activity", a.name),
				slog.Any("error", cerr),
			)
			if err == nil {
				err = fmt.Errorf("compensation %s: %w", a.name, cerr)
			}
			continue
		}
		compensationRunsTotal.WithLabelValues(a.name).Inc()
	}
	return result, err
}
