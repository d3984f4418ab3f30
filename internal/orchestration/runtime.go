package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WorkflowFunc is the body of a workflow. It runs from the top on every
// activation against a Context that short-circuits recorded steps, and
// either completes with a terminal result string, suspends by returning
// ErrSuspended from a wait point, or faults with any other error.
type WorkflowFunc func(ctx *Context) (string, error)

// Runtime drives durable workflow instances: it creates them, replays and
// advances them deterministically, correlates external events to suspended
// wait points, and persists progress at every suspension and terminal
// transition.
type Runtime struct {
	store    Store
	executor *Executor

	mu        sync.RWMutex
	workflows map[string]WorkflowFunc

	locks sync.Map // instance ID -> *sync.Mutex
}

func NewRuntime(store Store, executor *Executor) *Runtime {
	return &Runtime{
		store:     store,
		executor:  executor,
		workflows: make(map[string]WorkflowFunc),
	}
}

// RegisterWorkflow makes a workflow startable under the given name.
func (r *Runtime) RegisterWorkflow(name string, fn WorkflowFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[name] = fn
}

func (r *Runtime) workflow(name string) (WorkflowFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.workflows[name]
	return fn, ok
}

// Start creates a new instance of the named workflow and runs its first
// activation. The workflow's own outcome (including a fault) is reported
// through the instance status, not through the returned error.
func (r *Runtime) Start(ctx context.Context, workflow, input string) (string, error) {
	if _, ok := r.workflow(workflow); !ok {
		return "", fmt.Errorf("unknown workflow: %s", workflow)
	}

	now := time.Now().UTC()
	inst := &Instance{
		ID:        uuid.NewString(),
		Workflow:  workflow,
		Input:     input,
		Status:    StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateInstance(ctx, inst); err != nil {
		return "", fmt.Errorf("create instance: %w", err)
	}
	instancesStartedTotal.WithLabelValues(workflow).Inc()

	mu := r.instanceLock(inst.ID)
	mu.Lock()
	defer mu.Unlock()
	if err := r.activateLocked(ctx, inst.ID); err != nil {
		return "", err
	}
	return inst.ID, nil
}

// RaiseEvent buffers an external event for the instance and immediately
// attempts to advance it. Events addressed to an instance that is not yet
// waiting on the name stay buffered for a future wait; events for terminal
// instances are rejected.
func (r *Runtime) RaiseEvent(ctx context.Context, instanceID, eventName, payload string) error {
	mu := r.instanceLock(instanceID)
	mu.Lock()
	defer mu.Unlock()

	inst, err := r.store.GetInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if inst.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrInstanceTerminal, instanceID)
	}

	if _, err := r.store.BufferEvent(ctx, instanceID, PendingEvent{
		Name:     eventName,
		Payload:  payload,
		RaisedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("buffer event: %w", err)
	}
	eventsRaisedTotal.WithLabelValues(eventName).Inc()

	return r.activateLocked(ctx, instanceID)
}

// Status returns the externally visible state of an instance.
func (r *Runtime) Status(ctx context.Context, instanceID string) (*InstanceStatus, error) {
	inst, err := r.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return &InstanceStatus{
		ID:        inst.ID,
		Workflow:  inst.Workflow,
		Status:    inst.Status,
		WaitingOn: inst.WaitingOn,
		Result:    inst.Result,
		Error:     inst.Error,
		CreatedAt: inst.CreatedAt,
		UpdatedAt: inst.UpdatedAt,
	}, nil
}

// Resume re-runs a non-terminal instance's activation, e.g. after a
// process restart left work unpersisted. Replaying is safe: recorded
// steps short-circuit and only the step past the last recorded point
// executes.
func (r *Runtime) Resume(ctx context.Context, instanceID string) error {
	mu := r.instanceLock(instanceID)
	mu.Lock()
	defer mu.Unlock()
	return r.activateLocked(ctx, instanceID)
}

func (r *Runtime) instanceLock(id string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// activateLocked runs one activation of the instance: replay recorded
// history, then advance until the workflow completes, suspends, or faults.
// Caller holds the instance lock.
func (r *Runtime) activateLocked(ctx context.Context, instanceID string) error {
	inst, err := r.store.GetInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if inst.IsTerminal() {
		return nil
	}

	fn, ok := r.workflow(inst.Workflow)
	if !ok {
		return fmt.Errorf("unknown workflow: %s", inst.Workflow)
	}

	wctx := newContext(ctx, inst, r.executor)
	result, runErr := runWorkflow(fn, wctx)

	switch {
	case runErr == nil:
		inst.Status = StatusCompleted
		inst.Result = result
		inst.WaitingOn = ""
		instancesCompletedTotal.WithLabelValues(inst.Workflow, result).Inc()
		slog.Info("Instance completed",
			slog.String("instance_id", inst.ID),
			slog.String("workflow", inst.Workflow),
			slog.String("result", result),
		)
	case errors.Is(runErr, ErrSuspended):
		inst.Status = StatusWaitingForEvent
		inst.WaitingOn = wctx.waitingOn
	default:
		inst.Status = StatusFaulted
		inst.Error = runErr.Error()
		inst.WaitingOn = ""
		instancesFaultedTotal.WithLabelValues(inst.Workflow).Inc()
		slog.Error("Instance faulted",
			slog.String("instance_id", inst.ID),
			slog.String("workflow", inst.Workflow),
			slog.Any("error", runErr),
		)
	}

	inst.History = append(inst.History, wctx.newEvents...)
	inst.UpdatedAt = time.Now().UTC()

	if err := r.store.SaveProgress(ctx, inst, wctx.consumed); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// runWorkflow executes the workflow body, converting panics into faults
// so compensation-bearing defers inside the body have already run by the
// time the fault is recorded.
func runWorkflow(fn WorkflowFunc, wctx *Context) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("workflow panic: %v", rec)
		}
	}()
	return fn(wctx)
}
