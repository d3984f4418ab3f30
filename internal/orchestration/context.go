package orchestration

import (
	"context"
	"fmt"
	"time"
)

// Context is the handle a workflow function uses to interact with the
// runtime during one activation. Every activation re-runs the workflow
// from the top; calls that already have a recorded history entry return
// the recorded result instead of executing again, so side effects happen
// at most once past each recorded point.
type Context struct {
	hostCtx   context.Context
	instance  *Instance
	executor  *Executor
	cursor    int
	newEvents []HistoryEvent
	consumed  []int64
	waitingOn string
}

func newContext(hostCtx context.Context, inst *Instance, executor *Executor) *Context {
	return &Context{
		hostCtx:  hostCtx,
		instance: inst,
		executor: executor,
	}
}

// InstanceID returns the identifier of the running instance.
func (c *Context) InstanceID() string {
	return c.instance.ID
}

// Input returns the workflow input supplied at start.
func (c *Context) Input() string {
	return c.instance.Input
}

// Replaying reports whether the next step would be served from history.
func (c *Context) Replaying() bool {
	return c.cursor < len(c.instance.History)
}

// CallActivity runs the named activity, or returns its recorded result
// when the call was already executed in a previous activation. Activities
// are delivered at least once: a crash between execution and history
// persistence re-runs the call, so activity implementations must be
// idempotent.
func (c *Context) CallActivity(name, input string) (string, error) {
	if ev := c.peek(); ev != nil {
		if ev.Kind != KindActivityCompleted || ev.Name != name {
			return "", fmt.Errorf("%w: expected %s %q, history has %s %q",
				ErrNonDeterministic, KindActivityCompleted, name, ev.Kind, ev.Name)
		}
		c.cursor++
		return ev.Payload, nil
	}

	seq := c.seq()
	out, err := c.executor.Execute(c.hostCtx, c.instance.ID, seq, name, input)
	if err != nil {
		return "", err
	}
	c.record(HistoryEvent{Seq: seq, Kind: KindActivityCompleted, Name: name, Payload: out})
	return out, nil
}

// WaitForEvent suspends the workflow until an external event with the
// given name is delivered. Buffered events raised before the wait point
// are consumed first, oldest first; each event resumes exactly one wait.
func (c *Context) WaitForEvent(name string) (string, error) {
	if ev := c.peek(); ev != nil {
		if ev.Kind != KindEventReceived || ev.Name != name {
			return "", fmt.Errorf("%w: expected %s %q, history has %s %q",
				ErrNonDeterministic, KindEventReceived, name, ev.Kind, ev.Name)
		}
		c.cursor++
		return ev.Payload, nil
	}

	if pe, ok := c.takePending(name); ok {
		c.record(HistoryEvent{Seq: c.seq(), Kind: KindEventReceived, Name: name, Payload: pe.Payload})
		return pe.Payload, nil
	}

	c.waitingOn = name
	return "", ErrSuspended
}

// SideEffect runs fn once and records its result; replay returns the
// recorded value. Use it for non-deterministic values (random numbers,
// clock reads) that must not change between activations.
func (c *Context) SideEffect(name string, fn func() (string, error)) (string, error) {
	if ev := c.peek(); ev != nil {
		if ev.Kind != KindSideEffect || ev.Name != name {
			return "", fmt.Errorf("%w: expected %s %q, history has %s %q",
				ErrNonDeterministic, KindSideEffect, name, ev.Kind, ev.Name)
		}
		c.cursor++
		return ev.Payload, nil
	}

	out, err := fn()
	if err != nil {
		return "", fmt.Errorf("side effect %s: %w", name, err)
	}
	c.record(HistoryEvent{Seq: c.seq(), Kind: KindSideEffect, Name: name, Payload: out})
	return out, nil
}

func (c *Context) peek() *HistoryEvent {
	if c.cursor < len(c.instance.History) {
		return &c.instance.History[c.cursor]
	}
	return nil
}

func (c *Context) seq() int {
	return len(c.instance.History) + len(c.newEvents)
}

func (c *Context) record(ev HistoryEvent) {
	ev.RecordedAt = time.Now().UTC()
	c.newEvents = append(c.newEvents, ev)
	c.cursor++
}

func (c *Context) takePending(name string) (PendingEvent, bool) {
	taken := make(map[int64]bool, len(c.consumed))
	for _, id := range c.consumed {
		taken[id] = true
	}
	for _, pe := range c.instance.Pending {
		if taken[pe.ID] || pe.Name != name {
			continue
		}
		c.consumed = append(c.consumed, pe.ID)
		return pe, true
	}
	return PendingEvent{}, false
}
