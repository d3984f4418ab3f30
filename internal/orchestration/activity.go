package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ActivityFunc is a named unit of side-effecting work invoked by the
// runtime. The runtime delivers activities at least once, so
// implementations must be idempotent.
type ActivityFunc func(ctx context.Context, input string) (string, error)

// Registry maps activity names to implementations.
type Registry struct {
	mu         sync.RWMutex
	activities map[string]ActivityFunc
}

func NewRegistry() *Registry {
	return &Registry{activities: make(map[string]ActivityFunc)}
}

func (r *Registry) Register(name string, fn ActivityFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[name] = fn
}

func (r *Registry) get(name string) (ActivityFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.activities[name]
	return fn, ok
}

// Guard deduplicates executions of the same logical activity invocation
// across redeliveries. (instanceID, seq) identifies an invocation: seq is
// the history position the result will occupy, which is stable across
// replays.
type Guard interface {
	Lookup(ctx context.Context, instanceID string, seq int) (string, bool, error)
	Store(ctx context.Context, instanceID string, seq int, result string) (string, error)
}

// Executor runs registered activities on behalf of the runtime with
// at-least-once semantics. When a Guard is configured, a redelivered
// invocation returns the first execution's recorded result instead of
// running the side effect again.
type Executor struct {
	registry *Registry
	guard    Guard // optional
}

// NewExecutor creates an executor over the registry. guard may be nil.
func NewExecutor(registry *Registry, guard Guard) *Executor {
	return &Executor{registry: registry, guard: guard}
}

// Execute runs the named activity for one invocation slot.
func (e *Executor) Execute(ctx context.Context, instanceID string, seq int, name, input string) (string, error) {
	fn, ok := e.registry.get(name)
	if !ok {
		return "", fmt.Errorf("unknown activity: %s", name)
	}

	if e.guard != nil {
		res, found, err := e.guard.Lookup(ctx, instanceID, seq)
		if err != nil {
			slog.Warn("Activity guard lookup failed",
				slog.String("instance_id", instanceID),
				slog.String("activity", name),
				slog.Any("error", err),
			)
		} else if found {
			activityDedupTotal.WithLabelValues(name).Inc()
			return res, nil
		}
	}

	out, err := fn(ctx, input)
	if err != nil {
		activityExecutionsTotal.WithLabelValues(name, "error").Inc()
		return "", fmt.Errorf("activity %s: %w", name, err)
	}

	if e.guard != nil {
		if stored, gerr := e.guard.Store(ctx, instanceID, seq, out); gerr != nil {
			slog.Warn("Activity guard store failed",
				slog.String("instance_id", instanceID),
				slog.String("activity", name),
				slog.Any("error", gerr),
			)
		} else {
			// first writer wins when two deliveries raced
			out = stored
		}
	}

	activityExecutionsTotal.WithLabelValues(name, "ok").Inc()
	return out, nil
}

// MemoryGuard is an in-process Guard for tests and single-node use.
type MemoryGuard struct {
	mu      sync.Mutex
	results map[string]string
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{results: make(map[string]string)}
}

func (g *MemoryGuard) Lookup(_ context.Context, instanceID string, seq int) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	res, ok := g.results[guardKey(instanceID, seq)]
	return res, ok, nil
}

func (g *MemoryGuard) Store(_ context.Context, instanceID string, seq int, result string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := guardKey(instanceID, seq)
	if existing, ok := g.results[key]; ok {
		return existing, nil
	}
	g.results[key] = result
	return result, nil
}

func guardKey(instanceID string, seq int) string {
	return fmt.Sprintf("%s#%d", instanceID, seq)
}
