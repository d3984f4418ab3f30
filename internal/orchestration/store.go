package orchestration

import (
	"context"
	"sync"
)

// Store persists orchestration instances, their history, and buffered
// events. Implementations must make SaveProgress atomic: status update,
// new history entries, and consumption of delivered events either all
// persist or none do, so a crash never loses a delivered event or records
// a step twice.
type Store interface {
	CreateInstance(ctx context.Context, inst *Instance) error

	// GetInstance loads an instance with its full history and pending
	// events, or ErrInstanceNotFound.
	GetInstance(ctx context.Context, id string) (*Instance, error)

	// SaveProgress persists the instance's current status fields, appends
	// history entries not yet stored (identified by Seq), and removes the
	// pending events whose IDs are listed in consumed.
	SaveProgress(ctx context.Context, inst *Instance, consumed []int64) error

	// BufferEvent enqueues an external event for the instance and returns
	// its assigned ID.
	BufferEvent(ctx context.Context, instanceID string, ev PendingEvent) (int64, error)
}

// MemoryStore is an in-process Store for tests and single-node use.
type MemoryStore struct {
	mu        sync.Mutex
	instances map[string]*Instance
	nextEvent int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{instances: make(map[string]*Instance)}
}

func (s *MemoryStore) CreateInstance(_ context.Context, inst *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID] = cloneInstance(inst)
	return nil
}

func (s *MemoryStore) GetInstance(_ context.Context, id string) (*Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return cloneInstance(inst), nil
}

func (s *MemoryStore) SaveProgress(_ context.Context, inst *Instance, consumed []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.instances[inst.ID]
	if !ok {
		return ErrInstanceNotFound
	}

	stored.Status = inst.Status
	stored.WaitingOn = inst.WaitingOn
	stored.Result = inst.Result
	stored.Error = inst.Error
	stored.UpdatedAt = inst.UpdatedAt
	for _, ev := range inst.History {
		if ev.Seq >= len(stored.History) {
			stored.History = append(stored.History, ev)
		}
	}

	if len(consumed) > 0 {
		drop := make(map[int64]bool, len(consumed))
		for _, id := range consumed {
			drop[id] = true
		}
		kept := stored.Pending[:0]
		for _, pe := range stored.Pending {
			if !drop[pe.ID] {
				kept = append(kept, pe)
			}
		}
		stored.Pending = kept
	}
	return nil
}

func (s *MemoryStore) BufferEvent(_ context.Context, instanceID string, ev PendingEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.instances[instanceID]
	if !ok {
		return 0, ErrInstanceNotFound
	}
	s.nextEvent++
	ev.ID = s.nextEvent
	stored.Pending = append(stored.Pending, ev)
	return ev.ID, nil
}

func cloneInstance(inst *Instance) *Instance {
	cp := *inst
	cp.History = append([]HistoryEvent(nil), inst.History...)
	cp.Pending = append([]PendingEvent(nil), inst.Pending...)
	return &cp
}
