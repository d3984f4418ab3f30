package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/acmeid/login-orchestrator/internal/config"
	"github.com/acmeid/login-orchestrator/internal/domain"
	"github.com/acmeid/login-orchestrator/internal/orchestration"
	"github.com/acmeid/login-orchestrator/internal/repository"
	"github.com/acmeid/login-orchestrator/internal/service/login"
	"github.com/acmeid/login-orchestrator/internal/workflow"
)

// memDirectory is an in-memory user store seeded per test.
type memDirectory struct {
	mu           sync.Mutex
	users        map[string]*domain.User
	loginsByUser map[uuid.UUID]int
}

func newMemDirectory(users ...*domain.User) *memDirectory {
	d := &memDirectory{users: make(map[string]*domain.User), loginsByUser: make(map[uuid.UUID]int)}
	for _, u := range users {
		d.users[u.Username] = u
	}
	return d
}

func (d *memDirectory) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[username]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (d *memDirectory) UpdateLastLogin(_ context.Context, userID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loginsByUser[userID]++
	return nil
}

// memChallenges is an in-memory challenge store that counts every port
// call so tests can assert on interaction shape, not just outcomes.
type memChallenges struct {
	mu sync.Mutex

	code     map[uuid.UUID]string
	attempts map[uuid.UUID]int
	hasMore  map[uuid.UUID]bool

	createCalls     int
	validateCalls   int
	incrementCalls  int
	setHasMoreCalls int
	invalidateCalls int

	validateErr error
}

func newMemChallenges() *memChallenges {
	return &memChallenges{
		code:     make(map[uuid.UUID]string),
		attempts: make(map[uuid.UUID]int),
		hasMore:  make(map[uuid.UUID]bool),
	}
}

func (s *memChallenges) Create(_ context.Context, userID uuid.UUID, code string) (*domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	s.code[userID] = code
	s.attempts[userID] = 0
	s.hasMore[userID] = true
	return &domain.Challenge{ID: uuid.New(), UserID: userID, Code: code, HasMore: true}, nil
}

func (s *memChallenges) ValidateAndConsume(_ context.Context, userID uuid.UUID, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validateCalls++
	if s.validateErr != nil {
		return false, s.validateErr
	}
	stored, ok := s.code[userID]
	if !ok || stored == "" || stored != code || !s.hasMore[userID] {
		return false, nil
	}
	s.code[userID] = ""
	return true, nil
}

func (s *memChallenges) Invalidate(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateCalls++
	s.code[userID] = ""
	return nil
}

func (s *memChallenges) IncrementAttempts(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incrementCalls++
	s.attempts[userID]++
	return s.attempts[userID], nil
}

func (s *memChallenges) SetHasMore(_ context.Context, userID uuid.UUID, hasMore bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setHasMoreCalls++
	s.hasMore[userID] = hasMore
	return nil
}

// memNotifier records every message sent.
type memNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *memNotifier) Send(_ context.Context, _ uuid.UUID, _ domain.Channel, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

type memAudit struct{}

func (memAudit) LogEvent(context.Context, repository.AuditEvent) error { return nil }

type fixture struct {
	runtime    *orchestration.Runtime
	store      *orchestration.MemoryStore
	challenges *memChallenges
	notifier   *memNotifier
	directory  *memDirectory
	alice      *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	alice := &domain.User{ID: uuid.New(), Username: "alice", PreferredChannel: domain.ChannelEmail}
	directory := newMemDirectory(alice)
	challenges := newMemChallenges()
	notifier := &memNotifier{}

	svc := login.NewService(config.MFAConfig{MaxAttempts: 5}, directory, challenges, notifier, memAudit{})

	store := orchestration.NewMemoryStore()
	registry := orchestration.NewRegistry()
	rt := orchestration.NewRuntime(store, orchestration.NewExecutor(registry, nil))
	workflow.Register(rt, registry, svc)

	return &fixture{runtime: rt, store: store, challenges: challenges, notifier: notifier, directory: directory, alice: alice}
}

func (f *fixture) issuedCode(t *testing.T) string {
	t.Helper()
	f.challenges.mu.Lock()
	defer f.challenges.mu.Unlock()
	code, ok := f.challenges.code[f.alice.ID]
	require.True(t, ok, "no challenge was created for alice")
	return code
}

func TestLogin_CorrectCodeCompletesOK(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.runtime.Start(ctx, workflow.WorkflowLogin, "alice")
	require.NoError(t, err)

	status, err := f.runtime.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusWaitingForEvent, status.Status)
	assert.Equal(t, workflow.EventMfaCode, status.WaitingOn)
	assert.Regexp(t, `^\d{6}$`, f.issuedCode(t))
	require.Len(t, f.notifier.messages, 1)
	assert.Contains(t, f.notifier.messages[0], f.issuedCode(t))

	require.NoError(t, f.runtime.RaiseEvent(ctx, id, workflow.EventMfaCode, f.issuedCode(t)))

	status, err = f.runtime.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusCompleted, status.Status)
	assert.Equal(t, workflow.ResultOK, status.Result)

	assert.Equal(t, 1, f.directory.loginsByUser[f.alice.ID])
	assert.Zero(t, f.challenges.invalidateCalls, "success path must not compensate")
	assert.Zero(t, f.challenges.setHasMoreCalls)
}

func TestLogin_FiveWrongCodesLockOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.runtime.Start(ctx, workflow.WorkflowLogin, "alice")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.runtime.RaiseEvent(ctx, id, workflow.EventMfaCode, "000000"))
	}

	status, err := f.runtime.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusCompleted, status.Status)
	assert.Equal(t, workflow.ResultMFAInvalid, status.Result)

	assert.Equal(t, 5, f.challenges.incrementCalls)
	assert.Equal(t, 1, f.challenges.setHasMoreCalls)
	assert.Equal(t, 1, f.challenges.invalidateCalls)
	assert.Zero(t, f.directory.loginsByUser[f.alice.ID])
}

func TestLogin_UnknownUserInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.runtime.Start(ctx, workflow.WorkflowLogin, "ghost")
	require.NoError(t, err)

	status, err := f.runtime.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusCompleted, status.Status)
	assert.Equal(t, workflow.ResultInvalidCredentials, status.Result)

	assert.Zero(t, f.challenges.createCalls)
	assert.Empty(t, f.notifier.messages)
	assert.Zero(t, f.challenges.invalidateCalls, "no challenge means nothing to compensate")
}

func TestLogin_WrongThenCorrectCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.runtime.Start(ctx, workflow.WorkflowLogin, "alice")
	require.NoError(t, err)

	require.NoError(t, f.runtime.RaiseEvent(ctx, id, workflow.EventMfaCode, "000000"))
	require.NoError(t, f.runtime.RaiseEvent(ctx, id, workflow.EventMfaCode, f.issuedCode(t)))

	status, err := f.runtime.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, workflow.ResultOK, status.Result)
	assert.Equal(t, 1, f.challenges.incrementCalls)
	assert.Zero(t, f.challenges.invalidateCalls)
}

func TestLogin_ReplayedCodeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.runtime.Start(ctx, workflow.WorkflowLogin, "alice")
	require.NoError(t, err)
	code := f.issuedCode(t)

	require.NoError(t, f.runtime.RaiseEvent(ctx, id, workflow.EventMfaCode, code))

	// The instance is terminal; a replayed submission is rejected outright.
	err = f.runtime.RaiseEvent(ctx, id, workflow.EventMfaCode, code)
	assert.ErrorIs(t, err, orchestration.ErrInstanceTerminal)

	// And even a fresh login for the same user cannot reuse the consumed code.
	id2, err := f.runtime.Start(ctx, workflow.WorkflowLogin, "alice")
	require.NoError(t, err)
	require.NoError(t, f.runtime.RaiseEvent(ctx, id2, workflow.EventMfaCode, code))

	status, err := f.runtime.Status(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusWaitingForEvent, status.Status)
}

func TestLogin_StoreFaultCompensatesAndPreservesError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.runtime.Start(ctx, workflow.WorkflowLogin, "alice")
	require.NoError(t, err)

	f.challenges.validateErr = errors.New("challenge store unreachable")
	require.NoError(t, f.runtime.RaiseEvent(ctx, id, workflow.EventMfaCode, "123456"))

	status, err := f.runtime.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orchestration.StatusFaulted, status.Status)
	assert.Contains(t, status.Error, "challenge store unreachable")
	assert.Equal(t, 1, f.challenges.invalidateCalls, "fault after challenge creation must clean up")
}

func TestLogin_SurvivesRuntimeRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.runtime.Start(ctx, workflow.WorkflowLogin, "alice")
	require.NoError(t, err)
	code := f.issuedCode(t)
	createsBefore := f.challenges.createCalls

	// A new runtime over the same store stands in for a process restart.
	registry := orchestration.NewRegistry()
	restarted := orchestration.NewRuntime(f.store, orchestration.NewExecutor(registry, nil))
	svc := login.NewService(config.MFAConfig{MaxAttempts: 5}, f.directory, f.challenges, f.notifier, memAudit{})
	workflow.Register(restarted, registry, svc)

	require.NoError(t, restarted.RaiseEvent(ctx, id, workflow.EventMfaCode, code))

	status, err := restarted.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, workflow.ResultOK, status.Result)

	// Replay served start-login from history instead of re-issuing a code.
	assert.Equal(t, createsBefore, f.challenges.createCalls)
	require.Len(t, f.notifier.messages, 1)
}
