package login_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/acmeid/login-orchestrator/internal/domain"
	"github.com/acmeid/login-orchestrator/internal/repository"
)

// MockUserRepository mocks UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockChallengeRepository mocks ChallengeRepository interface
type MockChallengeRepository struct {
	mock.Mock
}

func (m *MockChallengeRepository) Create(ctx context.Context, userID uuid.UUID, code string) (*domain.Challenge, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) ValidateAndConsume(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, userID, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockChallengeRepository) Invalidate(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockChallengeRepository) IncrementAttempts(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockChallengeRepository) SetHasMore(ctx context.Context, userID uuid.UUID, hasMore bool) error {
	args := m.Called(ctx, userID, hasMore)
	return args.Error(0)
}

// MockNotifier mocks Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, userID uuid.UUID, channel domain.Channel, message string) error {
	args := m.Called(ctx, userID, channel, message)
	return args.Error(0)
}

// MockAuditRepository mocks AuditRepository interface
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) LogEvent(ctx context.Context, event repository.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
