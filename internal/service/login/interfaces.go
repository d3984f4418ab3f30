package login

import (
	"context"

	"github.com/google/uuid"
	"github.com/acmeid/login-orchestrator/internal/domain"
	"github.com/acmeid/login-orchestrator/internal/repository"
)

// UserRepository defines the user-directory operations needed by the login service
type UserRepository interface {
	// FindByUsername returns (nil, nil) when no user matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
}

// ChallengeRepository defines the challenge-store operations needed by the
// login service. ValidateAndConsume and IncrementAttempts on the same
// challenge must be linearizable with respect to each other; a plain
// read-then-write implementation races under concurrent submissions.
type ChallengeRepository interface {
	Create(ctx context.Context, userID uuid.UUID, code string) (*domain.Challenge, error)

	// ValidateAndConsume atomically compares the submitted code against
	// the stored one and clears it on match. A consumed or invalidated
	// challenge never validates again.
	ValidateAndConsume(ctx context.Context, userID uuid.UUID, code string) (bool, error)

	// Invalidate clears the stored code. Safe to repeat.
	Invalidate(ctx context.Context, userID uuid.UUID) error

	// IncrementAttempts bumps the attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, userID uuid.UUID) (int, error)

	// SetHasMore flips the lockout flag; false is a permanent lockout for
	// this challenge.
	SetHasMore(ctx context.Context, userID uuid.UUID, hasMore bool) error
}

// Notifier defines the delivery channel for MFA codes
type Notifier interface {
	Send(ctx context.Context, userID uuid.UUID, channel domain.Channel, message string) error
}

// AuditRepository defines the audit operations needed by the login service
type AuditRepository interface {
	LogEvent(ctx context.Context, event repository.AuditEvent) error
}
