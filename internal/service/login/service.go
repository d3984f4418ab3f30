package login

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/acmeid/login-orchestrator/internal/config"
	"github.com/acmeid/login-orchestrator/internal/domain"
	"github.com/acmeid/login-orchestrator/internal/infrastructure/otp"
	"github.com/acmeid/login-orchestrator/internal/repository"
)

// Service implements the MFA challenge lifecycle and retry/lockout policy.
// It is pure business logic over its ports; durability of challenges and
// users belongs to the stores behind those ports.
type Service struct {
	cfg        config.MFAConfig
	users      UserRepository
	challenges ChallengeRepository
	notifier   Notifier
	audit      AuditRepository
}

// NewService creates a new login service
func NewService(cfg config.MFAConfig, users UserRepository, challenges ChallengeRepository, notifier Notifier, audit AuditRepository) *Service {
	return &Service{
		cfg:        cfg,
		users:      users,
		challenges: challenges,
		notifier:   notifier,
		audit:      audit,
	}
}

// StartLogin looks up the user and, when found, issues a fresh 6-digit
// challenge and sends the code over the user's preferred channel. An
// unknown username is an observable no-op: no challenge is created and
// the notifier is never invoked.
func (s *Service) StartLogin(ctx context.Context, username string) (*domain.Challenge, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup user %q: %w", username, err)
	}
	if user == nil {
		loginsStartedTotal.WithLabelValues("unknown_user").Inc()
		s.logEvent(ctx, "login_start_unknown_user", "", username, false, "unknown_username")
		return nil, nil
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return nil, err
	}

	challenge, err := s.challenges.Create(ctx, user.ID, code)
	if err != nil {
		return nil, fmt.Errorf("create challenge: %w", err)
	}

	if err := s.notifier.Send(ctx, user.ID, user.PreferredChannel, "Your MFA code is: "+code); err != nil {
		return nil, fmt.Errorf("send MFA code: %w", err)
	}

	loginsStartedTotal.WithLabelValues("challenge_issued").Inc()
	s.logEvent(ctx, "login_challenge_issued", user.ID.String(), username, true, "")
	slog.Info("MFA challenge issued",
		slog.String("user_id", user.ID.String()),
		slog.String("challenge_id", challenge.ID.String()),
		slog.String("channel", string(user.PreferredChannel)),
	)
	return challenge, nil
}

// CompleteLogin validates a submitted code against the user's active
// challenge. A wrong code increments the attempt counter; reaching the
// configured maximum locks the challenge out permanently. The boolean
// deliberately does not distinguish "wrong code, try again" from "locked
// out"; a caller that needs the difference must inspect the challenge's
// HasMore flag separately.
func (s *Service) CompleteLogin(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	ok, err := s.challenges.ValidateAndConsume(ctx, userID, code)
	if err != nil {
		return false, fmt.Errorf("validate challenge: %w", err)
	}
	if ok {
		validationsTotal.WithLabelValues("success").Inc()
		s.logEvent(ctx, "login_mfa_success", userID.String(), "", true, "")
		return true, nil
	}

	attempts, err := s.challenges.IncrementAttempts(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("increment attempts: %w", err)
	}
	if attempts >= s.cfg.MaxAttempts {
		if err := s.challenges.SetHasMore(ctx, userID, false); err != nil {
			return false, fmt.Errorf("lock out challenge: %w", err)
		}
		validationsTotal.WithLabelValues("locked_out").Inc()
		s.logEvent(ctx, "login_mfa_locked_out", userID.String(), "", false, "too_many_attempts")
		slog.Warn("MFA challenge locked out",
			slog.String("user_id", userID.String()),
			slog.Int("attempts", attempts),
		)
		return false, nil
	}

	validationsTotal.WithLabelValues("invalid_code").Inc()
	s.logEvent(ctx, "login_mfa_failed", userID.String(), "", false, "invalid_code")
	return false, nil
}

// InvalidateChallenge clears the user's active challenge. Used as the
// compensating action when a login run cannot complete; repeating it is a
// safe no-op.
func (s *Service) InvalidateChallenge(ctx context.Context, userID uuid.UUID) error {
	if err := s.challenges.Invalidate(ctx, userID); err != nil {
		return fmt.Errorf("invalidate challenge: %w", err)
	}
	compensationsTotal.Inc()
	s.logEvent(ctx, "login_challenge_invalidated", userID.String(), "", true, "")
	return nil
}

// RecordLogin stamps a successful login on the user record. Safe to repeat.
func (s *Service) RecordLogin(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.UpdateLastLogin(ctx, userID); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	s.logEvent(ctx, "login_success_recorded", userID.String(), "", true, "")
	return nil
}

// logEvent logs audit events
func (s *Service) logEvent(ctx context.Context, eventType, userID, username string, success bool, failureReason string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, repository.AuditEvent{
			EventType:     eventType,
			ActorID:       userID,
			ActorUsername: username,
			Success:       success,
			FailureReason: failureReason,
		})
	}
}
