package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent represents a login/MFA audit event
type AuditEvent struct {
	EventType     string // login_started, login_unknown_user, mfa_verify_success, mfa_verify_failed, mfa_locked_out, challenge_invalidated, login_recorded
	ActorID       string // User ID, empty when the actor is unknown
	ActorUsername string
	Success       bool
	FailureReason string                 // Reason for failure (if any)
	Metadata      map[string]interface{} // Additional data (attempt_count, instance_id, etc.)
}

// AuditRepository defines audit logging operations
type AuditRepository interface {
	LogEvent(ctx context.Context, event AuditEvent) error
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) LogEvent(ctx context.Context, event AuditEvent) error {
	details := map[string]interface{}{
		"username":       event.ActorUsername,
		"success":        event.Success,
		"failure_reason": event.FailureReason,
	}
	for k, v := range event.Metadata {
		details[k] = v
	}
	detailsJSON, _ := json.Marshal(details)

	var actorUUID pgtype.UUID
	if event.ActorID != "" {
		if parsed, err := uuid.Parse(event.ActorID); err == nil {
			actorUUID = pgtype.UUID{Bytes: parsed, Valid: true}
		}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_log (action, actor_id, details, created_at)
		 VALUES ($1, $2, $3, now())`,
		event.EventType, actorUUID, detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}
	return nil
}
