package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
	"github.com/acmeid/login-orchestrator/internal/domain"
)

// ChallengeRepository defines challenge store operations. One active
// challenge exists per user; starting a new login replaces it.
type ChallengeRepository interface {
	Create(ctx context.Context, userID uuid.UUID, code string) (*domain.Challenge, error)
	ValidateAndConsume(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	Invalidate(ctx context.Context, userID uuid.UUID) error
	IncrementAttempts(ctx context.Context, userID uuid.UUID) (int, error)
	SetHasMore(ctx context.Context, userID uuid.UUID, hasMore bool) error
}

type challengeRepository struct {
	pool *pgxpool.Pool
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(pool *pgxpool.Pool) ChallengeRepository {
	return &challengeRepository{pool: pool}
}

// Create stores a new challenge for the user, replacing any previous one.
// Only a bcrypt hash of the code is persisted.
func (r *challengeRepository) Create(ctx context.Context, userID uuid.UUID, code string) (*domain.Challenge, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	challenge := &domain.Challenge{ID: uuid.New(), UserID: userID, HasMore: true}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO mfa_challenges (id, user_id, code_hash, attempts, has_more, created_at)
		 VALUES ($1, $2, $3, 0, true, now())
		 ON CONFLICT (user_id) DO UPDATE
		 SET id = EXCLUDED.id, code_hash = EXCLUDED.code_hash, attempts = 0,
		     has_more = true, consumed_at = NULL, created_at = now()
		 RETURNING created_at`,
		challenge.ID, userID, string(hash),
	)
	if err := row.Scan(&challenge.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return challenge, nil
}

// ValidateAndConsume compares the submitted code against the stored hash
// and clears it on match, inside one transaction with the challenge row
// locked. Two concurrent submissions of the same code serialize here, so
// at most one of them consumes it.
func (r *challengeRepository) ValidateAndConsume(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var codeHash pgtype.Text
	var hasMore bool
	err = tx.QueryRow(ctx,
		`SELECT code_hash, has_more FROM mfa_challenges WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&codeHash, &hasMore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load challenge: %w", err)
	}

	if !codeHash.Valid || !hasMore {
		return false, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(codeHash.String), []byte(code)) != nil {
		return false, nil
	}

	if _, err := tx.Exec(ctx,
		`UPDATE mfa_challenges SET code_hash = NULL, consumed_at = now() WHERE user_id = $1`,
		userID,
	); err != nil {
		return false, fmt.Errorf("failed to consume challenge: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Invalidate clears the stored code. A missing or already-cleared
// challenge is a no-op.
func (r *challengeRepository) Invalidate(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE mfa_challenges SET code_hash = NULL WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate challenge: %w", err)
	}
	return nil
}

func (r *challengeRepository) IncrementAttempts(ctx context.Context, userID uuid.UUID) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx,
		`UPDATE mfa_challenges SET attempts = attempts + 1 WHERE user_id = $1 RETURNING attempts`,
		userID,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("challenge not found for user %s", userID)
		}
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return attempts, nil
}

func (r *challengeRepository) SetHasMore(ctx context.Context, userID uuid.UUID, hasMore bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE mfa_challenges SET has_more = $2 WHERE user_id = $1`,
		userID, hasMore,
	)
	if err != nil {
		return fmt.Errorf("failed to set has_more: %w", err)
	}
	return nil
}
