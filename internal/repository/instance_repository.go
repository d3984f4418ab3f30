package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/acmeid/login-orchestrator/internal/orchestration"
)

// instanceRepository is the Postgres orchestration.Store. History rows
// are keyed (instance_id, seq) with ON CONFLICT DO NOTHING, so a
// re-persisted activation never duplicates a recorded step.
type instanceRepository struct {
	pool *pgxpool.Pool
}

// NewInstanceRepository creates the durable store for orchestration state.
func NewInstanceRepository(pool *pgxpool.Pool) orchestration.Store {
	return &instanceRepository{pool: pool}
}

func (r *instanceRepository) CreateInstance(ctx context.Context, inst *orchestration.Instance) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO orchestration_instances
		   (id, workflow, input, status, waiting_on, result, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inst.ID, inst.Workflow, inst.Input, string(inst.Status),
		inst.WaitingOn, inst.Result, inst.Error, inst.CreatedAt, inst.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}
	return nil
}

func (r *instanceRepository) GetInstance(ctx context.Context, id string) (*orchestration.Instance, error) {
	var inst orchestration.Instance
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, workflow, input, status, waiting_on, result, error, created_at, updated_at
		 FROM orchestration_instances WHERE id = $1`,
		id,
	).Scan(&inst.ID, &inst.Workflow, &inst.Input, &status,
		&inst.WaitingOn, &inst.Result, &inst.Error, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", orchestration.ErrInstanceNotFound, id)
		}
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}
	inst.Status = orchestration.Status(status)

	rows, err := r.pool.Query(ctx,
		`SELECT seq, kind, name, payload, recorded_at
		 FROM orchestration_history WHERE instance_id = $1 ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ev orchestration.HistoryEvent
		var kind string
		if err := rows.Scan(&ev.Seq, &kind, &ev.Name, &ev.Payload, &ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		ev.Kind = orchestration.EventKind(kind)
		inst.History = append(inst.History, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	pending, err := r.pool.Query(ctx,
		`SELECT id, name, payload, raised_at
		 FROM orchestration_pending_events WHERE instance_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending events: %w", err)
	}
	defer pending.Close()
	for pending.Next() {
		var pe orchestration.PendingEvent
		if err := pending.Scan(&pe.ID, &pe.Name, &pe.Payload, &pe.RaisedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending event: %w", err)
		}
		inst.Pending = append(inst.Pending, pe)
	}
	if err := pending.Err(); err != nil {
		return nil, fmt.Errorf("failed to load pending events: %w", err)
	}

	return &inst, nil
}

// SaveProgress writes status, new history, and event consumption in one
// transaction. History inserts tolerate replays of already-stored seqs.
func (r *instanceRepository) SaveProgress(ctx context.Context, inst *orchestration.Instance, consumed []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE orchestration_instances
		 SET status = $2, waiting_on = $3, result = $4, error = $5, updated_at = $6
		 WHERE id = $1`,
		inst.ID, string(inst.Status), inst.WaitingOn, inst.Result, inst.Error, inst.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", orchestration.ErrInstanceNotFound, inst.ID)
	}

	for _, ev := range inst.History {
		if _, err := tx.Exec(ctx,
			`INSERT INTO orchestration_history (instance_id, seq, kind, name, payload, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (instance_id, seq) DO NOTHING`,
			inst.ID, ev.Seq, string(ev.Kind), ev.Name, ev.Payload, ev.RecordedAt,
		); err != nil {
			return fmt.Errorf("failed to append history: %w", err)
		}
	}

	for _, id := range consumed {
		if _, err := tx.Exec(ctx,
			`DELETE FROM orchestration_pending_events WHERE id = $1 AND instance_id = $2`,
			id, inst.ID,
		); err != nil {
			return fmt.Errorf("failed to consume event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *instanceRepository) BufferEvent(ctx context.Context, instanceID string, ev orchestration.PendingEvent) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO orchestration_pending_events (instance_id, name, payload, raised_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		instanceID, ev.Name, ev.Payload, ev.RaisedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to buffer event: %w", err)
	}
	return id, nil
}
