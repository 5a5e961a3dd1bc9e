// Package queue persists the notification work queue. An entry is one
// (event, profile) pair awaiting a dispatch attempt; processed flips to true
// exactly once and is never reversed.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"

	"github.com/abhonsle123/ripplefx/internal/model"
)

var (
	ErrEntryNotFound = errors.New("queue entry not found")
	ErrDrainLocked   = errors.New("another dispatch run holds the drain lock")
)

// drainLockKey identifies the advisory lock guarding drain runs. Only one
// dispatcher may hold it at a time.
const drainLockKey = 792217

// Repository provides access to the notification_queue table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new queue repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue creates one pending entry per profile for the event.
func (r *Repository) Enqueue(ctx context.Context, eventID uuid.UUID, profileIDs []uuid.UUID) error {
	if len(profileIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO notification_queue (event_id, profile_id)
		SELECT $1, unnest($2::uuid[]);
    `

	ids := make(pq.StringArray, 0, len(profileIDs))
	for _, id := range profileIDs {
		ids = append(ids, id.String())
	}

	if _, err := r.db.ExecContext(ctx, query, eventID, ids); err != nil {
		return fmt.Errorf("failed to enqueue notifications: %w", err)
	}

	return nil
}

// ListPending retrieves all unprocessed entries in FIFO order.
func (r *Repository) ListPending(ctx context.Context) ([]model.QueueEntry, error) {
	query := `
		SELECT id, event_id, profile_id, processed, error, created_at
		FROM notification_queue
		WHERE processed = FALSE
		ORDER BY created_at ASC;
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		var (
			entry  model.QueueEntry
			errMsg sql.NullString
		)
		if err := rows.Scan(
			&entry.ID, &entry.EventID, &entry.ProfileID, &entry.Processed, &errMsg, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}

		if errMsg.Valid {
			entry.Error = &errMsg.String
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return entries, nil
}

// MarkProcessed terminally flips an entry to processed, recording the
// delivery error if any. The transition is one-way.
func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID, errMsg *string) error {
	query := `
		UPDATE notification_queue
		SET processed = TRUE, error = $1
		WHERE id = $2 AND processed = FALSE;
    `

	res, err := r.db.ExecContext(ctx, query, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to mark entry processed: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrEntryNotFound
	}

	return nil
}

// AcquireDrainLock takes the drain advisory lock on a dedicated connection,
// pinning the session for the duration of one dispatch run. The returned
// release func unlocks and hands the connection back to the pool. Returns
// ErrDrainLocked when another run already holds the lock.
func (r *Repository) AcquireDrainLock(ctx context.Context) (func(context.Context) error, error) {
	conn, err := r.db.Master.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1);`, drainLockKey).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to acquire drain lock: %w", err)
	}

	if !acquired {
		_ = conn.Close()
		return nil, ErrDrainLocked
	}

	release := func(ctx context.Context) error {
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1);`, drainLockKey); err != nil {
			return fmt.Errorf("failed to release drain lock: %w", err)
		}

		return nil
	}

	return release, nil
}
