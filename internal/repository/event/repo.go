package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"

	"github.com/abhonsle123/ripplefx/internal/model"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrDuplicateTitle = errors.New("event with this title already exists")
)

// uniqueViolation is the Postgres error code raised by the unique index on
// events.title; it closes the race window between the dedup check and insert.
const uniqueViolation = "23505"

// Repository provides access to the events table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new event repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// TitleExists reports whether an event with this exact title is already
// stored. The match is case-sensitive.
func (r *Repository) TitleExists(ctx context.Context, title string) (bool, error) {
	query := `
		SELECT EXISTS (
		    SELECT 1 FROM events WHERE title = $1
		);
    `

	var exists bool
	if err := r.db.Master.QueryRowContext(ctx, query, title).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check title existence: %w", err)
	}

	return exists, nil
}

// CreateEvent inserts a new event built from the article and its
// classification. A concurrent insert of the same title surfaces as
// ErrDuplicateTitle.
func (r *Repository) CreateEvent(
	ctx context.Context,
	article model.Article,
	classification model.ClassificationResult,
	isPublic bool,
) (model.Event, error) {
	query := `
		INSERT INTO events (
		    title, description, event_type, severity, source_url, source_api, is_public
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at;
    `

	event := model.Event{
		Title:       article.Title,
		Description: article.Description,
		EventType:   classification.EventType,
		Severity:    classification.Severity,
		SourceURL:   article.SourceURL,
		SourceAPI:   article.SourceAPI,
		IsPublic:    isPublic,
	}

	err := r.db.Master.QueryRowContext(
		ctx, query,
		event.Title, event.Description, event.EventType, event.Severity,
		event.SourceURL, event.SourceAPI, event.IsPublic,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.Event{}, ErrDuplicateTitle
		}

		return model.Event{}, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

// GetByID retrieves a single event.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (model.Event, error) {
	query := `
		SELECT id, title, description, event_type, severity, source_url, source_api, is_public, impact_analysis, created_at
		FROM events
		WHERE id = $1;
    `

	var (
		event model.Event
		raw   []byte
	)
	err := r.db.Master.QueryRowContext(ctx, query, id).Scan(
		&event.ID, &event.Title, &event.Description, &event.EventType, &event.Severity,
		&event.SourceURL, &event.SourceAPI, &event.IsPublic, &raw, &event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrEventNotFound
		}

		return model.Event{}, fmt.Errorf("failed to get event: %w", err)
	}

	if len(raw) > 0 {
		event.ImpactAnalysis = json.RawMessage(raw)
	}

	return event, nil
}

// ListRecent retrieves the newest events, most recent first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]model.Event, error) {
	query := `
		SELECT id, title, description, event_type, severity, source_url, source_api, is_public, impact_analysis, created_at
		FROM events
		ORDER BY created_at DESC
		LIMIT $1;
    `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			event model.Event
			raw   []byte
		)
		if err := rows.Scan(
			&event.ID, &event.Title, &event.Description, &event.EventType, &event.Severity,
			&event.SourceURL, &event.SourceAPI, &event.IsPublic, &raw, &event.CreatedAt,
		); err != nil {
			return nil, err
		}

		if len(raw) > 0 {
			event.ImpactAnalysis = json.RawMessage(raw)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return events, nil
}

// SetImpactAnalysis attaches the analysis collaborator's result to an event.
// The blob is opaque to the pipeline.
func (r *Repository) SetImpactAnalysis(ctx context.Context, id uuid.UUID, analysis json.RawMessage) error {
	query := `
		UPDATE events
		SET impact_analysis = $1
		WHERE id = $2;
    `

	res, err := r.db.ExecContext(ctx, query, []byte(analysis), id)
	if err != nil {
		return fmt.Errorf("failed to set impact analysis: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrEventNotFound
	}

	return nil
}

// CleanupStale deletes public, feed-sourced events older than the age window.
// Events already referenced by a processed queue entry are kept, as are
// user-authored events. Without forceRefresh it is a no-op.
func (r *Repository) CleanupStale(ctx context.Context, forceRefresh bool, olderThan time.Duration) (int64, error) {
	if !forceRefresh {
		return 0, nil
	}

	query := `
		DELETE FROM events
		WHERE is_public = TRUE
		  AND source_api = ANY($1)
		  AND created_at < NOW() - make_interval(secs => $2)
		  AND id NOT IN (
		      SELECT event_id FROM notification_queue WHERE processed = TRUE
		  );
    `

	feeds := pq.StringArray{string(model.SourceNewsAPI), string(model.SourceFinnhubAPI)}

	res, err := r.db.ExecContext(ctx, query, feeds, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup stale events: %w", err)
	}

	deleted, _ := res.RowsAffected()
	return deleted, nil
}
