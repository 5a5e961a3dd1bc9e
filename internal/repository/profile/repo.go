// Package profile reads recipient profiles and their notification
// preferences. The data is owned by the account subsystem; this pipeline
// never writes it.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/abhonsle123/ripplefx/internal/model"
)

var ErrProfileNotFound = errors.New("profile not found")

// Repository provides read access to the profiles table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new profile repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves one profile with its channel preferences.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	query := `
		SELECT id, email,
		       email_enabled, email_high_severity, email_medium_severity, email_low_severity,
		       sms_enabled, sms_high_severity, sms_medium_severity, sms_low_severity, phone_number
		FROM profiles
		WHERE id = $1;
    `

	var (
		p     model.Profile
		phone sql.NullString
	)
	err := r.db.Master.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Email,
		&p.Preferences.Email.Enabled, &p.Preferences.Email.HighSeverity,
		&p.Preferences.Email.MediumSeverity, &p.Preferences.Email.LowSeverity,
		&p.Preferences.SMS.Enabled, &p.Preferences.SMS.HighSeverity,
		&p.Preferences.SMS.MediumSeverity, &p.Preferences.SMS.LowSeverity,
		&phone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, ErrProfileNotFound
		}

		return model.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}

	if phone.Valid {
		p.Preferences.SMS.PhoneNumber = phone.String
	}

	return p, nil
}

// ListNotifiableIDs returns the ids of profiles with at least one
// notification channel enabled. These become queue entries at ingest time.
func (r *Repository) ListNotifiableIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM profiles
		WHERE email_enabled = TRUE OR sms_enabled = TRUE;
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifiable profiles: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return ids, nil
}
