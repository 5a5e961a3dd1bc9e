package queue

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"
)

func setupMockDB(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}

	wrappedDB := &dbpg.DB{Master: db}
	repo := NewRepository(wrappedDB)

	return repo, mock
}

func TestEnqueue(t *testing.T) {
	repo, mock := setupMockDB(t)

	eventID := uuid.New()
	profiles := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO notification_queue (event_id, profile_id)
		SELECT $1, unnest($2::uuid[]);
    `)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Enqueue(context.Background(), eventID, profiles)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueue_NoProfilesIsNoop(t *testing.T) {
	repo, mock := setupMockDB(t)

	err := repo.Enqueue(context.Background(), uuid.New(), nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPending(t *testing.T) {
	repo, mock := setupMockDB(t)

	first := uuid.New()
	second := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "event_id", "profile_id", "processed", "error", "created_at"}).
		AddRow(first, uuid.New(), uuid.New(), false, nil, now.Add(-time.Minute)).
		AddRow(second, uuid.New(), uuid.New(), false, nil, now)

	mock.ExpectQuery("SELECT id, event_id, profile_id, processed, error, created_at").
		WillReturnRows(rows)

	entries, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0].ID)
	assert.False(t, entries[0].Processed)
	assert.Nil(t, entries[0].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessed(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()
	errMsg := "sms send failed"

	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE notification_queue
		SET processed = TRUE, error = $1
		WHERE id = $2 AND processed = FALSE;
    `)).
		WithArgs(&errMsg, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkProcessed(context.Background(), id, &errMsg)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessed_AlreadyProcessed(t *testing.T) {
	repo, mock := setupMockDB(t)

	// The WHERE processed = FALSE guard makes the transition one-way: a
	// second mark touches zero rows.
	mock.ExpectExec("UPDATE notification_queue").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkProcessed(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireDrainLock_Busy(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	_, err := repo.AcquireDrainLock(context.Background())
	assert.ErrorIs(t, err, ErrDrainLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireDrainLock_AndRelease(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WillReturnResult(sqlmock.NewResult(0, 0))

	release, err := repo.AcquireDrainLock(context.Background())
	require.NoError(t, err)

	err = release(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
