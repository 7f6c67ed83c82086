package repository

import (
	"context"
	"testing"
	"time"

	"voucher-queue/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var queueEntryRows = []string{
	"entry_id", "patient_id", "room_id", "ticket_number",
	"status", "priority", "estimated_wait", "created_at", "called_at", "served_at",
}

func TestPostgresQueueRepoInsertEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresQueueRepo(db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	eta := 30

	mock.ExpectExec("INSERT INTO queue_entries").
		WithArgs("e1", "p1", "room-a", 1, "Waiting", 2, sqlmock.AnyArg(), now, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.InsertEntry(context.Background(), &domain.QueueEntry{
		ID:            "e1",
		PatientID:     "p1",
		RoomID:        "room-a",
		TicketNumber:  1,
		Status:        domain.StatusWaiting,
		Priority:      2,
		EstimatedWait: &eta,
		CreatedAt:     now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueueRepoInsertTicketConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresQueueRepo(db)

	mock.ExpectExec("INSERT INTO queue_entries").
		WillReturnError(&pq.Error{Code: "23505"})

	err = repo.InsertEntry(context.Background(), &domain.QueueEntry{
		ID:        "e1",
		PatientID: "p1",
		RoomID:    "room-a",
		Status:    domain.StatusWaiting,
		CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrTicketConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueueRepoGetEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresQueueRepo(db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	calledAt := now.Add(10 * time.Minute)

	mock.ExpectQuery("SELECT(.|\n)+FROM queue_entries WHERE entry_id").
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows(queueEntryRows).
			AddRow("e1", "p1", "room-a", 3, "Calling", 1, 45, now, calledAt, nil))

	e, err := repo.GetEntry(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, 3, e.TicketNumber)
	assert.Equal(t, domain.StatusCalling, e.Status)
	require.NotNil(t, e.EstimatedWait)
	assert.Equal(t, 45, *e.EstimatedWait)
	require.NotNil(t, e.CalledAt)
	assert.True(t, e.CalledAt.Equal(calledAt))
	assert.Nil(t, e.ServedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueueRepoGetEntryNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresQueueRepo(db)

	mock.ExpectQuery("SELECT(.|\n)+FROM queue_entries WHERE entry_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(queueEntryRows))

	_, err = repo.GetEntry(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueueRepoUpdateEntryNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresQueueRepo(db)

	mock.ExpectExec("UPDATE queue_entries").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateEntry(context.Background(), &domain.QueueEntry{
		ID:     "missing",
		Status: domain.StatusServed,
	})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueueRepoListByRoomWithStatuses(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresQueueRepo(db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT(.|\n)+FROM queue_entries WHERE room_id(.|\n)+status = ANY").
		WithArgs("room-a", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(queueEntryRows).
			AddRow("e1", "p1", "room-a", 1, "Waiting", 0, nil, now, nil, nil).
			AddRow("e2", "p2", "room-a", 2, "Calling", 0, nil, now, nil, nil))

	entries, err := repo.ListByRoom(context.Background(), "room-a", domain.StatusWaiting, domain.StatusCalling)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.StatusWaiting, entries[0].Status)
	assert.Equal(t, domain.StatusCalling, entries[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueueRepoMaxTicketNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresQueueRepo(db)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COALESCE\\(MAX\\(ticket_number\\), 0\\)").
		WithArgs("room-a", day, day.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(12))

	max, err := repo.MaxTicketNumber(context.Background(), "room-a", day.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 12, max)
	require.NoError(t, mock.ExpectationsWereMet())
}
