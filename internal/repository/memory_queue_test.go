package repository

import (
	"context"
	"testing"
	"time"

	"voucher-queue/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(id, roomID string, ticket int, status domain.Status, createdAt time.Time) *domain.QueueEntry {
	return &domain.QueueEntry{
		ID:           id,
		PatientID:    "patient-1",
		RoomID:       roomID,
		TicketNumber: ticket,
		Status:       status,
		CreatedAt:    createdAt,
	}
}

func TestMemoryQueueRepoCRUD(t *testing.T) {
	repo := NewMemoryQueueRepo()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	e := testEntry("e1", "room-a", 1, domain.StatusWaiting, now)
	require.NoError(t, repo.InsertEntry(ctx, e))

	got, err := repo.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)

	// Copy-out semantics: mutating the returned entry must not leak back.
	got.Status = domain.StatusServed
	again, err := repo.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, again.Status)

	e.Status = domain.StatusCalling
	require.NoError(t, repo.UpdateEntry(ctx, e))
	got, err = repo.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCalling, got.Status)

	require.NoError(t, repo.DeleteEntry(ctx, "e1"))
	_, err = repo.GetEntry(ctx, "e1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryQueueRepoNotFound(t *testing.T) {
	repo := NewMemoryQueueRepo()
	ctx := context.Background()

	_, err := repo.GetEntry(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.UpdateEntry(ctx, testEntry("missing", "room-a", 1, domain.StatusWaiting, time.Now()))
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.DeleteEntry(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryQueueRepoListByRoomFiltersStatus(t *testing.T) {
	repo := NewMemoryQueueRepo()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.InsertEntry(ctx, testEntry("e1", "room-a", 1, domain.StatusWaiting, now)))
	require.NoError(t, repo.InsertEntry(ctx, testEntry("e2", "room-a", 2, domain.StatusCalling, now)))
	require.NoError(t, repo.InsertEntry(ctx, testEntry("e3", "room-a", 3, domain.StatusServed, now)))
	require.NoError(t, repo.InsertEntry(ctx, testEntry("e4", "room-b", 1, domain.StatusWaiting, now)))

	all, err := repo.ListByRoom(ctx, "room-a")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	open, err := repo.ListByRoom(ctx, "room-a", domain.StatusWaiting, domain.StatusCalling)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	waiting, err := repo.ListByStatus(ctx, domain.StatusWaiting)
	require.NoError(t, err)
	assert.Len(t, waiting, 2)
}

func TestMemoryQueueRepoMaxTicketPerDay(t *testing.T) {
	repo := NewMemoryQueueRepo()
	ctx := context.Background()
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	require.NoError(t, repo.InsertEntry(ctx, testEntry("e1", "room-a", 1, domain.StatusWaiting, day1)))
	require.NoError(t, repo.InsertEntry(ctx, testEntry("e2", "room-a", 7, domain.StatusServed, day1)))
	require.NoError(t, repo.InsertEntry(ctx, testEntry("e3", "room-a", 2, domain.StatusWaiting, day2)))

	max, err := repo.MaxTicketNumber(ctx, "room-a", day1)
	require.NoError(t, err)
	assert.Equal(t, 7, max, "terminal entries still count toward the day's max")

	max, err = repo.MaxTicketNumber(ctx, "room-a", day2)
	require.NoError(t, err)
	assert.Equal(t, 2, max)

	max, err = repo.MaxTicketNumber(ctx, "room-b", day1)
	require.NoError(t, err)
	assert.Equal(t, 0, max, "empty sequences report 0")
}

func TestMemoryQueueRepoListByRoomDay(t *testing.T) {
	repo := NewMemoryQueueRepo()
	ctx := context.Background()
	day1 := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)

	require.NoError(t, repo.InsertEntry(ctx, testEntry("e1", "room-a", 1, domain.StatusWaiting, day1)))
	require.NoError(t, repo.InsertEntry(ctx, testEntry("e2", "room-a", 1, domain.StatusWaiting, day2)))

	entries, err := repo.ListByRoomDay(ctx, "room-a", day1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
}
