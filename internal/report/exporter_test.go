package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"voucher-queue/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type stubLister struct {
	entries []domain.QueueEntry
	err     error
}

func (s *stubLister) ListRoomDay(context.Context, string, time.Time) ([]domain.QueueEntry, error) {
	return s.entries, s.err
}

func TestRoomDayReportContent(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	servedAt := now.Add(20 * time.Minute)
	lister := &stubLister{entries: []domain.QueueEntry{
		{
			ID:           "e1",
			PatientID:    "p1",
			RoomID:       "room-a",
			TicketNumber: 1,
			Status:       domain.StatusServed,
			Priority:     0,
			CreatedAt:    now,
			ServedAt:     &servedAt,
		},
		{
			ID:           "e2",
			PatientID:    "p2",
			RoomID:       "room-a",
			TicketNumber: 2,
			Status:       domain.StatusWaiting,
			Priority:     3,
			CreatedAt:    now.Add(5 * time.Minute),
		},
	}}

	exporter := NewExporter(lister, zap.NewNop())
	content, err := exporter.RoomDayReport(context.Background(), "room-a", now)
	require.NoError(t, err)
	require.NotEmpty(t, content)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Queue Report")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per entry")

	assert.Equal(t, DayReportHeader, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "Served", rows[1][2])
	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "p2", rows[2][1])
}

func TestRoomDayReportEmptyDay(t *testing.T) {
	exporter := NewExporter(&stubLister{}, zap.NewNop())
	content, err := exporter.RoomDayReport(context.Background(), "room-a", time.Now().UTC())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Queue Report")
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the header remains")
}
