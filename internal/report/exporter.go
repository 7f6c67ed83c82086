package report

import (
	"context"
	"fmt"
	"time"

	"voucher-queue/internal/domain"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// DayReportHeader 日报表表头
var DayReportHeader = []string{
	"Ticket",
	"Patient ID",
	"Status",
	"Priority",
	"Created At",
	"Called At",
	"Served At",
}

// EntryLister is the slice of the queue engine the exporter needs.
type EntryLister interface {
	ListRoomDay(ctx context.Context, roomID string, day time.Time) ([]domain.QueueEntry, error)
}

// Exporter 日报表导出器
// Builds an XLSX sheet with every entry a room issued on a calendar day,
// in ticket order.
type Exporter struct {
	queues EntryLister
	logger *zap.Logger
}

func NewExporter(queues EntryLister, logger *zap.Logger) *Exporter {
	return &Exporter{queues: queues, logger: logger}
}

// RoomDayReport returns the XLSX file content for the room's day.
func (e *Exporter) RoomDayReport(ctx context.Context, roomID string, day time.Time) ([]byte, error) {
	entries, err := e.queues.ListRoomDay(ctx, roomID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load report entries: %w", err)
	}

	f := excelize.NewFile()
	// Note: Don't defer Close() here, WriteToBuffer needs the file open.

	sheetName := "Queue Report"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, title := range DayReportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, title)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i := range entries {
		row := i + 2
		values := []any{
			entries[i].TicketNumber,
			entries[i].PatientID,
			string(entries[i].Status),
			entries[i].Priority,
			entries[i].CreatedAt.Format(time.RFC3339),
			formatNullable(entries[i].CalledAt),
			formatNullable(entries[i].ServedAt),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to build cell: %w", err)
			}
			f.SetCellValue(sheetName, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}
	f.Close()

	e.logger.Debug("Built day report",
		zap.String("room_id", roomID),
		zap.Time("day", day),
		zap.Int("entry_count", len(entries)),
	)
	return buf.Bytes(), nil
}

func formatNullable(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
