package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voucher-queue/internal/domain"

	"github.com/lib/pq"
)

// PostgresQueueRepo 队列存储 Repository 实现（queue_entries 表）
//
// Uniqueness of (room_id, day, ticket_number) is backed by a unique index on
// (room_id, (created_at::date), ticket_number); a violation is surfaced as
// ErrTicketConflict so the engine can retry the assignment.
type PostgresQueueRepo struct {
	db *sql.DB
}

var _ QueueRepo = (*PostgresQueueRepo)(nil)

func NewPostgresQueueRepo(db *sql.DB) *PostgresQueueRepo {
	return &PostgresQueueRepo{db: db}
}

const queueEntryColumns = `
	entry_id::text,
	patient_id::text,
	room_id::text,
	ticket_number,
	status,
	priority,
	estimated_wait,
	created_at,
	called_at,
	served_at
`

func (r *PostgresQueueRepo) InsertEntry(ctx context.Context, e *domain.QueueEntry) error {
	query := `
		INSERT INTO queue_entries (
			entry_id, patient_id, room_id, ticket_number,
			status, priority, estimated_wait, created_at, called_at, served_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.PatientID, e.RoomID, e.TicketNumber,
		string(e.Status), e.Priority, nullInt(e.EstimatedWait),
		e.CreatedAt, nullTime(e.CalledAt), nullTime(e.ServedAt),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrTicketConflict
		}
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}
	return nil
}

func (r *PostgresQueueRepo) GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error) {
	query := `SELECT ` + queueEntryColumns + ` FROM queue_entries WHERE entry_id = $1`

	e, err := scanQueueEntry(r.db.QueryRowContext(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return e, nil
}

func (r *PostgresQueueRepo) UpdateEntry(ctx context.Context, e *domain.QueueEntry) error {
	query := `
		UPDATE queue_entries
		SET status = $2,
		    priority = $3,
		    estimated_wait = $4,
		    called_at = $5,
		    served_at = $6
		WHERE entry_id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		e.ID, string(e.Status), e.Priority, nullInt(e.EstimatedWait),
		nullTime(e.CalledAt), nullTime(e.ServedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update queue entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresQueueRepo) DeleteEntry(ctx context.Context, entryID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM queue_entries WHERE entry_id = $1`, entryID)
	if err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresQueueRepo) ListByRoom(ctx context.Context, roomID string, statuses ...domain.Status) ([]domain.QueueEntry, error) {
	query := `SELECT ` + queueEntryColumns + ` FROM queue_entries WHERE room_id = $1`
	args := []any{roomID}
	if len(statuses) > 0 {
		ss := make([]string, len(statuses))
		for i, s := range statuses {
			ss[i] = string(s)
		}
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(ss))
	}

	return r.queryEntries(ctx, query, args...)
}

func (r *PostgresQueueRepo) ListByStatus(ctx context.Context, status domain.Status) ([]domain.QueueEntry, error) {
	query := `SELECT ` + queueEntryColumns + ` FROM queue_entries WHERE status = $1`
	return r.queryEntries(ctx, query, string(status))
}

func (r *PostgresQueueRepo) ListByRoomDay(ctx context.Context, roomID string, day time.Time) ([]domain.QueueEntry, error) {
	day = domain.DayOf(day)
	query := `
		SELECT ` + queueEntryColumns + `
		FROM queue_entries
		WHERE room_id = $1 AND created_at >= $2 AND created_at < $3
	`
	return r.queryEntries(ctx, query, roomID, day, day.AddDate(0, 0, 1))
}

func (r *PostgresQueueRepo) MaxTicketNumber(ctx context.Context, roomID string, day time.Time) (int, error) {
	day = domain.DayOf(day)
	query := `
		SELECT COALESCE(MAX(ticket_number), 0)
		FROM queue_entries
		WHERE room_id = $1 AND created_at >= $2 AND created_at < $3
	`
	var max int
	err := r.db.QueryRowContext(ctx, query, roomID, day, day.AddDate(0, 0, 1)).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to get max ticket number: %w", err)
	}
	return max, nil
}

func (r *PostgresQueueRepo) queryEntries(ctx context.Context, query string, args ...any) ([]domain.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue entries: %w", err)
	}
	defer rows.Close()

	out := []domain.QueueEntry{}
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue entries: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueEntry(row rowScanner) (*domain.QueueEntry, error) {
	var (
		e        domain.QueueEntry
		status   string
		eta      sql.NullInt64
		calledAt sql.NullTime
		servedAt sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.PatientID, &e.RoomID, &e.TicketNumber,
		&status, &e.Priority, &eta, &e.CreatedAt, &calledAt, &servedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = domain.Status(status)
	if eta.Valid {
		v := int(eta.Int64)
		e.EstimatedWait = &v
	}
	if calledAt.Valid {
		t := calledAt.Time
		e.CalledAt = &t
	}
	if servedAt.Valid {
		t := servedAt.Time
		e.ServedAt = &t
	}
	return &e, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
