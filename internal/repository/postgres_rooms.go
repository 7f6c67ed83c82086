package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voucher-queue/internal/domain"
)

// PostgresRoomsRepo 房间 Repository 实现（rooms 表）
type PostgresRoomsRepo struct {
	db *sql.DB
}

var _ RoomsRepo = (*PostgresRoomsRepo)(nil)

func NewPostgresRoomsRepo(db *sql.DB) *PostgresRoomsRepo {
	return &PostgresRoomsRepo{db: db}
}

const roomColumns = `
	room_id::text,
	name,
	specialty,
	active,
	created_at
`

func (r *PostgresRoomsRepo) ListRooms(ctx context.Context) ([]domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY name`
	return r.queryRooms(ctx, query)
}

func (r *PostgresRoomsRepo) ListActiveRooms(ctx context.Context) ([]domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE active ORDER BY name`
	return r.queryRooms(ctx, query)
}

func (r *PostgresRoomsRepo) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE room_id = $1`

	rm, err := scanRoom(r.db.QueryRowContext(ctx, query, roomID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return rm, nil
}

func (r *PostgresRoomsRepo) CreateRoom(ctx context.Context, rm *domain.Room) error {
	query := `
		INSERT INTO rooms (room_id, name, specialty, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		rm.ID, rm.Name, nullStr(rm.Specialty), rm.Active, rm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r *PostgresRoomsRepo) UpdateRoom(ctx context.Context, rm *domain.Room) error {
	query := `
		UPDATE rooms
		SET name = $2, specialty = $3, active = $4
		WHERE room_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, rm.ID, rm.Name, nullStr(rm.Specialty), rm.Active)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRoomsRepo) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRoomsRepo) queryRooms(ctx context.Context, query string) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	out := []domain.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		out = append(out, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return out, nil
}

func scanRoom(row rowScanner) (*domain.Room, error) {
	var (
		rm        domain.Room
		specialty sql.NullString
	)
	err := row.Scan(&rm.ID, &rm.Name, &specialty, &rm.Active, &rm.CreatedAt)
	if err != nil {
		return nil, err
	}
	if specialty.Valid {
		v := specialty.String
		rm.Specialty = &v
	}
	return &rm, nil
}
