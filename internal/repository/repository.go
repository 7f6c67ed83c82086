package repository

import (
	"context"
	"errors"
	"time"

	"voucher-queue/internal/domain"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// ErrTicketConflict is returned when an insert loses the race for a ticket
// number (unique index on room + day + ticket_number). The engine retries;
// callers never see it.
var ErrTicketConflict = errors.New("ticket number conflict")

// QueueRepo 队列存储（queue_entries 表）
// Plain keyed storage: ordering is the engine's job, not the store's.
type QueueRepo interface {
	InsertEntry(ctx context.Context, e *domain.QueueEntry) error
	GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error)
	UpdateEntry(ctx context.Context, e *domain.QueueEntry) error
	DeleteEntry(ctx context.Context, entryID string) error

	// ListByRoom returns the room's entries, filtered to the given statuses
	// when any are passed. No ordering guarantee.
	ListByRoom(ctx context.Context, roomID string, statuses ...domain.Status) ([]domain.QueueEntry, error)

	// ListByStatus returns entries in the given status across all rooms.
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.QueueEntry, error)

	// ListByRoomDay returns all of a room's entries created on the given UTC day.
	ListByRoomDay(ctx context.Context, roomID string, day time.Time) ([]domain.QueueEntry, error)

	// MaxTicketNumber returns the highest ticket number issued for the room on
	// the given UTC day, 0 when none exist.
	MaxTicketNumber(ctx context.Context, roomID string, day time.Time) (int, error)
}

// PatientsRepo 患者存储（patients 表）
type PatientsRepo interface {
	ListPatients(ctx context.Context) ([]domain.Patient, error)
	GetPatient(ctx context.Context, patientID string) (*domain.Patient, error)
	GetPatientByDocument(ctx context.Context, document string) (*domain.Patient, error)
	CreatePatient(ctx context.Context, p *domain.Patient) error
	UpdatePatient(ctx context.Context, p *domain.Patient) error
	DeletePatient(ctx context.Context, patientID string) error
}

// RoomsRepo 房间存储（rooms 表）
type RoomsRepo interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	ListActiveRooms(ctx context.Context) ([]domain.Room, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	CreateRoom(ctx context.Context, r *domain.Room) error
	UpdateRoom(ctx context.Context, r *domain.Room) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// UsersRepo 操作员账号存储（users 表）
type UsersRepo interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}
