package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voucher-queue/internal/domain"
	"voucher-queue/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoomService 房间服务层
type RoomService struct {
	rooms  repository.RoomsRepo
	logger *zap.Logger
	now    func() time.Time
}

func NewRoomService(rooms repository.RoomsRepo, logger *zap.Logger) *RoomService {
	return &RoomService{rooms: rooms, logger: logger, now: time.Now}
}

func (s *RoomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.ListRooms(ctx)
}

func (s *RoomService) ListActiveRooms(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.ListActiveRooms(ctx)
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.rooms.GetRoom(ctx, roomID)
}

func (s *RoomService) CreateRoom(ctx context.Context, name string, specialty *string, active bool) (*domain.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	r := &domain.Room{
		ID:        uuid.NewString(),
		Name:      name,
		Specialty: specialty,
		Active:    active,
		CreatedAt: s.now().UTC(),
	}
	if err := s.rooms.CreateRoom(ctx, r); err != nil {
		s.logger.Error("Failed to create room", zap.Error(err))
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return r, nil
}

func (s *RoomService) UpdateRoom(ctx context.Context, roomID string, name, specialty *string, active *bool) (*domain.Room, error) {
	r, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if name != nil && *name != "" {
		r.Name = *name
	}
	if specialty != nil {
		r.Specialty = specialty
	}
	if active != nil {
		r.Active = *active
	}

	if err := s.rooms.UpdateRoom(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}
	return r, nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, roomID string) (bool, error) {
	err := s.rooms.DeleteRoom(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete room: %w", err)
	}
	return true, nil
}
