package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"voucher-queue/internal/domain"
	"voucher-queue/internal/notify"
	"voucher-queue/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoneWaiting 房间没有等待中的患者
	ErrNoneWaiting = errors.New("no patients waiting in room")
	// ErrUnknownStatus is returned in strict mode for status strings outside
	// the state machine's vocabulary.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrInvalidTransition is returned in strict mode for illegal transitions.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// MinutesPerPatient 每位患者的固定服务时间假设（分钟）
// The wait estimate is advisory and deliberately not adaptive.
const MinutesPerPatient = 15

// maxTicketRetries bounds the insert retry loop when a concurrent writer on
// another instance wins the same ticket number.
const maxTicketRetries = 5

// QueueService 队列引擎（门面）
//
// Orchestrates the ticket sequencer, the queue store, the ordering policy and
// the state machine, and reports every change to the Notifier. Mutations are
// persisted before notification; notification failures are logged and never
// surfaced.
type QueueService struct {
	entries  repository.QueueRepo
	patients repository.PatientsRepo
	notifier notify.Notifier
	seq      *TicketSequencer
	locks    *roomLocks
	strict   bool
	logger   *zap.Logger
	now      func() time.Time
}

// NewQueueService 创建队列引擎
// strict=false keeps the legacy behavior for bad status updates: the entry is
// left unchanged and no error is returned. strict=true rejects them with
// ErrUnknownStatus / ErrInvalidTransition.
func NewQueueService(
	entries repository.QueueRepo,
	patients repository.PatientsRepo,
	notifier notify.Notifier,
	strict bool,
	logger *zap.Logger,
) *QueueService {
	locks := newRoomLocks()
	return &QueueService{
		entries:  entries,
		patients: patients,
		notifier: notifier,
		seq:      NewTicketSequencer(entries, locks),
		locks:    locks,
		strict:   strict,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateEntry puts a patient into a room's queue: assigns the next ticket
// number for the day, computes the initial wait estimate and persists a
// Waiting entry. A patient may hold several open entries at once; no
// uniqueness check is applied on purpose.
func (s *QueueService) CreateEntry(ctx context.Context, patientID, roomID string, priority int) (*domain.QueueEntry, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}
	if roomID == "" {
		return nil, fmt.Errorf("room_id is required")
	}

	unlock := s.locks.Lock(roomID)
	entry, err := s.createLocked(ctx, patientID, roomID, priority)
	unlock()
	if err != nil {
		return nil, err
	}

	s.notifyQueueChanged(ctx, roomID)
	return entry, nil
}

func (s *QueueService) createLocked(ctx context.Context, patientID, roomID string, priority int) (*domain.QueueEntry, error) {
	for attempt := 0; attempt < maxTicketRetries; attempt++ {
		now := s.now().UTC()

		ticket, err := s.seq.peek(ctx, roomID, now)
		if err != nil {
			return nil, err
		}

		eta, err := s.EstimatedWait(ctx, roomID)
		if err != nil {
			return nil, err
		}

		entry := &domain.QueueEntry{
			ID:            uuid.NewString(),
			PatientID:     patientID,
			RoomID:        roomID,
			TicketNumber:  ticket,
			Status:        domain.StatusWaiting,
			Priority:      priority,
			EstimatedWait: &eta,
			CreatedAt:     now,
		}

		err = s.entries.InsertEntry(ctx, entry)
		if errors.Is(err, repository.ErrTicketConflict) {
			// A writer on another instance took this number; recompute.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create queue entry: %w", err)
		}
		return entry, nil
	}
	return nil, fmt.Errorf("could not assign a unique ticket number for room %s", roomID)
}

// UpdateEntry applies a status transition and/or a wait-estimate override.
// Re-applying the entry's current status is an idempotent no-op: calledAt and
// servedAt are never stamped twice.
//
// The mutation runs inside the entry's room critical section, the same lock
// CallNext holds across selection and write. An update racing a call can
// therefore never interleave with it: whichever runs second re-reads the
// entry and the state machine decides from the fresh status.
func (s *QueueService) UpdateEntry(ctx context.Context, entryID string, status *string, estimatedWait *int) (*domain.QueueEntry, error) {
	entry, err := s.entries.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	// RoomID is immutable, so the lock looked up from the unguarded read is
	// the right one.
	unlock := s.locks.Lock(entry.RoomID)
	entry, err = s.updateLocked(ctx, entryID, status, estimatedWait)
	unlock()
	if err != nil {
		return nil, err
	}

	s.notifyQueueChanged(ctx, entry.RoomID)
	return entry, nil
}

func (s *QueueService) updateLocked(ctx context.Context, entryID string, status *string, estimatedWait *int) (*domain.QueueEntry, error) {
	// Re-read under the lock; the entry may have moved since the caller's read.
	entry, err := s.entries.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	changed := false
	if status != nil && *status != "" {
		applied, err := s.applyStatus(entry, *status)
		if err != nil {
			return nil, err
		}
		changed = changed || applied
	}
	if estimatedWait != nil {
		entry.EstimatedWait = estimatedWait
		changed = true
	}

	if changed {
		if err := s.entries.UpdateEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to update queue entry: %w", err)
		}
	}
	return entry, nil
}

// applyStatus mutates entry in place and reports whether anything changed.
func (s *QueueService) applyStatus(entry *domain.QueueEntry, raw string) (bool, error) {
	next, ok := domain.ParseStatus(raw)
	if !ok {
		if s.strict {
			return false, fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
		}
		// Legacy behavior: an unrecognized status string leaves the entry
		// untouched instead of erroring.
		s.logger.Debug("ignoring unrecognized status", zap.String("status", raw))
		return false, nil
	}
	if next == entry.Status {
		return false, nil
	}
	if !domain.CanTransition(entry.Status, next) {
		if s.strict {
			return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, entry.Status, next)
		}
		s.logger.Debug("ignoring illegal transition",
			zap.String("from", string(entry.Status)),
			zap.String("to", string(next)),
		)
		return false, nil
	}

	s.transition(entry, next)
	return true, nil
}

// transition stamps calledAt/servedAt exactly once.
func (s *QueueService) transition(entry *domain.QueueEntry, next domain.Status) {
	now := s.now().UTC()
	entry.Status = next
	switch next {
	case domain.StatusCalling:
		if entry.CalledAt == nil {
			entry.CalledAt = &now
		}
	case domain.StatusServed:
		if entry.ServedAt == nil {
			entry.ServedAt = &now
		}
	}
}

// CallNext selects the first waiting entry of the room under the ordering
// policy and advances it to Calling. Selection and transition run inside the
// room's critical section, so two operators clicking at the same time can
// never call the same patient.
func (s *QueueService) CallNext(ctx context.Context, roomID string) (*domain.QueueEntry, error) {
	if roomID == "" {
		return nil, fmt.Errorf("room_id is required")
	}

	unlock := s.locks.Lock(roomID)
	entry, err := s.callNextLocked(ctx, roomID)
	unlock()
	if err != nil {
		return nil, err
	}

	s.notifyCall(ctx, entry)
	return entry, nil
}

func (s *QueueService) callNextLocked(ctx context.Context, roomID string) (*domain.QueueEntry, error) {
	waiting, err := s.entries.ListByRoom(ctx, roomID, domain.StatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting entries: %w", err)
	}
	if len(waiting) == 0 {
		return nil, ErrNoneWaiting
	}

	next := &waiting[0]
	for i := 1; i < len(waiting); i++ {
		if domain.EntryBefore(&waiting[i], next) {
			next = &waiting[i]
		}
	}

	s.transition(next, domain.StatusCalling)
	if err := s.entries.UpdateEntry(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to advance entry to calling: %w", err)
	}
	return next, nil
}

// Position returns the entry's 1-based rank among its room's waiting entries.
// 0 means "not applicable": the entry does not exist or is not waiting.
func (s *QueueService) Position(ctx context.Context, entryID string) (int, error) {
	entry, err := s.entries.GetEntry(ctx, entryID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if entry.Status != domain.StatusWaiting {
		return 0, nil
	}

	waiting, err := s.entries.ListByRoom(ctx, entry.RoomID, domain.StatusWaiting)
	if err != nil {
		return 0, fmt.Errorf("failed to list waiting entries: %w", err)
	}

	pos := 1
	for i := range waiting {
		if waiting[i].ID == entry.ID {
			continue
		}
		if domain.EntryBefore(&waiting[i], entry) {
			pos++
		}
	}
	return pos, nil
}

// EstimatedWait 房间当前预计等待时间（分钟）
func (s *QueueService) EstimatedWait(ctx context.Context, roomID string) (int, error) {
	waiting, err := s.entries.ListByRoom(ctx, roomID, domain.StatusWaiting)
	if err != nil {
		return 0, fmt.Errorf("failed to list waiting entries: %w", err)
	}
	return len(waiting) * MinutesPerPatient, nil
}

// NextTicketNumber previews the ticket number the next creation would get.
func (s *QueueService) NextTicketNumber(ctx context.Context, roomID string) (int, error) {
	return s.seq.NextTicket(ctx, roomID, s.now().UTC())
}

// GetEntry 按 ID 查询队列条目
func (s *QueueService) GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error) {
	return s.entries.GetEntry(ctx, entryID)
}

// DeleteEntry removes an entry unconditionally, bypassing the state machine.
// This is the data-hygiene escape hatch, not a queue transition.
func (s *QueueService) DeleteEntry(ctx context.Context, entryID string) (bool, error) {
	entry, err := s.entries.GetEntry(ctx, entryID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.entries.DeleteEntry(ctx, entryID); err != nil {
		return false, fmt.Errorf("failed to delete queue entry: %w", err)
	}

	s.notifyQueueChanged(ctx, entry.RoomID)
	return true, nil
}

// ListRoomQueue returns the room's open entries (Waiting and Calling) in
// serving order.
func (s *QueueService) ListRoomQueue(ctx context.Context, roomID string) ([]domain.QueueEntry, error) {
	open, err := s.entries.ListByRoom(ctx, roomID, domain.StatusWaiting, domain.StatusCalling)
	if err != nil {
		return nil, fmt.Errorf("failed to list room queue: %w", err)
	}
	sort.Slice(open, func(i, j int) bool {
		return domain.EntryBefore(&open[i], &open[j])
	})
	return open, nil
}

// ListWaiting returns every waiting entry across rooms, grouped by room and
// in serving order within each room.
func (s *QueueService) ListWaiting(ctx context.Context) ([]domain.QueueEntry, error) {
	waiting, err := s.entries.ListByStatus(ctx, domain.StatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting entries: %w", err)
	}
	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].RoomID != waiting[j].RoomID {
			return waiting[i].RoomID < waiting[j].RoomID
		}
		return domain.EntryBefore(&waiting[i], &waiting[j])
	})
	return waiting, nil
}

// ListRoomDay returns all entries created in the room on the given day, in
// ticket order. Used by the day report.
func (s *QueueService) ListRoomDay(ctx context.Context, roomID string, day time.Time) ([]domain.QueueEntry, error) {
	entries, err := s.entries.ListByRoomDay(ctx, roomID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list room day entries: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].TicketNumber < entries[j].TicketNumber
	})
	return entries, nil
}

func (s *QueueService) notifyQueueChanged(ctx context.Context, roomID string) {
	if err := s.notifier.QueueChanged(ctx, roomID); err != nil {
		s.logger.Warn("failed to notify queue change",
			zap.String("room_id", roomID),
			zap.Error(err),
		)
	}
}

func (s *QueueService) notifyCall(ctx context.Context, entry *domain.QueueEntry) {
	patientName := entry.PatientID
	if p, err := s.patients.GetPatient(ctx, entry.PatientID); err == nil {
		patientName = p.Name
	}

	if err := s.notifier.NewCall(ctx, entry.RoomID, entry.TicketNumber, patientName); err != nil {
		s.logger.Warn("failed to notify new call",
			zap.String("room_id", entry.RoomID),
			zap.Int("ticket_number", entry.TicketNumber),
			zap.Error(err),
		)
	}
	if err := s.notifier.PanelCall(ctx, entry.RoomID, entry.TicketNumber); err != nil {
		s.logger.Warn("failed to notify panel",
			zap.String("room_id", entry.RoomID),
			zap.Int("ticket_number", entry.TicketNumber),
			zap.Error(err),
		)
	}
}
