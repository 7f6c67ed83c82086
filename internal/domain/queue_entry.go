package domain

import "time"

// Status 队列条目状态
type Status string

const (
	StatusWaiting   Status = "Waiting"
	StatusCalling   Status = "Calling"
	StatusServed    Status = "Served"
	StatusCancelled Status = "Cancelled"
)

// ParseStatus maps a status string to a Status. Unknown strings return ok=false;
// callers decide whether to ignore or reject them.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusWaiting, StatusCalling, StatusServed, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// Terminal reports whether no further transition is accepted from s.
func (s Status) Terminal() bool {
	return s == StatusServed || s == StatusCancelled
}

// CanTransition reports whether from -> to is a legal queue transition.
// Waiting -> Served is allowed on purpose: the front desk may serve a patient
// without going through Calling.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusWaiting:
		return to == StatusCalling || to == StatusServed || to == StatusCancelled
	case StatusCalling:
		return to == StatusServed || to == StatusCancelled
	}
	return false
}

// QueueEntry 队列条目领域模型（对应 queue_entries 表）
// One patient's position in one room's queue.
type QueueEntry struct {
	ID            string     `db:"entry_id"`       // UUID, PRIMARY KEY
	PatientID     string     `db:"patient_id"`     // UUID, NOT NULL
	RoomID        string     `db:"room_id"`        // UUID, NOT NULL
	TicketNumber  int        `db:"ticket_number"`  // sequential per (room, day)
	Status        Status     `db:"status"`         // VARCHAR(20)
	Priority      int        `db:"priority"`       // 0 = normal, 1 = expedited
	EstimatedWait *int       `db:"estimated_wait"` // minutes, advisory only
	CreatedAt     time.Time  `db:"created_at"`     // TIMESTAMPTZ, NOT NULL
	CalledAt      *time.Time `db:"called_at"`      // set on Waiting -> Calling
	ServedAt      *time.Time `db:"served_at"`      // set on transition to Served
}

// Day returns the UTC calendar day the entry was created on.
// Ticket numbers restart from 1 on each day boundary.
func (e *QueueEntry) Day() time.Time {
	return DayOf(e.CreatedAt)
}

// DayOf truncates t to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EntryBefore is the total order over waiting entries: higher priority first,
// then earlier arrival, then entry ID so the order is deterministic for equal
// timestamps. CallNext selection and position reporting must agree on it.
func EntryBefore(a, b *QueueEntry) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
