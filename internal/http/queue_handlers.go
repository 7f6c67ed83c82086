package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"voucher-queue/internal/domain"
	"voucher-queue/internal/report"
	"voucher-queue/internal/repository"
	"voucher-queue/internal/service"

	"go.uber.org/zap"
)

// QueueHandler 队列API处理器
type QueueHandler struct {
	queues   *service.QueueService
	patients *service.PatientService
	rooms    *service.RoomService
	exporter *report.Exporter
	auth     *AuthHandler
	logger   *zap.Logger
}

func NewQueueHandler(
	queues *service.QueueService,
	patients *service.PatientService,
	rooms *service.RoomService,
	exporter *report.Exporter,
	auth *AuthHandler,
	logger *zap.Logger,
) *QueueHandler {
	return &QueueHandler{
		queues:   queues,
		patients: patients,
		rooms:    rooms,
		exporter: exporter,
		auth:     auth,
		logger:   logger,
	}
}

// queueEntryView is the wire representation of a queue entry, enriched with
// the patient and room names for display.
type queueEntryView struct {
	ID            string     `json:"id"`
	PatientID     string     `json:"patient_id"`
	PatientName   string     `json:"patient_name"`
	RoomID        string     `json:"room_id"`
	RoomName      string     `json:"room_name"`
	TicketNumber  int        `json:"ticket_number"`
	Status        string     `json:"status"`
	Priority      int        `json:"priority"`
	EstimatedWait *int       `json:"estimated_wait,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CalledAt      *time.Time `json:"called_at,omitempty"`
	ServedAt      *time.Time `json:"served_at,omitempty"`
}

type createEntryRequest struct {
	PatientID string `json:"patient_id"`
	RoomID    string `json:"room_id"`
	Priority  int    `json:"priority"`
}

type updateEntryRequest struct {
	Status        *string `json:"status"`
	EstimatedWait *int    `json:"estimated_wait"`
}

// Dispatch routes /api/v1/queues requests. The ServeMux in go1.21 has no
// method patterns, so the method/segment switch lives here.
func (h *QueueHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/queues"), "/")
	parts := []string{}
	if rest != "" {
		parts = strings.Split(rest, "/")
	}

	switch {
	case len(parts) == 0:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.create(w, r)

	case parts[0] == "waiting" && len(parts) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if h.auth.RequireAuth(w, r) == nil {
			return
		}
		h.listWaiting(w, r)

	case parts[0] == "room" && len(parts) >= 2:
		h.dispatchRoom(w, r, parts[1], parts[2:])

	case len(parts) == 1:
		h.dispatchEntry(w, r, parts[0])

	case len(parts) == 2:
		h.dispatchEntrySub(w, r, parts[0], parts[1])

	default:
		writeFail(w, http.StatusNotFound, "not found")
	}
}

func (h *QueueHandler) dispatchRoom(w http.ResponseWriter, r *http.Request, roomID string, sub []string) {
	switch {
	case len(sub) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.listRoom(w, r, roomID)

	case len(sub) == 1 && sub[0] == "call-next":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if h.auth.RequireAuth(w, r) == nil {
			return
		}
		h.callNext(w, r, roomID)

	case len(sub) == 1 && sub[0] == "estimated-wait":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.estimatedWait(w, r, roomID)

	case len(sub) == 1 && sub[0] == "next-ticket":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.nextTicket(w, r, roomID)

	case len(sub) == 1 && sub[0] == "report":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if h.auth.RequireAuth(w, r) == nil {
			return
		}
		h.dayReport(w, r, roomID)

	default:
		writeFail(w, http.StatusNotFound, "not found")
	}
}

func (h *QueueHandler) dispatchEntry(w http.ResponseWriter, r *http.Request, entryID string) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, entryID)
	case http.MethodPut:
		if h.auth.RequireAuth(w, r) == nil {
			return
		}
		h.update(w, r, entryID)
	case http.MethodDelete:
		if h.auth.RequireAuth(w, r) == nil {
			return
		}
		h.delete(w, r, entryID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *QueueHandler) dispatchEntrySub(w http.ResponseWriter, r *http.Request, entryID, action string) {
	switch action {
	case "position":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.position(w, r, entryID)
	case "served", "cancel":
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if h.auth.RequireAuth(w, r) == nil {
			return
		}
		status := string(domain.StatusServed)
		if action == "cancel" {
			status = string(domain.StatusCancelled)
		}
		h.applyStatus(w, r, entryID, status)
	default:
		writeFail(w, http.StatusNotFound, "not found")
	}
}

func (h *QueueHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.queues.CreateEntry(r.Context(), req.PatientID, req.RoomID, req.Priority)
	if err != nil {
		h.logger.Error("Failed to create queue entry", zap.Error(err))
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, Ok(h.view(r, entry)))
}

func (h *QueueHandler) get(w http.ResponseWriter, r *http.Request, entryID string) {
	entry, err := h.queues.GetEntry(r.Context(), entryID)
	if errors.Is(err, repository.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "queue entry not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get queue entry", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, h.view(r, entry))
}

func (h *QueueHandler) update(w http.ResponseWriter, r *http.Request, entryID string) {
	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.queues.UpdateEntry(r.Context(), entryID, req.Status, req.EstimatedWait)
	if errors.Is(err, repository.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "queue entry not found")
		return
	}
	if errors.Is(err, service.ErrUnknownStatus) || errors.Is(err, service.ErrInvalidTransition) {
		writeFail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to update queue entry", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, h.view(r, entry))
}

func (h *QueueHandler) applyStatus(w http.ResponseWriter, r *http.Request, entryID, status string) {
	entry, err := h.queues.UpdateEntry(r.Context(), entryID, &status, nil)
	if errors.Is(err, repository.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "queue entry not found")
		return
	}
	if errors.Is(err, service.ErrInvalidTransition) {
		writeFail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to apply status", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, h.view(r, entry))
}

func (h *QueueHandler) delete(w http.ResponseWriter, r *http.Request, entryID string) {
	deleted, err := h.queues.DeleteEntry(r.Context(), entryID)
	if err != nil {
		h.logger.Error("Failed to delete queue entry", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		writeFail(w, http.StatusNotFound, "queue entry not found")
		return
	}
	writeOK(w, map[string]bool{"deleted": true})
}

func (h *QueueHandler) callNext(w http.ResponseWriter, r *http.Request, roomID string) {
	entry, err := h.queues.CallNext(r.Context(), roomID)
	if errors.Is(err, service.ErrNoneWaiting) {
		writeFail(w, http.StatusNotFound, "no patients waiting")
		return
	}
	if err != nil {
		h.logger.Error("Failed to call next patient", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, h.view(r, entry))
}

func (h *QueueHandler) listRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	entries, err := h.queues.ListRoomQueue(r.Context(), roomID)
	if err != nil {
		h.logger.Error("Failed to list room queue", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, h.views(r, entries))
}

func (h *QueueHandler) listWaiting(w http.ResponseWriter, r *http.Request) {
	entries, err := h.queues.ListWaiting(r.Context())
	if err != nil {
		h.logger.Error("Failed to list waiting entries", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, h.views(r, entries))
}

func (h *QueueHandler) position(w http.ResponseWriter, r *http.Request, entryID string) {
	pos, err := h.queues.Position(r.Context(), entryID)
	if err != nil {
		h.logger.Error("Failed to compute position", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, map[string]int{"position": pos})
}

func (h *QueueHandler) estimatedWait(w http.ResponseWriter, r *http.Request, roomID string) {
	minutes, err := h.queues.EstimatedWait(r.Context(), roomID)
	if err != nil {
		h.logger.Error("Failed to compute estimated wait", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, map[string]int{"estimated_wait_minutes": minutes})
}

func (h *QueueHandler) nextTicket(w http.ResponseWriter, r *http.Request, roomID string) {
	ticket, err := h.queues.NextTicketNumber(r.Context(), roomID)
	if err != nil {
		h.logger.Error("Failed to preview next ticket", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, map[string]int{"next_ticket": ticket})
}

func (h *QueueHandler) dayReport(w http.ResponseWriter, r *http.Request, roomID string) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	content, err := h.exporter.RoomDayReport(r.Context(), roomID, day)
	if err != nil {
		h.logger.Error("Failed to build day report", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	filename := fmt.Sprintf("queue-report-%s-%s.xlsx", roomID, day.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *QueueHandler) view(r *http.Request, entry *domain.QueueEntry) queueEntryView {
	v := queueEntryView{
		ID:            entry.ID,
		PatientID:     entry.PatientID,
		PatientName:   entry.PatientID,
		RoomID:        entry.RoomID,
		RoomName:      entry.RoomID,
		TicketNumber:  entry.TicketNumber,
		Status:        string(entry.Status),
		Priority:      entry.Priority,
		EstimatedWait: entry.EstimatedWait,
		CreatedAt:     entry.CreatedAt,
		CalledAt:      entry.CalledAt,
		ServedAt:      entry.ServedAt,
	}
	if p, err := h.patients.GetPatient(r.Context(), entry.PatientID); err == nil {
		v.PatientName = p.Name
	}
	if rm, err := h.rooms.GetRoom(r.Context(), entry.RoomID); err == nil {
		v.RoomName = rm.Name
	}
	return v
}

func (h *QueueHandler) views(r *http.Request, entries []domain.QueueEntry) []queueEntryView {
	out := make([]queueEntryView, 0, len(entries))
	for i := range entries {
		out = append(out, h.view(r, &entries[i]))
	}
	return out
}
