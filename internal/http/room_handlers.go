package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"voucher-queue/internal/repository"
	"voucher-queue/internal/service"

	"go.uber.org/zap"
)

// RoomHandler 房间API处理器
type RoomHandler struct {
	rooms  *service.RoomService
	auth   *AuthHandler
	logger *zap.Logger
}

func NewRoomHandler(rooms *service.RoomService, auth *AuthHandler, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, auth: auth, logger: logger}
}

type createRoomRequest struct {
	Name      string  `json:"name"`
	Specialty *string `json:"specialty"`
	Active    *bool   `json:"active"`
}

type updateRoomRequest struct {
	Name      *string `json:"name"`
	Specialty *string `json:"specialty"`
	Active    *bool   `json:"active"`
}

func (h *RoomHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/rooms"), "/")
	parts := []string{}
	if rest != "" {
		parts = strings.Split(rest, "/")
	}

	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			if h.auth.RequireAuth(w, r) == nil {
				return
			}
			h.create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case parts[0] == "active" && len(parts) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.listActive(w, r)

	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, parts[0])
		case http.MethodPut:
			if h.auth.RequireAuth(w, r) == nil {
				return
			}
			h.update(w, r, parts[0])
		case http.MethodDelete:
			if h.auth.RequireAuth(w, r) == nil {
				return
			}
			h.delete(w, r, parts[0])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	default:
		writeFail(w, http.StatusNotFound, "not found")
	}
}

func (h *RoomHandler) list(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		h.logger.Error("Failed to list rooms", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, rooms)
}

func (h *RoomHandler) listActive(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListActiveRooms(r.Context())
	if err != nil {
		h.logger.Error("Failed to list active rooms", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, rooms)
}

func (h *RoomHandler) get(w http.ResponseWriter, r *http.Request, roomID string) {
	room, err := h.rooms.GetRoom(r.Context(), roomID)
	if errors.Is(err, repository.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get room", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, room)
}

func (h *RoomHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	room, err := h.rooms.CreateRoom(r.Context(), req.Name, req.Specialty, active)
	if err != nil {
		h.logger.Error("Failed to create room", zap.Error(err))
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, Ok(room))
}

func (h *RoomHandler) update(w http.ResponseWriter, r *http.Request, roomID string) {
	var req updateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.rooms.UpdateRoom(r.Context(), roomID, req.Name, req.Specialty, req.Active)
	if errors.Is(err, repository.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "room not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to update room", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, room)
}

func (h *RoomHandler) delete(w http.ResponseWriter, r *http.Request, roomID string) {
	deleted, err := h.rooms.DeleteRoom(r.Context(), roomID)
	if err != nil {
		h.logger.Error("Failed to delete room", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		writeFail(w, http.StatusNotFound, "room not found")
		return
	}
	writeOK(w, map[string]bool{"deleted": true})
}
