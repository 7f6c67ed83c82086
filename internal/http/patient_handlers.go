package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"voucher-queue/internal/repository"
	"voucher-queue/internal/service"

	"go.uber.org/zap"
)

// PatientHandler 患者API处理器
type PatientHandler struct {
	patients *service.PatientService
	auth     *AuthHandler
	logger   *zap.Logger
}

func NewPatientHandler(patients *service.PatientService, auth *AuthHandler, logger *zap.Logger) *PatientHandler {
	return &PatientHandler{patients: patients, auth: auth, logger: logger}
}

type createPatientRequest struct {
	Name      string  `json:"name"`
	Document  string  `json:"document"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	BirthDate string  `json:"birth_date"`
}

type updatePatientRequest struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	BirthDate *string `json:"birth_date"`
}

func (h *PatientHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/patients"), "/")
	parts := []string{}
	if rest != "" {
		parts = strings.Split(rest, "/")
	}

	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			if h.auth.RequireAuth(w, r) == nil {
				return
			}
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case parts[0] == "document" && len(parts) == 2:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.getByDocument(w, r, parts[1])

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

func (h *PatientHandler) list(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patients.ListPatients(r.Context())
	if err != nil {
		h.logger.Error("Failed to list patients", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, patients)
}

func (h *PatientHandler) get(w http.ResponseWriter, r *http.Request, patientID string) {
	p, err := h.patients.GetPatient(r.Context(), patientID)
	if errors.Is(err, repository.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get patient", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, p)
}

func (h *PatientHandler) getByDocument(w http.ResponseWriter, r *http.Request, document string) {
	p, err := h.patients.GetPatientByDocument(r.Context(), document)
	if errors.Is(err, repository.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get patient by document", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, p)
}

func (h *PatientHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var birthDate time.Time
	if req.BirthDate != "" {
		parsed, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "birth_date must be YYYY-MM-DD")
			return
		}
		birthDate = parsed
	}

	p, err := h.patients.CreatePatient(r.Context(), req.Name, req.Document, req.Phone, req.Email, birthDate)
	if errors.Is(err, service.ErrDocumentTaken) {
		writeFail(w, http.StatusConflict, "document already registered")
		return
	}
	if err != nil {
		h.logger.Error("Failed to create patient", zap.Error(err))
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, Ok(p))
}

func (h *PatientHandler) update(w http.ResponseWriter, r *http.Request, patientID string) {
	var req updatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var birthDate *time.Time
	if req.BirthDate != nil && *req.BirthDate != "" {
		parsed, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			writeFail(w, http.StatusBadRequest, "birth_date must be YYYY-MM-DD")
			return
		}
		birthDate = &parsed
	}

	p, err := h.patients.UpdatePatient(r.Context(), patientID, req.Name, req.Phone, req.Email, birthDate)
	if errors.Is(err, repository.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to update patient", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, p)
}

func (h *PatientHandler) delete(w http.ResponseWriter, r *http.Request, patientID string) {
	deleted, err := h.patients.DeletePatient(r.Context(), patientID)
	if err != nil {
		h.logger.Error("Failed to delete patient", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		writeFail(w, http.StatusNotFound, "patient not found")
		return
	}
	writeOK(w, map[string]bool{"deleted": true})
}
