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

// ErrDocumentTaken 证件号已被其他患者使用
var ErrDocumentTaken = errors.New("document already registered")

// PatientService 患者服务层
// Thin CRUD over the patients repository; the queue engine itself never
// validates patient records.
type PatientService struct {
	patients repository.PatientsRepo
	logger   *zap.Logger
	now      func() time.Time
}

func NewPatientService(patients repository.PatientsRepo, logger *zap.Logger) *PatientService {
	return &PatientService{patients: patients, logger: logger, now: time.Now}
}

func (s *PatientService) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	return s.patients.ListPatients(ctx)
}

func (s *PatientService) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	return s.patients.GetPatient(ctx, patientID)
}

func (s *PatientService) GetPatientByDocument(ctx context.Context, document string) (*domain.Patient, error) {
	return s.patients.GetPatientByDocument(ctx, document)
}

// CreatePatient registers a patient. The document number must be unique.
func (s *PatientService) CreatePatient(ctx context.Context, name, document string, phone, email *string, birthDate time.Time) (*domain.Patient, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if document == "" {
		return nil, fmt.Errorf("document is required")
	}

	if _, err := s.patients.GetPatientByDocument(ctx, document); err == nil {
		return nil, ErrDocumentTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check document: %w", err)
	}

	p := &domain.Patient{
		ID:        uuid.NewString(),
		Name:      name,
		Document:  document,
		Phone:     phone,
		Email:     email,
		BirthDate: birthDate,
		CreatedAt: s.now().UTC(),
	}
	if err := s.patients.CreatePatient(ctx, p); err != nil {
		s.logger.Error("Failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return p, nil
}

// UpdatePatient applies the non-empty fields onto the stored record.
func (s *PatientService) UpdatePatient(ctx context.Context, patientID string, name *string, phone, email *string, birthDate *time.Time) (*domain.Patient, error) {
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if name != nil && *name != "" {
		p.Name = *name
	}
	if phone != nil {
		p.Phone = phone
	}
	if email != nil {
		p.Email = email
	}
	if birthDate != nil {
		p.BirthDate = *birthDate
	}

	if err := s.patients.UpdatePatient(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return p, nil
}

func (s *PatientService) DeletePatient(ctx context.Context, patientID string) (bool, error) {
	err := s.patients.DeletePatient(ctx, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete patient: %w", err)
	}
	return true, nil
}
