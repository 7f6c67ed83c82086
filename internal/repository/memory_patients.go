package repository

import (
	"context"
	"sort"
	"sync"

	"voucher-queue/internal/domain"
)

// MemoryPatientsRepo supports patient management when DB is disabled.
type MemoryPatientsRepo struct {
	mu       sync.RWMutex
	patients map[string]domain.Patient // patientID -> patient
}

var _ PatientsRepo = (*MemoryPatientsRepo)(nil)

func NewMemoryPatientsRepo() *MemoryPatientsRepo {
	return &MemoryPatientsRepo{
		patients: map[string]domain.Patient{},
	}
}

func (r *MemoryPatientsRepo) ListPatients(_ context.Context) ([]domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.Patient, 0, len(r.patients))
	for _, p := range r.patients {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all, nil
}

func (r *MemoryPatientsRepo) GetPatient(_ context.Context, patientID string) (*domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[patientID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *MemoryPatientsRepo) GetPatientByDocument(_ context.Context, document string) (*domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if p.Document == document {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryPatientsRepo) CreatePatient(_ context.Context, p *domain.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = *p
	return nil
}

func (r *MemoryPatientsRepo) UpdatePatient(_ context.Context, p *domain.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; !ok {
		return ErrNotFound
	}
	r.patients[p.ID] = *p
	return nil
}

func (r *MemoryPatientsRepo) DeletePatient(_ context.Context, patientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[patientID]; !ok {
		return ErrNotFound
	}
	delete(r.patients, patientID)
	return nil
}
