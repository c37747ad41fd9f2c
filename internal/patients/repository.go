package patients

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository provides persistence for patient records.
type Repository interface {
	Create(ctx context.Context, patient *Patient) (*Patient, error)
	GetByID(ctx context.Context, id string) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	Update(ctx context.Context, patient *Patient) (*Patient, error)
}

// NewPatientID returns a fresh prefixed patient identifier.
func NewPatientID() string {
	return fmt.Sprintf("pat_%s", uuid.NewString()[:8])
}

// InMemoryRepository is a Repository backed by a map, used in development
// and tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Patient
	byPhone map[string]string // normalized phone -> patient ID
}

// NewInMemoryRepository creates an empty in-memory patient repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:    make(map[string]*Patient),
		byPhone: make(map[string]string),
	}
}

// Create stores a new patient, assigning an ID when absent.
func (r *InMemoryRepository) Create(_ context.Context, patient *Patient) (*Patient, error) {
	normalized, err := NormalizePhone(patient.Phone)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *patient
	if stored.ID == "" {
		stored.ID = NewPatientID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.byID[stored.ID] = &stored
	r.byPhone[normalized] = stored.ID

	out := stored
	return &out, nil
}

// GetByID returns the patient or ErrNotFound.
func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patient, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *patient
	return &out, nil
}

// GetByPhone looks a patient up by any formatting of their phone number.
func (r *InMemoryRepository) GetByPhone(_ context.Context, phone string) (*Patient, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[normalized]
	if !ok {
		return nil, ErrNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

// Update replaces an existing patient record.
func (r *InMemoryRepository) Update(_ context.Context, patient *Patient) (*Patient, error) {
	normalized, err := NormalizePhone(patient.Phone)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[patient.ID]; !ok {
		return nil, ErrNotFound
	}
	stored := *patient
	r.byID[stored.ID] = &stored
	r.byPhone[normalized] = stored.ID

	out := stored
	return &out, nil
}

var _ Repository = (*InMemoryRepository)(nil)
