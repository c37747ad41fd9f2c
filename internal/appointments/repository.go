package appointments

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository persists appointments.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]*Appointment, error)
	Update(ctx context.Context, appt *Appointment) error
}

// NewAppointmentID mints an appointment identifier.
func NewAppointmentID() string {
	return "apt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// InMemoryRepository is a mutex-guarded map store used by tests and
// single-node deployments without Postgres.
type InMemoryRepository struct {
	mu   sync.RWMutex
	byID map[string]*Appointment
}

// NewInMemoryRepository returns an empty in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byID: make(map[string]*Appointment)}
}

var _ Repository = (*InMemoryRepository)(nil)

func (r *InMemoryRepository) Create(_ context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *appt
	r.byID[appt.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

func (r *InMemoryRepository) ListByPatient(_ context.Context, patientID string) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, appt := range r.byID {
		if appt.PatientID == patientID {
			cp := *appt
			out = append(out, &cp)
		}
	}
	sortByTime(out)
	return out, nil
}

func (r *InMemoryRepository) ListBetween(_ context.Context, start, end time.Time) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, appt := range r.byID {
		if !appt.ScheduledTime.Before(start) && appt.ScheduledTime.Before(end) {
			cp := *appt
			out = append(out, &cp)
		}
	}
	sortByTime(out)
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[appt.ID]; !ok {
		return ErrNotFound
	}
	cp := *appt
	r.byID[appt.ID] = &cp
	return nil
}

func sortByTime(appts []*Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].ScheduledTime.Before(appts[j].ScheduledTime)
	})
}
