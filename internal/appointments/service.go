package appointments

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

var appointmentsTracer = otel.Tracer("dental.internal.appointments")

// PatientDirectory is the slice of the patients service the scheduler
// needs: existence checks before booking.
type PatientDirectory interface {
	Exists(ctx context.Context, patientID string) (bool, error)
}

// EmergencyNotifier alerts on-call staff when an emergency visit is booked.
// Notification failures are logged, never propagated to the caller.
type EmergencyNotifier interface {
	NotifyEmergency(ctx context.Context, appt *Appointment) error
}

// Service implements scheduling on top of a Repository.
type Service struct {
	repo     Repository
	patients PatientDirectory
	notifier EmergencyNotifier
	hours    BusinessHours
	logger   *logging.Logger
	now      func() time.Time
}

// NewService wires the scheduler. notifier may be nil when the deployment
// has no staff alerting configured.
func NewService(repo Repository, patients PatientDirectory, notifier EmergencyNotifier, hours BusinessHours, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repo required")
	}
	if patients == nil {
		panic("appointments: patient directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		patients: patients,
		notifier: notifier,
		hours:    hours,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateRequest carries the fields needed to book a visit.
type CreateRequest struct {
	PatientID        string
	Type             string
	ScheduledTime    time.Time
	EmergencyDetails string
	Notes            string
}

// Create books an appointment. Emergency bookings trigger a staff
// notification and record whether it went out.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.Create")
	defer span.End()

	apptType, err := ParseType(req.Type)
	if err != nil {
		return nil, err
	}
	if !req.ScheduledTime.After(s.now()) {
		return nil, ErrInvalidTime
	}
	ok, err := s.patients.Exists(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("appointments: patient lookup: %w", err)
	}
	if !ok {
		return nil, ErrPatientNotFound
	}

	now := s.now().UTC()
	appt := &Appointment{
		ID:               NewAppointmentID(),
		PatientID:        req.PatientID,
		Type:             apptType,
		ScheduledTime:    req.ScheduledTime,
		Status:           StatusScheduled,
		EmergencyDetails: req.EmergencyDetails,
		Notes:            req.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if appt.IsEmergency() {
		s.notifyStaff(ctx, appt)
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("appointment.id", appt.ID),
		attribute.String("appointment.type", string(appt.Type)),
	)
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"patient_id", appt.PatientID,
		"type", appt.Type,
		"scheduled_time", appt.ScheduledTime.Format(time.RFC3339),
	)
	return appt, nil
}

func (s *Service) notifyStaff(ctx context.Context, appt *Appointment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyEmergency(ctx, appt); err != nil {
		s.logger.Error("emergency staff notification failed", "appointment_id", appt.ID, "error", err)
		return
	}
	appt.StaffNotified = true
}

// GetByID loads one appointment.
func (s *Service) GetByID(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByPatient returns the patient's appointments ordered by time.
func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// AvailableSlots lists open slots of the given duration in
// [rangeStart, rangeEnd). Only appointments that still occupy their slot
// block availability; duration <= 0 falls back to the business-hours step.
func (s *Service) AvailableSlots(ctx context.Context, rangeStart, rangeEnd time.Time, duration time.Duration) ([]TimeSlot, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.AvailableSlots")
	defer span.End()

	if duration <= 0 {
		duration = s.hours.Step
	}
	// Bookings just past rangeEnd can still fall inside a long candidate's
	// interval, so the lookup window extends by one duration.
	appts, err := s.repo.ListBetween(ctx, rangeStart, rangeEnd.Add(duration))
	if err != nil {
		return nil, err
	}
	var booked []time.Time
	for _, appt := range appts {
		if appt.Occupies() {
			booked = append(booked, appt.ScheduledTime)
		}
	}
	slots := AvailableSlots(rangeStart, rangeEnd, duration, booked, s.hours)
	span.SetAttributes(attribute.Int("slots.open", len(slots)))
	return slots, nil
}

// Cancel marks an active appointment cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.CanBeCancelled() {
		return nil, fmt.Errorf("%w: status %s", ErrNotCancellable, appt.Status)
	}
	appt.Status = StatusCancelled
	appt.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.logger.Info("appointment cancelled", "appointment_id", appt.ID, "patient_id", appt.PatientID)
	return appt, nil
}

// Reschedule moves an active appointment to a new future time.
func (s *Service) Reschedule(ctx context.Context, id string, newTime time.Time) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.CanBeRescheduled() {
		return nil, fmt.Errorf("%w: status %s", ErrNotReschedulable, appt.Status)
	}
	if !newTime.After(s.now()) {
		return nil, ErrInvalidTime
	}
	appt.ScheduledTime = newTime
	appt.Status = StatusScheduled
	appt.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID,
		"new_time", newTime.Format(time.RFC3339),
	)
	return appt, nil
}
