package appointments

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Failure modes surfaced to the tool layer. They describe validation
// problems, not infrastructure faults, and are never fatal to a run.
var (
	ErrNotFound         = errors.New("appointments: appointment not found")
	ErrPatientNotFound  = errors.New("appointments: patient not found")
	ErrInvalidType      = errors.New("appointments: invalid appointment type")
	ErrInvalidTime      = errors.New("appointments: scheduled time must be in the future")
	ErrNotCancellable   = errors.New("appointments: appointment cannot be cancelled")
	ErrNotReschedulable = errors.New("appointments: appointment cannot be rescheduled")
)

// Type enumerates the visit types the practice books.
type Type string

const (
	TypeCleaning  Type = "cleaning"
	TypeCheckup   Type = "checkup"
	TypeEmergency Type = "emergency"
)

// ParseType validates a free-form type string from the model.
func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeCleaning:
		return TypeCleaning, nil
	case TypeCheckup:
		return TypeCheckup, nil
	case TypeEmergency:
		return TypeEmergency, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, raw)
	}
}

// Status enumerates the appointment lifecycle.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Appointment is a booked visit.
type Appointment struct {
	ID               string    `json:"id"`
	PatientID        string    `json:"patient_id"`
	Type             Type      `json:"appointment_type"`
	ScheduledTime    time.Time `json:"scheduled_time"`
	Status           Status    `json:"status"`
	EmergencyDetails string    `json:"emergency_details,omitempty"`
	StaffNotified    bool      `json:"staff_notified"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsEmergency reports whether the visit was booked as an emergency.
func (a *Appointment) IsEmergency() bool {
	return a.Type == TypeEmergency
}

// CanBeCancelled reports whether the appointment is still active.
func (a *Appointment) CanBeCancelled() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// CanBeRescheduled reports whether the appointment may move to a new time.
func (a *Appointment) CanBeRescheduled() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// Occupies reports whether the appointment blocks availability. Cancelled
// and completed visits do not.
func (a *Appointment) Occupies() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}
