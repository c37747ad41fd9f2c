package conversation

import (
	"context"
	"time"

	"github.com/premiumdental/dental-ai-platform/internal/appointments"
)

// AppointmentService is the slice of the scheduler the tools call.
type AppointmentService interface {
	Create(ctx context.Context, req appointments.CreateRequest) (*appointments.Appointment, error)
	AvailableSlots(ctx context.Context, rangeStart, rangeEnd time.Time, duration time.Duration) ([]appointments.TimeSlot, error)
	Cancel(ctx context.Context, id string) (*appointments.Appointment, error)
	Reschedule(ctx context.Context, id string, newTime time.Time) (*appointments.Appointment, error)
}

// RegisterAppointmentTools adds the scheduling tools.
func RegisterAppointmentTools(reg *Registry, svc AppointmentService) {
	reg.Register(Tool{
		Schema: ToolSchema{
			Name:        "create_appointment",
			Description: "Book an appointment for a registered patient. For emergencies, include a short description so staff can be alerted.",
			Parameters: ObjectSchema{
				Properties: map[string]ParamSchema{
					"patient_id":        {Type: "string", Description: "Patient identifier from registration or verification"},
					"appointment_type":  {Type: "string", Description: "Kind of visit", Enum: []string{"cleaning", "checkup", "emergency"}},
					"scheduled_time":    {Type: "string", Description: "Appointment start, RFC 3339"},
					"emergency_details": {Type: "string", Description: "What happened, for emergency visits"},
				},
				Required: []string{"patient_id", "appointment_type", "scheduled_time"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			patientID, err := stringArg(args, "patient_id")
			if err != nil {
				return nil, err
			}
			apptType, err := stringArg(args, "appointment_type")
			if err != nil {
				return nil, err
			}
			scheduled, err := timeArg(args, "scheduled_time")
			if err != nil {
				return nil, err
			}

			appt, err := svc.Create(ctx, appointments.CreateRequest{
				PatientID:        patientID,
				Type:             apptType,
				ScheduledTime:    scheduled,
				EmergencyDetails: optionalStringArg(args, "emergency_details"),
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"appointment_id":   appt.ID,
				"patient_id":       appt.PatientID,
				"appointment_type": string(appt.Type),
				"scheduled_time":   appt.ScheduledTime.Format(time.RFC3339),
				"status":           string(appt.Status),
				"staff_notified":   appt.StaffNotified,
			}, nil
		},
	})

	reg.Register(Tool{
		Schema: ToolSchema{
			Name:        "get_available_slots",
			Description: "List open appointment slots in a date range. Use before proposing times to the patient.",
			Parameters: ObjectSchema{
				Properties: map[string]ParamSchema{
					"start_date":       {Type: "string", Description: "Range start, RFC 3339 or YYYY-MM-DD"},
					"end_date":         {Type: "string", Description: "Range end, RFC 3339 or YYYY-MM-DD; defaults to one day after start"},
					"duration_minutes": {Type: "integer", Description: "Desired visit length in minutes; defaults to 30"},
				},
				Required: []string{"start_date"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			start, err := timeArg(args, "start_date")
			if err != nil {
				return nil, err
			}
			end := start.AddDate(0, 0, 1)
			if optionalStringArg(args, "end_date") != "" {
				if end, err = timeArg(args, "end_date"); err != nil {
					return nil, err
				}
			}
			minutes, err := optionalIntArg(args, "duration_minutes", 30)
			if err != nil {
				return nil, err
			}

			slots, err := svc.AvailableSlots(ctx, start, end, time.Duration(minutes)*time.Minute)
			if err != nil {
				return nil, err
			}
			open := make([]string, 0, len(slots))
			for _, slot := range slots {
				open = append(open, slot.Start.Format(time.RFC3339))
			}
			return map[string]any{
				"available_slots":  open,
				"count":            len(open),
				"duration_minutes": minutes,
			}, nil
		},
	})

	reg.Register(Tool{
		Schema: ToolSchema{
			Name:        "cancel_appointment",
			Description: "Cancel an existing appointment by appointment ID.",
			Parameters: ObjectSchema{
				Properties: map[string]ParamSchema{
					"appointment_id": {Type: "string", Description: "Appointment identifier, e.g. apt_1a2b3c4d"},
				},
				Required: []string{"appointment_id"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			id, err := stringArg(args, "appointment_id")
			if err != nil {
				return nil, err
			}
			appt, err := svc.Cancel(ctx, id)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"appointment_id": appt.ID,
				"status":         string(appt.Status),
			}, nil
		},
	})

	reg.Register(Tool{
		Schema: ToolSchema{
			Name:        "reschedule_appointment",
			Description: "Move an existing appointment to a new time. Check availability first with get_available_slots.",
			Parameters: ObjectSchema{
				Properties: map[string]ParamSchema{
					"appointment_id": {Type: "string", Description: "Appointment identifier"},
					"new_time":       {Type: "string", Description: "New start time, RFC 3339"},
				},
				Required: []string{"appointment_id", "new_time"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			id, err := stringArg(args, "appointment_id")
			if err != nil {
				return nil, err
			}
			newTime, err := timeArg(args, "new_time")
			if err != nil {
				return nil, err
			}
			appt, err := svc.Reschedule(ctx, id, newTime)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"appointment_id": appt.ID,
				"scheduled_time": appt.ScheduledTime.Format(time.RFC3339),
				"status":         string(appt.Status),
			}, nil
		},
	})
}
