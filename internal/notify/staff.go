package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/premiumdental/dental-ai-platform/internal/appointments"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

// StaffNotifier alerts on-call staff about emergency bookings by email.
type StaffNotifier struct {
	sender EmailSender
	staff  []string
	logger *logging.Logger
}

var _ appointments.EmergencyNotifier = (*StaffNotifier)(nil)

// NewStaffNotifier wires the notifier. Staff addresses come from config;
// an empty list makes NotifyEmergency an error so misconfiguration shows
// up in logs rather than silently dropping alerts.
func NewStaffNotifier(sender EmailSender, staff []string, logger *logging.Logger) *StaffNotifier {
	if sender == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StaffNotifier{sender: sender, staff: staff, logger: logger}
}

// NotifyEmergency emails every configured staff address. Partial delivery
// counts as success; total failure is reported to the caller.
func (n *StaffNotifier) NotifyEmergency(ctx context.Context, appt *appointments.Appointment) error {
	if len(n.staff) == 0 {
		return errors.New("notify: no staff email addresses configured")
	}

	msg := EmailMessage{
		Subject: fmt.Sprintf("EMERGENCY booking %s at %s", appt.ID, appt.ScheduledTime.Format(time.RFC1123)),
		Body:    emergencyBody(appt),
	}

	var delivered int
	var errs []error
	for _, address := range n.staff {
		msg.To = address
		if err := n.sender.Send(ctx, msg); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("notify: emergency alert reached no staff: %w", errors.Join(errs...))
	}
	if len(errs) > 0 {
		n.logger.Warn("emergency alert partially delivered",
			"appointment_id", appt.ID,
			"delivered", delivered,
			"failed", len(errs),
		)
	}
	return nil
}

func emergencyBody(appt *appointments.Appointment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "An emergency appointment was booked through the chat assistant.\n\n")
	fmt.Fprintf(&b, "Appointment: %s\n", appt.ID)
	fmt.Fprintf(&b, "Patient:     %s\n", appt.PatientID)
	fmt.Fprintf(&b, "Time:        %s\n", appt.ScheduledTime.Format(time.RFC1123))
	if appt.EmergencyDetails != "" {
		fmt.Fprintf(&b, "Details:     %s\n", appt.EmergencyDetails)
	}
	b.WriteString("\nPlease confirm coverage for this slot.\n")
	return b.String()
}
