package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/premiumdental/dental-ai-platform/internal/appointments"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

type capturingSender struct {
	sent    []EmailMessage
	failFor map[string]bool
}

func (s *capturingSender) Send(_ context.Context, msg EmailMessage) error {
	if s.failFor[msg.To] {
		return errors.New("smtp down")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func emergencyAppointment() *appointments.Appointment {
	return &appointments.Appointment{
		ID:               "apt_11112222",
		PatientID:        "pat_abc12345",
		Type:             appointments.TypeEmergency,
		ScheduledTime:    time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Status:           appointments.StatusScheduled,
		EmergencyDetails: "knocked-out front tooth",
	}
}

func TestNotifyEmergencyEmailsAllStaff(t *testing.T) {
	sender := &capturingSender{}
	n := NewStaffNotifier(sender, []string{"oncall@premiumdental.example", "frontdesk@premiumdental.example"}, logging.New("error"))

	if err := n.NotifyEmergency(context.Background(), emergencyAppointment()); err != nil {
		t.Fatalf("NotifyEmergency: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent %d emails, want 2", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0].Subject, "apt_11112222") {
		t.Errorf("subject = %q", sender.sent[0].Subject)
	}
	if !strings.Contains(sender.sent[0].Body, "knocked-out front tooth") {
		t.Errorf("body missing details:\n%s", sender.sent[0].Body)
	}
}

func TestNotifyEmergencyPartialDeliveryIsSuccess(t *testing.T) {
	sender := &capturingSender{failFor: map[string]bool{"oncall@premiumdental.example": true}}
	n := NewStaffNotifier(sender, []string{"oncall@premiumdental.example", "frontdesk@premiumdental.example"}, logging.New("error"))

	if err := n.NotifyEmergency(context.Background(), emergencyAppointment()); err != nil {
		t.Fatalf("partial delivery should succeed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
}

func TestNotifyEmergencyTotalFailure(t *testing.T) {
	sender := &capturingSender{failFor: map[string]bool{"oncall@premiumdental.example": true}}
	n := NewStaffNotifier(sender, []string{"oncall@premiumdental.example"}, logging.New("error"))

	if err := n.NotifyEmergency(context.Background(), emergencyAppointment()); err == nil {
		t.Fatal("expected error when no staff could be reached")
	}
}

func TestNotifyEmergencyNoStaffConfigured(t *testing.T) {
	n := NewStaffNotifier(&capturingSender{}, nil, logging.New("error"))
	if err := n.NotifyEmergency(context.Background(), emergencyAppointment()); err == nil {
		t.Fatal("expected error with no staff configured")
	}
}
