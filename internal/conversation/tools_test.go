package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/premiumdental/dental-ai-platform/internal/appointments"
	"github.com/premiumdental/dental-ai-platform/internal/patients"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

func newToolFixture(t *testing.T) (*Registry, *patients.Service) {
	t.Helper()
	logger := logging.New("error")
	patientSvc := patients.NewService(patients.NewInMemoryRepository(), logger)
	apptSvc := appointments.NewService(
		appointments.NewInMemoryRepository(), patientSvc, nil,
		appointments.DefaultBusinessHours(), logger,
	)
	reg := NewRegistry(nil, logger)
	RegisterPatientTools(reg, patientSvc)
	RegisterAppointmentTools(reg, apptSvc)
	return reg, patientSvc
}

func TestToolsRegisterAllSeven(t *testing.T) {
	reg, _ := newToolFixture(t)
	want := []string{
		"create_patient", "get_patient", "verify_patient",
		"create_appointment", "get_available_slots",
		"cancel_appointment", "reschedule_appointment",
	}
	schemas := reg.Schemas()
	if len(schemas) != len(want) {
		t.Fatalf("registered %d tools, want %d", len(schemas), len(want))
	}
	for i, name := range want {
		if schemas[i].Name != name {
			t.Errorf("schemas[%d] = %s, want %s", i, schemas[i].Name, name)
		}
	}
}

func TestCreatePatientTool(t *testing.T) {
	reg, _ := newToolFixture(t)

	result := reg.Dispatch(context.Background(), ToolCall{
		ID:   "call_1",
		Name: "create_patient",
		Arguments: map[string]any{
			"full_name":     "John Doe",
			"phone":         "+1 (555) 010-0000",
			"date_of_birth": "1985-03-12",
			"insurance":     "Delta Dental",
		},
	})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	id, _ := result.Payload["patient_id"].(string)
	if id == "" {
		t.Fatal("payload must carry patient_id")
	}
}

func TestCreatePatientToolMissingField(t *testing.T) {
	reg, _ := newToolFixture(t)

	result := reg.Dispatch(context.Background(), ToolCall{
		ID:        "call_1",
		Name:      "create_patient",
		Arguments: map[string]any{"full_name": "John Doe"},
	})
	if result.Success {
		t.Fatal("missing phone should fail")
	}
	if result.Error == "" {
		t.Error("error message should name the problem for the model")
	}
}

func TestVerifyPatientTool(t *testing.T) {
	reg, patientSvc := newToolFixture(t)
	created, err := patientSvc.Create(context.Background(), patients.CreateRequest{
		FullName:    "Jane Roe",
		Phone:       "+1 (555) 010-0199",
		DateOfBirth: time.Date(1990, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result := reg.Dispatch(context.Background(), ToolCall{
		ID:   "call_1",
		Name: "verify_patient",
		Arguments: map[string]any{
			"phone":         "15550100199",
			"date_of_birth": "1990-06-01",
		},
	})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	if verified, _ := result.Payload["verified"].(bool); !verified {
		t.Fatal("matching phone and dob should verify")
	}
	if result.Payload["patient_id"] != created.ID {
		t.Errorf("patient_id = %v", result.Payload["patient_id"])
	}

	// Wrong date of birth must not verify, and must not error.
	result = reg.Dispatch(context.Background(), ToolCall{
		ID:   "call_2",
		Name: "verify_patient",
		Arguments: map[string]any{
			"phone":         "15550100199",
			"date_of_birth": "1991-06-01",
		},
	})
	if !result.Success {
		t.Fatalf("mismatch should be a successful negative result: %s", result.Error)
	}
	if verified, _ := result.Payload["verified"].(bool); verified {
		t.Fatal("wrong dob should not verify")
	}
}

func TestGetAvailableSlotsTool(t *testing.T) {
	reg, _ := newToolFixture(t)

	// Monday 2030-01-14, far enough out to stay in the future.
	result := reg.Dispatch(context.Background(), ToolCall{
		ID:   "call_1",
		Name: "get_available_slots",
		Arguments: map[string]any{
			"start_date": "2030-01-14",
		},
	})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	count, ok := result.Payload["count"].(int)
	if !ok || count != 20 {
		t.Errorf("count = %v, want 20 open slots on an empty Monday", result.Payload["count"])
	}
}

func TestGetAvailableSlotsToolHonorsDuration(t *testing.T) {
	reg, _ := newToolFixture(t)

	result := reg.Dispatch(context.Background(), ToolCall{
		ID:   "call_1",
		Name: "get_available_slots",
		Arguments: map[string]any{
			"start_date": "2030-01-14",
			// JSON decoding hands numbers to handlers as float64.
			"duration_minutes": float64(120),
		},
	})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	if count, _ := result.Payload["count"].(int); count != 17 {
		t.Errorf("count = %v, want 17 two-hour slots on an empty Monday", result.Payload["count"])
	}
	if minutes, _ := result.Payload["duration_minutes"].(int); minutes != 120 {
		t.Errorf("duration_minutes = %v, want 120", result.Payload["duration_minutes"])
	}
}

func TestGetAvailableSlotsToolRejectsBadDuration(t *testing.T) {
	reg, _ := newToolFixture(t)

	result := reg.Dispatch(context.Background(), ToolCall{
		ID:   "call_1",
		Name: "get_available_slots",
		Arguments: map[string]any{
			"start_date":       "2030-01-14",
			"duration_minutes": float64(-30),
		},
	})
	if result.Success {
		t.Fatal("negative duration should fail")
	}
}

func TestCancelAppointmentToolUnknownID(t *testing.T) {
	reg, _ := newToolFixture(t)

	result := reg.Dispatch(context.Background(), ToolCall{
		ID:        "call_1",
		Name:      "cancel_appointment",
		Arguments: map[string]any{"appointment_id": "apt_missing1"},
	})
	if result.Success {
		t.Fatal("unknown appointment should fail")
	}
}
