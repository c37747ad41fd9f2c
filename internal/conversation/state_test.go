package conversation

import "testing"

func TestStateAbsorbsPatientID(t *testing.T) {
	s := NewState(nil)
	s.Absorb(ToolResult{
		Name:    "create_patient",
		Success: true,
		Payload: map[string]any{"patient_id": "pat_abc12345", "full_name": "John Doe"},
	})
	if s.PatientID != "pat_abc12345" {
		t.Errorf("patient id = %q", s.PatientID)
	}
}

func TestStateIgnoresFailedResults(t *testing.T) {
	s := NewState(nil)
	s.Absorb(ToolResult{
		Name:    "create_patient",
		Success: false,
		Payload: map[string]any{"patient_id": "pat_abc12345"},
		Error:   "phone number must contain at least 10 digits",
	})
	if s.PatientID != "" {
		t.Errorf("failed result should not set patient id, got %q", s.PatientID)
	}
}

func TestStateVerifyRequiresVerifiedFlag(t *testing.T) {
	s := NewState(nil)
	s.Absorb(ToolResult{
		Name:    "verify_patient",
		Success: true,
		Payload: map[string]any{"verified": false},
	})
	if s.PatientID != "" {
		t.Errorf("unverified lookup should not set patient id")
	}

	s.Absorb(ToolResult{
		Name:    "verify_patient",
		Success: true,
		Payload: map[string]any{"verified": true, "patient_id": "pat_abc12345"},
	})
	if s.PatientID != "pat_abc12345" {
		t.Errorf("patient id = %q", s.PatientID)
	}
}

func TestStateAppointmentIDsStayOrderedAndUnique(t *testing.T) {
	s := NewState(nil)
	for _, id := range []string{"apt_11111111", "apt_22222222", "apt_11111111", "apt_33333333"} {
		s.Absorb(ToolResult{
			Name:    "create_appointment",
			Success: true,
			Payload: map[string]any{"appointment_id": id},
		})
	}
	want := []string{"apt_11111111", "apt_22222222", "apt_33333333"}
	if len(s.AppointmentIDs) != len(want) {
		t.Fatalf("appointment ids = %v", s.AppointmentIDs)
	}
	for i, id := range want {
		if s.AppointmentIDs[i] != id {
			t.Errorf("appointment ids[%d] = %s, want %s", i, s.AppointmentIDs[i], id)
		}
	}
}

func TestStateRequiresHumanIsSticky(t *testing.T) {
	s := NewState(nil)
	s.FlagHuman()
	s.Absorb(ToolResult{
		Name:    "create_appointment",
		Success: true,
		Payload: map[string]any{"appointment_id": "apt_11111111"},
	})
	if !s.RequiresHuman {
		t.Error("RequiresHuman should stay set")
	}
}

func TestStateSeedsFromHistory(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}
	s := NewState(history)
	if len(s.Turns) != 2 {
		t.Fatalf("turns = %d", len(s.Turns))
	}
	s.Append(Turn{Role: RoleUser, Content: "book me in"})
	if len(history) != 2 {
		t.Error("seeding must not mutate the caller's slice")
	}
}
