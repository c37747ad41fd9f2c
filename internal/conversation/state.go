package conversation

// State accumulates what one exchange learns about the caller. It is
// rebuilt per request from durable history plus the current turn results.
type State struct {
	Turns          []Turn
	PatientID      string
	AppointmentIDs []string
	RequiresHuman  bool
	Context        map[string]string
}

// NewState seeds a state from prior history turns.
func NewState(history []Turn) *State {
	s := &State{Context: make(map[string]string)}
	s.Turns = append(s.Turns, history...)
	return s
}

// Append records a transcript turn.
func (s *State) Append(turn Turn) {
	s.Turns = append(s.Turns, turn)
}

// FlagHuman marks the exchange for human follow-up. The flag is sticky:
// nothing later in the conversation clears it.
func (s *State) FlagHuman() {
	s.RequiresHuman = true
}

// Absorb pulls identifiers out of a successful tool result. Only named
// payload fields are consulted; assistant prose is never parsed.
func (s *State) Absorb(result ToolResult) {
	if !result.Success {
		return
	}
	switch result.Name {
	case "create_patient":
		s.setPatientID(result.Payload)
	case "verify_patient":
		if verified, _ := result.Payload["verified"].(bool); verified {
			s.setPatientID(result.Payload)
		}
	case "create_appointment":
		if id, ok := result.Payload["appointment_id"].(string); ok && id != "" {
			s.addAppointmentID(id)
		}
	}
}

func (s *State) setPatientID(payload map[string]any) {
	if id, ok := payload["patient_id"].(string); ok && id != "" {
		s.PatientID = id
	}
}

// addAppointmentID keeps AppointmentIDs an ordered set: first-seen order,
// no duplicates.
func (s *State) addAppointmentID(id string) {
	for _, existing := range s.AppointmentIDs {
		if existing == id {
			return
		}
	}
	s.AppointmentIDs = append(s.AppointmentIDs, id)
}

// SetContext records a contextual hint annotated onto the next user turn.
func (s *State) SetContext(key, value string) {
	if s.Context == nil {
		s.Context = make(map[string]string)
	}
	s.Context[key] = value
}
