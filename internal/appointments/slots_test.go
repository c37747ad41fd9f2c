package appointments

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func TestAvailableSlotsFullBusinessDay(t *testing.T) {
	// Monday, no bookings: 08:00 through 17:30 starts, 20 slots.
	start := mustTime(t, "2024-01-15T00:00:00Z")
	end := mustTime(t, "2024-01-16T00:00:00Z")

	slots := AvailableSlots(start, end, 30*time.Minute, nil, DefaultBusinessHours())
	if len(slots) != 20 {
		t.Fatalf("expected 20 slots, got %d", len(slots))
	}
	if got := slots[0].Start; !got.Equal(mustTime(t, "2024-01-15T08:00:00Z")) {
		t.Errorf("first slot starts at %v", got)
	}
	last := slots[len(slots)-1]
	if !last.Start.Equal(mustTime(t, "2024-01-15T17:30:00Z")) {
		t.Errorf("last slot starts at %v", last.Start)
	}
	if !last.End.Equal(mustTime(t, "2024-01-15T18:00:00Z")) {
		t.Errorf("last slot ends at %v", last.End)
	}
}

func TestAvailableSlotsExcludesBookedSlot(t *testing.T) {
	start := mustTime(t, "2024-01-15T08:00:00Z")
	end := mustTime(t, "2024-01-15T18:00:00Z")
	booked := []time.Time{mustTime(t, "2024-01-15T10:00:00Z")}

	slots := AvailableSlots(start, end, 30*time.Minute, booked, DefaultBusinessHours())
	if len(slots) != 19 {
		t.Fatalf("expected 19 slots with one booked, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Equal(mustTime(t, "2024-01-15T10:00:00Z")) {
			t.Error("booked 10:00 slot should not be returned")
		}
	}
}

func TestAvailableSlotsHalfOpenBookedCheck(t *testing.T) {
	// A booking that starts mid-slot drops the candidate containing it, and
	// a booking exactly at a candidate's end belongs to the next candidate.
	start := mustTime(t, "2024-01-15T08:00:00Z")
	end := mustTime(t, "2024-01-15T12:00:00Z")
	booked := []time.Time{mustTime(t, "2024-01-15T10:15:00Z")}

	slots := AvailableSlots(start, end, 30*time.Minute, booked, DefaultBusinessHours())
	for _, s := range slots {
		if s.Start.Equal(mustTime(t, "2024-01-15T10:00:00Z")) {
			t.Errorf("slot %v contains the 10:15 booking", s.Start)
		}
	}
	found := false
	for _, s := range slots {
		if s.Start.Equal(mustTime(t, "2024-01-15T10:30:00Z")) {
			found = true
		}
	}
	if !found {
		t.Error("10:30 slot should stay open, booking at 10:15 ends before it")
	}
}

func TestAvailableSlotsHonorsDuration(t *testing.T) {
	// Two-hour visits: candidates still start every 30 minutes, but the
	// last one that fits begins at 16:00.
	start := mustTime(t, "2024-01-15T00:00:00Z")
	end := mustTime(t, "2024-01-16T00:00:00Z")

	slots := AvailableSlots(start, end, 2*time.Hour, nil, DefaultBusinessHours())
	if len(slots) != 17 {
		t.Fatalf("expected 17 two-hour slots, got %d", len(slots))
	}
	for _, s := range slots {
		if got := s.End.Sub(s.Start); got != 2*time.Hour {
			t.Fatalf("slot %v has duration %v", s.Start, got)
		}
	}
	last := slots[len(slots)-1]
	if !last.Start.Equal(mustTime(t, "2024-01-15T16:00:00Z")) {
		t.Errorf("last slot starts at %v, want 16:00", last.Start)
	}
	if !last.End.Equal(mustTime(t, "2024-01-15T18:00:00Z")) {
		t.Errorf("last slot ends at %v, want 18:00", last.End)
	}
}

func TestAvailableSlotsLongDurationSpansBooking(t *testing.T) {
	// A 10:00 booking blocks every two-hour candidate whose interval
	// contains it: starts 08:30 through 10:00 all go away.
	start := mustTime(t, "2024-01-15T08:00:00Z")
	end := mustTime(t, "2024-01-15T13:00:00Z")
	booked := []time.Time{mustTime(t, "2024-01-15T10:00:00Z")}

	slots := AvailableSlots(start, end, 2*time.Hour, booked, DefaultBusinessHours())
	for _, s := range slots {
		if !s.Start.After(mustTime(t, "2024-01-15T10:00:00Z")) &&
			s.End.After(mustTime(t, "2024-01-15T10:00:00Z")) {
			t.Fatalf("slot [%v, %v) contains the 10:00 booking", s.Start, s.End)
		}
	}
	if slots[0].Start.Equal(mustTime(t, "2024-01-15T08:30:00Z")) {
		t.Error("08:30 candidate overlaps the 10:00 booking")
	}
}

func TestAvailableSlotsZeroDurationFallsBackToStep(t *testing.T) {
	start := mustTime(t, "2024-01-15T00:00:00Z")
	end := mustTime(t, "2024-01-16T00:00:00Z")

	slots := AvailableSlots(start, end, 0, nil, DefaultBusinessHours())
	if len(slots) != 20 {
		t.Fatalf("expected 20 slots with fallback duration, got %d", len(slots))
	}
	if got := slots[0].End.Sub(slots[0].Start); got != 30*time.Minute {
		t.Errorf("fallback duration = %v", got)
	}
}

func TestAvailableSlotsSkipsSunday(t *testing.T) {
	// 2024-01-14 is a Sunday.
	start := mustTime(t, "2024-01-14T00:00:00Z")
	end := mustTime(t, "2024-01-15T00:00:00Z")

	if slots := AvailableSlots(start, end, 30*time.Minute, nil, DefaultBusinessHours()); len(slots) != 0 {
		t.Fatalf("expected no Sunday slots, got %d", len(slots))
	}
}

func TestAvailableSlotsMultiDaySkipsSunday(t *testing.T) {
	// Saturday through Monday: two working days of 20 slots each.
	start := mustTime(t, "2024-01-13T00:00:00Z")
	end := mustTime(t, "2024-01-16T00:00:00Z")

	slots := AvailableSlots(start, end, 30*time.Minute, nil, DefaultBusinessHours())
	if len(slots) != 40 {
		t.Fatalf("expected 40 slots across Saturday and Monday, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Weekday() == time.Sunday {
			t.Fatalf("emitted a Sunday slot at %v", s.Start)
		}
	}
}

func TestAvailableSlotsAlignsMidSlotRangeStart(t *testing.T) {
	start := mustTime(t, "2024-01-15T09:10:00Z")
	end := mustTime(t, "2024-01-15T11:00:00Z")

	slots := AvailableSlots(start, end, 30*time.Minute, nil, DefaultBusinessHours())
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	if !slots[0].Start.Equal(mustTime(t, "2024-01-15T09:30:00Z")) {
		t.Errorf("first slot starts at %v, want 09:30", slots[0].Start)
	}
}

func TestAvailableSlotsNoneAfterClose(t *testing.T) {
	start := mustTime(t, "2024-01-15T17:45:00Z")
	end := mustTime(t, "2024-01-15T22:00:00Z")

	if slots := AvailableSlots(start, end, 30*time.Minute, nil, DefaultBusinessHours()); len(slots) != 0 {
		t.Fatalf("expected no slots past closing, got %d starting %v", len(slots), slots[0].Start)
	}
}

func TestAvailableSlotsEmptyRange(t *testing.T) {
	at := mustTime(t, "2024-01-15T10:00:00Z")
	if slots := AvailableSlots(at, at, 30*time.Minute, nil, DefaultBusinessHours()); len(slots) != 0 {
		t.Fatalf("expected empty result, got %d", len(slots))
	}
}
