package appointments

import "time"

// TimeSlot is a half-open bookable interval [Start, End).
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BusinessHours describes when the practice accepts bookings. Hours are
// clinic-local; the weekday on ClosedWeekday takes no appointments at all.
type BusinessHours struct {
	OpenHour      int
	CloseHour     int
	ClosedWeekday time.Weekday
	Step          time.Duration
}

// DefaultBusinessHours matches the practice schedule: 08:00 to 18:00 in
// 30-minute steps, closed on Sundays.
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		OpenHour:      8,
		CloseHour:     18,
		ClosedWeekday: time.Sunday,
		Step:          30 * time.Minute,
	}
}

// AvailableSlots enumerates every free slot between rangeStart and rangeEnd.
// Candidate starts advance by hours.Step; each candidate spans
// [start, start+duration). booked holds the start times of appointments
// that occupy their slot.
//
// The walk is deterministic: each day is clamped to business hours, a
// candidate is dropped when its interval crosses closing time, and a
// candidate is dropped when any booked start time b satisfies
// start <= b < end. duration <= 0 falls back to hours.Step.
func AvailableSlots(rangeStart, rangeEnd time.Time, duration time.Duration, booked []time.Time, hours BusinessHours) []TimeSlot {
	if hours.Step <= 0 {
		hours.Step = 30 * time.Minute
	}
	if duration <= 0 {
		duration = hours.Step
	}
	var slots []TimeSlot
	if !rangeStart.Before(rangeEnd) {
		return slots
	}

	for day := truncateToDay(rangeStart); day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == hours.ClosedWeekday {
			continue
		}
		dayOpen := day.Add(time.Duration(hours.OpenHour) * time.Hour)
		dayClose := day.Add(time.Duration(hours.CloseHour) * time.Hour)

		cursor := dayOpen
		if cursor.Before(rangeStart) {
			cursor = alignUp(rangeStart, dayOpen, hours.Step)
		}
		for ; cursor.Before(dayClose) && cursor.Before(rangeEnd); cursor = cursor.Add(hours.Step) {
			end := cursor.Add(duration)
			if end.After(dayClose) {
				break
			}
			if !isFree(cursor, end, booked) {
				continue
			}
			slots = append(slots, TimeSlot{Start: cursor, End: end})
		}
	}
	return slots
}

func isFree(start, end time.Time, booked []time.Time) bool {
	for _, b := range booked {
		if !b.Before(start) && b.Before(end) {
			return false
		}
	}
	return true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// alignUp rounds t up to the next step boundary counted from base,
// returning t itself when already aligned.
func alignUp(t, base time.Time, step time.Duration) time.Time {
	if !t.After(base) {
		return base
	}
	offset := t.Sub(base)
	steps := offset / step
	if offset%step != 0 {
		steps++
	}
	return base.Add(steps * step)
}
