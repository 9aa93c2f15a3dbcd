package booking

import (
	"time"

	"bookkar-cli/model"
)

const (
	DefaultSlotDays  = 30
	DefaultFirstHour = 9
	DefaultLastHour  = 21
)

// GenerateSlots builds one-hour slots for days consecutive days starting at from,
// with slot starts from firstHour through lastHour inclusive.
func GenerateSlots(from time.Time, days int, firstHour int, lastHour int) []model.TimeSlot {
	if days <= 0 || firstHour < 0 || lastHour > 23 || firstHour > lastHour {
		return nil
	}
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	slots := make([]model.TimeSlot, 0, days*(lastHour-firstHour+1))
	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d)
		for hour := firstHour; hour <= lastHour; hour++ {
			begin := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
			slots = append(slots, model.TimeSlot{Start: begin, End: begin.Add(time.Hour)})
		}
	}
	return slots
}

// NextMonthSlots is the default availability for a newly created venue: thirty
// days starting one month from now, 9:00 to 22:00.
func NextMonthSlots(now time.Time) []model.TimeSlot {
	return GenerateSlots(now.AddDate(0, 1, 0), DefaultSlotDays, DefaultFirstHour, DefaultLastHour)
}
