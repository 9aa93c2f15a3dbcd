package booking

import (
	"iter"
	"sort"
	"strings"
	"time"

	"bookkar-cli/model"
)

// Selector tracks the date and the single highlighted slot chosen for one venue.
type Selector struct {
	slots    []model.TimeSlot
	date     string
	selected model.TimeSlot
	hasSlot  bool
}

func NewSelector(slots []model.TimeSlot) *Selector {
	return &Selector{slots: slots}
}

// SlotsForDate yields the slots starting on date (YYYY-MM-DD). The sequence can be
// ranged over any number of times and never touches the selection.
func (s *Selector) SlotsForDate(date string) iter.Seq[model.TimeSlot] {
	date = strings.TrimSpace(date)
	return func(yield func(model.TimeSlot) bool) {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return
		}
		for _, slot := range s.slots {
			if slot.Date() != date {
				continue
			}
			if !yield(slot) {
				return
			}
		}
	}
}

// Dates returns the distinct slot dates in ascending order.
func (s *Selector) Dates() []string {
	seen := make(map[string]bool)
	var dates []string
	for _, slot := range s.slots {
		d := slot.Date()
		if seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// SetDate picks a calendar date and drops any slot chosen for the previous date.
func (s *Selector) SetDate(date string) {
	s.date = strings.TrimSpace(date)
	s.selected = model.TimeSlot{}
	s.hasSlot = false
}

func (s *Selector) Select(slot model.TimeSlot) {
	s.selected = slot
	s.hasSlot = true
}

func (s *Selector) Clear() {
	s.date = ""
	s.selected = model.TimeSlot{}
	s.hasSlot = false
}

func (s *Selector) Date() string {
	return s.date
}

func (s *Selector) Selected() (model.TimeSlot, bool) {
	return s.selected, s.hasSlot
}

// Ready reports whether both a date and a slot are chosen.
func (s *Selector) Ready() bool {
	return s.date != "" && s.hasSlot
}
