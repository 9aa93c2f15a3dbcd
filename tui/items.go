package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"bookkar-cli/booking"
	"bookkar-cli/model"
)

type venueItem struct {
	venue  model.Venue
	recent bool
}

func (v venueItem) Title() string {
	return v.venue.Name
}

func (v venueItem) Description() string {
	parts := []string{}
	if v.recent {
		parts = append(parts, "Recent")
	}
	if v.venue.Location != "" {
		parts = append(parts, v.venue.Location)
	}
	if v.venue.VenueType != "" {
		parts = append(parts, v.venue.VenueType)
	}
	if v.venue.Capacity > 0 {
		parts = append(parts, fmt.Sprintf("%d people", v.venue.Capacity))
	}
	if v.venue.Price != "" {
		parts = append(parts, v.venue.Price)
	}
	if v.venue.Rating > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f", v.venue.Rating))
	}
	return strings.Join(parts, " • ")
}

func (v venueItem) FilterValue() string {
	return strings.ToLower(strings.Join(append([]string{v.venue.Name, v.venue.Location, v.venue.VenueType, v.venue.Address}, v.venue.Facilities...), " "))
}

type dateItem struct {
	date  string
	slots int
}

func (d dateItem) Title() string {
	t, err := time.Parse(time.DateOnly, d.date)
	if err != nil {
		return d.date
	}
	if d.date == time.Now().Format(time.DateOnly) {
		return fmt.Sprintf("%s • %s (Today)", t.Format("Mon"), t.Format("02/01"))
	}
	return fmt.Sprintf("%s • %s", t.Format("Mon"), t.Format("02/01"))
}

func (d dateItem) Description() string {
	switch d.slots {
	case 0:
		return d.date + " • no slots"
	case 1:
		return d.date + " • 1 slot"
	default:
		return fmt.Sprintf("%s • %d slots", d.date, d.slots)
	}
}

func (d dateItem) FilterValue() string {
	return d.date
}

type slotItem struct {
	slot model.TimeSlot
}

func (s slotItem) Title() string {
	return s.slot.Label()
}

func (s slotItem) Description() string {
	return s.slot.End.Sub(s.slot.Start).String()
}

func (s slotItem) FilterValue() string {
	return s.slot.Label()
}

type bookingItem struct {
	booking model.Booking
}

func (b bookingItem) Title() string {
	return fmt.Sprintf("%s • %s %s", b.booking.VenueName, b.booking.Date, b.booking.TimeSlot)
}

func (b bookingItem) Description() string {
	if b.booking.Cancelled() {
		return "Cancelled"
	}
	if b.booking.ConfirmationId != "" {
		return "Confirmed • #" + b.booking.ConfirmationId
	}
	return "Confirmed • awaiting server"
}

func (b bookingItem) FilterValue() string {
	return strings.ToLower(b.Title())
}

// buildVenueItems lists recently viewed venues first, keeping catalog order otherwise.
func buildVenueItems(venues []model.Venue, recentIDs []string) []list.Item {
	rank := make(map[string]int, len(recentIDs))
	for i, id := range recentIDs {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}
	items := make([]venueItem, 0, len(venues))
	for _, venue := range venues {
		_, recent := rank[venue.Id]
		items = append(items, venueItem{venue: venue, recent: recent && venue.Id != ""})
	}
	slices.SortStableFunc(items, func(a, b venueItem) int {
		switch {
		case a.recent && b.recent:
			return rank[a.venue.Id] - rank[b.venue.Id]
		case a.recent:
			return -1
		case b.recent:
			return 1
		default:
			return 0
		}
	})
	out := make([]list.Item, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

// buildDateItems offers the next days starting at base plus every later date
// the venue has slots on.
func buildDateItems(base time.Time, days int, selector *booking.Selector) []list.Item {
	seen := map[string]bool{}
	dates := []string{}
	start := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, base.Location())
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		seen[date] = true
		dates = append(dates, date)
	}
	today := start.Format(time.DateOnly)
	for _, date := range selector.Dates() {
		if !seen[date] && date >= today {
			seen[date] = true
			dates = append(dates, date)
		}
	}
	slices.Sort(dates)

	items := make([]list.Item, 0, len(dates))
	for _, date := range dates {
		count := 0
		for range selector.SlotsForDate(date) {
			count++
		}
		items = append(items, dateItem{date: date, slots: count})
	}
	return items
}

func buildSlotItems(slots []model.TimeSlot) []list.Item {
	items := make([]list.Item, 0, len(slots))
	for _, slot := range slots {
		items = append(items, slotItem{slot: slot})
	}
	return items
}

func buildBookingItems(bookings []model.Booking) []list.Item {
	items := make([]list.Item, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, bookingItem{booking: b})
	}
	return items
}
