package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"bookkar-cli/booking"
	"bookkar-cli/errs"
	"bookkar-cli/model"
	"bookkar-cli/notify"
	"bookkar-cli/service"
	"bookkar-cli/store"
)

const datePickerDays = 14

type venuesMsg struct {
	venues []model.Venue
	err    error
	// stale is set when the fetch failed and venues come from an expired cache.
	stale bool
}

type bookingSyncedMsg struct {
	bookingID    string
	confirmation service.BookingConfirmation
	err          error
}

func (m appModel) updateVenues(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case venuesMsg:
		if msg.err != nil && len(msg.venues) == 0 {
			return m.showError("load venues", msg.err, stateCustomerHome)
		}
		m.venues = msg.venues
		m.venueList.SetItems(buildVenueItems(msg.venues, recentVenueIDs(m.logger)))
		m.venueList.Select(0)
		m.state = stateCustomerHome
		if msg.stale {
			cmd := m.notice.Show("Showing saved venues. "+errs.UserMessage(msg.err), notify.KindError)
			return m, cmd
		}
		return m, nil

	case ownerVenuesMsg:
		return m.updateOwnerVenues(msg)

	case venueCreatedMsg:
		return m.updateVenueCreated(msg)

	case bookingSyncedMsg:
		m.submitting = false
		if msg.err != nil {
			m.logger.Warn("book venue", zap.String("booking_id", msg.bookingID), zap.Error(msg.err))
			if _, err := m.bookings.Cancel(msg.bookingID); err != nil {
				m.logger.Error("cancel unsynced booking", zap.Error(err))
			}
			m.refreshBookingList()
			cmd := m.notice.Show("Booking failed: "+errs.UserMessage(msg.err), notify.KindError)
			return m, cmd
		}
		if _, err := m.bookings.MarkConfirmed(msg.bookingID, msg.confirmation.ConfirmationId); err != nil {
			m.logger.Error("confirm booking", zap.Error(err))
		}
		m.refreshBookingList()
		m.logger.Info("booking confirmed",
			zap.String("booking_id", msg.bookingID),
			zap.String("confirmation_id", msg.confirmation.ConfirmationId),
		)
		return m, nil
	}
	return m, nil
}

func (m appModel) openVenue(l list.Model) (appModel, tea.Cmd, bool) {
	item, ok := l.SelectedItem().(venueItem)
	if !ok {
		return m, nil, true
	}
	m.venue = item.venue
	m.selector = booking.NewSelector(item.venue.TimeSlots)
	if err := store.RememberVenue(item.venue); err != nil {
		m.logger.Debug("remember venue", zap.Error(err))
	}
	m.state = stateVenueDetail
	return m, nil, true
}

func (m appModel) openDatePicker() (appModel, tea.Cmd, bool) {
	if !m.isCustomer() {
		return m, nil, true
	}
	m.selector.Clear()
	m.dateList.SetItems(buildDateItems(m.now(), datePickerDays, m.selector))
	m.dateList.Title = "Select Date • " + m.venue.Name
	m.dateList.Select(0)
	m.state = stateSelectDate
	return m, nil, true
}

func (m appModel) selectDate() (appModel, tea.Cmd, bool) {
	item, ok := m.dateList.SelectedItem().(dateItem)
	if !ok {
		return m, nil, true
	}
	m.selector.SetDate(item.date)
	slots := slices.Collect(m.selector.SlotsForDate(item.date))
	m.slotList.SetItems(buildSlotItems(slots))
	m.slotList.Title = "Time Slots • " + item.date
	m.slotList.Select(0)
	m.state = stateSelectSlot
	return m, nil, true
}

// bookSelectedSlot adds the booking locally, then submits it to the backend.
// A failed submission cancels the local booking when its result arrives.
func (m appModel) bookSelectedSlot() (appModel, tea.Cmd, bool) {
	if m.submitting || !m.isCustomer() {
		return m, nil, true
	}
	item, ok := m.slotList.SelectedItem().(slotItem)
	if !ok {
		return m, nil, true
	}
	m.selector.Select(item.slot)

	date := m.selector.Date()
	created, err := m.bookings.Add(booking.Request{
		VenueId:   m.venue.Id,
		VenueName: m.venue.Name,
		Date:      date,
		TimeSlot:  item.slot.Label(),
		UserId:    m.user.Uid,
	})
	if err != nil {
		cmd := m.notice.Show(errs.UserMessage(err), notify.KindError)
		return m, cmd, true
	}

	m.selector.Clear()
	m.refreshBookingList()
	m.bookingList.Select(len(m.bookingList.Items()) - 1)
	m.state = stateMyBookings
	m.submitting = true
	cmd := m.notice.Show(fmt.Sprintf("Booked %s on %s at %s", created.VenueName, created.Date, created.TimeSlot), notify.KindSuccess)
	return m, tea.Batch(cmd, m.syncBookingCmd(created)), true
}

func (m appModel) cancelSelectedBooking() (appModel, tea.Cmd, bool) {
	item, ok := m.bookingList.SelectedItem().(bookingItem)
	if !ok {
		return m, nil, true
	}
	if item.booking.Cancelled() {
		cmd := m.notice.Show("Booking already cancelled", notify.KindError)
		return m, cmd, true
	}
	index := m.bookingList.Index()
	if _, err := m.bookings.Cancel(item.booking.Id); err != nil {
		cmd := m.notice.Show(errs.UserMessage(err), notify.KindError)
		return m, cmd, true
	}
	m.refreshBookingList()
	m.bookingList.Select(index)
	cmd := m.notice.Show("Booking cancelled", notify.KindSuccess)
	return m, cmd, true
}

func (m *appModel) refreshBookingList() {
	m.bookingList.SetItems(buildBookingItems(m.bookings.List()))
}

func (m appModel) syncBookingCmd(b model.Booking) tea.Cmd {
	return func() tea.Msg {
		confirmation, err := m.client.BookVenue(context.Background(), b)
		return bookingSyncedMsg{bookingID: b.Id, confirmation: confirmation, err: err}
	}
}

func (m appModel) fetchVenuesCmd(force bool) tea.Cmd {
	ttl := m.cfg.CatalogCacheTTL
	return func() tea.Msg {
		if !force && ttl > 0 {
			if cached, fresh, err := store.LoadVenueCache(ttl); err == nil && fresh && len(cached) > 0 {
				return venuesMsg{venues: cached}
			}
		}
		venues, err := m.client.GetVenues(context.Background())
		if err != nil {
			if ttl > 0 {
				if cached, _, cacheErr := store.LoadVenueCache(ttl); cacheErr == nil && len(cached) > 0 {
					return venuesMsg{venues: cached, err: err, stale: true}
				}
			}
			return venuesMsg{err: err}
		}
		if ttl > 0 {
			_ = store.SaveVenueCache(venues)
		}
		return venuesMsg{venues: venues}
	}
}

func recentVenueIDs(logger *zap.Logger) []string {
	recents, err := store.LoadRecentVenues()
	if err != nil {
		logger.Debug("load recent venues", zap.Error(err))
		return nil
	}
	ids := make([]string, 0, len(recents))
	for _, r := range recents {
		ids = append(ids, r.VenueID)
	}
	return ids
}

func (m appModel) venueDetailView() string {
	v := m.venue
	label := lipgloss.NewStyle().Bold(true).Width(12)
	rows := []string{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Render(v.Name),
		"",
	}
	add := func(name, value string) {
		if strings.TrimSpace(value) != "" {
			rows = append(rows, label.Render(name)+value)
		}
	}
	add("Location", v.Location)
	add("Address", v.Address)
	add("Type", v.VenueType)
	add("Capacity", fmt.Sprintf("%d", v.Capacity))
	add("Price", v.Price)
	add("Status", v.BookingStatus)
	if v.Rating > 0 {
		add("Rating", fmt.Sprintf("★ %.1f", v.Rating))
	}
	if len(v.Facilities) > 0 {
		chip := lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("237"))
		chips := make([]string, 0, len(v.Facilities))
		for _, f := range v.Facilities {
			chips = append(chips, chip.Render(f))
		}
		add("Facilities", strings.Join(chips, " "))
	}
	if v.Description != "" {
		rows = append(rows, "", v.Description)
	}
	rows = append(rows, "", m.slotSummary())
	if v.ImageUrl != "" {
		rows = append(rows, hint(v.ImageUrl))
	}

	panel := lipgloss.NewStyle().
		Padding(1, 3).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("63"))
	if m.width > 56 {
		w := m.width - 8
		if w > 84 {
			w = 84
		}
		panel = panel.Width(w)
	}
	return panel.Render(strings.Join(rows, "\n"))
}

func (m appModel) slotSummary() string {
	dates := m.selector.Dates()
	if len(dates) == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render("No slots available")
	}
	return fmt.Sprintf("%d time slots over %d days, from %s to %s", len(m.venue.TimeSlots), len(dates), dates[0], dates[len(dates)-1])
}

func (m appModel) noSlotsView() string {
	date := m.selector.Date()
	message := "No slots available"
	if date != "" {
		message = fmt.Sprintf("No slots available on %s", date)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true).Render(message) +
		"\n\n" + hint("Press esc to pick another date.")
}
