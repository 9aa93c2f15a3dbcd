package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"bookkar-cli/booking"
	"bookkar-cli/errs"
	"bookkar-cli/model"
	"bookkar-cli/notify"
	"bookkar-cli/service"
	"bookkar-cli/store"
)

const (
	venueName = iota
	venueLocation
	venueImageURL
	venueCapacity
	venueType
	venueFacilities
	venuePricing
	venueAddress
	venueDescription
)

const defaultBookingStatus = "Available"

type ownerVenuesMsg struct {
	venues []model.Venue
	err    error
}

type venueCreatedMsg struct {
	venue model.Venue
	err   error
}

func newVenueForm() form {
	return newForm(
		formField{label: "Venue name", placeholder: "Soccer Field"},
		formField{label: "Location", placeholder: "City or area"},
		formField{label: "Image URL", placeholder: "https://..."},
		formField{label: "Capacity", placeholder: "50", limit: 9},
		formField{label: "Venue type", placeholder: "Indoor, Outdoor, Hall..."},
		formField{label: "Facilities", placeholder: "Parking, Lights, Restrooms"},
		formField{label: "Pricing", placeholder: "2000 per hour"},
		formField{label: "Address", placeholder: "Street and number"},
		formField{label: "Description", placeholder: "Optional"},
	)
}

// venueInputFromForm validates the create-venue form. New venues get one-hour
// slots for the month starting one month from now.
func venueInputFromForm(f form, ownerID string, now time.Time) (service.VenueInput, error) {
	name := strings.TrimSpace(f.value(venueName))
	if name == "" {
		return service.VenueInput{}, errs.Validation("Venue name is required")
	}
	rawCapacity := strings.TrimSpace(f.value(venueCapacity))
	if rawCapacity == "" {
		return service.VenueInput{}, errs.Validation("Capacity is required")
	}
	capacity, err := strconv.Atoi(rawCapacity)
	if err != nil || capacity < 0 {
		return service.VenueInput{}, errs.Validation("Capacity must be a non-negative whole number")
	}

	var facilities []string
	for _, facility := range strings.Split(f.value(venueFacilities), ",") {
		if facility = strings.TrimSpace(facility); facility != "" {
			facilities = append(facilities, facility)
		}
	}

	return service.VenueInput{
		Name:          name,
		Location:      strings.TrimSpace(f.value(venueLocation)),
		ImageUrl:      strings.TrimSpace(f.value(venueImageURL)),
		Capacity:      capacity,
		VenueType:     strings.TrimSpace(f.value(venueType)),
		Facilities:    facilities,
		TimeSlots:     booking.NextMonthSlots(now),
		Pricing:       strings.TrimSpace(f.value(venuePricing)),
		BookingStatus: defaultBookingStatus,
		Address:       strings.TrimSpace(f.value(venueAddress)),
		Description:   strings.TrimSpace(f.value(venueDescription)),
		OwnerId:       ownerID,
	}, nil
}

func (m appModel) submitVenueForm() (tea.Model, tea.Cmd) {
	if m.user == nil {
		return m, nil
	}
	in, err := venueInputFromForm(m.venueForm, m.user.Uid, m.now())
	if err != nil {
		m.venueForm.err = errs.UserMessage(err)
		return m, nil
	}
	m.venueForm.err = ""
	m.submitting = true
	return m, tea.Batch(m.createVenueCmd(in), m.spinner.Tick)
}

func (m appModel) updateOwnerVenues(msg ownerVenuesMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m.showError("load owner venues", msg.err, stateOwnerHome)
	}
	m.ownerVenues = msg.venues
	m.ownerList.SetItems(buildVenueItems(msg.venues, nil))
	m.ownerList.Select(0)
	m.state = stateOwnerHome
	return m, nil
}

func (m appModel) updateVenueCreated(msg venueCreatedMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if msg.err != nil {
		m.logger.Warn("create venue", zap.Error(msg.err))
		m.venueForm.err = errs.UserMessage(msg.err)
		return m, nil
	}
	m.ownerVenues = append([]model.Venue{msg.venue}, m.ownerVenues...)
	m.ownerList.SetItems(buildVenueItems(m.ownerVenues, nil))
	m.ownerList.Select(0)
	if m.user != nil {
		if err := store.SaveOwnerVenueCache(m.user.Uid, m.ownerVenues); err != nil {
			m.logger.Debug("save owner venue cache", zap.Error(err))
		}
	}
	if err := store.ClearVenueCache(); err != nil {
		m.logger.Debug("clear venue cache", zap.Error(err))
	}
	m.venueForm.reset()
	m.state = stateOwnerHome
	cmd := m.notice.Show("Venue created: "+msg.venue.Name, notify.KindSuccess)
	return m, cmd
}

func (m appModel) createVenueCmd(in service.VenueInput) tea.Cmd {
	return func() tea.Msg {
		venue, err := m.client.CreateVenue(context.Background(), in)
		return venueCreatedMsg{venue: venue, err: err}
	}
}

func (m appModel) fetchOwnerVenuesCmd(force bool) tea.Cmd {
	ttl := m.cfg.CatalogCacheTTL
	ownerID := ""
	if m.user != nil {
		ownerID = m.user.Uid
	}
	return func() tea.Msg {
		if !force && ttl > 0 {
			if cached, fresh, err := store.LoadOwnerVenueCache(ownerID, ttl); err == nil && fresh && len(cached) > 0 {
				return ownerVenuesMsg{venues: cached}
			}
		}
		venues, err := m.client.GetOwnerVenues(context.Background(), ownerID)
		if err == nil && ttl > 0 {
			_ = store.SaveOwnerVenueCache(ownerID, venues)
		}
		return ownerVenuesMsg{venues: venues, err: err}
	}
}
