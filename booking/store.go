// Package booking holds the per-session booking state: the in-memory booking
// list and the venue time-slot selection.
package booking

import (
	"strings"
	"sync"
	"time"

	"bookkar-cli/errs"
	"bookkar-cli/model"

	"github.com/google/uuid"
)

type Request struct {
	VenueId   string
	VenueName string
	Date      string
	TimeSlot  string
	UserId    string
}

// Store is the session-scoped booking list. Records are never removed; a
// cancelled booking stays in the list with its status changed.
type Store struct {
	mu       sync.RWMutex
	bookings []model.Booking
	index    map[string]int
	now      func() time.Time
	newID    func() string
}

func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Add validates req and appends a confirmed booking.
func (s *Store) Add(req Request) (model.Booking, error) {
	if err := validate(req); err != nil {
		return model.Booking{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for s.taken(id) {
		id = s.newID()
	}

	b := model.Booking{
		Id:        id,
		VenueId:   strings.TrimSpace(req.VenueId),
		VenueName: strings.TrimSpace(req.VenueName),
		Date:      strings.TrimSpace(req.Date),
		TimeSlot:  strings.TrimSpace(req.TimeSlot),
		Status:    model.BookingStatusConfirmed,
		UserId:    strings.TrimSpace(req.UserId),
		CreatedAt: s.now().UTC(),
	}
	s.index[id] = len(s.bookings)
	s.bookings = append(s.bookings, b)
	return b, nil
}

// Cancel marks the booking cancelled. Cancelling an already cancelled booking
// returns it unchanged. An unknown id is an ErrNotFound and leaves the store untouched.
func (s *Store) Cancel(id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return model.Booking{}, errs.NotFound("booking %q not found", id)
	}
	s.bookings[i].Status = model.BookingStatusCancelled
	return s.bookings[i], nil
}

// MarkConfirmed records the remote confirmation for a booking that is still confirmed locally.
func (s *Store) MarkConfirmed(id string, confirmationID string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return model.Booking{}, errs.NotFound("booking %q not found", id)
	}
	if s.bookings[i].Status == model.BookingStatusConfirmed {
		s.bookings[i].ConfirmationId = confirmationID
	}
	return s.bookings[i], nil
}

func (s *Store) Get(id string) (model.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return model.Booking{}, false
	}
	return s.bookings[i], true
}

// List returns a copy of all bookings in insertion order.
func (s *Store) List() []model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}

func (s *Store) taken(id string) bool {
	_, ok := s.index[id]
	return ok
}

func validate(req Request) error {
	var missing []string
	if strings.TrimSpace(req.VenueId) == "" {
		missing = append(missing, "venue")
	}
	if strings.TrimSpace(req.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(req.TimeSlot) == "" {
		missing = append(missing, "time slot")
	}
	if strings.TrimSpace(req.UserId) == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return errs.Validation("missing required booking fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
