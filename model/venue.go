package model

import "time"

type Venue struct {
	Id            string     `json:"id"`
	Name          string     `json:"name"`
	Location      string     `json:"location"`
	ImageUrl      string     `json:"imageUrl"`
	Capacity      int        `json:"capacity"`
	VenueType     string     `json:"venueType"`
	Facilities    []string   `json:"facilities"`
	TimeSlots     []TimeSlot `json:"timeSlots"`
	Price         string     `json:"price"`
	Rating        float64    `json:"rating"`
	BookingStatus string     `json:"bookingStatus"`
	Address       string     `json:"address"`
	Description   string     `json:"description"`
	OwnerId       string     `json:"ownerId"`
}

// TimeSlot is a bookable interval. End is always after Start.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s TimeSlot) Valid() bool {
	return !s.Start.IsZero() && s.End.After(s.Start)
}

// Date returns the ISO calendar date of the slot start.
func (s TimeSlot) Date() string {
	return s.Start.Format(time.DateOnly)
}

func (s TimeSlot) Label() string {
	return s.Start.Format("15:04") + "-" + s.End.Format("15:04")
}
