package model

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	Id             string        `json:"id"`
	VenueId        string        `json:"venueId"`
	VenueName      string        `json:"venueName"`
	Date           string        `json:"date"`
	TimeSlot       string        `json:"timeSlot"`
	Status         BookingStatus `json:"status"`
	UserId         string        `json:"userId"`
	CreatedAt      time.Time     `json:"createdAt"`
	ConfirmationId string        `json:"confirmationId,omitempty"`
}

func (b Booking) Cancelled() bool {
	return b.Status == BookingStatusCancelled
}
