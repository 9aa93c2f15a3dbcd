package service

import (
	"context"
	"net/http"
	"strings"

	"bookkar-cli/errs"
	"bookkar-cli/model"
)

type bookingPayload struct {
	BookingId string              `json:"booking_id"`
	VenueId   string              `json:"venue_id"`
	VenueName string              `json:"venue_name"`
	Date      string              `json:"date"`
	TimeSlot  string              `json:"time_slot"`
	Status    model.BookingStatus `json:"status"`
	UserId    string              `json:"user_id"`
}

// BookingConfirmation is the backend acknowledgement of POST /bookings.
type BookingConfirmation struct {
	ConfirmationId string
	Message        string
}

// BookVenue submits a locally created booking. The confirmation id falls back
// to the local booking id when the backend does not return one.
func (c *Client) BookVenue(ctx context.Context, b model.Booking) (BookingConfirmation, error) {
	if strings.TrimSpace(b.VenueId) == "" || strings.TrimSpace(b.TimeSlot) == "" {
		return BookingConfirmation{}, errs.Validation("venue and time slot are required")
	}

	payload := bookingPayload{
		BookingId: b.Id,
		VenueId:   b.VenueId,
		VenueName: b.VenueName,
		Date:      b.Date,
		TimeSlot:  b.TimeSlot,
		Status:    b.Status,
		UserId:    b.UserId,
	}
	var resp struct {
		Id        string `json:"id"`
		BookingId string `json:"booking_id"`
		Message   string `json:"message"`
		Data      *struct {
			Id        string `json:"id"`
			BookingId string `json:"booking_id"`
		} `json:"data"`
	}
	if err := c.sendJSON(ctx, http.MethodPost, c.endpoint("/bookings"), payload, &resp); err != nil {
		return BookingConfirmation{}, err
	}

	candidates := []string{resp.BookingId, resp.Id}
	if resp.Data != nil {
		candidates = append([]string{resp.Data.BookingId, resp.Data.Id}, candidates...)
	}
	candidates = append(candidates, b.Id)
	confirmation := BookingConfirmation{Message: strings.TrimSpace(resp.Message)}
	for _, id := range candidates {
		if id = strings.TrimSpace(id); id != "" {
			confirmation.ConfirmationId = id
			break
		}
	}
	return confirmation, nil
}
